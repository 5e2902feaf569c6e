// Package download provides the download orchestration logic for
// fetching KHInsider albums.
//
// # Manager
//
// The Manager coordinates the entire download process for each album:
//
//  1. Fetch and parse the tracklist page
//  2. Open an output sink named after the album
//  3. Download the tracks concurrently, each through its own
//     fetch / extract / download pipeline
//  4. Discard the sink if any track failed, otherwise add the optional
//     cover art and playlist and commit it
//
// # Basic Usage
//
//	manager := download.NewManager(settings, logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	outcome, err := manager.DownloadAlbums(ctx, urls)
//	if err != nil {
//	    logger.Error("some albums failed", zap.Error(err))
//	}
//
// # Concurrency
//
// The Manager uses configurable concurrency limits (zero or less means
// unlimited):
//   - MaxConcurrentAlbumsDownload: How many albums to download in parallel
//   - MaxConcurrentTracksDownload: How many tracks per album to download in parallel
//
// Neither level cancels siblings on failure: every album and every track
// runs to completion and records its own outcome.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Byte and file counters are available through GetProgress.
//
// # Retry Logic
//
// Every GET is retried by the HTTP client with jittered exponential
// backoff, configurable via settings.DownloadMaxRetries and
// settings.DownloadRetryCooldown.
package download
