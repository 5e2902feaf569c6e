// Package http provides the retrying HTTP client used to talk to KHInsider.
//
// The Client in this package handles:
//   - Retries with jittered exponential backoff (hashicorp/go-retryablehttp)
//   - HTML pages parsed into goquery documents
//   - Chunked file downloads into an album sink, with cleanup on failure
//   - Output file naming from Content-Disposition or the URL
//
// Every failure is returned as a *model.DownloadError of kind
// KindTransport or KindWrite.
//
// # Basic Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Fetch and parse a page
//	doc, err := client.FetchDocument(ctx, "https://downloads.khinsider.com/game-soundtracks/album/name")
//
//	// Stream an audio file into a sink
//	name, err := client.Download(ctx, audioURL, sink, nil)
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
