// Package model defines the core data structures used throughout
// the khinsider-downloader application.
//
// # Album and Track
//
// Album is the working state of one album download: the tracklist page URL,
// the name from the page heading and the ordered tracks:
//
//	album := model.NewAlbum(albumURL, "Chrono Trigger OST")
//	track := model.NewTrack(album, 1, "Peaceful Day", trackPageURL)
//	album.Tracks = append(album.Tracks, track)
//
// # Errors
//
// DownloadError carries an ErrorKind from a closed set. Every stage of the
// pipeline returns one, so callers can tell operational failures apart from
// bugs:
//
//	if kind, ok := model.KindOf(err); ok && kind == model.KindNoLinkFound {
//	    // the track page had neither a FLAC nor an MP3 link
//	}
//
// # Outcomes
//
// TrackOutcome, AlbumOutcome and BatchOutcome record what happened to every
// track, album and batch. BatchOutcome.Err combines the failures of every
// album.
package model
