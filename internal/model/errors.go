package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the operational failures a download can run into.
//
// The set is closed: code that partitions failures switches over every
// kind explicitly, and an error that carries no kind at all is treated as
// unexpected.
type ErrorKind int

const (
	// KindTransport is a network or HTTP failure after retries were
	// exhausted, or a non-success status code.
	KindTransport ErrorKind = iota + 1

	// KindExtraction is a page whose shape does not match what the
	// extractors expect (missing album title, missing info paragraph...).
	KindExtraction

	// KindNoLinkFound is a track download page without a usable audio link.
	KindNoLinkFound

	// KindNoTracksFound is a tracklist page without any track rows.
	KindNoTracksFound

	// KindWrite is a local filesystem failure while writing output.
	KindWrite
)

// String returns the name used in log fields.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindExtraction:
		return "extraction"
	case KindNoLinkFound:
		return "no_link_found"
	case KindNoTracksFound:
		return "no_tracks_found"
	case KindWrite:
		return "write"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DownloadError is the typed error produced by every stage of the pipeline.
//
// URL names the page or file being processed when the error happened, and
// Album is filled in once the album name is known.
type DownloadError struct {
	Kind  ErrorKind
	URL   string
	Album string
	Err   error
}

func (e *DownloadError) Error() string {
	var msg string
	switch e.Kind {
	case KindTransport:
		msg = "transport error"
	case KindExtraction:
		msg = "unexpected page layout"
	case KindNoLinkFound:
		msg = "could not find song links"
	case KindNoTracksFound:
		msg = "no songs found"
	case KindWrite:
		msg = "write error"
	default:
		msg = "download error"
	}
	if e.URL != "" {
		msg += " on " + e.URL
	}
	if e.Album != "" {
		msg += " (album " + e.Album + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DownloadError) Unwrap() error { return e.Err }

// NewTransportError wraps a network failure for url.
func NewTransportError(url string, err error) *DownloadError {
	return &DownloadError{Kind: KindTransport, URL: url, Err: err}
}

// NewExtractionError wraps a page layout mismatch for url.
func NewExtractionError(url string, err error) *DownloadError {
	return &DownloadError{Kind: KindExtraction, URL: url, Err: err}
}

// NewNoLinkFoundError wraps the reason a track page had no audio link.
func NewNoLinkFoundError(pageURL string, err error) *DownloadError {
	return &DownloadError{Kind: KindNoLinkFound, URL: pageURL, Err: err}
}

// NewNoTracksFoundError reports a tracklist page without tracks.
func NewNoTracksFoundError(albumURL, album string) *DownloadError {
	return &DownloadError{Kind: KindNoTracksFound, URL: albumURL, Album: album}
}

// NewWriteError wraps a local filesystem failure for the named file.
func NewWriteError(name string, err error) *DownloadError {
	return &DownloadError{Kind: KindWrite, URL: name, Err: err}
}

// KindOf returns the kind of the first DownloadError in err's chain.
// The second result is false when err carries no DownloadError.
func KindOf(err error) (ErrorKind, bool) {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// WithAlbum stamps the album name on err when it is a DownloadError
// without one. Other errors are returned unchanged.
func WithAlbum(err error, album string) error {
	var de *DownloadError
	if errors.As(err, &de) && de.Album == "" {
		de.Album = album
	}
	return err
}
