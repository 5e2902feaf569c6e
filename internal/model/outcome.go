package model

import "go.uber.org/multierr"

// TrackOutcome is the result of one track pipeline.
type TrackOutcome struct {
	Number   int
	PageURL  string
	AudioURL string
	FileName string
	Bytes    int64
	Err      error
}

// OK reports whether the track was downloaded.
func (o TrackOutcome) OK() bool {
	return o.Err == nil
}

// AlbumOutcome is the result of one album download.
//
// Exactly one of Committed and Err is set once the album finished: either
// every file reached the output, or the output was discarded.
type AlbumOutcome struct {
	URL        string
	Name       string
	TrackCount int
	Tracks     []TrackOutcome

	// Committed is true when the sink was committed.
	Committed bool

	// Unexpected is true when Err holds failures outside the ErrorKind
	// taxonomy. They indicate a bug rather than an operational fault.
	Unexpected bool

	Err error
}

// Failed returns the outcomes of the tracks that did not complete.
func (o *AlbumOutcome) Failed() []TrackOutcome {
	var failed []TrackOutcome
	for _, t := range o.Tracks {
		if !t.OK() {
			failed = append(failed, t)
		}
	}
	return failed
}

// BatchOutcome collects the outcome of every requested album.
type BatchOutcome struct {
	Albums []*AlbumOutcome
}

// Err combines the errors of every failed album, or returns nil when every
// album was committed.
func (b *BatchOutcome) Err() error {
	var err error
	for _, a := range b.Albums {
		if a != nil && a.Err != nil {
			err = multierr.Append(err, a.Err)
		}
	}
	return err
}

// Committed returns how many albums were committed.
func (b *BatchOutcome) Committed() int {
	n := 0
	for _, a := range b.Albums {
		if a != nil && a.Committed {
			n++
		}
	}
	return n
}
