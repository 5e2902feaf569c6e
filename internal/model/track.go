package model

import (
	"path/filepath"
	"strings"
)

// Track represents a single track within an album.
//
// Track starts with what the tracklist row provides (number, title, page
// URL). AudioURL and FileName are filled in by the track pipeline once the
// download page has been parsed and the file written.
type Track struct {
	// Album is a reference to the parent album.
	Album *Album

	// Number is the 1-indexed position in the tracklist.
	Number int

	// Title is the anchor text of the tracklist row, if any.
	Title string

	// PageURL is the absolute URL of the track's download page.
	PageURL string

	// AudioURL is the absolute URL of the chosen audio file.
	AudioURL string

	// FileName is the name the file was written under inside the sink.
	FileName string
}

// NewTrack creates a new Track belonging to album.
func NewTrack(album *Album, number int, title, pageURL string) *Track {
	return &Track{
		Album:   album,
		Number:  number,
		Title:   strings.TrimSpace(title),
		PageURL: pageURL,
	}
}

// Extension returns the lowercase extension of the written file without
// the leading dot, or "" when the track has not been written.
func (t *Track) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(t.FileName), "."))
}

// DisplayTitle returns the row title, falling back to the file name
// without its extension.
func (t *Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return strings.TrimSuffix(t.FileName, filepath.Ext(t.FileName))
}
