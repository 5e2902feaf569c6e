package model

import (
	"unicode/utf8"

	ioutils "github.com/handiism/khinsider-downloader/internal/io"
)

// Album represents a KHInsider album being downloaded.
//
// Album holds what the tracklist page told us about the album:
//   - Name as shown in the page heading
//   - DeclaredTracks from the "Number of Files" line (0 when unknown)
//   - CoverArtURL for the optional cover art download
//   - Tracks in tracklist order
//
// Example:
//
//	album := NewAlbum("https://downloads.khinsider.com/game-soundtracks/album/foo", "Foo OST")
//	fmt.Println(album.DirName()) // "Foo OST"
type Album struct {
	// URL is the absolute URL of the tracklist page.
	URL string

	// Name is the album title from the page heading.
	Name string

	// DeclaredTracks is the advisory track count from the info paragraph.
	// Zero means the page did not say.
	DeclaredTracks int

	// CoverArtURL is the absolute URL of the first album image.
	// Empty string means no cover art is available.
	CoverArtURL string

	// Tracks contains all tracks in tracklist order.
	Tracks []*Track
}

// NewAlbum creates an Album for the tracklist page at url.
func NewAlbum(url, name string) *Album {
	return &Album{
		URL:  url,
		Name: name,
	}
}

// DirName returns the album name made safe for use as a directory or
// archive name.
//
// Names are truncated to stay under the Windows folder path limit once
// joined with a short output directory. The cut never splits a character.
func (a *Album) DirName() string {
	name := ioutils.SanitizeFileName(a.Name)
	if len(name) >= 200 {
		cut := 199
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	if name == "" {
		name = "album"
	}
	return name
}

// HasCoverArt returns true if the album page links a cover image.
func (a *Album) HasCoverArt() bool {
	return a.CoverArtURL != ""
}

// Downloaded returns the tracks that have been written, in tracklist order.
func (a *Album) Downloaded() []*Track {
	var done []*Track
	for _, t := range a.Tracks {
		if t.FileName != "" {
			done = append(done, t)
		}
	}
	return done
}
