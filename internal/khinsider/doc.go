// Package khinsider extracts album and track information from KHInsider
// pages.
//
// The package handles the two kinds of page involved in an album download:
//
//  1. The tracklist page: album name, declared track count, one link per
//     track row and the cover image
//  2. The track download page: the audio file links, grouped by extension
//
// All functions take an already parsed *goquery.Document and do no I/O.
//
// # Tracklist Page
//
//	name, err := khinsider.AlbumName(doc)
//	count, err := khinsider.TrackCount(doc) // advisory
//	for _, link := range khinsider.TrackLinks(doc) {
//	    pageURL, _ := khinsider.ResolveURL(albumURL, link.Href)
//	}
//
// # Download Page
//
//	audioURL, err := khinsider.AudioLink(doc, pageURL, preferFlac)
//	if errors.Is(err, khinsider.ErrNoAudioLink) {
//	    // neither FLAC nor MP3 offered
//	}
//
// When FLAC is preferred and offered it is chosen; otherwise the MP3 link
// is used. Other formats (M4A, OGG) are ignored.
package khinsider
