package khinsider

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction errors. They describe a page whose layout does not match
// what KHInsider normally serves.
var (
	// ErrAlbumNameNotFound is returned when the tracklist page has no
	// heading with the album name.
	ErrAlbumNameNotFound = errors.New("no album name found in page")

	// ErrInfoNotFound is returned when the tracklist page has no info
	// paragraph.
	ErrInfoNotFound = errors.New("no info paragraph found in page")

	// ErrCountNotFound is returned when the info paragraph does not
	// declare the number of files.
	ErrCountNotFound = errors.New("info paragraph did not contain number of files")

	// ErrNoAudioLink is returned when a download page links neither a
	// lossless nor a lossy audio file.
	ErrNoAudioLink = errors.New("no song links found in page")
)

// Audio extensions understood by AudioLinkSet.Choose.
const (
	LosslessExtension = "flac"
	LossyExtension    = "mp3"
)

const (
	albumNameSelector = "h2"
	infoSelector      = "p[align=left]"
	trackRowSelector  = "tr"
	trackCellSelector = ".playlistDownloadSong"
	audioLinkSelector = ".songDownloadLink"
	coverArtSelector  = ".albumImage a"

	trackCountLabel = "Number of Files"
)

// TrackLink is one row of the tracklist.
type TrackLink struct {
	// Href is the link to the track's download page, as written in the page.
	Href string

	// Title is the first non-empty anchor text of the row.
	Title string
}

// AlbumName returns the text of the first heading of a tracklist page.
func AlbumName(doc *goquery.Document) (string, error) {
	heading := doc.Find(albumNameSelector).First()
	if heading.Length() == 0 {
		return "", ErrAlbumNameNotFound
	}
	name := strings.TrimSpace(heading.Text())
	if name == "" {
		return "", ErrAlbumNameNotFound
	}
	return name, nil
}

// TrackCount returns the number of files the tracklist page declares.
//
// The count comes from the left-aligned info paragraph, on the line that
// contains "Number of Files"; the integer after the final colon is used.
// It is advisory: the track links are the source of truth.
func TrackCount(doc *goquery.Document) (int, error) {
	info := doc.Find(infoSelector).First()
	if info.Length() == 0 {
		return 0, ErrInfoNotFound
	}

	for _, line := range strings.Split(info.Text(), "\n") {
		if !strings.Contains(line, trackCountLabel) {
			continue
		}
		value := line[strings.LastIndex(line, ":")+1:]
		count, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCountNotFound, err)
		}
		return count, nil
	}
	return 0, ErrCountNotFound
}

// TrackLinks returns one link per tracklist row, in page order.
//
// A row is a table row containing a download cell. When a row holds
// several anchors the lexicographically smallest href is used. This keeps
// the choice deterministic; it is a heuristic and may not pick the right
// anchor on every page layout. Rows without any href are skipped.
func TrackLinks(doc *goquery.Document) []TrackLink {
	rows := doc.Find(trackRowSelector).Has(trackCellSelector)
	if rows.Length() == 0 {
		// Some layouts put the download cells outside a table.
		rows = doc.Find(trackCellSelector)
	}

	var links []TrackLink
	rows.Each(func(_ int, row *goquery.Selection) {
		var hrefs []string
		var title string
		row.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if href = strings.TrimSpace(href); href == "" {
				return
			}
			hrefs = append(hrefs, href)
			if title == "" {
				title = strings.TrimSpace(a.Text())
			}
		})
		if len(hrefs) == 0 {
			return
		}
		links = append(links, TrackLink{Href: slices.Min(hrefs), Title: title})
	})
	return links
}

// AudioLinkSet maps a lowercase file extension to an absolute audio URL.
type AudioLinkSet map[string]string

// Choose returns the lossless URL when preferLossless is set and one is
// present, otherwise the lossy URL. It fails with ErrNoAudioLink when the
// set holds neither.
func (s AudioLinkSet) Choose(preferLossless bool) (string, error) {
	if preferLossless {
		if link, ok := s[LosslessExtension]; ok {
			return link, nil
		}
	}
	if link, ok := s[LossyExtension]; ok {
		return link, nil
	}
	return "", ErrNoAudioLink
}

// AudioLinks collects the audio links of a track download page, resolved
// against pageURL and keyed by extension. When two links share an
// extension the last one wins.
func AudioLinks(doc *goquery.Document, pageURL string) (AudioLinkSet, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	links := AudioLinkSet{}
	doc.Find(audioLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Parent().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		ext := extension(u.Path)
		if ext == "" {
			return
		}
		links[ext] = u.String()
	})
	return links, nil
}

// AudioLink returns the absolute URL of the audio file to download from a
// track download page.
func AudioLink(doc *goquery.Document, pageURL string, preferLossless bool) (string, error) {
	links, err := AudioLinks(doc, pageURL)
	if err != nil {
		return "", err
	}
	return links.Choose(preferLossless)
}

// CoverArtURL returns the absolute URL of the first album image on a
// tracklist page.
func CoverArtURL(doc *goquery.Document, pageURL string) (string, bool) {
	href, ok := doc.Find(coverArtSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	u, err := ResolveURL(pageURL, href)
	if err != nil {
		return "", false
	}
	return u, true
}

// ResolveURL resolves a possibly relative href against base.
func ResolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u, err := b.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return u.String(), nil
}

// extension returns the lowercase text after the last dot of the final
// path segment.
func extension(p string) string {
	base := path.Base(p)
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}
