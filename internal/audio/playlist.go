package audio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/handiism/khinsider-downloader/internal/model"
)

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	FormatZPL
)

// ParsePlaylistFormat maps a configuration value to a PlaylistFormat.
func ParsePlaylistFormat(s string) (PlaylistFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m3u":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	case "wpl":
		return FormatWPL, nil
	case "zpl":
		return FormatZPL, nil
	}
	return FormatM3U, fmt.Errorf("unknown playlist format %q (want m3u, pls, wpl or zpl)", s)
}

// Extension returns the file extension for the format, with the dot.
func (f PlaylistFormat) Extension() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	case FormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// PlaylistCreator generates playlist files in various formats.
//
// The playlist lists the tracks of an album that were written, in
// tracklist order, by file name. It is stored next to the tracks so the
// names resolve relative to it. KHInsider does not publish durations, so
// extended formats mark them unknown.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist(album)
//
//	// #EXTM3U
//	// #EXTINF:-1,Peaceful Day
//	// 01 Peaceful Day.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// Parameters:
//   - format: The playlist format to generate
//   - extended: For M3U format, whether to include #EXTINF lines
//     (ignored for other formats)
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// FileName returns the name the playlist for album is stored under.
func (p *PlaylistCreator) FileName(album *model.Album) string {
	return album.DirName() + p.format.Extension()
}

// CreatePlaylist generates playlist content for an album.
func (p *PlaylistCreator) CreatePlaylist(album *model.Album) string {
	tracks := album.Downloaded()
	switch p.format {
	case FormatPLS:
		return p.createPLS(tracks)
	case FormatWPL:
		return p.createSMIL(album, tracks, "wpl", "1.0", false)
	case FormatZPL:
		return p.createSMIL(album, tracks, "zpl", "2.0", true)
	default:
		return p.createM3U(tracks)
	}
}

func (p *PlaylistCreator) createM3U(tracks []*model.Track) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, track := range tracks {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:-1,%s\n", track.DisplayTitle())
		}
		sb.WriteString(track.FileName + "\n")
	}
	return sb.String()
}

// createPLS generates a PLS playlist. Length -1 marks an unknown duration.
//
//	[playlist]
//	File1=01.mp3
//	Title1=Song Title
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(tracks []*model.Track) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, track := range tracks {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, track.FileName)
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, track.DisplayTitle())
		fmt.Fprintf(&sb, "Length%d=-1\n", idx)
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(tracks))
	sb.WriteString("Version=2\n")
	return sb.String()
}

// createSMIL generates the XML playlists of Windows Media Player (wpl)
// and Zune (zpl). The zpl flavour carries album and track titles on each
// media element.
func (p *PlaylistCreator) createSMIL(album *model.Album, tracks []*model.Track, kind, version string, detailed bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<?%s version=\"%s\"?>\n", kind, version)
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(album.Name))
	if detailed {
		sb.WriteString("    <meta name=\"Generator\" content=\"khinsider-downloader\"/>\n")
		fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(tracks))
	}
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")
	for _, track := range tracks {
		if detailed {
			fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" trackTitle=\"%s\"/>\n",
				escapeXML(track.FileName), escapeXML(album.Name), escapeXML(track.DisplayTitle()))
			continue
		}
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(track.FileName))
	}
	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")
	return sb.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
