package khinsider

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

const tracklistHTML = `<html><body>
<div id="pageContent">
	<h2>Chrono Trigger OST</h2>
	<div class="albumImage"><a href="/covers/chrono.jpg"><img src="/thumbs/chrono.jpg"></a></div>
	<p align="left">
	Platforms: SNES<br>
	Number of Files: 3<br>
	Total Filesize: 120 MB
	</p>
	<table id="songlist">
		<tr id="songlist_header"><th>#</th><th>Song Name</th></tr>
		<tr>
			<td class="clickable-row"><a href="b.html">Peaceful Day</a></td>
			<td class="playlistDownloadSong"><a href="a.html"><i>get_app</i></a></td>
		</tr>
		<tr>
			<td class="clickable-row"><a href="/album/chrono/02.mp3">Wind Scene</a></td>
			<td class="playlistDownloadSong"><a href="/album/chrono/02.mp3"></a></td>
		</tr>
		<tr>
			<td class="playlistDownloadSong"><a href="">nothing</a></td>
		</tr>
		<tr id="songlist_footer"><th>Total</th></tr>
	</table>
</div>
</body></html>`

func TestAlbumName(t *testing.T) {
	name, err := AlbumName(mustDoc(t, tracklistHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Chrono Trigger OST" {
		t.Errorf("AlbumName() = %q, want %q", name, "Chrono Trigger OST")
	}

	tests := []struct {
		name string
		html string
	}{
		{"no heading", `<html><body><h1>Site</h1></body></html>`},
		{"empty heading", `<html><body><h2>  </h2></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AlbumName(mustDoc(t, tt.html)); !errors.Is(err, ErrAlbumNameNotFound) {
				t.Errorf("AlbumName() error = %v, want ErrAlbumNameNotFound", err)
			}
		})
	}
}

func TestTrackCount(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    int
		wantErr error
	}{
		{
			name: "declared count",
			html: tracklistHTML,
			want: 3,
		},
		{
			name:    "no info paragraph",
			html:    `<html><body><p>Number of Files: 3</p></body></html>`,
			wantErr: ErrInfoNotFound,
		},
		{
			name:    "no count line",
			html:    "<html><body><p align=\"left\">Platforms: PC\nYear: 1995</p></body></html>",
			wantErr: ErrCountNotFound,
		},
		{
			name:    "count not a number",
			html:    "<html><body><p align=\"left\">Number of Files: many</p></body></html>",
			wantErr: ErrCountNotFound,
		},
		{
			name: "value after final colon",
			html: "<html><body><p align=\"left\">Number of Files (disc: 1): 27</p></body></html>",
			want: 27,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrackCount(mustDoc(t, tt.html))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("TrackCount() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("TrackCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTrackLinks(t *testing.T) {
	links := TrackLinks(mustDoc(t, tracklistHTML))

	want := []TrackLink{
		{Href: "a.html", Title: "Peaceful Day"},
		{Href: "/album/chrono/02.mp3", Title: "Wind Scene"},
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links, want %d: %v", len(links), len(want), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %+v, want %+v", i, links[i], want[i])
		}
	}
}

func TestTrackLinks_TieBreakIsDeterministic(t *testing.T) {
	html := `<table><tr>
		<td><a href="b.html">B</a></td>
		<td class="playlistDownloadSong"><a href="a.html">A</a></td>
	</tr></table>`

	for i := 0; i < 20; i++ {
		links := TrackLinks(mustDoc(t, html))
		if len(links) != 1 || links[0].Href != "a.html" {
			t.Fatalf("run %d: TrackLinks() = %v, want a.html", i, links)
		}
	}
}

func TestTrackLinks_Empty(t *testing.T) {
	links := TrackLinks(mustDoc(t, `<html><body><h2>Album</h2><table><tr><td>x</td></tr></table></body></html>`))
	if len(links) != 0 {
		t.Errorf("TrackLinks() = %v, want none", links)
	}
}

func downloadPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, h := range hrefs {
		b.WriteString(`<tr><td><a href="` + h + `"><span class="songDownloadLink">Click here</span></a></td></tr>`)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

const pageURL = "https://downloads.example.com/game-soundtracks/album/chrono/01.mp3"

func TestAudioLink_Preference(t *testing.T) {
	both := downloadPage("https://cdn.example.com/chrono/01%20Peaceful.mp3", "https://cdn.example.com/chrono/01%20Peaceful.flac")
	mp3Only := downloadPage("https://cdn.example.com/chrono/01%20Peaceful.mp3")

	tests := []struct {
		name           string
		html           string
		preferLossless bool
		want           string
	}{
		{"prefer lossless with both", both, true, "https://cdn.example.com/chrono/01%20Peaceful.flac"},
		{"prefer lossy with both", both, false, "https://cdn.example.com/chrono/01%20Peaceful.mp3"},
		{"prefer lossless without flac", mp3Only, true, "https://cdn.example.com/chrono/01%20Peaceful.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AudioLink(mustDoc(t, tt.html), pageURL, tt.preferLossless)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("AudioLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAudioLink_NoLink(t *testing.T) {
	pages := map[string]string{
		"no links":     downloadPage(),
		"m4a only":     downloadPage("/chrono/01.m4a"),
		"ogg and m4a":  downloadPage("/chrono/01.ogg", "/chrono/01.m4a"),
		"no extension": downloadPage("/chrono/01"),
	}

	for name, html := range pages {
		for _, prefer := range []bool{true, false} {
			t.Run(name, func(t *testing.T) {
				_, err := AudioLink(mustDoc(t, html), pageURL, prefer)
				if !errors.Is(err, ErrNoAudioLink) {
					t.Errorf("AudioLink(prefer=%v) error = %v, want ErrNoAudioLink", prefer, err)
				}
			})
		}
	}
}

func TestAudioLinks_ResolvesAndKeepsLast(t *testing.T) {
	html := downloadPage("/files/first.MP3", "../second.mp3?token=1", "https://cdn.example.com/x.flac")

	links, err := AudioLinks(mustDoc(t, html), pageURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := AudioLinkSet{
		"mp3":  "https://downloads.example.com/game-soundtracks/album/second.mp3?token=1",
		"flac": "https://cdn.example.com/x.flac",
	}
	if len(links) != len(want) {
		t.Fatalf("AudioLinks() = %v, want %v", links, want)
	}
	for ext, u := range want {
		if links[ext] != u {
			t.Errorf("links[%q] = %q, want %q", ext, links[ext], u)
		}
	}
}

func TestCoverArtURL(t *testing.T) {
	got, ok := CoverArtURL(mustDoc(t, tracklistHTML), "https://downloads.example.com/game-soundtracks/album/chrono")
	if !ok {
		t.Fatal("expected cover art")
	}
	if want := "https://downloads.example.com/covers/chrono.jpg"; got != want {
		t.Errorf("CoverArtURL() = %q, want %q", got, want)
	}

	if _, ok := CoverArtURL(mustDoc(t, `<html><body></body></html>`), "https://example.com"); ok {
		t.Error("expected no cover art")
	}
}

func TestResolveURL(t *testing.T) {
	got, err := ResolveURL("https://example.com/album/chrono", "chrono/01.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if want := "https://example.com/album/chrono/01.mp3"; got != want {
		t.Errorf("ResolveURL() = %q, want %q", got, want)
	}
}
