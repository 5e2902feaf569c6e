package audio

import (
	"strings"
	"testing"

	"github.com/handiism/khinsider-downloader/internal/model"
)

func createTestAlbum() *model.Album {
	album := model.NewAlbum("https://example.com/game-soundtracks/album/test", "Test Album")

	track1 := model.NewTrack(album, 1, "Opening", "https://example.com/1.mp3")
	track1.FileName = "01 Opening.mp3"
	track2 := model.NewTrack(album, 2, "", "https://example.com/2.mp3")
	track2.FileName = "02 Field.mp3"
	skipped := model.NewTrack(album, 3, "Missing", "https://example.com/3.mp3")

	album.Tracks = []*model.Track{track1, track2, skipped}
	return album
}

func TestPlaylistCreator_M3U(t *testing.T) {
	content := NewPlaylistCreator(FormatM3U, false).CreatePlaylist(createTestAlbum())

	want := "01 Opening.mp3\n02 Field.mp3\n"
	if content != want {
		t.Errorf("M3U = %q, want %q", content, want)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	content := NewPlaylistCreator(FormatM3U, true).CreatePlaylist(createTestAlbum())

	want := "#EXTM3U\n#EXTINF:-1,Opening\n01 Opening.mp3\n#EXTINF:-1,02 Field\n02 Field.mp3\n"
	if content != want {
		t.Errorf("extended M3U = %q, want %q", content, want)
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	content := NewPlaylistCreator(FormatPLS, false).CreatePlaylist(createTestAlbum())

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	for _, line := range []string{"File1=01 Opening.mp3", "Title2=02 Field", "Length1=-1", "NumberOfEntries=2"} {
		if !strings.Contains(content, line) {
			t.Errorf("PLS should contain %q", line)
		}
	}
	if strings.Contains(content, "Missing") {
		t.Error("PLS should skip tracks that were not written")
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	content := NewPlaylistCreator(FormatWPL, false).CreatePlaylist(createTestAlbum())

	if !strings.Contains(content, "<?wpl") {
		t.Error("WPL should contain XML declaration")
	}
	if !strings.Contains(content, "<title>Test Album</title>") {
		t.Error("WPL should contain album title")
	}
	if strings.Count(content, "<media src=") != 2 {
		t.Error("WPL should contain one media element per written track")
	}
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	content := NewPlaylistCreator(FormatZPL, false).CreatePlaylist(createTestAlbum())

	if !strings.Contains(content, "<?zpl") {
		t.Error("ZPL should contain XML declaration")
	}
	if !strings.Contains(content, `albumTitle="Test Album" trackTitle="Opening"`) {
		t.Error("ZPL should contain title attributes")
	}
	if !strings.Contains(content, `<meta name="ItemCount" content="2"/>`) {
		t.Error("ZPL should count written tracks")
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	album := model.NewAlbum("https://example.com/a", "Album <Special> & Co")
	track := model.NewTrack(album, 1, `Track "Quote"`, "https://example.com/1")
	track.FileName = "a&b.mp3"
	album.Tracks = append(album.Tracks, track)

	content := NewPlaylistCreator(FormatZPL, false).CreatePlaylist(album)

	if strings.Contains(content, "<Special>") {
		t.Error("ZPL should escape < and >")
	}
	if !strings.Contains(content, "a&amp;b.mp3") {
		t.Error("ZPL should escape & as &amp;")
	}
	if strings.Contains(content, `"Quote"`) {
		t.Error("ZPL should escape quotes in attributes")
	}
}

func TestParsePlaylistFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    PlaylistFormat
		ext     string
		wantErr bool
	}{
		{"m3u", FormatM3U, ".m3u", false},
		{"PLS", FormatPLS, ".pls", false},
		{" wpl ", FormatWPL, ".wpl", false},
		{"zpl", FormatZPL, ".zpl", false},
		{"xspf", FormatM3U, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlaylistFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePlaylistFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want || got.Extension() != tt.ext {
				t.Errorf("ParsePlaylistFormat(%q) = %v (%s), want %v (%s)", tt.in, got, got.Extension(), tt.want, tt.ext)
			}
		})
	}
}

func TestPlaylistCreator_FileName(t *testing.T) {
	album := model.NewAlbum("https://example.com/a", "Foo: Bar")
	if got := NewPlaylistCreator(FormatPLS, false).FileName(album); got != "Foo_ Bar.pls" {
		t.Errorf("FileName() = %q, want %q", got, "Foo_ Bar.pls")
	}
}
