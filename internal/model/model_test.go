package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/multierr"
)

func TestAlbum_DirName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Chrono Trigger OST", "Chrono Trigger OST"},
		{"Ys I & II: Complete", "Ys I & II_ Complete"},
		{"AC/DC Tribute...", "AC_DC Tribute"},
		{"", "album"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			album := NewAlbum("https://example.com/album/x", tt.name)
			if got := album.DirName(); got != tt.want {
				t.Errorf("DirName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAlbum_DirNameTruncated(t *testing.T) {
	album := NewAlbum("https://example.com/album/x", strings.Repeat("a", 300))
	if got := len(album.DirName()); got != 199 {
		t.Errorf("len(DirName()) = %d, want 199", got)
	}

	// 70 three-byte characters; 199 bytes would end inside the 67th.
	album = NewAlbum("https://example.com/album/x", strings.Repeat("あ", 70))
	name := album.DirName()
	if !utf8.ValidString(name) {
		t.Errorf("DirName() = %q is not valid UTF-8", name)
	}
	if name != strings.Repeat("あ", 66) {
		t.Errorf("DirName() = %q (%d bytes), want 66 characters", name, len(name))
	}
}

func TestAlbum_Downloaded(t *testing.T) {
	album := NewAlbum("https://example.com/album/x", "X")
	t1 := NewTrack(album, 1, "One", "https://example.com/1")
	t2 := NewTrack(album, 2, "Two", "https://example.com/2")
	t3 := NewTrack(album, 3, "Three", "https://example.com/3")
	album.Tracks = []*Track{t1, t2, t3}

	t1.FileName = "01 One.mp3"
	t3.FileName = "03 Three.mp3"

	done := album.Downloaded()
	if len(done) != 2 || done[0] != t1 || done[1] != t3 {
		t.Errorf("Downloaded() = %v, want tracks 1 and 3", done)
	}
}

func TestTrack_ExtensionAndTitle(t *testing.T) {
	album := NewAlbum("https://example.com/album/x", "X")
	track := NewTrack(album, 1, "  ", "https://example.com/1")
	track.FileName = "01 Opening.FLAC"

	if got := track.Extension(); got != "flac" {
		t.Errorf("Extension() = %q, want %q", got, "flac")
	}
	if got := track.DisplayTitle(); got != "01 Opening" {
		t.Errorf("DisplayTitle() = %q, want %q", got, "01 Opening")
	}

	track.Title = "Opening"
	if got := track.DisplayTitle(); got != "Opening" {
		t.Errorf("DisplayTitle() = %q, want %q", got, "Opening")
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("fetch page: %w", NewTransportError("https://example.com", cause))

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindTransport {
		t.Fatalf("KindOf() = %v, %v; want %v, true", kind, ok, KindTransport)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("DownloadError should unwrap to its cause")
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf() should report false for untyped errors")
	}
}

func TestWithAlbum(t *testing.T) {
	err := WithAlbum(NewNoLinkFoundError("https://example.com/1", errors.New("none")), "Foo")

	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatal("expected DownloadError")
	}
	if de.Album != "Foo" {
		t.Errorf("Album = %q, want %q", de.Album, "Foo")
	}
	if !strings.Contains(err.Error(), "album Foo") {
		t.Errorf("Error() = %q, should mention the album", err.Error())
	}
}

func TestBatchOutcome_Err(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	batch := &BatchOutcome{Albums: []*AlbumOutcome{
		{URL: "a", Err: first},
		{URL: "b", Committed: true},
		{URL: "c", Err: second},
	}}

	errs := multierr.Errors(batch.Err())
	if len(errs) != 2 || errs[0] != first || errs[1] != second {
		t.Errorf("Err() = %v, want [first second]", errs)
	}
	if got := batch.Committed(); got != 1 {
		t.Errorf("Committed() = %d, want 1", got)
	}

	empty := &BatchOutcome{Albums: []*AlbumOutcome{{Committed: true}}}
	if err := empty.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}
