package audio

import (
	"errors"
	"os"
	"strconv"

	"github.com/bogem/id3v2"

	"github.com/handiism/khinsider-downloader/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty removes the frame.
	TagEmpty TagEditAction = iota

	// TagModify sets the frame from the tracklist page.
	TagModify

	// TagDoNotModify leaves the frame as the server sent it.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field KHInsider
// gives us a value for.
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text frames are modified.
	ModifyTags bool

	// Album controls the TALB (Album title) frame.
	Album TagEditAction

	// TrackNumber controls the TRCK (Track number) frame. The value is
	// written as "n/total" when the album declares its file count.
	TrackNumber TagEditAction

	// TrackTitle controls the TIT2 (Title) frame.
	TrackTitle TagEditAction
}

// DefaultTagConfig returns the configuration used by the downloader:
// every known frame is rewritten.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Album:       TagModify,
		TrackNumber: TagModify,
		TrackTitle:  TagModify,
	}
}

// Tagger writes ID3 tags to downloaded MP3 files.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	if err := tagger.SaveTags(sink.Path(track.FileName), track, nil); err != nil {
//	    logger.Warn("tagging failed", zap.Error(err))
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// ErrNotMP3 is returned by SaveTags for files that cannot carry ID3 tags.
var ErrNotMP3 = errors.New("only mp3 files can be tagged")

// SaveTags updates the ID3 tags of the file at path with what is known
// about track. Artwork, when not nil, is embedded as the front cover.
func (t *Tagger) SaveTags(path string, track *model.Track, artwork []byte) error {
	if track.Extension() != "mp3" {
		return ErrNotMP3
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		// Unparsable tags are replaced.
		tag, err = id3v2.Open(path, id3v2.Options{Parse: false})
		if err != nil {
			return err
		}
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if t.config.ModifyTags {
		t.updateTextFrames(tag, track)
	}
	if artwork != nil {
		setFrontCover(tag, artwork)
	}
	return tag.Save()
}

func (t *Tagger) updateTextFrames(tag *id3v2.Tag, track *model.Track) {
	switch t.config.Album {
	case TagEmpty:
		tag.DeleteFrames(tag.CommonID("Album/Movie/Show title"))
	case TagModify:
		if track.Album != nil {
			tag.SetAlbum(track.Album.Name)
		}
	}

	switch t.config.TrackNumber {
	case TagEmpty:
		tag.DeleteFrames("TRCK")
	case TagModify:
		tag.AddTextFrame("TRCK", tag.DefaultEncoding(), trackNumber(track))
	}

	switch t.config.TrackTitle {
	case TagEmpty:
		tag.DeleteFrames(tag.CommonID("Title/Songname/Content description"))
	case TagModify:
		tag.SetTitle(track.DisplayTitle())
	}
}

func trackNumber(track *model.Track) string {
	n := strconv.Itoa(track.Number)
	if track.Album != nil && track.Album.DeclaredTracks > 0 {
		n += "/" + strconv.Itoa(track.Album.DeclaredTracks)
	}
	return n
}

func setFrontCover(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}
