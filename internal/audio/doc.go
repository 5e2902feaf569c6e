// Package audio adds optional extras to a downloaded album: ID3 tags on
// MP3 files and a playlist file.
//
// # ID3 Tagging
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(path, track, nil)
//
// The tagger writes album title, track number and title. FLAC files are
// left alone.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(album)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
