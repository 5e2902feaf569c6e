// Package ioutils provides file system and image processing utilities.
//
// This package contains:
//   - Output sinks that stage an album's files and commit or discard them
//   - Filename sanitization for cross-platform compatibility
//   - Cover art resizing and format conversion
//
// # Output Sinks
//
// A Sink is bound to one album. Tracks are written concurrently through
// Create, then the album is either committed or discarded:
//
//	sink, err := ioutils.NewSink(ioutils.FormatZip, "/music", "Chrono Trigger OST")
//	if err != nil {
//	    return err
//	}
//	w, _ := sink.Create("01 Peaceful Day.mp3")
//	io.Copy(w, body)
//	w.Close()
//
//	if failed {
//	    sink.Discard() // removes /music/Chrono Trigger OST
//	} else {
//	    sink.Commit() // writes /music/Chrono Trigger OST.zip
//	}
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Image Processing
//
//	svc := ioutils.NewImageService()
//	resized, _ := svc.ResizeImage(ctx, imageData, 500, 500)
//	jpeg, _ := svc.ConvertToJPEG(ctx, pngData)
package ioutils
