// Package ioutils provides file system utilities for the khinsider-downloader.
//
// This package contains functions for:
//   - Filename sanitization
//   - Directory checks
//   - Output sinks that collect an album's files (see output.go)
package ioutils

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots   = regexp.MustCompile(`\.+$`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// This function ensures filenames are valid across different operating systems,
// particularly Windows which has the most restrictive naming rules.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Leading and trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")     // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")           // Returns "Track"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// IsDir reports whether path exists and is a directory.
//
// Example:
//
//	if err := IsDir(outputDir); err != nil {
//	    return err // "output directory ./music does not exist"
//	}
func IsDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory %s does not exist", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", path)
	}
	return nil
}
