package ioutils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file.mp3", "normal-file.mp3"},
		{"file:with:colons.mp3", "file_with_colons.mp3"},
		{"file<with>brackets.mp3", "file_with_brackets.mp3"},
		{"file/with\\slashes.mp3", "file_with_slashes.mp3"},
		{"file|with|pipes.mp3", "file_with_pipes.mp3"},
		{"file?with*wildcards.mp3", "file_with_wildcards.mp3"},
		{"file\"with\"quotes.mp3", "file_with_quotes.mp3"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"  padded  ", "padded"},
		{"baz.test.mp3", "baz.test.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := IsDir(dir); err != nil {
		t.Errorf("IsDir(dir) = %v, want nil", err)
	}
	if err := IsDir(file); err == nil {
		t.Error("IsDir(file) should fail")
	}
	if err := IsDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("IsDir(missing) should fail")
	}
}
