package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/handiism/khinsider-downloader/internal/config"
)

func TestApplyFlags_OnlyChanged(t *testing.T) {
	opts := &options{}
	cmd := newRootCmd(opts, &bytes.Buffer{})
	if err := cmd.ParseFlags([]string{"--max-tracks", "3", "--tag"}); err != nil {
		t.Fatal(err)
	}

	s := config.DefaultSettings()
	s.OutputFormat = "zip"
	s.DownloadMaxRetries = 9
	applyFlags(cmd, s, opts)

	if s.MaxConcurrentTracksDownload != 3 {
		t.Errorf("MaxConcurrentTracksDownload = %d, want 3", s.MaxConcurrentTracksDownload)
	}
	if !s.ModifyTags {
		t.Error("ModifyTags not set")
	}
	if s.OutputFormat != "zip" {
		t.Errorf("OutputFormat = %q, unset flag must not override", s.OutputFormat)
	}
	if s.DownloadMaxRetries != 9 {
		t.Errorf("DownloadMaxRetries = %d, unset flag must not override", s.DownloadMaxRetries)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "khinsider.json")
	out := &bytes.Buffer{}

	cmd := newRootCmd(&options{}, out)
	cmd.SetArgs([]string{"config", "init", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *config.DefaultSettings() {
		t.Errorf("loaded = %+v, want defaults", loaded)
	}

	cmd = newRootCmd(&options{}, out)
	cmd.SetArgs([]string{"config", "init", path})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error when the file exists")
	}
}

func TestRootRequiresURL(t *testing.T) {
	cmd := newRootCmd(&options{}, &bytes.Buffer{})
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without URLs")
	}
}
