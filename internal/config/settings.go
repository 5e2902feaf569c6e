package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/handiism/khinsider-downloader/internal/audio"
	khttp "github.com/handiism/khinsider-downloader/internal/http"
	ioutils "github.com/handiism/khinsider-downloader/internal/io"
	"github.com/handiism/khinsider-downloader/internal/logging"
)

// ConfigName is the base name searched for when no file is given.
const ConfigName = "khinsider"

// EnvPrefix prefixes environment overrides, e.g. KHINSIDER_PREFER_FLAC.
const EnvPrefix = "KHINSIDER"

// Settings holds all configuration options.
type Settings struct {
	// Output
	OutputDirectory string `json:"output_directory" mapstructure:"output_directory"`
	OutputFormat    string `json:"output_format" mapstructure:"output_format"` // directory, tar, zip
	PreferFlac      bool   `json:"prefer_flac" mapstructure:"prefer_flac"`

	// Download settings
	MaxConcurrentAlbumsDownload int     `json:"max_concurrent_albums" mapstructure:"max_concurrent_albums"`
	MaxConcurrentTracksDownload int     `json:"max_concurrent_tracks" mapstructure:"max_concurrent_tracks"`
	DownloadMaxRetries          int     `json:"download_max_retries" mapstructure:"download_max_retries"`
	DownloadRetryCooldown       float64 `json:"download_retry_cooldown" mapstructure:"download_retry_cooldown"`
	DownloadRetryMaxCooldown    float64 `json:"download_retry_max_cooldown" mapstructure:"download_retry_max_cooldown"`
	DownloadRetryExponent       float64 `json:"download_retry_exponent" mapstructure:"download_retry_exponent"`
	RequestTimeout              float64 `json:"request_timeout" mapstructure:"request_timeout"`
	UserAgent                   string  `json:"user_agent" mapstructure:"user_agent"`

	// Cover art settings
	SaveCoverArtInFolder bool `json:"save_cover_art_in_folder" mapstructure:"save_cover_art_in_folder"`
	SaveCoverArtInTags   bool `json:"save_cover_art_in_tags" mapstructure:"save_cover_art_in_tags"`
	CoverArtMaxSize      int  `json:"cover_art_max_size" mapstructure:"cover_art_max_size"`
	ConvertCoverArtToJPG bool `json:"convert_cover_art_to_jpg" mapstructure:"convert_cover_art_to_jpg"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist" mapstructure:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" mapstructure:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended" mapstructure:"m3u_extended"`

	// Tag settings
	ModifyTags bool `json:"modify_tags" mapstructure:"modify_tags"`

	// Logging
	LogLevel      string `json:"log_level" mapstructure:"log_level"`
	LogFile       string `json:"log_file" mapstructure:"log_file"`
	LogMaxSizeMB  int    `json:"log_max_size_mb" mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups" mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `json:"log_max_age_days" mapstructure:"log_max_age_days"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDirectory: ".",
		OutputFormat:    string(ioutils.FormatDirectory),
		PreferFlac:      false,

		MaxConcurrentAlbumsDownload: 0,
		MaxConcurrentTracksDownload: 10,
		DownloadMaxRetries:          5,
		DownloadRetryCooldown:       0.1,
		DownloadRetryMaxCooldown:    30,
		DownloadRetryExponent:       2,
		RequestTimeout:              0,
		UserAgent:                   "khinsider-downloader",

		SaveCoverArtInFolder: false,
		SaveCoverArtInTags:   false,
		CoverArtMaxSize:      1000,
		ConvertCoverArtToJPG: true,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		ModifyTags: false,

		LogLevel:      "",
		LogFile:       "",
		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,
	}
}

// Load reads settings from path, or from the first khinsider.{json,yaml,toml}
// found in the working directory or $HOME/.config/khinsider when path is
// empty. Environment variables prefixed with KHINSIDER_ override file
// values. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v, DefaultSettings())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return settings, nil
}

func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("output_directory", d.OutputDirectory)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("prefer_flac", d.PreferFlac)

	v.SetDefault("max_concurrent_albums", d.MaxConcurrentAlbumsDownload)
	v.SetDefault("max_concurrent_tracks", d.MaxConcurrentTracksDownload)
	v.SetDefault("download_max_retries", d.DownloadMaxRetries)
	v.SetDefault("download_retry_cooldown", d.DownloadRetryCooldown)
	v.SetDefault("download_retry_max_cooldown", d.DownloadRetryMaxCooldown)
	v.SetDefault("download_retry_exponent", d.DownloadRetryExponent)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("user_agent", d.UserAgent)

	v.SetDefault("save_cover_art_in_folder", d.SaveCoverArtInFolder)
	v.SetDefault("save_cover_art_in_tags", d.SaveCoverArtInTags)
	v.SetDefault("cover_art_max_size", d.CoverArtMaxSize)
	v.SetDefault("convert_cover_art_to_jpg", d.ConvertCoverArtToJPG)

	v.SetDefault("create_playlist", d.CreatePlaylist)
	v.SetDefault("playlist_format", d.PlaylistFormat)
	v.SetDefault("m3u_extended", d.M3UExtended)

	v.SetDefault("modify_tags", d.ModifyTags)

	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	v.SetDefault("log_max_backups", d.LogMaxBackups)
	v.SetDefault("log_max_age_days", d.LogMaxAgeDays)
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Validate checks values that cannot be corrected silently.
func (s *Settings) Validate() error {
	if _, err := ioutils.ParseFormat(s.OutputFormat); err != nil {
		return err
	}
	if _, err := audio.ParsePlaylistFormat(s.PlaylistFormat); err != nil {
		return err
	}
	if s.DownloadMaxRetries < 1 {
		return fmt.Errorf("download_max_retries must be at least 1, got %d", s.DownloadMaxRetries)
	}
	if s.DownloadRetryCooldown < 0 || s.DownloadRetryMaxCooldown < 0 {
		return errors.New("retry cooldowns must not be negative")
	}
	if s.DownloadRetryExponent < 1 {
		return fmt.Errorf("download_retry_exponent must be at least 1, got %g", s.DownloadRetryExponent)
	}
	if s.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	if s.CoverArtMaxSize < 0 {
		return errors.New("cover_art_max_size must not be negative")
	}
	return nil
}

// Format returns the parsed output format. Call Validate first.
func (s *Settings) Format() ioutils.Format {
	f, err := ioutils.ParseFormat(s.OutputFormat)
	if err != nil {
		return ioutils.FormatDirectory
	}
	return f
}

// Playlist returns the parsed playlist format. Call Validate first.
func (s *Settings) Playlist() audio.PlaylistFormat {
	f, _ := audio.ParsePlaylistFormat(s.PlaylistFormat)
	return f
}

// ToClientOptions converts settings to HTTP client options.
func (s *Settings) ToClientOptions(logger *zap.Logger) khttp.Options {
	return khttp.Options{
		Attempts:     s.DownloadMaxRetries,
		RetryWaitMin: seconds(s.DownloadRetryCooldown),
		RetryWaitMax: seconds(s.DownloadRetryMaxCooldown),
		Exponent:     s.DownloadRetryExponent,
		Timeout:      seconds(s.RequestTimeout),
		UserAgent:    s.UserAgent,
		Logger:       logger,
	}
}

// ToLogConfig converts settings to a logging configuration.
func (s *Settings) ToLogConfig(verbose bool) logging.Config {
	return logging.Config{
		Level:      s.LogLevel,
		Verbose:    verbose,
		File:       s.LogFile,
		MaxSizeMB:  s.LogMaxSizeMB,
		MaxBackups: s.LogMaxBackups,
		MaxAgeDays: s.LogMaxAgeDays,
		Compress:   true,
	}
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
