package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handiism/khinsider-downloader/internal/config"
	"github.com/handiism/khinsider-downloader/internal/download"
	ioutils "github.com/handiism/khinsider-downloader/internal/io"
	"github.com/handiism/khinsider-downloader/internal/logging"
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type options struct {
	configPath     string
	verbose        bool
	preferFlac     bool
	outputDir      string
	outputFormat   string
	playlist       bool
	playlistFormat string
	coverArt       bool
	tag            bool
	maxAlbums      int
	maxTracks      int
	retries        int
	logFile        string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&options{}, os.Stdout).ExecuteContext(ctx); err != nil {
		code := 1
		var exit *exitError
		if errors.As(err, &exit) {
			code = exit.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(code)
	}
}

func newRootCmd(opts *options, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "khinsider-dl [flags] URL...",
		Short: "Download albums from KHInsider",
		Long: `Download every track of one or more KHInsider albums.

Each album is written to the output directory as a folder, a tar archive or
a zip archive. An album is only kept when all of its tracks downloaded; any
failure removes what was written for it.

For interactive mode, use: khinsider-tui`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts, out)
		},
	}

	f := root.Flags()
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default: ./khinsider.* or ~/.config/khinsider/khinsider.*)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show verbose output")
	f.BoolVar(&opts.preferFlac, "prefer-flac", false, "Download FLAC when the album offers it")
	f.StringVarP(&opts.outputDir, "output-directory", "o", ".", "Directory albums are written to; must exist")
	f.StringVar(&opts.outputFormat, "output-format", "directory", "Album output: directory, tar or zip")
	f.BoolVar(&opts.playlist, "playlist", false, "Create a playlist file")
	f.StringVar(&opts.playlistFormat, "playlist-format", "m3u", "Playlist format: m3u, pls, wpl or zpl")
	f.BoolVar(&opts.coverArt, "cover-art", false, "Save the album cover next to the tracks")
	f.BoolVar(&opts.tag, "tag", false, "Write ID3 tags to MP3 files")
	f.IntVar(&opts.maxAlbums, "max-albums", 0, "Albums downloaded at once (0: unlimited)")
	f.IntVar(&opts.maxTracks, "max-tracks", 10, "Tracks per album downloaded at once (0: unlimited)")
	f.IntVar(&opts.retries, "retries", 5, "Attempts per request")
	f.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")

	root.AddCommand(newConfigCmd(opts, out))
	return root
}

func newConfigCmd(opts *options, out io.Writer) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigName + ".json"
			if len(args) == 1 {
				path = args[0]
			} else if opts.configPath != "" {
				path = opts.configPath
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.DefaultSettings().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
			return nil
		},
	})
	return cfg
}

// applyFlags overrides loaded settings with the flags given on the command
// line.
func applyFlags(cmd *cobra.Command, s *config.Settings, opts *options) {
	flags := cmd.Flags()
	if flags.Changed("prefer-flac") {
		s.PreferFlac = opts.preferFlac
	}
	if flags.Changed("output-directory") {
		s.OutputDirectory = opts.outputDir
	}
	if flags.Changed("output-format") {
		s.OutputFormat = opts.outputFormat
	}
	if flags.Changed("playlist") {
		s.CreatePlaylist = opts.playlist
	}
	if flags.Changed("playlist-format") {
		s.PlaylistFormat = opts.playlistFormat
	}
	if flags.Changed("cover-art") {
		s.SaveCoverArtInFolder = opts.coverArt
	}
	if flags.Changed("tag") {
		s.ModifyTags = opts.tag
	}
	if flags.Changed("max-albums") {
		s.MaxConcurrentAlbumsDownload = opts.maxAlbums
	}
	if flags.Changed("max-tracks") {
		s.MaxConcurrentTracksDownload = opts.maxTracks
	}
	if flags.Changed("retries") {
		s.DownloadMaxRetries = opts.retries
	}
	if flags.Changed("log-file") {
		s.LogFile = opts.logFile
	}
}

func run(cmd *cobra.Command, urls []string, opts *options, out io.Writer) error {
	ctx := cmd.Context()

	settings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, settings, opts)
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := ioutils.IsDir(settings.OutputDirectory); err != nil {
		return err
	}

	logger, err := logging.New(settings.ToLogConfig(opts.verbose))
	if err != nil {
		return err
	}
	defer logger.Sync()

	fmt.Fprintln(out, "♫ KHInsider Downloader")
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out)

	manager := download.NewManager(settings, logger, printer(out, opts.verbose))
	outcome, err := manager.DownloadAlbums(ctx, urls)

	received, files, _ := manager.GetProgress()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(out, "Committed %d/%d albums, %d files (%.2f MB)\n",
		outcome.Committed(), len(outcome.Albums), files, float64(received)/1024/1024)

	if ctx.Err() != nil {
		return &exitError{code: 130, err: errors.New("download cancelled")}
	}
	if err != nil {
		logger.Error("some albums failed", zap.Error(err))
		return &exitError{code: 1, err: fmt.Errorf("%d album(s) failed", len(outcome.Albums)-outcome.Committed())}
	}
	return nil
}

// printer shows progress events on out. Warnings and errors are left to
// the logger.
func printer(out io.Writer, verbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		switch event.Level {
		case download.LevelSuccess:
			fmt.Fprintln(out, "✓ "+event.Message)
		case download.LevelInfo:
			fmt.Fprintln(out, "› "+event.Message)
		case download.LevelVerbose:
			if verbose {
				fmt.Fprintln(out, "  "+event.Message)
			}
		}
	}
}
