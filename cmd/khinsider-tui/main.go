package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/handiism/khinsider-downloader/internal/config"
	ioutils "github.com/handiism/khinsider-downloader/internal/io"
	"github.com/handiism/khinsider-downloader/internal/logging"
	"github.com/handiism/khinsider-downloader/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := ioutils.IsDir(settings.OutputDirectory); err != nil {
		return err
	}

	// The terminal belongs to the UI; logs only go to the configured file.
	logCfg := settings.ToLogConfig(false)
	logCfg.DisableConsole = true
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return tui.Run(settings, logger)
}
