// Package config provides configuration management for khinsider-downloader.
//
// This package handles:
//   - Loading settings with viper from JSON, YAML or TOML files
//   - Environment overrides (KHINSIDER_OUTPUT_FORMAT=zip, ...)
//   - Default configuration values
//   - Conversion to HTTP client and logging options for other packages
//
// # Loading
//
//	settings, err := config.Load("") // searches ./khinsider.* and ~/.config/khinsider
//	if err != nil {
//	    return err
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// # Saving Settings
//
//	err := config.DefaultSettings().Save("khinsider.json")
package config
