package sizewatch

import (
	"github.com/hazyhaar/sizewatch/internal/config"
)

// DaemonConfig is the top-level cmd/sizewatch configuration. Re-exported
// from internal.
type DaemonConfig = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines a page whose surfaces are watched.
type PageConfig = config.PageConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*DaemonConfig, error) {
	return config.LoadFile(path)
}
