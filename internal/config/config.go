// Package config handles sizewatch daemon configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Browser   BrowserConfig `yaml:"browser"`
	Pages     []PageConfig  `yaml:"pages"`
	Sinks     []SinkConfig  `yaml:"sinks"`
	DebugAddr string        `yaml:"debug_addr"` // chi debug endpoint; empty disables
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote  string `yaml:"remote"`  // WebSocket URL of an external Chrome; empty launches locally
	Headful bool   `yaml:"headful"` // default headless
}

// PageConfig defines a page whose surfaces are watched.
type PageConfig struct {
	ID         string   `yaml:"id"`
	URL        string   `yaml:"url"`
	Selectors  []string `yaml:"selectors"`   // CSS selectors of elements to watch
	Viewport   bool     `yaml:"viewport"`    // also watch the viewport
	ThrottleMS int      `yaml:"throttle_ms"` // default throttle interval, milliseconds
}

// Throttle returns the page's default throttle interval.
func (p PageConfig) Throttle() time.Duration {
	return time.Duration(p.ThrottleMS) * time.Millisecond
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | sqlite
	Path string `yaml:"path"` // database path for sqlite
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Pages {
		if c.Pages[i].ThrottleMS <= 0 {
			c.Pages[i].ThrottleMS = 90
		}
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = c.Pages[i].URL
		}
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
}

func (c *Config) validate() error {
	for _, p := range c.Pages {
		if p.URL == "" {
			return fmt.Errorf("config: page %q has no url", p.ID)
		}
	}
	for _, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "sqlite":
			if s.Path == "" {
				return fmt.Errorf("config: sqlite sink needs a path")
			}
		default:
			return fmt.Errorf("config: unknown sink type %q", s.Type)
		}
	}
	return nil
}
