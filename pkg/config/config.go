// Package config loads streamflo settings from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

// Config is the root of a streamflo YAML file.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Editor EditorConfig `yaml:"editor"`
	Server ServerConfig `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

type EditorConfig struct {
	NodeDropping bool    `yaml:"node_dropping"`
	AutoLink     bool    `yaml:"auto_link"`
	DropRange    float64 `yaml:"drop_range"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Editor: EditorConfig{AutoLink: true, DropRange: stream.DefaultDropRange},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults. An empty path yields Default().
// Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Editor.DropRange < 0 {
		return fmt.Errorf("config: editor.drop_range must not be negative, got %v", c.Editor.DropRange)
	}
	return nil
}

// Stream converts the editor section into the editor's own settings.
func (e EditorConfig) Stream() stream.EditorConfig {
	return stream.EditorConfig{
		NodeDropping: e.NodeDropping,
		AutoLink:     e.AutoLink,
		DropRange:    e.DropRange,
	}
}
