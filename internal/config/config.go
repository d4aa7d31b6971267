// Package config handles loading and saving user configuration for shinkei.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file inside the config directory.
const FileName = "config.yaml"

// Config holds all user configuration for the shinkei client.
type Config struct {
	ServerURL  string        `yaml:"server_url"`
	Timeout    time.Duration `yaml:"timeout"`
	StudyLimit int           `yaml:"study_limit"` // Max cards per study session (0 = all)
	Audio      AudioConfig   `yaml:"audio"`
}

// AudioConfig holds settings for pronunciation playback.
type AudioConfig struct {
	Player       string        `yaml:"player,omitempty"` // Explicit player command, e.g. "mpv --really-quiet"
	PollInterval time.Duration `yaml:"poll_interval"`    // Progress refresh while playing
	Format       string        `yaml:"format"`           // "mp3" or "wav"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:  "http://localhost:5000",
		Timeout:    30 * time.Second,
		StudyLimit: 20,
		Audio: AudioConfig{
			PollInterval: 100 * time.Millisecond,
			Format:       "mp3",
		},
	}
}

// Load reads configuration from path, then applies any values set on v
// (flags bound with BindPFlag and SHINKEI_* environment variables).
// A missing file is not an error. v may be nil.
func Load(path string, v *viper.Viper) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	if v != nil {
		applyOverrides(&cfg, v)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyOverrides(cfg *Config, v *viper.Viper) {
	if v.IsSet("server_url") {
		cfg.ServerURL = v.GetString("server_url")
	}
	if v.IsSet("timeout") {
		cfg.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("study_limit") {
		cfg.StudyLimit = v.GetInt("study_limit")
	}
	if v.IsSet("audio.player") {
		cfg.Audio.Player = v.GetString("audio.player")
	}
	if v.IsSet("audio.poll_interval") {
		cfg.Audio.PollInterval = v.GetDuration("audio.poll_interval")
	}
	if v.IsSet("audio.format") {
		cfg.Audio.Format = v.GetString("audio.format")
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url must be an absolute URL, got %q", c.ServerURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.StudyLimit < 0 {
		return errors.New("study_limit must not be negative")
	}
	if c.Audio.PollInterval <= 0 {
		return errors.New("audio.poll_interval must be positive")
	}
	switch strings.ToLower(c.Audio.Format) {
	case "mp3", "wav":
	default:
		return fmt.Errorf("audio.format must be mp3 or wav, got %q", c.Audio.Format)
	}
	return nil
}

// Save writes the configuration to path as YAML.
func Save(path string, cfg Config) error {
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetConfigDir returns the default configuration directory.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "shinkei"), nil
}

// EnsureConfigDir creates dir if it doesn't exist.
func EnsureConfigDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return nil
}
