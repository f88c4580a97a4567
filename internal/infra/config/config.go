// Package config provides configuration loading from YAML or TOML files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultStation is used when no station codes are configured (Absolute Radio).
const DefaultStation = "abr"

// Config represents the application configuration.
type Config struct {
	Spotify    SpotifyConfig    `yaml:"spotify" toml:"spotify"`
	Sync       SyncConfig       `yaml:"sync" toml:"sync"`
	StationAPI StationAPIConfig `yaml:"station_api" toml:"station_api"`
	Search     SearchConfig     `yaml:"search" toml:"search"`
	State      StateConfig      `yaml:"state" toml:"state"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	Username     string        `yaml:"username" toml:"username"`
	ClientID     string        `yaml:"client_id" toml:"client_id" validate:"required"`
	ClientSecret string        `yaml:"client_secret" toml:"client_secret" validate:"required"`
	RedirectURI  string        `yaml:"redirect_uri" toml:"redirect_uri" default:"http://127.0.0.1:8888/callback" validate:"omitempty,url"`
	RefreshToken string        `yaml:"refresh_token" toml:"refresh_token"`
	TokenFile    string        `yaml:"token_file" toml:"token_file"`
	Timeout      time.Duration `yaml:"timeout" toml:"timeout" default:"30s" validate:"gt=0"`
	MaxAttempts  int           `yaml:"max_attempts" toml:"max_attempts" default:"1" validate:"gte=1,lte=10"`
}

// SyncConfig represents what gets synchronized where.
type SyncConfig struct {
	PlaylistID      string                  `yaml:"playlist_id" toml:"playlist_id"`
	StationCodes    string                  `yaml:"station_codes" toml:"station_codes" default:"abr"`
	SkipBeforeHour  *int                    `yaml:"skip_before_hour" toml:"skip_before_hour" validate:"omitempty,gte=0,lte=23"`
	ReplacePlaylist bool                    `yaml:"replace_playlist" toml:"replace_playlist"`
	UpdatedBy       string                  `yaml:"updated_by" toml:"updated_by" default:"radiosync"`
	Filters         map[string]FilterConfig `yaml:"filters" toml:"filters"`
}

// FilterConfig represents a play filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled" toml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty" toml:"settings"`
}

// StationAPIConfig represents the station history API configuration.
type StationAPIConfig struct {
	BaseURL  string        `yaml:"base_url" toml:"base_url" default:"https://listenapi.planetradio.co.uk/api9.2" validate:"url"`
	PageSize int           `yaml:"page_size" toml:"page_size" default:"100" validate:"gte=1,lte=100"`
	Timezone string        `yaml:"timezone" toml:"timezone"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout" default:"30s" validate:"gt=0"`
	RetryMax int           `yaml:"retry_max" toml:"retry_max" validate:"gte=0,lte=10"`
}

// SearchConfig represents catalog search configuration.
type SearchConfig struct {
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit" validate:"gte=0"`
	Market    string  `yaml:"market" toml:"market" validate:"omitempty,len=2"`
}

// StateConfig selects where the last sync time is kept.
type StateConfig struct {
	Backend string `yaml:"backend" toml:"backend" default:"description" validate:"oneof=description sqlite"`
	Path    string `yaml:"path" toml:"path" default:"radiosync.db"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level      string `yaml:"level" toml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Output     string `yaml:"output" toml:"output" default:"stdout"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb" default:"10" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups" default:"3" validate:"gte=0"`
}

// Load loads configuration from a YAML or TOML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Spotify.RedirectURI = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.StationAPI.Timezone != "" {
		if _, err := time.LoadLocation(c.StationAPI.Timezone); err != nil {
			return errors.Wrapf(err, "invalid station_api.timezone %q", c.StationAPI.Timezone)
		}
	}

	return nil
}

// Stations returns the configured station codes.
// Falls back to DefaultStation when none are set.
func (c *Config) Stations() []string {
	stations := SplitList(c.Sync.StationCodes)
	if len(stations) == 0 {
		return []string{DefaultStation}
	}
	return stations
}

// Location returns the station API time zone.
func (c *Config) Location() *time.Location {
	if c.StationAPI.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StationAPI.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TokenFile returns the path of the cached OAuth token.
// Defaults to ".cache-<username>" like other Spotify tooling, or ".cache".
func (c *Config) TokenFile() string {
	if c.Spotify.TokenFile != "" {
		return c.Spotify.TokenFile
	}
	if c.Spotify.Username != "" {
		return ".cache-" + c.Spotify.Username
	}
	return ".cache"
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Sync.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
