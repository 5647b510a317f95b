// Package config loads the soulrec configuration from TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"soulrec/internal/searcher"
)

type Config struct {
	// Backend is the Nicotine++ web API connection.
	Backend BackendConfig `koanf:"backend"`

	// Search holds the track search policy.
	Search SearchConfig `koanf:"search"`

	// Lastfm enables the Last.fm recommendation source when configured.
	Lastfm LastfmConfig `koanf:"lastfm"`

	// Listenbrainz enables the ListenBrainz recommendation source.
	Listenbrainz ListenbrainzConfig `koanf:"listenbrainz"`

	Paths PathsConfig `koanf:"paths"`

	// LogLevel is "debug", "info", "warn" or "error" (default: "info").
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json" (default: "text").
	LogFormat string `koanf:"log_format"`
}

// BackendConfig holds the Nicotine++ API connection settings.
type BackendConfig struct {
	URL            string `koanf:"url"`             // e.g., "http://localhost:7770"
	TimeoutSeconds int    `koanf:"timeout_seconds"` // per-request timeout (default: 30)
}

// SearchConfig mirrors the search policy fields. MinBitrate and
// RequireFreeSlots are pointers so an explicit zero or false overrides the
// default.
type SearchConfig struct {
	MinBitrate           *int     `koanf:"min_bitrate"`
	MaxFileSizeMB        float64  `koanf:"max_file_size_mb"`
	MinSimilarity        float64  `koanf:"min_similarity"`
	SufficientSimilarity float64  `koanf:"sufficient_similarity"`
	MaxAttempts          int      `koanf:"max_attempts"`
	MaxWaitSeconds       int      `koanf:"max_wait_time"`
	RequireFreeSlots     *bool    `koanf:"require_free_slots"`
	AllowedExtensions    []string `koanf:"allowed_extensions"`
	RequireTerms         []string `koanf:"require_terms"`
	ExcludeTerms         []string `koanf:"exclude_terms"`
	FallbackStrategies   []string `koanf:"fallback_strategies"`
}

// LastfmConfig holds Last.fm credentials.
type LastfmConfig struct {
	Username  string `koanf:"username"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// ListenbrainzConfig holds ListenBrainz credentials.
type ListenbrainzConfig struct {
	Username  string `koanf:"username"`
	UserToken string `koanf:"user_token"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	RecsDir string `koanf:"recs_dir"` // where fetched playlists are stored
	DBPath  string `koanf:"db_path"`  // download history database
}

// Load reads config files in priority order (XDG config dir, then the
// working directory, last wins) and applies defaults.
func Load(paths ...string) (*Config, error) {
	k := koanf.New(".")

	if len(paths) == 0 {
		paths = configPaths()
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.Backend.URL = strings.TrimSuffix(cfg.Backend.URL, "/")
	cfg.Paths.RecsDir = expandPath(cfg.Paths.RecsDir)
	cfg.Paths.DBPath = expandPath(cfg.Paths.DBPath)

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.URL == "" {
		c.Backend.URL = "http://localhost:7770"
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = 30
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Paths.RecsDir == "" {
		c.Paths.RecsDir = filepath.Join(xdg.DataHome, "soulrec", "recs")
	}
	if c.Paths.DBPath == "" {
		c.Paths.DBPath = filepath.Join(xdg.DataHome, "soulrec", "history.db")
	}
}

// Policy builds the validated search policy from the search section, filling
// unset fields with the stock defaults.
func (c *Config) Policy() (searcher.Policy, error) {
	p := searcher.DefaultPolicy()

	s := c.Search
	if s.MinBitrate != nil {
		p.MinBitrate = *s.MinBitrate
	}
	if s.MaxFileSizeMB > 0 {
		p.MaxFileSizeMB = s.MaxFileSizeMB
	}
	if s.MinSimilarity > 0 {
		p.MinSimilarity = s.MinSimilarity
	}
	if s.SufficientSimilarity > 0 {
		p.SufficientSimilarity = s.SufficientSimilarity
	}
	if s.MaxAttempts > 0 {
		p.MaxAttempts = s.MaxAttempts
	}
	if s.MaxWaitSeconds > 0 {
		p.MaxWaitSeconds = s.MaxWaitSeconds
	}
	if s.RequireFreeSlots != nil {
		p.RequireFreeSlots = *s.RequireFreeSlots
	}
	if len(s.AllowedExtensions) > 0 {
		p.AllowedExtensions = s.AllowedExtensions
	}
	p.RequireTerms = s.RequireTerms
	p.ExcludeTerms = s.ExcludeTerms
	if len(s.FallbackStrategies) > 0 {
		p.Strategies = make([]searcher.Strategy, len(s.FallbackStrategies))
		for i, tag := range s.FallbackStrategies {
			p.Strategies[i] = searcher.Strategy(tag)
		}
	}

	if err := p.Validate(); err != nil {
		return searcher.Policy{}, fmt.Errorf("invalid search config: %w", err)
	}
	return p, nil
}

// HasLastfm returns true if the Last.fm source is configured.
func (c *Config) HasLastfm() bool {
	return c.Lastfm.Username != ""
}

// HasListenbrainz returns true if the ListenBrainz source is configured.
func (c *Config) HasListenbrainz() bool {
	return c.Listenbrainz.Username != ""
}

func configPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, "soulrec", "config.toml"),
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
