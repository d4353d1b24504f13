// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Plex       *PlexConfig      `toml:"plex"`
	Sonarr     *SonarrConfig    `toml:"sonarr"`
	Radarr     *RadarrConfig    `toml:"radarr"`
	Overseerr  *OverseerrConfig `toml:"overseerr"`
	Queue      QueueConfig      `toml:"queue"`
	Rules      RulesConfig      `toml:"rules"`
	Protection ProtectionConfig `toml:"protection"`
	Redownload RedownloadConfig `toml:"redownload"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type PlexConfig struct {
	URL       string   `toml:"url"`
	Token     string   `toml:"token"`
	Libraries []string `toml:"libraries"`
}

type SonarrConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

type RadarrConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

type OverseerrConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// QueueConfig controls the deletion queue buffer and retention.
type QueueConfig struct {
	DefaultBufferDays int    `toml:"default_buffer_days"`
	RetentionDays     int    `toml:"retention_days"`
	SweepSchedule     string `toml:"sweep_schedule"`
	DryRun            bool   `toml:"dry_run"`
}

// RulesConfig controls the scheduled rule runs.
type RulesConfig struct {
	Schedule string `toml:"schedule"`
}

// ProtectionConfig mirrors the episode protection knobs.
type ProtectionConfig struct {
	Enabled                bool   `toml:"enabled"`
	Schedule               string `toml:"schedule"`
	ActiveViewerDays       int    `toml:"active_viewer_days"`
	MinEpisodesAhead       int    `toml:"min_episodes_ahead"`
	VelocityBufferDays     int    `toml:"velocity_buffer_days"`
	MaxEpisodesAhead       int    `toml:"max_episodes_ahead"`
	MinVelocitySamples     int    `toml:"min_velocity_samples"`
	LookbackEpisodes       int    `toml:"lookback_episodes"`
	DefaultVelocity        float64 `toml:"default_velocity"`
	MinDaysSinceWatch      int    `toml:"min_days_since_watch"`
	RequireAllUsersWatched bool   `toml:"require_all_users_watched"`
	IncludeSpecials        bool   `toml:"include_specials"`
	WatchlistGraceDays     int    `toml:"watchlist_grace_days"`
}

// RedownloadConfig controls re-acquisition of protected episodes.
type RedownloadConfig struct {
	Enabled                        bool   `toml:"enabled"`
	Schedule                       string `toml:"schedule"`
	LeadDays                       int    `toml:"lead_days"`
	EmergencyBufferHours           int    `toml:"emergency_buffer_hours"`
	VelocityChangeThresholdPercent int    `toml:"velocity_change_threshold_percent"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8585
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/prunarr.db"
	}
	if cfg.Queue.DefaultBufferDays == 0 {
		cfg.Queue.DefaultBufferDays = 7
	}
	if cfg.Queue.RetentionDays == 0 {
		cfg.Queue.RetentionDays = 90
	}
	if cfg.Queue.SweepSchedule == "" {
		cfg.Queue.SweepSchedule = "every 1h"
	}
	if cfg.Rules.Schedule == "" {
		cfg.Rules.Schedule = "daily@03"
	}
	if cfg.Protection.Schedule == "" {
		cfg.Protection.Schedule = "every 6h"
	}
	if cfg.Protection.ActiveViewerDays == 0 {
		cfg.Protection.ActiveViewerDays = 30
	}
	if cfg.Protection.MinEpisodesAhead == 0 {
		cfg.Protection.MinEpisodesAhead = 3
	}
	if cfg.Protection.VelocityBufferDays == 0 {
		cfg.Protection.VelocityBufferDays = 14
	}
	if cfg.Protection.MaxEpisodesAhead == 0 {
		cfg.Protection.MaxEpisodesAhead = 50
	}
	if cfg.Protection.MinVelocitySamples == 0 {
		cfg.Protection.MinVelocitySamples = 3
	}
	if cfg.Protection.LookbackEpisodes == 0 {
		cfg.Protection.LookbackEpisodes = 10
	}
	if cfg.Protection.DefaultVelocity == 0 {
		cfg.Protection.DefaultVelocity = 0.5
	}
	if cfg.Protection.WatchlistGraceDays == 0 {
		cfg.Protection.WatchlistGraceDays = 14
	}
	if cfg.Redownload.Schedule == "" {
		cfg.Redownload.Schedule = "every 12h"
	}
	if cfg.Redownload.LeadDays == 0 {
		cfg.Redownload.LeadDays = 3
	}
	if cfg.Redownload.EmergencyBufferHours == 0 {
		cfg.Redownload.EmergencyBufferHours = 24
	}
	if cfg.Redownload.VelocityChangeThresholdPercent == 0 {
		cfg.Redownload.VelocityChangeThresholdPercent = 50
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR}, ${VAR:-default}, and ${VAR:?message}
// with environment variable values. Returns the substituted content and the
// variables that were required but unset.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := match[2 : len(match)-1] // Strip ${ and }

		name, modifier, rest := expr, "", ""
		if i := strings.Index(expr, ":-"); i >= 0 {
			name, modifier, rest = expr[:i], ":-", expr[i+2:]
		} else if i := strings.Index(expr, ":?"); i >= 0 {
			name, modifier, rest = expr[:i], ":?", expr[i+2:]
		}

		if value := os.Getenv(name); value != "" {
			return value
		}

		switch modifier {
		case ":-":
			return rest
		case ":?":
			missing = append(missing, fmt.Sprintf("%s: %s", name, rest))
			return match
		default:
			missing = append(missing, name)
			return match
		}
	})
	return out, missing
}
