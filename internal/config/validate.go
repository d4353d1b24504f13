// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/vmunix/prunarr/internal/scheduler"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Collaborator validation
	if c.Plex == nil {
		errs = append(errs, "plex: a media server connection is required")
	} else {
		if c.Plex.URL == "" {
			errs = append(errs, "plex.url: required")
		}
		if c.Plex.Token == "" {
			errs = append(errs, "plex.token: required")
		}
	}
	if c.Sonarr != nil {
		if c.Sonarr.URL == "" {
			errs = append(errs, "sonarr.url: required when sonarr is configured")
		}
		if c.Sonarr.APIKey == "" {
			errs = append(errs, "sonarr.api_key: required when sonarr is configured")
		}
	}
	if c.Radarr != nil {
		if c.Radarr.URL == "" {
			errs = append(errs, "radarr.url: required when radarr is configured")
		}
		if c.Radarr.APIKey == "" {
			errs = append(errs, "radarr.api_key: required when radarr is configured")
		}
	}
	if c.Overseerr != nil {
		if c.Overseerr.URL == "" {
			errs = append(errs, "overseerr.url: required when overseerr is configured")
		}
		if c.Overseerr.APIKey == "" {
			errs = append(errs, "overseerr.api_key: required when overseerr is configured")
		}
	}

	// Queue validation
	if c.Queue.DefaultBufferDays < 0 {
		errs = append(errs, fmt.Sprintf("queue.default_buffer_days: must not be negative, got %d", c.Queue.DefaultBufferDays))
	}
	if c.Queue.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("queue.retention_days: must be at least 1, got %d", c.Queue.RetentionDays))
	}

	// Schedule validation
	for field, spec := range map[string]string{
		"queue.sweep_schedule": c.Queue.SweepSchedule,
		"rules.schedule":       c.Rules.Schedule,
		"protection.schedule":  c.Protection.Schedule,
		"redownload.schedule":  c.Redownload.Schedule,
	} {
		if _, err := scheduler.Parse(spec); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", field, err))
		}
	}

	// Protection validation
	p := c.Protection
	if p.MinEpisodesAhead < 0 {
		errs = append(errs, fmt.Sprintf("protection.min_episodes_ahead: must not be negative, got %d", p.MinEpisodesAhead))
	}
	if p.MaxEpisodesAhead < p.MinEpisodesAhead {
		errs = append(errs, fmt.Sprintf("protection.max_episodes_ahead: must be at least min_episodes_ahead (%d), got %d", p.MinEpisodesAhead, p.MaxEpisodesAhead))
	}
	if p.DefaultVelocity <= 0 {
		errs = append(errs, fmt.Sprintf("protection.default_velocity: must be positive, got %g", p.DefaultVelocity))
	}
	if p.Enabled && c.Sonarr == nil && c.Redownload.Enabled {
		errs = append(errs, "redownload.enabled: requires sonarr to be configured")
	}

	// Redownload validation
	if c.Redownload.LeadDays < 0 {
		errs = append(errs, fmt.Sprintf("redownload.lead_days: must not be negative, got %d", c.Redownload.LeadDays))
	}
	if c.Redownload.VelocityChangeThresholdPercent < 1 {
		errs = append(errs, fmt.Sprintf("redownload.velocity_change_threshold_percent: must be at least 1, got %d", c.Redownload.VelocityChangeThresholdPercent))
	}

	return errs
}
