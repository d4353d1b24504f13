// internal/config/map.go
package config

import (
	"github.com/vmunix/prunarr/internal/protection"
	"github.com/vmunix/prunarr/internal/scheduler"
)

// ProtectionRuntime converts the TOML section into the calculator's config.
func (c *Config) ProtectionRuntime() protection.Config {
	p := c.Protection
	return protection.Config{
		ActiveViewerDays:       p.ActiveViewerDays,
		MinEpisodesAhead:       p.MinEpisodesAhead,
		VelocityBufferDays:     p.VelocityBufferDays,
		MaxEpisodesAhead:       p.MaxEpisodesAhead,
		MinVelocitySamples:     p.MinVelocitySamples,
		LookbackEpisodes:       p.LookbackEpisodes,
		DefaultVelocity:        p.DefaultVelocity,
		MinDaysSinceWatch:      p.MinDaysSinceWatch,
		RequireAllUsersWatched: p.RequireAllUsersWatched,
		IncludeSpecials:        p.IncludeSpecials,
		WatchlistGraceDays:     p.WatchlistGraceDays,
	}
}

// RedownloadRuntime converts the TOML section into the scheduler's config.
func (c *Config) RedownloadRuntime() protection.RedownloadConfig {
	r := c.Redownload
	return protection.RedownloadConfig{
		LeadDays:                       float64(r.LeadDays),
		EmergencyBufferHours:           float64(r.EmergencyBufferHours),
		VelocityChangeThresholdPercent: float64(r.VelocityChangeThresholdPercent),
	}
}

// Schedules returns the parsed job cadences. Call after Validate; a spec
// that fails to parse falls back to its default cadence.
func (c *Config) Schedules() (rules, sweep, protect, redownload scheduler.Schedule) {
	rules = parseOr(c.Rules.Schedule, mustDaily(3))
	sweep = parseOr(c.Queue.SweepSchedule, mustEvery(1))
	protect = parseOr(c.Protection.Schedule, mustEvery(6))
	redownload = parseOr(c.Redownload.Schedule, mustEvery(12))
	return
}

func parseOr(spec string, fallback scheduler.Schedule) scheduler.Schedule {
	s, err := scheduler.Parse(spec)
	if err != nil {
		return fallback
	}
	return s
}

func mustDaily(hour int) scheduler.Schedule {
	s, _ := scheduler.Daily(hour)
	return s
}

func mustEvery(hours int) scheduler.Schedule {
	s, _ := scheduler.Every(hours)
	return s
}
