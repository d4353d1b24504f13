package scheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// Schedule is a closed cadence variant. Exactly one of the two forms is
// set: a fixed time of day, or a fixed interval in hours.
type Schedule struct {
	kind      scheduleKind
	dailyHour int // 0-23, valid when kind == scheduleDaily
	everyHrs  int // >= 1, valid when kind == scheduleEvery
}

type scheduleKind int

const (
	scheduleDaily scheduleKind = iota
	scheduleEvery
)

// Daily returns a schedule firing once a day at the given hour (local time).
func Daily(hour int) (Schedule, error) {
	if hour < 0 || hour > 23 {
		return Schedule{}, fmt.Errorf("daily schedule: hour %d out of range 0-23", hour)
	}
	return Schedule{kind: scheduleDaily, dailyHour: hour}, nil
}

// Every returns a schedule firing every n hours. Intervals above a day must
// be whole days so the cron rendition stays exact.
func Every(hours int) (Schedule, error) {
	if hours < 1 || hours > 168 {
		return Schedule{}, fmt.Errorf("interval schedule: %d hours out of range 1-168", hours)
	}
	if hours > 24 && hours%24 != 0 {
		return Schedule{}, fmt.Errorf("interval schedule: %d hours: intervals over a day must be whole days", hours)
	}
	return Schedule{kind: scheduleEvery, everyHrs: hours}, nil
}

// Parse reads the config form: "daily@HH" or "every Nh".
func Parse(s string) (Schedule, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "daily@"):
		hour, err := strconv.Atoi(strings.TrimPrefix(s, "daily@"))
		if err != nil {
			return Schedule{}, fmt.Errorf("schedule %q: bad hour", s)
		}
		return Daily(hour)
	case strings.HasPrefix(s, "every ") && strings.HasSuffix(s, "h"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "every "), "h"))
		if err != nil {
			return Schedule{}, fmt.Errorf("schedule %q: bad interval", s)
		}
		return Every(n)
	default:
		return Schedule{}, fmt.Errorf("schedule %q: want \"daily@HH\" or \"every Nh\"", s)
	}
}

func (s Schedule) String() string {
	if s.kind == scheduleDaily {
		return fmt.Sprintf("daily@%02d", s.dailyHour)
	}
	return fmt.Sprintf("every %dh", s.everyHrs)
}

// CronSpec renders the schedule as a standard five-field cron expression.
// Day-or-longer intervals move to the day-of-month field; an hour step above
// 23 would collapse to midnight daily.
func (s Schedule) CronSpec() string {
	if s.kind == scheduleDaily {
		return fmt.Sprintf("0 %d * * *", s.dailyHour)
	}
	if s.everyHrs >= 24 {
		return fmt.Sprintf("0 0 */%d * *", s.everyHrs/24)
	}
	return fmt.Sprintf("0 */%d * * *", s.everyHrs)
}
