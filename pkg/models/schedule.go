package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when a schedule cannot produce a next run.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// ScheduleUnit is the step of a recurring schedule.
type ScheduleUnit string

const (
	ScheduleUnitMinute ScheduleUnit = "minute"
	ScheduleUnitHour   ScheduleUnit = "hour"
	ScheduleUnitDay    ScheduleUnit = "day"
	ScheduleUnitWeek   ScheduleUnit = "week"
	ScheduleUnitMonth  ScheduleUnit = "month"
)

// Schedule makes a workflow recur every Interval Units, or on a cron expression
// when Cron is set, until EndDate.
type Schedule struct {
	Enabled  bool         `json:"enabled"`
	Interval int          `json:"interval,omitempty"  validate:"gte=0"`
	Unit     ScheduleUnit `json:"unit,omitempty"      validate:"omitempty,oneof=minute hour day week month"`
	Cron     string       `json:"cron,omitempty"`
	EndDate  *time.Time   `json:"endDate,omitempty"`
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun returns the first run strictly after from. A run that would fall past
// EndDate makes the schedule invalid.
func (s *Schedule) NextRun(from time.Time) (time.Time, error) {
	var next time.Time

	if s.Cron != "" {
		cronSchedule, err := cronParser.Parse(s.Cron)
		if err != nil {
			return time.Time{}, errors.Join(ErrInvalidSchedule, err)
		}

		next = cronSchedule.Next(from)
	} else {
		if s.Interval <= 0 {
			return time.Time{}, ErrInvalidSchedule
		}

		switch s.Unit {
		case ScheduleUnitMinute:
			next = from.Add(time.Duration(s.Interval) * time.Minute)
		case ScheduleUnitHour:
			next = from.Add(time.Duration(s.Interval) * time.Hour)
		case ScheduleUnitDay:
			next = from.AddDate(0, 0, s.Interval)
		case ScheduleUnitWeek:
			next = from.AddDate(0, 0, 7*s.Interval)
		case ScheduleUnitMonth:
			next = from.AddDate(0, s.Interval, 0)
		default:
			return time.Time{}, ErrInvalidSchedule
		}
	}

	if s.EndDate != nil && next.After(*s.EndDate) {
		return time.Time{}, ErrInvalidSchedule
	}

	return next, nil
}

// DelayUntil returns from shifted by value units, where unit is one of
// minutes, hours or days.
func DelayUntil(from time.Time, value int, unit string) (time.Time, error) {
	if value < 0 {
		return time.Time{}, ErrInvalidDelay
	}

	switch unit {
	case "minutes":
		return from.Add(time.Duration(value) * time.Minute), nil
	case "hours":
		return from.Add(time.Duration(value) * time.Hour), nil
	case "days":
		return from.Add(time.Duration(value) * 24 * time.Hour), nil
	default:
		return time.Time{}, ErrInvalidDelay
	}
}

// ErrInvalidDelay is returned for an unknown delay unit or a negative delay.
var ErrInvalidDelay = errors.New("invalid delay settings")
