package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_NextRun(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	endDate := from.Add(90 * time.Minute)

	testCases := []struct {
		name     string
		schedule Schedule
		expected time.Time
		wantErr  bool
	}{
		{name: "minutes", schedule: Schedule{Interval: 15, Unit: ScheduleUnitMinute}, expected: from.Add(15 * time.Minute)},
		{name: "hours", schedule: Schedule{Interval: 2, Unit: ScheduleUnitHour}, expected: from.Add(2 * time.Hour)},
		{name: "days", schedule: Schedule{Interval: 1, Unit: ScheduleUnitDay}, expected: from.AddDate(0, 0, 1)},
		{name: "weeks", schedule: Schedule{Interval: 2, Unit: ScheduleUnitWeek}, expected: from.AddDate(0, 0, 14)},
		{name: "months", schedule: Schedule{Interval: 1, Unit: ScheduleUnitMonth}, expected: from.AddDate(0, 1, 0)},
		{name: "cron", schedule: Schedule{Cron: "0 12 * * *"}, expected: time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)},
		{name: "within end date", schedule: Schedule{Interval: 1, Unit: ScheduleUnitHour, EndDate: &endDate}, expected: from.Add(time.Hour)},
		{name: "past end date", schedule: Schedule{Interval: 2, Unit: ScheduleUnitHour, EndDate: &endDate}, wantErr: true},
		{name: "unknown unit", schedule: Schedule{Interval: 1, Unit: "year"}, wantErr: true},
		{name: "zero interval", schedule: Schedule{Unit: ScheduleUnitDay}, wantErr: true},
		{name: "bad cron", schedule: Schedule{Cron: "every day"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			next, err := tc.schedule.NextRun(from)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidSchedule)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, next)
		})
	}
}

func TestDelayUntil(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	next, err := DelayUntil(from, 10, "minutes")
	require.NoError(t, err)
	assert.Equal(t, from.Add(600*time.Second), next)

	next, err = DelayUntil(from, 3, "hours")
	require.NoError(t, err)
	assert.Equal(t, from.Add(3*time.Hour), next)

	next, err = DelayUntil(from, 2, "days")
	require.NoError(t, err)
	assert.Equal(t, from.Add(48*time.Hour), next)

	_, err = DelayUntil(from, 1, "weeks")
	require.ErrorIs(t, err, ErrInvalidDelay)

	_, err = DelayUntil(from, -1, "minutes")
	require.ErrorIs(t, err, ErrInvalidDelay)
}
