package domain

import (
	"testing"
	"time"
)

func TestSchedule_NextRunAfter_Interval(t *testing.T) {
	s := &Schedule{IntervalSec: 600}

	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	next, err := s.NextRunAfter(last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := last.Add(10 * time.Minute)
	if !next.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestSchedule_NextRunAfter_Cron(t *testing.T) {
	s := &Schedule{CronExpr: "0 9 * * *", Timezone: "UTC"}

	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	next, err := s.NextRunAfter(last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	if !next.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestSchedule_NextRunAfter_ZeroLast(t *testing.T) {
	// Результата ещё не было: обновление должно произойти немедленно
	s := &Schedule{IntervalSec: 3600}

	next, err := s.NextRunAfter(time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.IsZero() {
		t.Errorf("expected zero time, got %v", next)
	}
}

func TestSchedule_NextRunAfter_Invalid(t *testing.T) {
	s := &Schedule{}

	_, err := s.NextRunAfter(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if err == nil {
		t.Error("expected error for schedule with neither cron nor interval")
	}
}

func TestSchedule_NextRunAfter_InvalidTimezone(t *testing.T) {
	// Невалидный timezone не должен ломать вычисление: fallback на UTC
	s := &Schedule{IntervalSec: 60, Timezone: "Not/AZone"}

	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	next, err := s.NextRunAfter(last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(last.Add(time.Minute)) {
		t.Errorf("expected %v, got %v", last.Add(time.Minute), next)
	}
}

func TestSchedule_ShouldRefresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	hourAgo := now.Add(-time.Hour)
	justNow := now.Add(-time.Second)
	expired := now.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		schedule Schedule
		last     *time.Time
		failures int
		expected bool
	}{
		{
			name:     "interval passed",
			schedule: Schedule{IntervalSec: 600},
			last:     &hourAgo,
			expected: true,
		},
		{
			name:     "interval not passed",
			schedule: Schedule{IntervalSec: 600},
			last:     &justNow,
			expected: false,
		},
		{
			name:     "never refreshed",
			schedule: Schedule{IntervalSec: 600},
			last:     nil,
			expected: true,
		},
		{
			name:     "expired schedule",
			schedule: Schedule{IntervalSec: 600, Until: &expired},
			last:     &hourAgo,
			expected: false,
		},
		{
			name:     "failure backoff delays next run",
			schedule: Schedule{IntervalSec: 600},
			last:     &hourAgo,
			failures: 7, // 2^7 минут > оставшиеся 50 минут
			expected: false,
		},
		{
			name:     "failure backoff already served",
			schedule: Schedule{IntervalSec: 600},
			last:     &hourAgo,
			failures: 3, // 2^3 минут — давно прошло
			expected: true,
		},
		{
			name:     "huge failure count never refreshes",
			schedule: Schedule{IntervalSec: 600},
			last:     &hourAgo,
			failures: 1000,
			expected: false,
		},
		{
			name:     "invalid schedule",
			schedule: Schedule{},
			last:     &hourAgo,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.schedule.ShouldRefresh(tt.last, tt.failures, now)
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("unexpected error for valid expression: %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("expected error for invalid expression")
	}
}
