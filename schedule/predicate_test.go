package schedule_test

import (
	"testing"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/schedule"
)

func TestIsDue_NeverRunBefore_NoStart(t *testing.T) {
	spec := domain.EveryXSeconds(30)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !schedule.IsDue(spec, nil, now) {
		t.Fatal("expected due on first run with no start constraint")
	}
}

func TestIsDue_NeverRunBefore_FutureStart(t *testing.T) {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	spec := domain.EveryXSeconds(30, domain.WithStart(start))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if schedule.IsDue(spec, nil, now) {
		t.Fatal("expected not due before start")
	}
	if !schedule.IsDue(spec, nil, start.Add(time.Second)) {
		t.Fatal("expected due once now >= start")
	}
}

func TestIsDue_EveryXSeconds(t *testing.T) {
	spec := domain.EveryXSeconds(30)
	last := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if schedule.IsDue(spec, &last, last.Add(10*time.Second)) {
		t.Fatal("expected not due before interval elapses")
	}
	if !schedule.IsDue(spec, &last, last.Add(30*time.Second)) {
		t.Fatal("expected due exactly at interval boundary")
	}
	if !schedule.IsDue(spec, &last, last.Add(time.Hour)) {
		t.Fatal("expected immediately due if well past the interval")
	}
}

func TestIsDue_Daily(t *testing.T) {
	spec := domain.Daily()
	last := time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)

	if schedule.IsDue(spec, &last, time.Date(2026, 1, 1, 23, 59, 30, 0, time.UTC)) {
		t.Fatal("expected not due again same calendar day")
	}
	if !schedule.IsDue(spec, &last, time.Date(2026, 1, 2, 0, 0, 1, 0, time.UTC)) {
		t.Fatal("expected due on the next calendar day")
	}
}

func TestIsDue_OutOfCalendarWindow(t *testing.T) {
	spec := domain.EveryXSeconds(30, domain.WithMonths(6, 6))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if schedule.IsDue(spec, nil, now) {
		t.Fatal("expected not due outside the month window")
	}
}

func TestIsDue_HourWindow(t *testing.T) {
	spec := domain.Daily(domain.WithHours(9, 17))
	last := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if schedule.IsDue(spec, &last, time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)) {
		t.Fatal("expected not due outside the hour window even on a new day")
	}
	if !schedule.IsDue(spec, &last, time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)) {
		t.Fatal("expected due inside the hour window on a new day")
	}
}

func TestIsDue_Purity(t *testing.T) {
	spec := domain.EveryXSeconds(60)
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 0, 1, 0, 0, time.UTC)

	first := schedule.IsDue(spec, &last, now)
	for i := 0; i < 100; i++ {
		if schedule.IsDue(spec, &last, now) != first {
			t.Fatal("IsDue must be referentially transparent given the same arguments")
		}
	}
}

func TestAnyDue(t *testing.T) {
	specs := []domain.Schedule{
		domain.EveryXSeconds(30, domain.WithMonths(6, 6)),
		domain.EveryXSeconds(30),
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !schedule.AnyDue(specs, nil, now) {
		t.Fatal("expected at least one schedule to be due")
	}
	if schedule.AnyDue(nil, nil, now) {
		t.Fatal("expected a job with no schedules to never be due")
	}
}
