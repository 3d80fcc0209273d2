// Package schedule implements the pure is-due predicate for a job's
// schedule specs. Nothing in this package reads the wall clock; "now" is
// always an explicit argument, so the predicate is referentially
// transparent given (spec, lastCompleted, now).
package schedule

import (
	"time"

	"github.com/dshaw/letl-go/domain"
)

// IsDue reports whether a single Schedule spec is due, given the job's
// last successful completion (nil if it has never completed) and the
// current time.
func IsDue(spec domain.Schedule, lastCompleted *time.Time, now time.Time) bool {
	if !inWindow(spec, now) {
		return false
	}

	if lastCompleted == nil {
		if spec.Start != nil {
			return !now.Before(*spec.Start)
		}
		return true
	}

	return intervalDue(spec, *lastCompleted, now)
}

// AnyDue reports whether at least one of the job's schedule specs is due.
// A job with no schedule specs is never due.
func AnyDue(specs []domain.Schedule, lastCompleted *time.Time, now time.Time) bool {
	for _, s := range specs {
		if IsDue(s, lastCompleted, now) {
			return true
		}
	}
	return false
}

func inWindow(spec domain.Schedule, now time.Time) bool {
	if now.Month() < time.Month(spec.StartMonth) || now.Month() > time.Month(spec.EndMonth) {
		return false
	}
	if now.Day() < spec.StartMonthday || now.Day() > spec.EndMonthday {
		return false
	}
	if isoWeekday(now) < spec.StartWeekday || isoWeekday(now) > spec.EndWeekday {
		return false
	}
	if now.Hour() < spec.StartHour || now.Hour() > spec.EndHour {
		return false
	}
	if now.Minute() < spec.StartMinute || now.Minute() > spec.EndMinute {
		return false
	}
	return true
}

// isoWeekday maps time.Sunday(0)..time.Saturday(6) to ISO 1(Mon)..7(Sun).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func intervalDue(spec domain.Schedule, last, now time.Time) bool {
	switch spec.Interval {
	case domain.IntervalDaily:
		return last.In(now.Location()).Year() != now.Year() ||
			last.In(now.Location()).YearDay() != now.YearDay()
	case domain.IntervalEveryXSeconds:
		sinceLast := now.Sub(last).Seconds()
		var nextDue time.Time
		if sinceLast > float64(spec.IntervalSeconds) {
			nextDue = now
		} else {
			nextDue = last.Add(time.Duration(spec.IntervalSeconds) * time.Second)
		}
		return !now.Before(nextDue)
	default:
		return false
	}
}
