package domain

import "time"

// IntervalKind selects the recurrence rule within a Schedule.
type IntervalKind int

const (
	// IntervalDaily is due once per calendar day.
	IntervalDaily IntervalKind = iota
	// IntervalEveryXSeconds is due every N seconds since the last completion.
	IntervalEveryXSeconds
)

// Schedule is a calendar-window filter plus a recurrence rule. A Job is due
// under a Schedule if the current time falls within every range field and
// the interval rule reports due given the job's last successful completion.
// Zero-value range fields are replaced with the full domain by the
// constructors below, per the spec's default-full-domain invariant.
type Schedule struct {
	Start *time.Time

	StartMonth, EndMonth       int
	StartMonthday, EndMonthday int
	StartWeekday, EndWeekday   int // ISO numbering 1=Mon..7=Sun, not time.Weekday's 0=Sun..6=Sat
	StartHour, EndHour         int
	StartMinute, EndMinute     int

	Interval        IntervalKind
	IntervalSeconds int // meaningful only when Interval == IntervalEveryXSeconds
}

// Daily builds a Schedule due once per calendar day, with the full calendar
// window open by default.
func Daily(opts ...ScheduleOption) Schedule {
	s := fullWindow()
	s.Interval = IntervalDaily
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// EveryXSeconds builds a Schedule due every n seconds, with the full
// calendar window open by default.
func EveryXSeconds(n int, opts ...ScheduleOption) Schedule {
	s := fullWindow()
	s.Interval = IntervalEveryXSeconds
	s.IntervalSeconds = n
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func fullWindow() Schedule {
	return Schedule{
		StartMonth: 1, EndMonth: 12,
		StartMonthday: 1, EndMonthday: 31,
		StartWeekday: 1, EndWeekday: 7,
		StartHour: 0, EndHour: 23,
		StartMinute: 0, EndMinute: 59,
	}
}

// ScheduleOption narrows a Schedule's calendar window or sets a start time.
type ScheduleOption func(*Schedule)

// WithStart sets the absolute timestamp before which the job is never due
// on its first run.
func WithStart(t time.Time) ScheduleOption {
	return func(s *Schedule) { s.Start = &t }
}

// WithMonths restricts the schedule to the inclusive month range [start, end].
func WithMonths(start, end int) ScheduleOption {
	return func(s *Schedule) { s.StartMonth, s.EndMonth = start, end }
}

// WithMonthdays restricts the schedule to the inclusive day-of-month range.
func WithMonthdays(start, end int) ScheduleOption {
	return func(s *Schedule) { s.StartMonthday, s.EndMonthday = start, end }
}

// WithWeekdays restricts the schedule to the inclusive ISO weekday range
// (1=Monday .. 7=Sunday).
func WithWeekdays(start, end int) ScheduleOption {
	return func(s *Schedule) { s.StartWeekday, s.EndWeekday = start, end }
}

// WithHours restricts the schedule to the inclusive hour-of-day range.
func WithHours(start, end int) ScheduleOption {
	return func(s *Schedule) { s.StartHour, s.EndHour = start, end }
}

// WithMinutes restricts the schedule to the inclusive minute-of-hour range.
func WithMinutes(start, end int) ScheduleOption {
	return func(s *Schedule) { s.StartMinute, s.EndMinute = start, end }
}
