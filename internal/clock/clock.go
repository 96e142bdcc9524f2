package clock

import "time"

// Clock supplies the timestamps stamped on events and audit entries.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f().UTC() }

// NewSystem returns the wall clock in UTC.
func NewSystem() Clock {
	return Func(time.Now)
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
