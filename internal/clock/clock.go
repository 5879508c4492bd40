package clock

import "time"

// Clock abstracts "now" so schedule evaluation is testable.
type Clock interface {
	Now() time.Time
}

// Real reports wall time in a fixed location. Every schedule comparison in
// the system goes through one Real instance so all binaries agree on the
// zone regardless of where they run.
type Real struct {
	Loc *time.Location
}

func (c Real) Now() time.Time {
	if c.Loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Loc)
}

// Fake is a controllable clock for tests.
type Fake struct {
	now time.Time
}

func NewFake(t time.Time) *Fake { return &Fake{now: t} }

func (f *Fake) Now() time.Time { return f.now }

func (f *Fake) Set(t time.Time) { f.now = t }

func (f *Fake) Advance(d time.Duration) { f.now = f.now.Add(d) }
