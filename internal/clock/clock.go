// Package clock supplies "now" and "today" to the engines so that no
// component reads wall-clock time directly.
package clock

import (
	"sync"
	"time"

	"github.com/julianstephens/dayledger/internal/constants"
)

type Clock interface {
	Now() time.Time
	// Today returns the current calendar day (YYYY-MM-DD) in the clock's location.
	Today() string
	Location() *time.Location
}

// Real reads the system clock in a fixed location.
type Real struct {
	loc *time.Location
}

func New(loc *time.Location) *Real {
	if loc == nil {
		loc = time.Local
	}
	return &Real{loc: loc}
}

func (c *Real) Now() time.Time { return time.Now().In(c.loc) }
func (c *Real) Today() string { return c.Now().Format(constants.DateFormat) }
func (c *Real) Location() *time.Location { return c.loc }

// Manual is a settable clock for tests and dry runs.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

// ManualAt returns a Manual clock set to the given day and hour in UTC.
func ManualAt(day string, hour int) *Manual {
	d, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		panic(err)
	}
	return NewManual(d.Add(time.Duration(hour) * time.Hour))
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) Today() string {
	return c.Now().Format(constants.DateFormat)
}

func (c *Manual) Location() *time.Location {
	return c.Now().Location()
}

func (c *Manual) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Stamp returns c's current instant in UTC at whole-second precision, the
// resolution every store keeps timestamps at.
func Stamp(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Second)
}
