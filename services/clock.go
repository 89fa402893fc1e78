package services

import (
	"sync"
	"time"

	"github.com/cppla/pulso/models"
)

// Clock supplies the current instant. Calendar days are taken in the clock's location.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock returns a settable instant. Safe for concurrent use.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// AddDays moves the clock n calendar days forward (or back when negative).
func (c *FixedClock) AddDays(n int) {
	c.mu.Lock()
	c.t = c.t.AddDate(0, 0, n)
	c.mu.Unlock()
}

func today(c Clock) string {
	return c.Now().Format(models.DateLayout)
}

func yesterday(c Clock) string {
	return c.Now().AddDate(0, 0, -1).Format(models.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, s)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
