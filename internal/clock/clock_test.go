package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake(t *testing.T) {
	t0 := time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)
	f := NewFake(t0)

	assert.Equal(t, t0, f.Now())

	f.Advance(90 * time.Second)
	assert.Equal(t, t0.Add(90*time.Second), f.Now())

	f.Set(t0)
	assert.Equal(t, t0, f.Now())
}

func TestRealUsesLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	c := Real{Loc: loc}
	assert.Equal(t, loc, c.Now().Location())

	assert.Equal(t, time.UTC, Real{}.Now().Location())
}
