package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock(t *testing.T) {
	start := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	c := NewDeterministicClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "Now does not advance")

	got := c.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), got)
	assert.Equal(t, got, c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestFixedIDGenerator(t *testing.T) {
	g := NewFixedIDGenerator("eng")
	assert.Equal(t, "eng-1", g.NewID())
	assert.Equal(t, "eng-2", g.NewID())

	assert.Equal(t, "id-1", NewFixedIDGenerator("").NewID())
}
