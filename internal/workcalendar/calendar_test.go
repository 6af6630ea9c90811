package workcalendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newPolicy() *Policy {
	return NewPolicy(
		func() string { return "28800" },
		func() string { return "14400" },
		zap.NewNop(),
	)
}

func TestIsWorkDay(t *testing.T) {
	p := newPolicy()

	sunday := time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, p.IsWorkDay(sunday))
	assert.True(t, p.IsWorkDay(saturday))
	assert.True(t, p.IsWorkDay(monday))
}

func TestDailyTarget(t *testing.T) {
	p := newPolicy()

	assert.Equal(t, 0, p.DailyTarget(time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 14400, p.DailyTarget(time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28800, p.DailyTarget(time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)))
}

func TestWorkWindow(t *testing.T) {
	p := newPolicy()

	open, close := p.WorkWindow(time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 9, open)
	assert.Equal(t, 17, close)

	open, close = p.WorkWindow(time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 9, open)
	assert.Equal(t, 13, close)

	open, close = p.WorkWindow(time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 0, open)
	assert.Equal(t, 0, close)
}

func TestBadOptionsFallBack(t *testing.T) {
	p := NewPolicy(
		func() string { return "not-a-number" },
		func() string { return "" },
		zap.NewNop(),
	)

	assert.Equal(t, defaultWeekdayTarget, p.DailyTarget(time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, defaultSaturdayTarget, p.DailyTarget(time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC)))
}
