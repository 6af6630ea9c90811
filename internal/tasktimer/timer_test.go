package tasktimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/storage"
	"go.uber.org/zap"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestTimer() (*Timer, *storage.MemoryStorage, *fakeClock) {
	store := storage.NewMemoryStorage(nil, zap.NewNop())
	clock := &fakeClock{t: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)}

	timer := NewTimer(store, zap.NewNop())
	timer.now = clock.Now

	return timer, store, clock
}

func TestStartAndStop(t *testing.T) {
	timer, _, clock := newTestTimer()

	entry, err := timer.Start(10, 1, "working on the parser")
	require.NoError(t, err)
	assert.True(t, entry.Running())
	assert.Equal(t, "working on the parser", entry.Note)

	clock.Advance(25 * time.Minute)

	stopped, err := timer.Stop(entry.ID, "")
	require.NoError(t, err)
	assert.False(t, stopped.Running())
	require.NotNil(t, stopped.Duration)
	assert.Equal(t, 25, *stopped.Duration)
	assert.Equal(t, "working on the parser", stopped.Note)
}

func TestStartAutoStopsPrevious(t *testing.T) {
	timer, store, clock := newTestTimer()

	first, err := timer.Start(10, 1, "")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	second, err := timer.Start(11, 1, "")
	require.NoError(t, err)

	// the old log is stopped before the new one exists
	old, err := store.GetTimeLog(first.ID)
	require.NoError(t, err)
	require.NotNil(t, old.EndTime)
	require.NotNil(t, old.Duration)
	assert.Equal(t, 10, *old.Duration)
	assert.Equal(t, autoStopNote, old.Note)

	// never two running logs for one user
	count, err := store.CountRunningLogs()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	running, err := timer.RunningForUser(1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, running.ID)
}

func TestStopClampsToOneMinute(t *testing.T) {
	timer, _, _ := newTestTimer()

	entry, err := timer.Start(10, 1, "")
	require.NoError(t, err)

	// stopped within the same second
	stopped, err := timer.Stop(entry.ID, "")
	require.NoError(t, err)
	require.NotNil(t, stopped.Duration)
	assert.Equal(t, 1, *stopped.Duration)
}

func TestStopUnknownLog(t *testing.T) {
	timer, _, _ := newTestTimer()

	_, err := timer.Stop(999, "")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestStopTwice(t *testing.T) {
	timer, _, clock := newTestTimer()

	entry, err := timer.Start(10, 1, "")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	_, err = timer.Stop(entry.ID, "")
	require.NoError(t, err)

	_, err = timer.Stop(entry.ID, "")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestStopCurrent(t *testing.T) {
	timer, _, clock := newTestTimer()

	stopped, _, err := timer.StopCurrent(1, "")
	require.NoError(t, err)
	assert.False(t, stopped)

	_, err = timer.Start(10, 1, "")
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)

	stopped, entry, err := timer.StopCurrent(1, "done for now")
	require.NoError(t, err)
	assert.True(t, stopped)
	require.NotNil(t, entry.Duration)
	assert.Equal(t, 3, *entry.Duration)
	assert.Equal(t, "done for now", entry.Note)
}

func TestRunningForTask(t *testing.T) {
	timer, _, _ := newTestTimer()

	_, err := timer.Start(10, 1, "")
	require.NoError(t, err)

	_, err = timer.Start(10, 2, "")
	require.NoError(t, err)

	logs, err := timer.RunningForTask(10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = timer.RunningForTask(11)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestTotalTime(t *testing.T) {
	timer, _, clock := newTestTimer()

	entry, err := timer.Start(10, 1, "")
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	_, err = timer.Stop(entry.ID, "")
	require.NoError(t, err)

	entry, err = timer.Start(11, 1, "")
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)
	_, err = timer.Stop(entry.ID, "")
	require.NoError(t, err)

	// another user's log does not leak into user totals
	entry, err = timer.Start(10, 2, "")
	require.NoError(t, err)
	clock.Advance(60 * time.Minute)
	_, err = timer.Stop(entry.ID, "")
	require.NoError(t, err)

	total, err := timer.TotalTimeForUser(1, models.TimeLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 45, total)

	taskID := 10
	total, err = timer.TotalTimeForUser(1, models.TimeLogFilter{TaskID: &taskID})
	require.NoError(t, err)
	assert.Equal(t, 30, total)

	total, err = timer.TotalTimeForTask(10)
	require.NoError(t, err)
	assert.Equal(t, 90, total)
}

func TestStatistics(t *testing.T) {
	timer, _, clock := newTestTimer()

	entry, err := timer.Start(10, 1, "")
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	_, err = timer.Stop(entry.ID, "")
	require.NoError(t, err)

	// next day
	clock.Advance(24 * time.Hour)

	entry, err = timer.Start(11, 1, "")
	require.NoError(t, err)
	clock.Advance(40 * time.Minute)
	_, err = timer.Stop(entry.ID, "")
	require.NoError(t, err)

	// one still running
	_, err = timer.Start(10, 2, "")
	require.NoError(t, err)

	stats, err := timer.Statistics()
	require.NoError(t, err)

	assert.Equal(t, 2, stats.LogCount)
	assert.Equal(t, 60, stats.TotalMinutes)
	assert.InDelta(t, 30.0, stats.AverageMinutes, 0.001)
	assert.Equal(t, 1, stats.RunningCount)
	require.Len(t, stats.PerDay, 7)

	// the two completed logs land on the two trailing days
	var nonZero int

	for _, d := range stats.PerDay {
		if d.Minutes > 0 {
			nonZero++
		}
	}

	assert.Equal(t, 2, nonZero)
}
