package workday

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/storage"
	"go.uber.org/zap"
)

// fakeCalendar mirrors the default policy: Sunday closed, Saturday
// half day, full day otherwise.
type fakeCalendar struct{}

func (fakeCalendar) IsWorkDay(date time.Time) bool {
	return date.Weekday() != time.Sunday
}

func (fakeCalendar) DailyTarget(date time.Time) int {
	switch date.Weekday() {
	case time.Sunday:
		return 0
	case time.Saturday:
		return 14400
	default:
		return 28800
	}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Set(hour, minute int) {
	c.t = time.Date(c.t.Year(), c.t.Month(), c.t.Day(), hour, minute, 0, 0, time.UTC)
}

// monday is an arbitrary Monday used as "today" in tests.
var monday = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newTestTracker(start time.Time) (*Tracker, *storage.MemoryStorage, *fakeClock) {
	store := storage.NewMemoryStorage(nil, zap.NewNop())
	clock := &fakeClock{t: start}

	tracker := NewTracker(store, fakeCalendar{}, zap.NewNop())
	tracker.now = clock.Now

	return tracker, store, clock
}

func TestStartDayTwice(t *testing.T) {
	tracker, store, clock := newTestTracker(monday)
	clock.Set(9, 0)

	day, err := tracker.StartDay(1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, day.Status)
	assert.Equal(t, 28800, day.DailyTarget)

	_, err = tracker.StartDay(1)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	// still exactly one work day and one open session
	stored, err := store.GetWorkDay(1, clock.Now())
	require.NoError(t, err)

	sessions, err := store.GetSessions(stored.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Open())
}

func TestStartDayOnSunday(t *testing.T) {
	sunday := time.Date(2024, 7, 7, 9, 0, 0, 0, time.UTC)
	tracker, _, _ := newTestTracker(sunday)

	_, err := tracker.StartDay(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPauseWithoutStart(t *testing.T) {
	tracker, _, _ := newTestTracker(monday)

	_, err := tracker.Pause(1)
	assert.ErrorIs(t, err, ErrNoActiveDay)
}

func TestEndWithoutStart(t *testing.T) {
	tracker, _, _ := newTestTracker(monday)

	_, err := tracker.EndDay(1)
	assert.ErrorIs(t, err, ErrNoActiveDay)
}

func TestResumeWithoutPause(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)
	clock.Set(9, 0)

	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	_, err = tracker.Resume(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPauseTwice(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)
	clock.Set(9, 0)

	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(10, 0)
	_, err = tracker.Pause(1)
	require.NoError(t, err)

	_, err = tracker.Pause(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFullDayScenario(t *testing.T) {
	tracker, store, clock := newTestTracker(monday)

	clock.Set(9, 0)
	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(12, 0)
	day, err := tracker.Pause(1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, day.Status)

	clock.Set(13, 0)
	day, err = tracker.Resume(1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, day.Status)
	assert.Equal(t, 3600, day.PauseSeconds)

	clock.Set(17, 0)
	day, err = tracker.EndDay(1)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, day.Status)
	assert.Equal(t, 28800, day.TotalSeconds)
	assert.Equal(t, 3600, day.PauseSeconds)
	assert.Equal(t, 25200, day.NetSeconds)
	assert.Equal(t, day.NetSeconds, day.TotalSeconds-day.PauseSeconds)

	// two closed work sessions and one closed pause session whose
	// durations sum to the total
	sessions, err := store.GetSessions(day.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	var work, pause, sum int

	for _, s := range sessions {
		require.False(t, s.Open())

		sum += s.DurationSeconds

		if s.Type == models.SessionWork {
			work++
		} else {
			pause++
		}
	}

	assert.Equal(t, 2, work)
	assert.Equal(t, 1, pause)
	assert.Equal(t, day.TotalSeconds, sum)
}

func TestEndWhilePaused(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)

	clock.Set(9, 0)
	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(12, 0)
	_, err = tracker.Pause(1)
	require.NoError(t, err)

	clock.Set(14, 0)
	day, err := tracker.EndDay(1)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, day.Status)
	assert.Equal(t, 18000, day.TotalSeconds)
	assert.Equal(t, 7200, day.PauseSeconds)
	assert.Equal(t, 10800, day.NetSeconds)
}

func TestNoRestartAfterCompleted(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)

	clock.Set(9, 0)
	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(17, 0)
	_, err = tracker.EndDay(1)
	require.NoError(t, err)

	_, err = tracker.StartDay(1)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	_, err = tracker.Pause(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusWithoutDay(t *testing.T) {
	tracker, _, _ := newTestTracker(monday)

	day, err := tracker.Status(1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, day.Status)
	assert.Zero(t, day.ID)
	assert.Equal(t, 28800, day.DailyTarget)
}

func TestCanStartDay(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)

	can, err := tracker.CanStartDay(1)
	require.NoError(t, err)
	assert.True(t, can)

	clock.Set(9, 0)
	_, err = tracker.StartDay(1)
	require.NoError(t, err)

	can, err = tracker.CanStartDay(1)
	require.NoError(t, err)
	assert.False(t, can)

	clock.Set(17, 0)
	_, err = tracker.EndDay(1)
	require.NoError(t, err)

	can, err = tracker.CanStartDay(1)
	require.NoError(t, err)
	assert.False(t, can)
}

func TestCanStartDaySunday(t *testing.T) {
	sunday := time.Date(2024, 7, 7, 9, 0, 0, 0, time.UTC)
	tracker, _, _ := newTestTracker(sunday)

	can, err := tracker.CanStartDay(1)
	require.NoError(t, err)
	assert.False(t, can)
}

func TestWeeklyStats(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)

	clock.Set(9, 0)
	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(17, 0)
	_, err = tracker.EndDay(1)
	require.NoError(t, err)

	// next day of the same week
	clock.t = clock.t.AddDate(0, 0, 1)

	clock.Set(9, 0)
	_, err = tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(13, 0)
	_, err = tracker.EndDay(1)
	require.NoError(t, err)

	stats, err := tracker.WeeklyStats(1)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DaysWorked)
	assert.Equal(t, 2, stats.SessionCount)
	assert.Equal(t, 28800+14400, stats.TotalSeconds)
	assert.Equal(t, 28800+14400, stats.NetSeconds)
	assert.Equal(t, 2*28800, stats.TargetSeconds)
}

func TestWeeklyStatsSkipOpenDay(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)

	clock.Set(9, 0)
	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(17, 0)
	_, err = tracker.EndDay(1)
	require.NoError(t, err)

	// the next day is started but never ended
	clock.t = clock.t.AddDate(0, 0, 1)

	clock.Set(9, 0)
	_, err = tracker.StartDay(1)
	require.NoError(t, err)

	stats, err := tracker.WeeklyStats(1)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DaysWorked)
	assert.Equal(t, 28800, stats.TotalSeconds)
	assert.Equal(t, 28800, stats.TargetSeconds)
	assert.Equal(t, 1, stats.SessionCount)
}

func TestMonthlyStats(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)

	clock.Set(9, 0)
	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(17, 0)
	_, err = tracker.EndDay(1)
	require.NoError(t, err)

	stats, err := tracker.MonthlyStats(1)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DaysWorked)
	assert.Equal(t, 28800, stats.NetSeconds)
	assert.Equal(t, time.July, stats.From.Month())
	assert.Equal(t, 1, stats.From.Day())
}

func TestSyncTime(t *testing.T) {
	tracker, store, clock := newTestTracker(monday)

	clock.Set(9, 0)
	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	clock.Set(12, 0)
	_, err = tracker.Pause(1)
	require.NoError(t, err)

	clock.Set(13, 0)
	_, err = tracker.Resume(1)
	require.NoError(t, err)

	clock.Set(17, 0)
	day, err := tracker.EndDay(1)
	require.NoError(t, err)

	// scramble the cached columns, then resync from sessions
	day.TotalSeconds = 1
	day.PauseSeconds = 2
	day.NetSeconds = 3
	require.NoError(t, store.UpdateWorkDay(day))

	synced, err := tracker.SyncTime(1, clock.Now())
	require.NoError(t, err)

	assert.Equal(t, 28800, synced.TotalSeconds)
	assert.Equal(t, 3600, synced.PauseSeconds)
	assert.Equal(t, 25200, synced.NetSeconds)
}

func TestSyncTimeUnknownDay(t *testing.T) {
	tracker, _, _ := newTestTracker(monday)

	_, err := tracker.SyncTime(1, monday)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestUsersAreIndependent(t *testing.T) {
	tracker, _, clock := newTestTracker(monday)
	clock.Set(9, 0)

	_, err := tracker.StartDay(1)
	require.NoError(t, err)

	// a second user's day is untouched by the first
	_, err = tracker.Pause(2)
	assert.ErrorIs(t, err, ErrNoActiveDay)

	_, err = tracker.StartDay(2)
	require.NoError(t, err)
}
