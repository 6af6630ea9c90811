package apiservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/workday"
	"github.com/Teddy2289/backtime/internal/workerpool"
	"go.uber.org/zap"
)

type fakeTracker struct {
	ended map[int]time.Time
	err   error
}

func (f *fakeTracker) EndDayAt(userID int, at time.Time) (models.WorkDay, error) {
	if f.err != nil {
		return models.WorkDay{}, f.err
	}

	f.ended[userID] = at

	return models.WorkDay{UserID: userID, Status: models.StatusCompleted}, nil
}

type fakeStorage struct {
	days  []models.WorkDay
	users map[int]models.User
}

func (f *fakeStorage) GetOpenWorkDays() ([]models.WorkDay, error) {
	return f.days, nil
}

func (f *fakeStorage) GetUser(id int) (models.User, error) {
	return f.users[id], nil
}

// syncPool runs every task inline.
type syncPool struct {
	ran int
}

func (p *syncPool) AddTask(task *workerpool.Task) {
	p.ran++
	_ = task.Run()
}

func newService(tracker Tracker, store Storage, pool Pool, now time.Time) *ApiService {
	svc := NewApiService(tracker, pool, store, zap.NewNop(), func() string { return "3000" })
	svc.now = func() time.Time { return now }

	return svc
}

func TestCloseStaleDay(t *testing.T) {
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC)

	tracker := &fakeTracker{ended: make(map[int]time.Time)}
	store := &fakeStorage{
		days: []models.WorkDay{
			{ID: 1, UserID: 1, WorkDate: date, Status: models.StatusInProgress},
		},
		users: map[int]models.User{
			1: {ID: 1, DefaultEndTime: "19:00"},
		},
	}
	pool := &syncPool{}

	svc := newService(tracker, store, pool, now)
	svc.createCloseTasks(store.days)

	assert.Equal(t, 1, pool.ran)

	ended, ok := tracker.ended[1]
	require.True(t, ok)
	assert.Equal(t, 19, ended.Hour())
	assert.Equal(t, date.Day(), ended.Day())
}

func TestSkipDayBeforeDeadline(t *testing.T) {
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	tracker := &fakeTracker{ended: make(map[int]time.Time)}
	store := &fakeStorage{
		days: []models.WorkDay{
			{ID: 1, UserID: 1, WorkDate: date, Status: models.StatusInProgress},
		},
		users: map[int]models.User{
			1: {ID: 1, DefaultEndTime: "19:00"},
		},
	}
	pool := &syncPool{}

	svc := newService(tracker, store, pool, now)
	svc.createCloseTasks(store.days)

	assert.Zero(t, pool.ran)
	assert.Empty(t, tracker.ended)
}

func TestSkipDayStartedAfterDeadline(t *testing.T) {
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	started := time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC)
	now := time.Date(2024, 7, 1, 20, 30, 0, 0, time.UTC)

	tracker := &fakeTracker{ended: make(map[int]time.Time)}
	store := &fakeStorage{
		days: []models.WorkDay{
			{ID: 1, UserID: 1, WorkDate: date, StartTime: &started, Status: models.StatusInProgress},
		},
		users: map[int]models.User{
			1: {ID: 1, DefaultEndTime: "19:00"},
		},
	}
	pool := &syncPool{}

	svc := newService(tracker, store, pool, now)
	svc.createCloseTasks(store.days)

	assert.Zero(t, pool.ran)
	assert.Empty(t, tracker.ended)
}

func TestLostRaceIsNotAnError(t *testing.T) {
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC)

	// the user ended the day between the tick and the task run
	tracker := &fakeTracker{ended: make(map[int]time.Time), err: workday.ErrInvalidTransition}
	store := &fakeStorage{
		days: []models.WorkDay{
			{ID: 1, UserID: 1, WorkDate: date, Status: models.StatusPaused},
		},
		users: map[int]models.User{
			1: {ID: 1, DefaultEndTime: "18:30"},
		},
	}
	pool := &syncPool{}

	svc := newService(tracker, store, pool, now)
	svc.createCloseTasks(store.days)

	assert.Equal(t, 1, pool.ran)
}
