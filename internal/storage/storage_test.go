package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Teddy2289/backtime/internal/models"
	"go.uber.org/zap"
)

func newStore() *MemoryStorage {
	return NewMemoryStorage(nil, zap.NewNop())
}

func TestInsertUserConflict(t *testing.T) {
	s := newStore()

	_, err := s.InsertUser(models.User{Email: "dev@example.com"})
	require.NoError(t, err)

	_, err = s.InsertUser(models.User{Email: "DEV@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetUserByEmail(t *testing.T) {
	s := newStore()

	saved, err := s.InsertUser(models.User{Email: "dev@example.com", Name: "Dev"})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	found, err := s.GetUserByEmail("dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)

	_, err = s.GetUserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkDayUniquePerUserAndDate(t *testing.T) {
	s := newStore()
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.InsertWorkDay(models.WorkDay{UserID: 1, WorkDate: date})
	require.NoError(t, err)

	_, err = s.InsertWorkDay(models.WorkDay{UserID: 1, WorkDate: date})
	assert.ErrorIs(t, err, ErrConflict)

	// same date for a different user is fine
	_, err = s.InsertWorkDay(models.WorkDay{UserID: 2, WorkDate: date})
	assert.NoError(t, err)
}

func TestSingleOpenSessionPerWorkDay(t *testing.T) {
	s := newStore()
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

	day, err := s.InsertWorkDay(models.WorkDay{UserID: 1, WorkDate: start})
	require.NoError(t, err)

	sess, err := s.InsertSession(models.WorkSession{
		WorkDayID:    day.ID,
		SessionStart: start,
		Type:         models.SessionWork,
	})
	require.NoError(t, err)

	_, err = s.InsertSession(models.WorkSession{
		WorkDayID:    day.ID,
		SessionStart: start,
		Type:         models.SessionPause,
	})
	assert.ErrorIs(t, err, ErrConflict)

	// closing the open session makes room for a new one
	end := start.Add(time.Hour)
	sess.SessionEnd = &end
	sess.DurationSeconds = 3600
	require.NoError(t, s.UpdateSession(sess))

	_, err = s.InsertSession(models.WorkSession{
		WorkDayID:    day.ID,
		SessionStart: end,
		Type:         models.SessionPause,
	})
	assert.NoError(t, err)
}

func TestGetWorkDaysRange(t *testing.T) {
	s := newStore()

	for d := 1; d <= 5; d++ {
		_, err := s.InsertWorkDay(models.WorkDay{
			UserID:   1,
			WorkDate: time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	from := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)

	days, err := s.GetWorkDaysRange(1, from, to)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.True(t, days[0].WorkDate.Before(days[1].WorkDate))
}

func TestGetOpenWorkDays(t *testing.T) {
	s := newStore()
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.InsertWorkDay(models.WorkDay{UserID: 1, WorkDate: date, Status: models.StatusInProgress})
	require.NoError(t, err)

	_, err = s.InsertWorkDay(models.WorkDay{UserID: 2, WorkDate: date, Status: models.StatusPaused})
	require.NoError(t, err)

	_, err = s.InsertWorkDay(models.WorkDay{UserID: 3, WorkDate: date, Status: models.StatusCompleted})
	require.NoError(t, err)

	open, err := s.GetOpenWorkDays()
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestDeleteUserCascades(t *testing.T) {
	s := newStore()
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	start := date.Add(9 * time.Hour)

	user, err := s.InsertUser(models.User{Email: "dev@example.com"})
	require.NoError(t, err)

	day, err := s.InsertWorkDay(models.WorkDay{
		UserID:   user.ID,
		WorkDate: date,
		Status:   models.StatusInProgress,
	})
	require.NoError(t, err)

	_, err = s.InsertSession(models.WorkSession{
		WorkDayID:    day.ID,
		SessionStart: start,
		Type:         models.SessionWork,
	})
	require.NoError(t, err)

	_, err = s.InsertTimeLog(models.TaskTimeLog{TaskID: 1, UserID: user.ID, StartTime: start})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(user.ID))

	open, err := s.GetOpenWorkDays()
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = s.GetWorkDay(user.ID, date)
	assert.ErrorIs(t, err, ErrNotFound)

	sessions, err := s.GetSessions(day.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	count, err := s.CountRunningLogs()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteTaskCascades(t *testing.T) {
	s := newStore()
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	minutes := 30

	task, err := s.InsertTask(models.Task{Name: "review"})
	require.NoError(t, err)

	_, err = s.InsertTimeLog(models.TaskTimeLog{
		TaskID:    task.ID,
		UserID:    1,
		StartTime: start,
		EndTime:   &end,
		Duration:  &minutes,
	})
	require.NoError(t, err)

	// a log on another task survives
	other, err := s.InsertTask(models.Task{Name: "deploy"})
	require.NoError(t, err)

	kept, err := s.InsertTimeLog(models.TaskTimeLog{TaskID: other.ID, UserID: 1, StartTime: start})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTask(task.ID))

	logs, err := s.GetTimeLogsForTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	_, err = s.GetTimeLog(kept.ID)
	assert.NoError(t, err)
}

func TestPagination(t *testing.T) {
	s := newStore()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := s.InsertUser(models.User{Email: email})
		require.NoError(t, err)
	}

	users, err := s.GetUsers(models.Filter{}, models.Pagination{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = s.GetUsers(models.Filter{}, models.Pagination{Offset: 2})
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, err = s.GetUsers(models.Filter{}, models.Pagination{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, users)
}
