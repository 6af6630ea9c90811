package tasktimer

import (
	"errors"
	"sync"
	"time"

	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrNotRunning is returned when stopping a log that is absent or
// already stopped.
var ErrNotRunning = errors.New("time log is not running")

// autoStopNote marks logs that were stopped because the user
// started a new timer.
const autoStopNote = "auto-stopped: new timer started"

type Log interface {
	Info(string, ...zapcore.Field)
}

type Storage interface {
	GetTimeLog(id int) (models.TaskTimeLog, error)
	InsertTimeLog(models.TaskTimeLog) (models.TaskTimeLog, error)
	UpdateTimeLog(models.TaskTimeLog) error

	GetRunningLogForUser(userID int) (models.TaskTimeLog, error)
	GetRunningLogsForTask(taskID int) ([]models.TaskTimeLog, error)
	CountRunningLogs() (int, error)

	GetTimeLogsForUser(userID int, filter models.TimeLogFilter) ([]models.TaskTimeLog, error)
	GetTimeLogsForTask(taskID int) ([]models.TaskTimeLog, error)
	GetTimeLogsInRange(from, to time.Time) ([]models.TaskTimeLog, error)
}

// Timer enforces the single invariant of task time logs: at most one
// running log per user, system wide. Starting a new log silently stops
// the previous one, it is a side effect rather than a failure.
type Timer struct {
	storage Storage
	log     Log
	now     func() time.Time

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewTimer(storage Storage, log Log) *Timer {
	return &Timer{
		storage: storage,
		log:     log,
		now:     time.Now,
		locks:   make(map[int]*sync.Mutex),
	}
}

func (t *Timer) userLock(userID int) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[userID]
	if !ok {
		l = new(sync.Mutex)
		t.locks[userID] = l
	}

	return l
}

// Start begins a new time log for the task. Any log still running for
// the user is stopped first with a system note.
func (t *Timer) Start(taskID, userID int, note string) (models.TaskTimeLog, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := t.now()

	running, err := t.storage.GetRunningLogForUser(userID)
	switch {
	case err == nil:
		if err := t.finishLog(&running, now, autoStopNote); err != nil {
			return models.TaskTimeLog{}, err
		}

		t.log.Info("previous time log auto-stopped",
			zap.Int("user_id", userID),
			zap.Int("log_id", running.ID),
		)
	case !errors.Is(err, storage.ErrNotFound):
		return models.TaskTimeLog{}, err
	}

	entry := models.TaskTimeLog{
		TaskID:    taskID,
		UserID:    userID,
		StartTime: now,
		Note:      note,
	}

	entry, err = t.storage.InsertTimeLog(entry)
	if err != nil {
		return models.TaskTimeLog{}, err
	}

	t.log.Info("time log started",
		zap.Int("user_id", userID),
		zap.Int("task_id", taskID),
	)

	return entry, nil
}

// Stop ends the given log and computes its duration. Stopping a log
// that does not exist or already ended fails with ErrNotRunning.
func (t *Timer) Stop(logID int, note string) (models.TaskTimeLog, error) {
	entry, err := t.storage.GetTimeLog(logID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.TaskTimeLog{}, ErrNotRunning
	}
	if err != nil {
		return models.TaskTimeLog{}, err
	}

	lock := t.userLock(entry.UserID)
	lock.Lock()
	defer lock.Unlock()

	// Reload under the lock, a concurrent stop may have won the race.
	entry, err = t.storage.GetTimeLog(logID)
	if err != nil {
		return models.TaskTimeLog{}, err
	}

	if !entry.Running() {
		return models.TaskTimeLog{}, ErrNotRunning
	}

	if err := t.finishLog(&entry, t.now(), note); err != nil {
		return models.TaskTimeLog{}, err
	}

	t.log.Info("time log stopped",
		zap.Int("log_id", entry.ID),
		zap.Int("duration_minutes", *entry.Duration),
	)

	return entry, nil
}

// StopCurrent stops the user's running log, if any. It reports false
// without error when nothing is running.
func (t *Timer) StopCurrent(userID int, note string) (bool, models.TaskTimeLog, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := t.storage.GetRunningLogForUser(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, models.TaskTimeLog{}, nil
	}
	if err != nil {
		return false, models.TaskTimeLog{}, err
	}

	if err := t.finishLog(&entry, t.now(), note); err != nil {
		return false, models.TaskTimeLog{}, err
	}

	return true, entry, nil
}

// RunningForUser returns the user's open log, storage.ErrNotFound
// when nothing is running.
func (t *Timer) RunningForUser(userID int) (models.TaskTimeLog, error) {
	return t.storage.GetRunningLogForUser(userID)
}

// RunningForTask returns all open logs on the task, across users.
func (t *Timer) RunningForTask(taskID int) ([]models.TaskTimeLog, error) {
	return t.storage.GetRunningLogsForTask(taskID)
}

// TotalTimeForUser sums completed log minutes for the user, narrowed
// by the filter.
func (t *Timer) TotalTimeForUser(userID int, filter models.TimeLogFilter) (int, error) {
	logs, err := t.storage.GetTimeLogsForUser(userID, filter)
	if err != nil {
		return 0, err
	}

	return sumMinutes(logs), nil
}

// TotalTimeForTask sums completed log minutes on the task.
func (t *Timer) TotalTimeForTask(taskID int) (int, error) {
	logs, err := t.storage.GetTimeLogsForTask(taskID)
	if err != nil {
		return 0, err
	}

	return sumMinutes(logs), nil
}

// statisticsWindowDays is the trailing window of Statistics.
const statisticsWindowDays = 7

// Statistics aggregates completed logs over the trailing week plus
// the number of currently running logs.
func (t *Timer) Statistics() (models.TimeStatistics, error) {
	now := t.now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := to.AddDate(0, 0, -(statisticsWindowDays - 1))

	logs, err := t.storage.GetTimeLogsInRange(from, now)
	if err != nil {
		return models.TimeStatistics{}, err
	}

	stats := models.TimeStatistics{
		PerDay: make([]models.DayTotal, statisticsWindowDays),
	}

	for i := range stats.PerDay {
		stats.PerDay[i].Date = from.AddDate(0, 0, i)
	}

	for _, entry := range logs {
		if entry.Duration == nil {
			continue
		}

		stats.LogCount++
		stats.TotalMinutes += *entry.Duration

		idx := int(dateOnly(entry.StartTime).Sub(from).Hours() / 24)
		if idx >= 0 && idx < len(stats.PerDay) {
			stats.PerDay[idx].Minutes += *entry.Duration
		}
	}

	if stats.LogCount > 0 {
		stats.AverageMinutes = float64(stats.TotalMinutes) / float64(stats.LogCount)
	}

	stats.RunningCount, err = t.storage.CountRunningLogs()
	if err != nil {
		return models.TimeStatistics{}, err
	}

	return stats, nil
}

// finishLog closes the log at the given moment. Duration is whole
// minutes clamped to at least one so rapid start/stop never produces
// a zero entry.
func (t *Timer) finishLog(entry *models.TaskTimeLog, at time.Time, note string) error {
	end := at

	minutes := int(end.Sub(entry.StartTime).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	entry.EndTime = &end
	entry.Duration = &minutes

	if note != "" {
		entry.Note = note
	}

	return t.storage.UpdateTimeLog(*entry)
}

func sumMinutes(logs []models.TaskTimeLog) int {
	var total int

	for _, entry := range logs {
		if entry.Duration != nil {
			total += *entry.Duration
		}
	}

	return total
}

func dateOnly(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
