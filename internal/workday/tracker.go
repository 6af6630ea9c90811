package workday

import (
	"errors"
	"sync"
	"time"

	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Tracker state errors. The controller maps them to structured
// API failures, they are never fatal.
var (
	ErrAlreadyStarted    = errors.New("work day already started")
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrNoActiveDay       = errors.New("no active work day")
)

type Log interface {
	Info(string, ...zapcore.Field)
}

type Storage interface {
	GetWorkDay(userID int, date time.Time) (models.WorkDay, error)
	InsertWorkDay(models.WorkDay) (models.WorkDay, error)
	UpdateWorkDay(models.WorkDay) error
	GetWorkDaysRange(userID int, from, to time.Time) ([]models.WorkDay, error)

	GetOpenSession(workDayID int) (models.WorkSession, error)
	InsertSession(models.WorkSession) (models.WorkSession, error)
	UpdateSession(models.WorkSession) error
	GetSessions(workDayID int) ([]models.WorkSession, error)
}

// Calendar is the external work-calendar policy.
type Calendar interface {
	IsWorkDay(date time.Time) bool
	DailyTarget(date time.Time) int
}

// Tracker drives the per-user work day clock:
// pending -> in_progress -> {paused <-> in_progress} -> completed.
// All transitions for one user are serialized through a per-user lock
// so that concurrent requests cannot both observe the same state.
type Tracker struct {
	storage  Storage
	calendar Calendar
	log      Log
	now      func() time.Time

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewTracker(storage Storage, calendar Calendar, log Log) *Tracker {
	return &Tracker{
		storage:  storage,
		calendar: calendar,
		log:      log,
		now:      time.Now,
		locks:    make(map[int]*sync.Mutex),
	}
}

func (t *Tracker) userLock(userID int) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[userID]
	if !ok {
		l = new(sync.Mutex)
		t.locks[userID] = l
	}

	return l
}

// dateOnly truncates a timestamp to its calendar date.
func dateOnly(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}

// StartDay opens a work day for the user for today and starts the
// first work session. Starting twice fails with ErrAlreadyStarted.
func (t *Tracker) StartDay(userID int) (models.WorkDay, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := t.now()
	date := dateOnly(now)

	if !t.calendar.IsWorkDay(date) {
		return models.WorkDay{}, ErrInvalidTransition
	}

	day, err := t.storage.GetWorkDay(userID, date)
	switch {
	case err == nil && day.Status != models.StatusPending:
		return models.WorkDay{}, ErrAlreadyStarted
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return models.WorkDay{}, err
	case errors.Is(err, storage.ErrNotFound):
		day = models.WorkDay{
			UserID:   userID,
			WorkDate: date,
		}
	}

	day.StartTime = &now
	day.Status = models.StatusInProgress
	day.DailyTarget = t.calendar.DailyTarget(date)

	if day.ID == 0 {
		day, err = t.storage.InsertWorkDay(day)
	} else {
		err = t.storage.UpdateWorkDay(day)
	}
	if err != nil {
		return models.WorkDay{}, err
	}

	if _, err := t.openSession(day.ID, now, models.SessionWork); err != nil {
		return models.WorkDay{}, err
	}

	t.log.Info("work day started", zap.Int("user_id", userID))

	return day, nil
}

// Pause closes the open work session and opens a pause session.
// Only legal while the day is in progress.
func (t *Tracker) Pause(userID int) (models.WorkDay, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := t.now()

	day, err := t.activeDay(userID, now)
	if err != nil {
		return models.WorkDay{}, err
	}

	if day.Status != models.StatusInProgress {
		return models.WorkDay{}, ErrInvalidTransition
	}

	if _, err := t.closeOpenSession(day.ID, now); err != nil {
		return models.WorkDay{}, err
	}

	if _, err := t.openSession(day.ID, now, models.SessionPause); err != nil {
		return models.WorkDay{}, err
	}

	day.PauseStart = &now
	day.Status = models.StatusPaused

	if err := t.storage.UpdateWorkDay(day); err != nil {
		return models.WorkDay{}, err
	}

	t.log.Info("work day paused", zap.Int("user_id", userID))

	return day, nil
}

// Resume closes the open pause session, accumulates its duration
// into the day's pause counter and opens a fresh work session.
func (t *Tracker) Resume(userID int) (models.WorkDay, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := t.now()

	day, err := t.activeDay(userID, now)
	if err != nil {
		return models.WorkDay{}, err
	}

	if day.Status != models.StatusPaused {
		return models.WorkDay{}, ErrInvalidTransition
	}

	closed, err := t.closeOpenSession(day.ID, now)
	if err != nil {
		return models.WorkDay{}, err
	}

	day.PauseSeconds += closed.DurationSeconds
	day.PauseEnd = &now
	day.Status = models.StatusInProgress

	if _, err := t.openSession(day.ID, now, models.SessionWork); err != nil {
		return models.WorkDay{}, err
	}

	if err := t.storage.UpdateWorkDay(day); err != nil {
		return models.WorkDay{}, err
	}

	t.log.Info("work day resumed", zap.Int("user_id", userID))

	return day, nil
}

// EndDay completes today's work day at the current time.
func (t *Tracker) EndDay(userID int) (models.WorkDay, error) {
	return t.EndDayAt(userID, t.now())
}

// EndDayAt completes the user's work day for the date of the given
// timestamp. The background closer uses it to force-end stale days
// at the user's default end time.
func (t *Tracker) EndDayAt(userID int, at time.Time) (models.WorkDay, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	day, err := t.activeDay(userID, at)
	if err != nil {
		return models.WorkDay{}, err
	}

	if day.Status != models.StatusInProgress && day.Status != models.StatusPaused {
		return models.WorkDay{}, ErrInvalidTransition
	}

	closed, err := t.closeOpenSession(day.ID, at)
	if err != nil {
		return models.WorkDay{}, err
	}

	if closed.Type == models.SessionPause {
		day.PauseSeconds += closed.DurationSeconds
		day.PauseEnd = &at
	}

	// Total is the wall clock span of the day, net subtracts pauses.
	day.EndTime = &at
	day.TotalSeconds = int(at.Sub(*day.StartTime).Seconds())
	if day.TotalSeconds < 0 {
		day.TotalSeconds = 0
	}

	day.NetSeconds = day.TotalSeconds - day.PauseSeconds
	if day.NetSeconds < 0 {
		day.NetSeconds = 0
	}

	day.Status = models.StatusCompleted

	if err := t.storage.UpdateWorkDay(day); err != nil {
		return models.WorkDay{}, err
	}

	t.log.Info("work day completed",
		zap.Int("user_id", userID),
		zap.Int("net_seconds", day.NetSeconds),
	)

	return day, nil
}

// Status returns today's work day. When none was started it returns
// a pending placeholder instead of an error.
func (t *Tracker) Status(userID int) (models.WorkDay, error) {
	now := t.now()
	date := dateOnly(now)

	day, err := t.storage.GetWorkDay(userID, date)
	if errors.Is(err, storage.ErrNotFound) {
		return models.WorkDay{
			UserID:      userID,
			WorkDate:    date,
			Status:      models.StatusPending,
			DailyTarget: t.calendar.DailyTarget(date),
		}, nil
	}

	return day, err
}

// CanStartDay reports whether the user may start a work day today:
// the calendar must allow it and no non-pending day may exist yet.
func (t *Tracker) CanStartDay(userID int) (bool, error) {
	date := dateOnly(t.now())

	if !t.calendar.IsWorkDay(date) {
		return false, nil
	}

	day, err := t.storage.GetWorkDay(userID, date)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return day.Status == models.StatusPending, nil
}

// WeeklyStats aggregates the completed days of the current week,
// Monday through today. A day still in progress has no final totals
// yet and is left out.
func (t *Tracker) WeeklyStats(userID int) (models.WorkDayStats, error) {
	today := dateOnly(t.now())

	offset := int(today.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	from := today.AddDate(0, 0, -offset)

	return t.rangeStats(userID, from, today)
}

// MonthlyStats aggregates the completed days of the current month up
// to today.
func (t *Tracker) MonthlyStats(userID int) (models.WorkDayStats, error) {
	today := dateOnly(t.now())
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	return t.rangeStats(userID, from, today)
}

func (t *Tracker) rangeStats(userID int, from, to time.Time) (models.WorkDayStats, error) {
	days, err := t.storage.GetWorkDaysRange(userID, from, to)
	if err != nil {
		return models.WorkDayStats{}, err
	}

	stats := models.WorkDayStats{From: from, To: to}

	for _, day := range days {
		if day.Status != models.StatusCompleted {
			continue
		}

		stats.DaysWorked++
		stats.TotalSeconds += day.TotalSeconds
		stats.PauseSeconds += day.PauseSeconds
		stats.NetSeconds += day.NetSeconds
		stats.TargetSeconds += day.DailyTarget

		sessions, err := t.storage.GetSessions(day.ID)
		if err != nil {
			return models.WorkDayStats{}, err
		}

		stats.SessionCount += len(sessions)
	}

	return stats, nil
}

// SyncTime recomputes the cached aggregate columns of a work day
// from its session history. Sessions are the source of truth, the
// columns are a projection kept for query efficiency.
func (t *Tracker) SyncTime(userID int, date time.Time) (models.WorkDay, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	day, err := t.storage.GetWorkDay(userID, dateOnly(date))
	if err != nil {
		return models.WorkDay{}, err
	}

	sessions, err := t.storage.GetSessions(day.ID)
	if err != nil {
		return models.WorkDay{}, err
	}

	var work, pause int

	for _, s := range sessions {
		if s.Open() {
			continue
		}

		switch s.Type {
		case models.SessionPause:
			pause += s.DurationSeconds
		default:
			work += s.DurationSeconds
		}
	}

	day.PauseSeconds = pause
	day.TotalSeconds = work + pause
	day.NetSeconds = work

	if err := t.storage.UpdateWorkDay(day); err != nil {
		return models.WorkDay{}, err
	}

	t.log.Info("work day aggregates resynced",
		zap.Int("user_id", userID),
		zap.Int("work_day_id", day.ID),
	)

	return day, nil
}

// activeDay loads the work day for the date of ts, translating a
// missing row into ErrNoActiveDay.
func (t *Tracker) activeDay(userID int, ts time.Time) (models.WorkDay, error) {
	day, err := t.storage.GetWorkDay(userID, dateOnly(ts))
	if errors.Is(err, storage.ErrNotFound) {
		return models.WorkDay{}, ErrNoActiveDay
	}

	return day, err
}

func (t *Tracker) openSession(workDayID int, at time.Time, typ models.SessionType) (models.WorkSession, error) {
	return t.storage.InsertSession(models.WorkSession{
		WorkDayID:    workDayID,
		SessionStart: at,
		Type:         typ,
	})
}

// closeOpenSession closes the single open session of the day and
// computes its duration.
func (t *Tracker) closeOpenSession(workDayID int, at time.Time) (models.WorkSession, error) {
	session, err := t.storage.GetOpenSession(workDayID)
	if err != nil {
		return models.WorkSession{}, err
	}

	session.SessionEnd = &at

	session.DurationSeconds = int(at.Sub(session.SessionStart).Seconds())
	if session.DurationSeconds < 0 {
		session.DurationSeconds = 0
	}

	if err := t.storage.UpdateSession(session); err != nil {
		return models.WorkSession{}, err
	}

	return session, nil
}
