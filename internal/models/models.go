package models

import (
	"time"
)

type Key string

// WorkDayStatus is the authoritative lifecycle state of a WorkDay.
type WorkDayStatus string

const (
	StatusPending    WorkDayStatus = "pending"
	StatusInProgress WorkDayStatus = "in_progress"
	StatusPaused     WorkDayStatus = "paused"
	StatusCompleted  WorkDayStatus = "completed"
)

// SessionType distinguishes work intervals from pause intervals.
type SessionType string

const (
	SessionWork  SessionType = "work"
	SessionPause SessionType = "pause"
)

// User представляет структуру данных пользователя
type User struct {
	ID             int       `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	Hash           []byte    `db:"password_hash" json:"-"`
	Timezone       string    `db:"timezone" json:"timezone"`
	DefaultEndTime string    `db:"default_end_time" json:"default_end_time"`
	LastCheckedAt  time.Time `db:"last_checked_at" json:"last_checked_at"`
}

// WorkDay is the per-user-per-date clocking record.
type WorkDay struct {
	ID           int           `db:"id" json:"id"`
	UserID       int           `db:"user_id" json:"user_id"`
	WorkDate     time.Time     `db:"work_date" json:"work_date"`
	StartTime    *time.Time    `db:"start_time" json:"start_time,omitempty"`
	EndTime      *time.Time    `db:"end_time" json:"end_time,omitempty"`
	PauseStart   *time.Time    `db:"pause_start" json:"pause_start,omitempty"`
	PauseEnd     *time.Time    `db:"pause_end" json:"pause_end,omitempty"`
	TotalSeconds int           `db:"total_seconds" json:"total_seconds"`
	PauseSeconds int           `db:"pause_seconds" json:"pause_seconds"`
	NetSeconds   int           `db:"net_seconds" json:"net_seconds"`
	Status       WorkDayStatus `db:"status" json:"status"`
	DailyTarget  int           `db:"daily_target" json:"daily_target"`
}

// WorkSession is a contiguous work or pause interval within a WorkDay.
// SessionEnd stays nil while the interval is open.
type WorkSession struct {
	ID              int         `db:"id" json:"id"`
	WorkDayID       int         `db:"work_day_id" json:"work_day_id"`
	SessionStart    time.Time   `db:"session_start" json:"session_start"`
	SessionEnd      *time.Time  `db:"session_end" json:"session_end,omitempty"`
	DurationSeconds int         `db:"duration_seconds" json:"duration_seconds"`
	Type            SessionType `db:"type" json:"type"`
}

// Open reports whether the session interval has not been closed yet.
func (s WorkSession) Open() bool {
	return s.SessionEnd == nil
}

// TaskTimeLog is a single timer instance tying a user to a task.
type TaskTimeLog struct {
	ID        int        `db:"id" json:"id"`
	TaskID    int        `db:"task_id" json:"task_id"`
	UserID    int        `db:"user_id" json:"user_id"`
	StartTime time.Time  `db:"start_time" json:"start_time"`
	EndTime   *time.Time `db:"end_time" json:"end_time,omitempty"`
	// Duration is whole minutes, set on stop, at least 1.
	Duration *int   `db:"duration" json:"duration,omitempty"`
	Note     string `db:"note" json:"note,omitempty"`
}

// Running reports whether the log has been started but not stopped.
func (l TaskTimeLog) Running() bool {
	return !l.StartTime.IsZero() && l.EndTime == nil
}

type Task struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Filter struct {
	Email    *string
	Name     *string
	Timezone *string
}

type TaskFilter struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// TimeLogFilter narrows time-log aggregate queries.
type TimeLogFilter struct {
	TaskID   *int
	DateFrom *time.Time
	DateTo   *time.Time
}

// WorkDayStats представляет агрегат за период
type WorkDayStats struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	DaysWorked    int       `json:"days_worked"`
	SessionCount  int       `json:"session_count"`
	TotalSeconds  int       `json:"total_seconds"`
	PauseSeconds  int       `json:"pause_seconds"`
	NetSeconds    int       `json:"net_seconds"`
	TargetSeconds int       `json:"target_seconds"`
}

// DayTotal is one day's summed timer minutes inside TimeStatistics.
type DayTotal struct {
	Date    time.Time `json:"date"`
	Minutes int       `json:"minutes"`
}

// TimeStatistics aggregates completed logs over a trailing window.
type TimeStatistics struct {
	LogCount       int        `json:"log_count"`
	TotalMinutes   int        `json:"total_minutes"`
	AverageMinutes float64    `json:"average_minutes"`
	RunningCount   int        `json:"running_count"`
	PerDay         []DayTotal `json:"per_day"`
}

// ErrorResponse is the structured failure body returned by the API.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type RequestUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type ResponseUser struct {
	Response string `json:"response"`
}
