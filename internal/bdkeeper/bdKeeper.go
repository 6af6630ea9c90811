package bdkeeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // registers a migrate driver.
	_ "github.com/jackc/pgx/v5/stdlib"                   // registers a pgx driver.

	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log interface {
	Info(string, ...zapcore.Field)
}

type BDKeeper struct {
	conn *sql.DB
	log  Log
}

func NewBDKeeper(dsn func() string, log Log) *BDKeeper {
	addr := dsn()
	if addr == "" {
		log.Info("database dsn is empty")

		return nil
	}

	conn, err := sql.Open("pgx", addr)
	if err != nil {
		log.Info("Unable to connection to database: ", zap.Error(err))

		return nil
	}

	driver, err := postgres.WithInstance(conn, new(postgres.Config))
	if err != nil {
		log.Info("error getting driver: ", zap.Error(err))

		return nil
	}

	dir, err := os.Getwd()
	if err != nil {
		log.Info("error getting current directory: ", zap.Error(err))
	}

	// fix error test path
	mp := dir + "/migrations"

	var path string
	if _, err := os.Stat(mp); err != nil {
		path = "../../"
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%smigrations", path),
		"postgres",
		driver)
	if err != nil {
		log.Info("Error creating migration instance: ", zap.Error(err))
		return nil
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Info("Error while performing migration: ", zap.Error(err))
		return nil
	}

	log.Info("Connected!")

	return &BDKeeper{
		conn: conn,
		log:  log,
	}
}

// ----- users -----

func (kp *BDKeeper) LoadUsers() (storage.StorageUsers, error) {
	ctx := context.Background()

	query := `
	SELECT
		id,
		email,
		name,
		password_hash,
		timezone,
		default_end_time,
		last_checked_at
	FROM
		users`

	rows, err := kp.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	defer rows.Close()

	data := make(storage.StorageUsers)

	for rows.Next() {
		var m models.User

		err := rows.Scan(
			&m.ID,
			&m.Email,
			&m.Name,
			&m.Hash,
			&m.Timezone,
			&m.DefaultEndTime,
			&m.LastCheckedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load users: %w", err)
		}

		data[m.ID] = m
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	return data, nil
}

func (kp *BDKeeper) SaveUser(user models.User) (models.User, error) {
	query := `
	INSERT INTO users (email, name, password_hash, timezone, default_end_time, last_checked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING
		id`

	err := kp.conn.QueryRow(
		query,
		user.Email,
		user.Name,
		user.Hash,
		user.Timezone,
		user.DefaultEndTime,
		user.LastCheckedAt,
	).Scan(&user.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to save user: %w", err)
	}

	return user, nil
}

func (kp *BDKeeper) UpdateUser(user models.User) error {
	query := `
	UPDATE users
	SET email = $2, name = $3, password_hash = $4, timezone = $5,
		default_end_time = $6, last_checked_at = $7
	WHERE id = $1`

	_, err := kp.conn.Exec(
		query,
		user.ID,
		user.Email,
		user.Name,
		user.Hash,
		user.Timezone,
		user.DefaultEndTime,
		user.LastCheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

func (kp *BDKeeper) DeleteUser(id int) error {
	_, err := kp.conn.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// ----- tasks -----

func (kp *BDKeeper) LoadTasks() (storage.StorageTasks, error) {
	ctx := context.Background()

	query := `
	SELECT
		id,
		name,
		description,
		created_at
	FROM
		tasks`

	rows, err := kp.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	defer rows.Close()

	data := make(storage.StorageTasks)

	for rows.Next() {
		var m models.Task

		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to load tasks: %w", err)
		}

		data[m.ID] = m
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	return data, nil
}

func (kp *BDKeeper) SaveTask(task models.Task) (models.Task, error) {
	query := `
	INSERT INTO tasks (name, description, created_at)
		VALUES ($1, $2, $3)
	RETURNING
		id`

	err := kp.conn.QueryRow(query, task.Name, task.Description, task.CreatedAt).Scan(&task.ID)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to save task: %w", err)
	}

	return task, nil
}

func (kp *BDKeeper) UpdateTask(task models.Task) error {
	query := `
	UPDATE tasks
	SET name = $2, description = $3
	WHERE id = $1`

	_, err := kp.conn.Exec(query, task.ID, task.Name, task.Description)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

func (kp *BDKeeper) DeleteTask(id int) error {
	_, err := kp.conn.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// ----- work days -----

func (kp *BDKeeper) LoadWorkDays() (storage.StorageWorkDays, error) {
	ctx := context.Background()

	query := `
	SELECT
		id,
		user_id,
		work_date,
		start_time,
		end_time,
		pause_start,
		pause_end,
		total_seconds,
		pause_seconds,
		net_seconds,
		status,
		daily_target
	FROM
		work_days`

	rows, err := kp.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load work days: %w", err)
	}

	defer rows.Close()

	data := make(storage.StorageWorkDays)

	for rows.Next() {
		var m models.WorkDay

		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.WorkDate,
			&m.StartTime,
			&m.EndTime,
			&m.PauseStart,
			&m.PauseEnd,
			&m.TotalSeconds,
			&m.PauseSeconds,
			&m.NetSeconds,
			&m.Status,
			&m.DailyTarget,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load work days: %w", err)
		}

		data[m.ID] = m
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load work days: %w", err)
	}

	return data, nil
}

func (kp *BDKeeper) SaveWorkDay(day models.WorkDay) (models.WorkDay, error) {
	query := `
	INSERT INTO work_days (
		user_id, work_date, start_time, end_time, pause_start, pause_end,
		total_seconds, pause_seconds, net_seconds, status, daily_target
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING
		id`

	err := kp.conn.QueryRow(
		query,
		day.UserID,
		day.WorkDate,
		day.StartTime,
		day.EndTime,
		day.PauseStart,
		day.PauseEnd,
		day.TotalSeconds,
		day.PauseSeconds,
		day.NetSeconds,
		day.Status,
		day.DailyTarget,
	).Scan(&day.ID)
	if err != nil {
		return models.WorkDay{}, fmt.Errorf("failed to save work day: %w", err)
	}

	return day, nil
}

func (kp *BDKeeper) UpdateWorkDay(day models.WorkDay) error {
	query := `
	UPDATE work_days
	SET start_time = $2, end_time = $3, pause_start = $4, pause_end = $5,
		total_seconds = $6, pause_seconds = $7, net_seconds = $8,
		status = $9, daily_target = $10
	WHERE id = $1`

	_, err := kp.conn.Exec(
		query,
		day.ID,
		day.StartTime,
		day.EndTime,
		day.PauseStart,
		day.PauseEnd,
		day.TotalSeconds,
		day.PauseSeconds,
		day.NetSeconds,
		day.Status,
		day.DailyTarget,
	)
	if err != nil {
		return fmt.Errorf("failed to update work day: %w", err)
	}

	return nil
}

// ----- work sessions -----

func (kp *BDKeeper) LoadSessions() (storage.StorageSessions, error) {
	ctx := context.Background()

	query := `
	SELECT
		id,
		work_day_id,
		session_start,
		session_end,
		duration_seconds,
		type
	FROM
		work_sessions`

	rows, err := kp.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load work sessions: %w", err)
	}

	defer rows.Close()

	data := make(storage.StorageSessions)

	for rows.Next() {
		var m models.WorkSession

		err := rows.Scan(
			&m.ID,
			&m.WorkDayID,
			&m.SessionStart,
			&m.SessionEnd,
			&m.DurationSeconds,
			&m.Type,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load work sessions: %w", err)
		}

		data[m.ID] = m
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load work sessions: %w", err)
	}

	return data, nil
}

func (kp *BDKeeper) SaveSession(session models.WorkSession) (models.WorkSession, error) {
	query := `
	INSERT INTO work_sessions (work_day_id, session_start, session_end, duration_seconds, type)
		VALUES ($1, $2, $3, $4, $5)
	RETURNING
		id`

	err := kp.conn.QueryRow(
		query,
		session.WorkDayID,
		session.SessionStart,
		session.SessionEnd,
		session.DurationSeconds,
		session.Type,
	).Scan(&session.ID)
	if err != nil {
		return models.WorkSession{}, fmt.Errorf("failed to save work session: %w", err)
	}

	return session, nil
}

func (kp *BDKeeper) UpdateSession(session models.WorkSession) error {
	query := `
	UPDATE work_sessions
	SET session_end = $2, duration_seconds = $3
	WHERE id = $1`

	_, err := kp.conn.Exec(query, session.ID, session.SessionEnd, session.DurationSeconds)
	if err != nil {
		return fmt.Errorf("failed to update work session: %w", err)
	}

	return nil
}

// ----- task time logs -----

func (kp *BDKeeper) LoadTimeLogs() (storage.StorageTimeLogs, error) {
	ctx := context.Background()

	query := `
	SELECT
		id,
		task_id,
		user_id,
		start_time,
		end_time,
		duration,
		note
	FROM
		task_time_logs`

	rows, err := kp.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load time logs: %w", err)
	}

	defer rows.Close()

	data := make(storage.StorageTimeLogs)

	for rows.Next() {
		var m models.TaskTimeLog

		err := rows.Scan(
			&m.ID,
			&m.TaskID,
			&m.UserID,
			&m.StartTime,
			&m.EndTime,
			&m.Duration,
			&m.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load time logs: %w", err)
		}

		data[m.ID] = m
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load time logs: %w", err)
	}

	return data, nil
}

func (kp *BDKeeper) SaveTimeLog(entry models.TaskTimeLog) (models.TaskTimeLog, error) {
	query := `
	INSERT INTO task_time_logs (task_id, user_id, start_time, end_time, duration, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING
		id`

	err := kp.conn.QueryRow(
		query,
		entry.TaskID,
		entry.UserID,
		entry.StartTime,
		entry.EndTime,
		entry.Duration,
		entry.Note,
	).Scan(&entry.ID)
	if err != nil {
		return models.TaskTimeLog{}, fmt.Errorf("failed to save time log: %w", err)
	}

	return entry, nil
}

func (kp *BDKeeper) UpdateTimeLog(entry models.TaskTimeLog) error {
	query := `
	UPDATE task_time_logs
	SET end_time = $2, duration = $3, note = $4
	WHERE id = $1`

	_, err := kp.conn.Exec(query, entry.ID, entry.EndTime, entry.Duration, entry.Note)
	if err != nil {
		return fmt.Errorf("failed to update time log: %w", err)
	}

	return nil
}

// ----- misc -----

func (kp *BDKeeper) Ping() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := kp.conn.PingContext(ctx); err != nil {
		return false
	}

	return true
}

func (kp *BDKeeper) Close() bool {
	kp.conn.Close()

	return true
}
