package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Teddy2289/backtime/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sentinel store errors.
var (
	ErrConflict = errors.New("data conflict")
	ErrNotFound = errors.New("not found")
)

type (
	StorageUsers    = map[int]models.User
	StorageTasks    = map[int]models.Task
	StorageWorkDays = map[int]models.WorkDay
	StorageSessions = map[int]models.WorkSession
	StorageTimeLogs = map[int]models.TaskTimeLog
)

type Log interface {
	Info(string, ...zapcore.Field)
}

// Keeper persists records behind the memory storage. A nil keeper
// leaves the storage purely in memory (used by tests).
type Keeper interface {
	LoadUsers() (StorageUsers, error)
	LoadTasks() (StorageTasks, error)
	LoadWorkDays() (StorageWorkDays, error)
	LoadSessions() (StorageSessions, error)
	LoadTimeLogs() (StorageTimeLogs, error)

	SaveUser(models.User) (models.User, error)
	UpdateUser(models.User) error
	DeleteUser(int) error

	SaveTask(models.Task) (models.Task, error)
	UpdateTask(models.Task) error
	DeleteTask(int) error

	SaveWorkDay(models.WorkDay) (models.WorkDay, error)
	UpdateWorkDay(models.WorkDay) error

	SaveSession(models.WorkSession) (models.WorkSession, error)
	UpdateSession(models.WorkSession) error

	SaveTimeLog(models.TaskTimeLog) (models.TaskTimeLog, error)
	UpdateTimeLog(models.TaskTimeLog) error

	Ping() bool
	Close() bool
}

// MemoryStorage keeps every record in memory with write-through to
// the keeper. Records are loaded once at construction.
type MemoryStorage struct {
	umx sync.RWMutex
	tmx sync.RWMutex
	wmx sync.RWMutex
	smx sync.RWMutex
	lmx sync.RWMutex

	users    StorageUsers
	tasks    StorageTasks
	workDays StorageWorkDays
	sessions StorageSessions
	timeLogs StorageTimeLogs

	nextID map[string]int

	keeper Keeper
	log    Log
}

func NewMemoryStorage(keeper Keeper, log Log) *MemoryStorage {
	s := &MemoryStorage{
		users:    make(StorageUsers),
		tasks:    make(StorageTasks),
		workDays: make(StorageWorkDays),
		sessions: make(StorageSessions),
		timeLogs: make(StorageTimeLogs),
		nextID:   make(map[string]int),
		keeper:   keeper,
		log:      log,
	}

	if keeper == nil {
		return s
	}

	var err error

	if s.users, err = keeper.LoadUsers(); err != nil {
		log.Info("cannot load user data: ", zap.Error(err))
		s.users = make(StorageUsers)
	}

	if s.tasks, err = keeper.LoadTasks(); err != nil {
		log.Info("cannot load task data: ", zap.Error(err))
		s.tasks = make(StorageTasks)
	}

	if s.workDays, err = keeper.LoadWorkDays(); err != nil {
		log.Info("cannot load work day data: ", zap.Error(err))
		s.workDays = make(StorageWorkDays)
	}

	if s.sessions, err = keeper.LoadSessions(); err != nil {
		log.Info("cannot load session data: ", zap.Error(err))
		s.sessions = make(StorageSessions)
	}

	if s.timeLogs, err = keeper.LoadTimeLogs(); err != nil {
		log.Info("cannot load time log data: ", zap.Error(err))
		s.timeLogs = make(StorageTimeLogs)
	}

	return s
}

// allocID hands out identifiers when no keeper assigns them.
func (s *MemoryStorage) allocID(kind string, used func(int) bool) int {
	id := s.nextID[kind]
	if id == 0 {
		id = 1
	}

	for used(id) {
		id++
	}

	s.nextID[kind] = id + 1

	return id
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// ----- users -----

func (s *MemoryStorage) InsertUser(user models.User) (models.User, error) {
	s.umx.Lock()
	defer s.umx.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.User{}, ErrConflict
		}
	}

	if s.keeper != nil {
		saved, err := s.keeper.SaveUser(user)
		if err != nil {
			return models.User{}, err
		}

		user = saved
	} else {
		user.ID = s.allocID("user", func(id int) bool { _, ok := s.users[id]; return ok })
	}

	s.users[user.ID] = user

	return user, nil
}

func (s *MemoryStorage) UpdateUser(user models.User) error {
	s.umx.Lock()
	defer s.umx.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}

	if s.keeper != nil {
		if err := s.keeper.UpdateUser(user); err != nil {
			return err
		}
	}

	s.users[user.ID] = user

	return nil
}

// DeleteUser removes the user and cascades to their work days,
// sessions and time logs, mirroring the database foreign keys.
func (s *MemoryStorage) DeleteUser(id int) error {
	s.umx.Lock()
	defer s.umx.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}

	if s.keeper != nil {
		if err := s.keeper.DeleteUser(id); err != nil {
			return err
		}
	}

	delete(s.users, id)

	s.wmx.Lock()
	s.smx.Lock()

	for dayID, d := range s.workDays {
		if d.UserID != id {
			continue
		}

		for sessID, sess := range s.sessions {
			if sess.WorkDayID == dayID {
				delete(s.sessions, sessID)
			}
		}

		delete(s.workDays, dayID)
	}

	s.smx.Unlock()
	s.wmx.Unlock()

	s.lmx.Lock()

	for logID, entry := range s.timeLogs {
		if entry.UserID == id {
			delete(s.timeLogs, logID)
		}
	}

	s.lmx.Unlock()

	return nil
}

func (s *MemoryStorage) GetUser(id int) (models.User, error) {
	s.umx.RLock()
	defer s.umx.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	return user, nil
}

func (s *MemoryStorage) GetUserByEmail(email string) (models.User, error) {
	s.umx.RLock()
	defer s.umx.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}

	return models.User{}, ErrNotFound
}

func (s *MemoryStorage) GetUsers(filter models.Filter, p models.Pagination) ([]models.User, error) {
	s.umx.RLock()
	defer s.umx.RUnlock()

	result := make([]models.User, 0, len(s.users))

	for _, u := range s.users {
		if filter.Email != nil && !strings.EqualFold(u.Email, *filter.Email) {
			continue
		}
		if filter.Name != nil && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(*filter.Name)) {
			continue
		}
		if filter.Timezone != nil && u.Timezone != *filter.Timezone {
			continue
		}

		result = append(result, u)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return paginate(result, p), nil
}

// ----- tasks -----

func (s *MemoryStorage) InsertTask(task models.Task) (models.Task, error) {
	s.tmx.Lock()
	defer s.tmx.Unlock()

	if s.keeper != nil {
		saved, err := s.keeper.SaveTask(task)
		if err != nil {
			return models.Task{}, err
		}

		task = saved
	} else {
		task.ID = s.allocID("task", func(id int) bool { _, ok := s.tasks[id]; return ok })
	}

	s.tasks[task.ID] = task

	return task, nil
}

func (s *MemoryStorage) UpdateTask(task models.Task) error {
	s.tmx.Lock()
	defer s.tmx.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return ErrNotFound
	}

	if s.keeper != nil {
		if err := s.keeper.UpdateTask(task); err != nil {
			return err
		}
	}

	s.tasks[task.ID] = task

	return nil
}

// DeleteTask removes the task and cascades to its time logs,
// mirroring the database foreign keys.
func (s *MemoryStorage) DeleteTask(id int) error {
	s.tmx.Lock()
	defer s.tmx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}

	if s.keeper != nil {
		if err := s.keeper.DeleteTask(id); err != nil {
			return err
		}
	}

	delete(s.tasks, id)

	s.lmx.Lock()

	for logID, entry := range s.timeLogs {
		if entry.TaskID == id {
			delete(s.timeLogs, logID)
		}
	}

	s.lmx.Unlock()

	return nil
}

func (s *MemoryStorage) GetTask(id int) (models.Task, error) {
	s.tmx.RLock()
	defer s.tmx.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}

	return task, nil
}

func (s *MemoryStorage) GetTasks(filter models.TaskFilter, p models.Pagination) ([]models.Task, error) {
	s.tmx.RLock()
	defer s.tmx.RUnlock()

	result := make([]models.Task, 0, len(s.tasks))

	for _, t := range s.tasks {
		if filter.Name != nil && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(*filter.Name)) {
			continue
		}
		if filter.Description != nil && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(*filter.Description)) {
			continue
		}

		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return paginate(result, p), nil
}

// ----- work days -----

func (s *MemoryStorage) GetWorkDay(userID int, date time.Time) (models.WorkDay, error) {
	s.wmx.RLock()
	defer s.wmx.RUnlock()

	for _, d := range s.workDays {
		if d.UserID == userID && sameDate(d.WorkDate, date) {
			return d, nil
		}
	}

	return models.WorkDay{}, ErrNotFound
}

func (s *MemoryStorage) InsertWorkDay(day models.WorkDay) (models.WorkDay, error) {
	s.wmx.Lock()
	defer s.wmx.Unlock()

	// one WorkDay per (user, date)
	for _, d := range s.workDays {
		if d.UserID == day.UserID && sameDate(d.WorkDate, day.WorkDate) {
			return models.WorkDay{}, ErrConflict
		}
	}

	if s.keeper != nil {
		saved, err := s.keeper.SaveWorkDay(day)
		if err != nil {
			return models.WorkDay{}, err
		}

		day = saved
	} else {
		day.ID = s.allocID("workday", func(id int) bool { _, ok := s.workDays[id]; return ok })
	}

	s.workDays[day.ID] = day

	return day, nil
}

func (s *MemoryStorage) UpdateWorkDay(day models.WorkDay) error {
	s.wmx.Lock()
	defer s.wmx.Unlock()

	if _, ok := s.workDays[day.ID]; !ok {
		return ErrNotFound
	}

	if s.keeper != nil {
		if err := s.keeper.UpdateWorkDay(day); err != nil {
			return err
		}
	}

	s.workDays[day.ID] = day

	return nil
}

func (s *MemoryStorage) GetWorkDaysRange(userID int, from, to time.Time) ([]models.WorkDay, error) {
	s.wmx.RLock()
	defer s.wmx.RUnlock()

	result := make([]models.WorkDay, 0)

	for _, d := range s.workDays {
		if d.UserID != userID {
			continue
		}
		if d.WorkDate.Before(from) || d.WorkDate.After(to) {
			continue
		}

		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].WorkDate.Before(result[j].WorkDate) })

	return result, nil
}

// GetOpenWorkDays returns every day still in progress or paused,
// across users. The background closer polls it.
func (s *MemoryStorage) GetOpenWorkDays() ([]models.WorkDay, error) {
	s.wmx.RLock()
	defer s.wmx.RUnlock()

	result := make([]models.WorkDay, 0)

	for _, d := range s.workDays {
		if d.Status == models.StatusInProgress || d.Status == models.StatusPaused {
			result = append(result, d)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// ----- work sessions -----

func (s *MemoryStorage) GetOpenSession(workDayID int) (models.WorkSession, error) {
	s.smx.RLock()
	defer s.smx.RUnlock()

	for _, sess := range s.sessions {
		if sess.WorkDayID == workDayID && sess.Open() {
			return sess, nil
		}
	}

	return models.WorkSession{}, ErrNotFound
}

func (s *MemoryStorage) InsertSession(session models.WorkSession) (models.WorkSession, error) {
	s.smx.Lock()
	defer s.smx.Unlock()

	// at most one open session per work day
	for _, sess := range s.sessions {
		if sess.WorkDayID == session.WorkDayID && sess.Open() {
			return models.WorkSession{}, ErrConflict
		}
	}

	if s.keeper != nil {
		saved, err := s.keeper.SaveSession(session)
		if err != nil {
			return models.WorkSession{}, err
		}

		session = saved
	} else {
		session.ID = s.allocID("session", func(id int) bool { _, ok := s.sessions[id]; return ok })
	}

	s.sessions[session.ID] = session

	return session, nil
}

func (s *MemoryStorage) UpdateSession(session models.WorkSession) error {
	s.smx.Lock()
	defer s.smx.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return ErrNotFound
	}

	if s.keeper != nil {
		if err := s.keeper.UpdateSession(session); err != nil {
			return err
		}
	}

	s.sessions[session.ID] = session

	return nil
}

func (s *MemoryStorage) GetSessions(workDayID int) ([]models.WorkSession, error) {
	s.smx.RLock()
	defer s.smx.RUnlock()

	result := make([]models.WorkSession, 0)

	for _, sess := range s.sessions {
		if sess.WorkDayID == workDayID {
			result = append(result, sess)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].SessionStart.Before(result[j].SessionStart) })

	return result, nil
}

// ----- task time logs -----

func (s *MemoryStorage) GetTimeLog(id int) (models.TaskTimeLog, error) {
	s.lmx.RLock()
	defer s.lmx.RUnlock()

	entry, ok := s.timeLogs[id]
	if !ok {
		return models.TaskTimeLog{}, ErrNotFound
	}

	return entry, nil
}

func (s *MemoryStorage) InsertTimeLog(entry models.TaskTimeLog) (models.TaskTimeLog, error) {
	s.lmx.Lock()
	defer s.lmx.Unlock()

	if s.keeper != nil {
		saved, err := s.keeper.SaveTimeLog(entry)
		if err != nil {
			return models.TaskTimeLog{}, err
		}

		entry = saved
	} else {
		entry.ID = s.allocID("timelog", func(id int) bool { _, ok := s.timeLogs[id]; return ok })
	}

	s.timeLogs[entry.ID] = entry

	return entry, nil
}

func (s *MemoryStorage) UpdateTimeLog(entry models.TaskTimeLog) error {
	s.lmx.Lock()
	defer s.lmx.Unlock()

	if _, ok := s.timeLogs[entry.ID]; !ok {
		return ErrNotFound
	}

	if s.keeper != nil {
		if err := s.keeper.UpdateTimeLog(entry); err != nil {
			return err
		}
	}

	s.timeLogs[entry.ID] = entry

	return nil
}

func (s *MemoryStorage) GetRunningLogForUser(userID int) (models.TaskTimeLog, error) {
	s.lmx.RLock()
	defer s.lmx.RUnlock()

	for _, entry := range s.timeLogs {
		if entry.UserID == userID && entry.Running() {
			return entry, nil
		}
	}

	return models.TaskTimeLog{}, ErrNotFound
}

func (s *MemoryStorage) GetRunningLogsForTask(taskID int) ([]models.TaskTimeLog, error) {
	s.lmx.RLock()
	defer s.lmx.RUnlock()

	result := make([]models.TaskTimeLog, 0)

	for _, entry := range s.timeLogs {
		if entry.TaskID == taskID && entry.Running() {
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (s *MemoryStorage) CountRunningLogs() (int, error) {
	s.lmx.RLock()
	defer s.lmx.RUnlock()

	var count int

	for _, entry := range s.timeLogs {
		if entry.Running() {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStorage) GetTimeLogsForUser(userID int, filter models.TimeLogFilter) ([]models.TaskTimeLog, error) {
	s.lmx.RLock()
	defer s.lmx.RUnlock()

	result := make([]models.TaskTimeLog, 0)

	for _, entry := range s.timeLogs {
		if entry.UserID != userID || entry.Running() {
			continue
		}
		if filter.TaskID != nil && entry.TaskID != *filter.TaskID {
			continue
		}
		if filter.DateFrom != nil && entry.StartTime.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && entry.StartTime.After(*filter.DateTo) {
			continue
		}

		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })

	return result, nil
}

func (s *MemoryStorage) GetTimeLogsForTask(taskID int) ([]models.TaskTimeLog, error) {
	s.lmx.RLock()
	defer s.lmx.RUnlock()

	result := make([]models.TaskTimeLog, 0)

	for _, entry := range s.timeLogs {
		if entry.TaskID == taskID && !entry.Running() {
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })

	return result, nil
}

func (s *MemoryStorage) GetTimeLogsInRange(from, to time.Time) ([]models.TaskTimeLog, error) {
	s.lmx.RLock()
	defer s.lmx.RUnlock()

	result := make([]models.TaskTimeLog, 0)

	for _, entry := range s.timeLogs {
		if entry.StartTime.Before(from) || entry.StartTime.After(to) {
			continue
		}

		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })

	return result, nil
}

// ----- misc -----

func (s *MemoryStorage) GetBaseConnection() bool {
	if s.keeper == nil {
		return false
	}

	return s.keeper.Ping()
}

func paginate[T any](items []T, p models.Pagination) []T {
	if p.Offset > 0 {
		if p.Offset >= len(items) {
			return []T{}
		}

		items = items[p.Offset:]
	}

	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}

	return items
}
