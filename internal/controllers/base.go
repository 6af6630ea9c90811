package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	authz "github.com/Teddy2289/backtime/internal/authorization"
	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/storage"
	"github.com/Teddy2289/backtime/internal/tasktimer"
	"github.com/Teddy2289/backtime/internal/workday"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Error kinds surfaced in structured failure responses.
const (
	kindNotFound          = "NotFound"
	kindInvalidTransition = "InvalidTransition"
	kindAlreadyStarted    = "AlreadyStarted"
	kindNotRunning        = "NotRunning"
	kindValidation        = "ValidationError"
	kindInternal          = "InternalError"
)

type Storage interface {
	GetBaseConnection() bool

	GetUser(int) (models.User, error)
	GetUserByEmail(string) (models.User, error)
	InsertUser(models.User) (models.User, error)
	UpdateUser(models.User) error
	DeleteUser(int) error
	GetUsers(models.Filter, models.Pagination) ([]models.User, error)

	InsertTask(models.Task) (models.Task, error)
	UpdateTask(models.Task) error
	DeleteTask(int) error
	GetTasks(models.TaskFilter, models.Pagination) ([]models.Task, error)
}

// WorkDayTracker is the work day clock state machine.
type WorkDayTracker interface {
	StartDay(userID int) (models.WorkDay, error)
	Pause(userID int) (models.WorkDay, error)
	Resume(userID int) (models.WorkDay, error)
	EndDay(userID int) (models.WorkDay, error)
	Status(userID int) (models.WorkDay, error)
	CanStartDay(userID int) (bool, error)
	WeeklyStats(userID int) (models.WorkDayStats, error)
	MonthlyStats(userID int) (models.WorkDayStats, error)
	SyncTime(userID int, date time.Time) (models.WorkDay, error)
}

// TaskTimer is the per-user task timer.
type TaskTimer interface {
	Start(taskID, userID int, note string) (models.TaskTimeLog, error)
	Stop(logID int, note string) (models.TaskTimeLog, error)
	StopCurrent(userID int, note string) (bool, models.TaskTimeLog, error)
	RunningForUser(userID int) (models.TaskTimeLog, error)
	RunningForTask(taskID int) ([]models.TaskTimeLog, error)
	TotalTimeForUser(userID int, filter models.TimeLogFilter) (int, error)
	TotalTimeForTask(taskID int) (int, error)
	Statistics() (models.TimeStatistics, error)
}

type Log interface {
	Info(string, ...zapcore.Field)
}

type Authz interface {
	JWTAuthzMiddleware(authz.Log) func(http.Handler) http.Handler
	GetHash(string, string) []byte
	CreateJWTTokenForUser(int) string
	AuthCookie(string, string) *http.Cookie
}

type BaseController struct {
	storage        Storage
	tracker        WorkDayTracker
	timer          TaskTimer
	log            Log
	authz          Authz
	defaultEndTime func() string
}

func NewBaseController(storage Storage, tracker WorkDayTracker, timer TaskTimer,
	log Log, authz Authz, defaultEndTime func() string,
) *BaseController {
	instance := &BaseController{
		storage:        storage,
		tracker:        tracker,
		timer:          timer,
		log:            log,
		authz:          authz,
		defaultEndTime: defaultEndTime,
	}

	return instance
}

func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/ping", h.GetPing)
	r.Post("/api/user/register", h.Register)
	r.Post("/api/user/login", h.Login)

	// group where the middleware authorization is needed
	r.Group(func(r chi.Router) {
		r.Use(h.authz.JWTAuthzMiddleware(h.log))

		r.Put("/api/user", h.UpdateUser)
		r.Delete("/api/user", h.DeleteUser)
		r.Get("/api/users", h.GetUsers)

		r.Post("/api/task", h.AddTask)
		r.Put("/api/task", h.UpdateTask)
		r.Delete("/api/task", h.DeleteTask)
		r.Get("/api/tasks", h.GetTasks)

		r.Post("/api/workday/start", h.StartDay)
		r.Post("/api/workday/pause", h.PauseDay)
		r.Post("/api/workday/resume", h.ResumeDay)
		r.Post("/api/workday/end", h.EndDay)
		r.Post("/api/workday/sync", h.SyncDay)
		r.Get("/api/workday/status", h.DayStatus)
		r.Get("/api/workday/can-start", h.CanStartDay)
		r.Get("/api/workday/stats/weekly", h.WeeklyStats)
		r.Get("/api/workday/stats/monthly", h.MonthlyStats)

		r.Post("/api/timer/start", h.StartTimer)
		r.Post("/api/timer/stop", h.StopTimer)
		r.Post("/api/timer/stop-current", h.StopCurrentTimer)
		r.Get("/api/timer/running", h.RunningTimers)
		r.Get("/api/timer/total", h.TotalTime)
		r.Get("/api/timer/statistics", h.TimeStatistics)
	})

	return r
}

// userFromContext returns the user id the auth middleware resolved.
func userFromContext(r *http.Request) (int, bool) {
	id, ok := r.Context().Value(authz.KeyUserID).(int)

	return id, ok
}

func (h *BaseController) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Info("error encoding response: ", zap.Error(err))
	}
}

func (h *BaseController) writeError(w http.ResponseWriter, status int, kind, message string) {
	h.writeJSON(w, status, models.ErrorResponse{Kind: kind, Message: message})
}

// writeTrackerError maps state machine errors onto structured
// failure responses. Lost lock races surface as InvalidTransition.
func (h *BaseController) writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workday.ErrAlreadyStarted):
		h.writeError(w, http.StatusConflict, kindAlreadyStarted, "work day already started")
	case errors.Is(err, workday.ErrNoActiveDay):
		h.writeError(w, http.StatusConflict, kindInvalidTransition, "no active work day")
	case errors.Is(err, workday.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, kindInvalidTransition, "action not allowed in current state")
	case errors.Is(err, tasktimer.ErrNotRunning):
		h.writeError(w, http.StatusConflict, kindNotRunning, "time log is not running")
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, http.StatusNotFound, kindNotFound, "record not found")
	default:
		h.log.Info("internal error: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
	}
}

// @Summary Register user
// @Description Register a new user and issue a JWT
// @Tags User
// @Accept json
// @Produce json
// @Param user body models.RequestUser true "Credentials"
// @Success 200 {object} models.User "Registered user"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Failure 409 {object} models.ErrorResponse "Conflict"
// @Router /api/user/register [post]
func (h *BaseController) Register(w http.ResponseWriter, r *http.Request) {
	regReq := new(models.RequestUser)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&regReq); err != nil {
		h.log.Info("cannot decode request JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, kindValidation, "cannot decode request body")

		return
	}

	if len(regReq.Email) == 0 || len(regReq.Password) == 0 {
		h.log.Info("login or password was not received")
		h.writeError(w, http.StatusBadRequest, kindValidation, "email and password are required")

		return
	}

	if _, err := h.storage.GetUserByEmail(regReq.Email); err == nil {
		// login is already taken
		h.log.Info("login is already taken")
		h.writeError(w, http.StatusConflict, kindValidation, "email is already taken")

		return
	}

	hash := h.authz.GetHash(regReq.Email, regReq.Password)

	user := models.User{
		Email:          regReq.Email,
		Name:           regReq.Name,
		Hash:           hash,
		Timezone:       "UTC",
		DefaultEndTime: h.defaultEndTime(),
		LastCheckedAt:  time.Now(),
	}

	user, err := h.storage.InsertUser(user)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			h.writeError(w, http.StatusConflict, kindValidation, "email is already taken")
		} else {
			h.log.Info("error insert user to storage: ", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		}

		return
	}

	freshToken := h.authz.CreateJWTTokenForUser(user.ID)
	http.SetCookie(w, h.authz.AuthCookie("jwt-token", freshToken))

	w.Header().Set("Authorization", freshToken)
	h.writeJSON(w, http.StatusOK, user)
	h.log.Info("sending HTTP 200 response")
}

// @Summary Login
// @Description Authenticate a user and issue a JWT
// @Tags User
// @Accept json
// @Produce json
// @Param user body models.RequestUser true "Credentials"
// @Success 200 {object} models.ResponseUser "Success"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /api/user/login [post]
func (h *BaseController) Login(w http.ResponseWriter, r *http.Request) {
	var rb models.RequestUser
	if err := json.NewDecoder(r.Body).Decode(&rb); err != nil {
		// invalid request format
		h.writeError(w, http.StatusBadRequest, kindValidation, "cannot decode request body")
		return
	}

	user, err := h.storage.GetUserByEmail(rb.Email)
	if err != nil {
		// incorrect login/password pair
		h.writeError(w, http.StatusUnauthorized, kindValidation, "incorrect email/password")
		return
	}

	if !bytes.Equal(user.Hash, h.authz.GetHash(rb.Email, rb.Password)) {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "incorrect email/password")
		return
	}

	freshToken := h.authz.CreateJWTTokenForUser(user.ID)
	http.SetCookie(w, h.authz.AuthCookie("jwt-token", freshToken))

	w.Header().Set("Authorization", freshToken)
	h.writeJSON(w, http.StatusOK, models.ResponseUser{Response: "success"})
}

// @Summary Update user
// @Description Update a user in the database
// @Tags User
// @Accept json
// @Produce json
// @Param user body models.User true "User Info"
// @Success 200 {string} string "User updated successfully"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Failure 404 {object} models.ErrorResponse "Not Found"
// @Router /api/user [put]
func (h *BaseController) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		h.log.Info("cannot decode request JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, kindValidation, "cannot decode request body")
		return
	}

	if err := h.storage.UpdateUser(user); errors.Is(err, storage.ErrNotFound) {
		h.log.Info("user not found")
		h.writeError(w, http.StatusNotFound, kindNotFound, "user not found")
		return
	} else if err != nil {
		h.log.Info("error updating user in storage: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
	h.log.Info("User updated successfully")
}

// @Summary Delete user
// @Description Delete a user from the database
// @Tags User
// @Produce json
// @Param id query int true "User ID"
// @Success 200 {string} string "User deleted successfully"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Failure 404 {object} models.ErrorResponse "Not Found"
// @Router /api/user [delete]
func (h *BaseController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		h.log.Info("invalid user ID format")
		h.writeError(w, http.StatusBadRequest, kindValidation, "invalid user id")
		return
	}

	err = h.storage.DeleteUser(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.log.Info("user not found")
		h.writeError(w, http.StatusNotFound, kindNotFound, "user not found")
		return
	} else if err != nil {
		h.log.Info("error deleting user from storage: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
	h.log.Info("User deleted successfully")
}

// @Summary Get users
// @Description Get users from the database
// @Tags User
// @Produce json
// @Param email query string false "Email"
// @Param name query string false "Name"
// @Param timezone query string false "Timezone"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} models.User "List of users"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Router /api/users [get]
func (h *BaseController) GetUsers(w http.ResponseWriter, r *http.Request) {
	var filter models.Filter

	if v := r.URL.Query().Get("email"); v != "" {
		filter.Email = &v
	}
	if v := r.URL.Query().Get("name"); v != "" {
		filter.Name = &v
	}
	if v := r.URL.Query().Get("timezone"); v != "" {
		filter.Timezone = &v
	}

	pagination, err := parsePagination(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	users, err := h.storage.GetUsers(filter, pagination)
	if err != nil {
		h.log.Info("error getting users from storage: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, users)
}

// @Summary Add task
// @Description Add a new task to the database
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task body models.Task true "Task Info"
// @Success 200 {object} models.Task "Created task"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Router /api/task [post]
func (h *BaseController) AddTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		h.log.Info("cannot decode request JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, kindValidation, "cannot decode request body")
		return
	}

	task.CreatedAt = time.Now()

	task, err := h.storage.InsertTask(task)
	if err != nil {
		h.log.Info("error inserting task to storage: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, task)
	h.log.Info("Task added successfully")
}

// @Summary Update task
// @Description Update a task in the database
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task body models.Task true "Task Info"
// @Success 200 {string} string "Task updated successfully"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Failure 404 {object} models.ErrorResponse "Not Found"
// @Router /api/task [put]
func (h *BaseController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		h.log.Info("cannot decode request JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, kindValidation, "cannot decode request body")
		return
	}

	if err := h.storage.UpdateTask(task); errors.Is(err, storage.ErrNotFound) {
		h.log.Info("task not found")
		h.writeError(w, http.StatusNotFound, kindNotFound, "task not found")
		return
	} else if err != nil {
		h.log.Info("error updating task in storage: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
	h.log.Info("Task updated successfully")
}

// @Summary Delete task
// @Description Delete a task from the database
// @Tags Tasks
// @Produce json
// @Param id query int true "Task ID"
// @Success 200 {string} string "Task deleted successfully"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Failure 404 {object} models.ErrorResponse "Not Found"
// @Router /api/task [delete]
func (h *BaseController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		h.log.Info("invalid task ID format")
		h.writeError(w, http.StatusBadRequest, kindValidation, "invalid task id")
		return
	}

	err = h.storage.DeleteTask(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.log.Info("task not found")
		h.writeError(w, http.StatusNotFound, kindNotFound, "task not found")
		return
	} else if err != nil {
		h.log.Info("error deleting task from storage: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
	h.log.Info("Task deleted successfully")
}

// @Summary Get tasks
// @Description Get tasks from the database
// @Tags Tasks
// @Produce json
// @Param name query string false "Name"
// @Param description query string false "Description"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Task "List of tasks"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Router /api/tasks [get]
func (h *BaseController) GetTasks(w http.ResponseWriter, r *http.Request) {
	var filter models.TaskFilter

	if v := r.URL.Query().Get("name"); v != "" {
		filter.Name = &v
	}
	if v := r.URL.Query().Get("description"); v != "" {
		filter.Description = &v
	}

	pagination, err := parsePagination(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	tasks, err := h.storage.GetTasks(filter, pagination)
	if err != nil {
		h.log.Info("error getting tasks from storage: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, tasks)
}

// @Summary Start work day
// @Description Open today's work day and its first work session
// @Tags WorkDay
// @Produce json
// @Success 200 {object} models.WorkDay "Started work day"
// @Failure 409 {object} models.ErrorResponse "Already started"
// @Router /api/workday/start [post]
func (h *BaseController) StartDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	day, err := h.tracker.StartDay(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, day)
}

// @Summary Pause work day
// @Description Close the open work session and start a pause
// @Tags WorkDay
// @Produce json
// @Success 200 {object} models.WorkDay "Paused work day"
// @Failure 409 {object} models.ErrorResponse "Invalid transition"
// @Router /api/workday/pause [post]
func (h *BaseController) PauseDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	day, err := h.tracker.Pause(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, day)
}

// @Summary Resume work day
// @Description Close the pause session and start a new work session
// @Tags WorkDay
// @Produce json
// @Success 200 {object} models.WorkDay "Resumed work day"
// @Failure 409 {object} models.ErrorResponse "Invalid transition"
// @Router /api/workday/resume [post]
func (h *BaseController) ResumeDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	day, err := h.tracker.Resume(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, day)
}

// @Summary End work day
// @Description Complete today's work day and finalize its totals
// @Tags WorkDay
// @Produce json
// @Success 200 {object} models.WorkDay "Completed work day"
// @Failure 409 {object} models.ErrorResponse "Invalid transition"
// @Router /api/workday/end [post]
func (h *BaseController) EndDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	day, err := h.tracker.EndDay(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, day)
}

// @Summary Resync work day aggregates
// @Description Recompute cached totals from the session history
// @Tags WorkDay
// @Produce json
// @Param date query string false "Date (2006-01-02), defaults to today"
// @Success 200 {object} models.WorkDay "Resynced work day"
// @Failure 404 {object} models.ErrorResponse "Not Found"
// @Router /api/workday/sync [post]
func (h *BaseController) SyncDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	date := time.Now()

	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, kindValidation, "invalid date, expected 2006-01-02")
			return
		}

		date = parsed
	}

	day, err := h.tracker.SyncTime(userID, date)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, day)
}

// @Summary Work day status
// @Description Today's work day, a pending placeholder when none started
// @Tags WorkDay
// @Produce json
// @Success 200 {object} models.WorkDay "Work day"
// @Router /api/workday/status [get]
func (h *BaseController) DayStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	day, err := h.tracker.Status(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, day)
}

// @Summary Can start day
// @Description Whether the user may start a work day today
// @Tags WorkDay
// @Produce json
// @Success 200 {object} map[string]bool "Answer"
// @Router /api/workday/can-start [get]
func (h *BaseController) CanStartDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	can, err := h.tracker.CanStartDay(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"can_start": can})
}

// @Summary Weekly stats
// @Description Aggregated work time for the current week
// @Tags WorkDay
// @Produce json
// @Success 200 {object} models.WorkDayStats "Stats"
// @Router /api/workday/stats/weekly [get]
func (h *BaseController) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	stats, err := h.tracker.WeeklyStats(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// @Summary Monthly stats
// @Description Aggregated work time for the current month
// @Tags WorkDay
// @Produce json
// @Success 200 {object} models.WorkDayStats "Stats"
// @Router /api/workday/stats/monthly [get]
func (h *BaseController) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	stats, err := h.tracker.MonthlyStats(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// @Summary Start task timer
// @Description Start a time log, auto-stopping any running one
// @Tags Timer
// @Accept json
// @Produce json
// @Param request body object true "task_id and optional note"
// @Success 200 {object} models.TaskTimeLog "Started log"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Router /api/timer/start [post]
func (h *BaseController) StartTimer(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	type RequestData struct {
		TaskID int    `json:"task_id"`
		Note   string `json:"note"`
	}

	var reqData RequestData
	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		h.log.Info("cannot decode request JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, kindValidation, "cannot decode request body")
		return
	}

	if reqData.TaskID == 0 {
		h.writeError(w, http.StatusBadRequest, kindValidation, "task_id is required")
		return
	}

	entry, err := h.timer.Start(reqData.TaskID, userID, reqData.Note)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, entry)
}

// @Summary Stop task timer
// @Description Stop a time log, clamping the duration to one minute
// @Tags Timer
// @Accept json
// @Produce json
// @Param request body object true "log_id and optional note"
// @Success 200 {object} models.TaskTimeLog "Stopped log"
// @Failure 409 {object} models.ErrorResponse "Not running"
// @Router /api/timer/stop [post]
func (h *BaseController) StopTimer(w http.ResponseWriter, r *http.Request) {
	type RequestData struct {
		LogID int    `json:"log_id"`
		Note  string `json:"note"`
	}

	var reqData RequestData
	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		h.log.Info("cannot decode request JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, kindValidation, "cannot decode request body")
		return
	}

	if reqData.LogID == 0 {
		h.writeError(w, http.StatusBadRequest, kindValidation, "log_id is required")
		return
	}

	entry, err := h.timer.Stop(reqData.LogID, reqData.Note)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, entry)
}

// @Summary Stop current timer
// @Description Stop the user's running log, no-op when none runs
// @Tags Timer
// @Produce json
// @Success 200 {object} map[string]interface{} "Stopped flag and log"
// @Router /api/timer/stop-current [post]
func (h *BaseController) StopCurrentTimer(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	stopped, entry, err := h.timer.StopCurrent(userID, "")
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	resp := map[string]interface{}{"stopped": stopped}
	if stopped {
		resp["log"] = entry
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// @Summary Running timers
// @Description The user's running log, or all running logs on a task
// @Tags Timer
// @Produce json
// @Param task_id query int false "Task ID"
// @Success 200 {array} models.TaskTimeLog "Running logs"
// @Failure 404 {object} models.ErrorResponse "Nothing running"
// @Router /api/timer/running [get]
func (h *BaseController) RunningTimers(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("task_id"); v != "" {
		taskID, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, kindValidation, "invalid task id")
			return
		}

		logs, err := h.timer.RunningForTask(taskID)
		if err != nil {
			h.writeTrackerError(w, err)
			return
		}

		h.writeJSON(w, http.StatusOK, logs)

		return
	}

	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	entry, err := h.timer.RunningForUser(userID)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, entry)
}

// @Summary Total tracked time
// @Description Sum of completed log minutes for the user or a task
// @Tags Timer
// @Produce json
// @Param scope query string false "Scope: task for a whole task, default user"
// @Param task_id query int false "Task ID (required when scope=task, optional filter otherwise)"
// @Param from query string false "From date (2006-01-02)"
// @Param to query string false "To date (2006-01-02)"
// @Success 200 {object} map[string]int "Total minutes"
// @Failure 400 {object} models.ErrorResponse "Bad Request"
// @Router /api/timer/total [get]
func (h *BaseController) TotalTime(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")

	if scope == "task" {
		taskID, err := strconv.Atoi(r.URL.Query().Get("task_id"))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, kindValidation, "invalid task id")
			return
		}

		total, err := h.timer.TotalTimeForTask(taskID)
		if err != nil {
			h.writeTrackerError(w, err)
			return
		}

		h.writeJSON(w, http.StatusOK, map[string]int{"total_minutes": total})

		return
	}

	userID, ok := userFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, kindValidation, "no user in context")
		return
	}

	var filter models.TimeLogFilter

	if v := r.URL.Query().Get("task_id"); v != "" {
		taskID, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, kindValidation, "invalid task id")
			return
		}

		filter.TaskID = &taskID
	}
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, kindValidation, "invalid from date, expected 2006-01-02")
			return
		}

		filter.DateFrom = &from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, kindValidation, "invalid to date, expected 2006-01-02")
			return
		}

		// include the whole day
		end := to.AddDate(0, 0, 1).Add(-time.Second)
		filter.DateTo = &end
	}

	total, err := h.timer.TotalTimeForUser(userID, filter)
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"total_minutes": total})
}

// @Summary Time statistics
// @Description Aggregates over the trailing week plus running count
// @Tags Timer
// @Produce json
// @Success 200 {object} models.TimeStatistics "Statistics"
// @Router /api/timer/statistics [get]
func (h *BaseController) TimeStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.timer.Statistics()
	if err != nil {
		h.writeTrackerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *BaseController) GetPing(w http.ResponseWriter, r *http.Request) {
	if !h.storage.GetBaseConnection() {
		h.log.Info("got status internal server error")
		w.WriteHeader(http.StatusInternalServerError) // 500
		return
	}

	w.WriteHeader(http.StatusOK) // 200
	h.log.Info("sending HTTP 200 response")
}

func parsePagination(r *http.Request) (models.Pagination, error) {
	var p models.Pagination

	if v := r.URL.Query().Get("limit"); v != "" {
		val, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New("invalid limit format")
		}

		p.Limit = val
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		val, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New("invalid offset format")
		}

		p.Offset = val
	}

	return p, nil
}
