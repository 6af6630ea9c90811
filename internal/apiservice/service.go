package apiservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Teddy2289/backtime/internal/models"
	"github.com/Teddy2289/backtime/internal/workday"
	"github.com/Teddy2289/backtime/internal/workerpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log interface {
	Info(string, ...zapcore.Field)
}

type Tracker interface {
	EndDayAt(userID int, at time.Time) (models.WorkDay, error)
}

type Storage interface {
	GetOpenWorkDays() ([]models.WorkDay, error)
	GetUser(int) (models.User, error)
}

type Pool interface {
	AddTask(task *workerpool.Task)
}

// ApiService periodically force-ends work days that were left open
// past the owner's default end time. Each stale day becomes a pool
// task so a slow close cannot delay the next tick.
type ApiService struct {
	wg           sync.WaitGroup
	cancelFunc   context.CancelFunc
	tracker      Tracker
	pool         Pool
	storage      Storage
	log          Log
	now          func() time.Time
	taskInterval int
}

func NewApiService(tracker Tracker, pool Pool, storage Storage,
	log Log, taskInterval func() string,
) *ApiService {
	taskInt, err := strconv.Atoi(taskInterval())
	if err != nil {
		log.Info("cannot convert task interval option: ", zap.Error(err))

		taskInt = 3000
	}

	return &ApiService{
		cancelFunc:   nil,
		tracker:      tracker,
		pool:         pool,
		storage:      storage,
		log:          log,
		now:          time.Now,
		taskInterval: taskInt,
	}
}

// Start launches the background closer.
func (a *ApiService) Start() {
	ctx := context.Background()
	ctx, cancelFunc := context.WithCancel(ctx)
	a.cancelFunc = cancelFunc
	a.wg.Add(1)

	go a.closeStaleDays(ctx)
}

func (a *ApiService) Stop() {
	a.cancelFunc()
	a.wg.Wait()
}

func (a *ApiService) closeStaleDays(ctx context.Context) {
	defer a.wg.Done()

	t := time.NewTicker(time.Duration(a.taskInterval) * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			days, err := a.storage.GetOpenWorkDays()
			if err != nil {
				a.log.Info("cannot load open work days: ", zap.Error(err))

				continue
			}

			a.createCloseTasks(days)
		}
	}
}

// createCloseTasks enqueues a close task for each day whose deadline
// has passed.
func (a *ApiService) createCloseTasks(days []models.WorkDay) {
	now := a.now()

	for _, d := range days {
		deadline, err := a.dayDeadline(d)
		if err != nil {
			a.log.Info("cannot compute day deadline: ", zap.Error(err))

			continue
		}

		if now.Before(deadline) {
			continue
		}

		// A day opened after its deadline is a late shift, not stale.
		if d.StartTime != nil && d.StartTime.After(deadline) {
			continue
		}

		day := d

		task := workerpool.NewTask(func(data interface{}) error {
			stale, ok := data.(models.WorkDay)
			if !ok {
				return nil
			}

			_, err := a.tracker.EndDayAt(stale.UserID, deadline)
			if err != nil {
				// The user may have ended the day in the meantime.
				if errors.Is(err, workday.ErrInvalidTransition) || errors.Is(err, workday.ErrNoActiveDay) {
					return nil
				}

				return fmt.Errorf("failed to close stale work day: %w", err)
			}

			a.log.Info("stale work day auto-closed",
				zap.Int("user_id", stale.UserID),
				zap.Int("work_day_id", stale.ID),
			)

			return nil
		}, day)

		a.pool.AddTask(task)
	}
}

// dayDeadline is the moment the day should have been ended: the
// owner's default end time on the work date.
func (a *ApiService) dayDeadline(day models.WorkDay) (time.Time, error) {
	user, err := a.storage.GetUser(day.UserID)
	if err != nil {
		return time.Time{}, err
	}

	endClock, err := time.Parse("15:04", user.DefaultEndTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad default end time %q: %w", user.DefaultEndTime, err)
	}

	d := day.WorkDate

	return time.Date(d.Year(), d.Month(), d.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, d.Location()), nil
}
