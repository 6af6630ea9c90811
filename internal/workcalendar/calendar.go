package workcalendar

import (
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log interface {
	Info(string, ...zapcore.Field)
}

const (
	defaultWeekdayTarget  = 28800 // 8h
	defaultSaturdayTarget = 14400 // 4h
)

// Policy answers which dates are working days and what the
// expected working window and target are for each weekday.
// Sunday is closed, Saturday is a half day 9-13, Mon-Fri 9-17.
type Policy struct {
	weekdayTarget  int
	saturdayTarget int
}

func NewPolicy(dailyTarget func() string, saturdayTarget func() string, log Log) *Policy {
	wt, err := strconv.Atoi(dailyTarget())
	if err != nil {
		log.Info("cannot convert daily target option: ", zap.Error(err))

		wt = defaultWeekdayTarget
	}

	st, err := strconv.Atoi(saturdayTarget())
	if err != nil {
		log.Info("cannot convert saturday target option: ", zap.Error(err))

		st = defaultSaturdayTarget
	}

	return &Policy{
		weekdayTarget:  wt,
		saturdayTarget: st,
	}
}

// IsWorkDay reports whether a day can be started at all.
func (p *Policy) IsWorkDay(date time.Time) bool {
	return date.Weekday() != time.Sunday
}

// DailyTarget returns the expected worked seconds for the date.
func (p *Policy) DailyTarget(date time.Time) int {
	switch date.Weekday() {
	case time.Sunday:
		return 0
	case time.Saturday:
		return p.saturdayTarget
	default:
		return p.weekdayTarget
	}
}

// WorkWindow returns the opening and closing hour for the date.
// Both are zero on a closed day.
func (p *Policy) WorkWindow(date time.Time) (int, int) {
	switch date.Weekday() {
	case time.Sunday:
		return 0, 0
	case time.Saturday:
		return 9, 13
	default:
		return 9, 17
	}
}
