package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/flowrequests/internal/domain"
)

// ErrInvalidSchedule — у расписания нет ни cron, ни интервала, либо они невалидны.
var ErrInvalidSchedule = errors.New("invalid schedule")

// cronParser — парсер cron-выражений (5 полей, без секунд).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CalculateNextDue вычисляет следующее время выполнения после from.
// Cron вычисляется в часовом поясе расписания; результат в UTC.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil || sched.Timezone == "" {
		loc = time.UTC
	}
	from = from.In(loc)

	switch {
	case sched.IsCron():
		spec, err := cronParser.Parse(sched.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: cron expression %q: %v", ErrInvalidSchedule, sched.CronExpr, err)
		}
		return spec.Next(from).UTC(), nil

	case sched.IsInterval():
		return from.Add(time.Duration(sched.IntervalSec) * time.Second).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: neither cron_expr nor interval_sec is set", ErrInvalidSchedule)
}

// Validate проверяет расписание перед сохранением.
func Validate(sched *domain.Schedule) error {
	if sched.CronExpr == "" && sched.IntervalSec <= 0 {
		return fmt.Errorf("%w: cron_expr or positive interval_sec is required", ErrInvalidSchedule)
	}
	if sched.CronExpr != "" {
		if _, err := cronParser.Parse(sched.CronExpr); err != nil {
			return fmt.Errorf("%w: cron expression %q: %v", ErrInvalidSchedule, sched.CronExpr, err)
		}
	}
	if sched.Timezone != "" {
		if _, err := time.LoadLocation(sched.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q", ErrInvalidSchedule, sched.Timezone)
		}
	}
	return nil
}

// CalculateInitialNextDue вычисляет первое время выполнения нового расписания.
func CalculateInitialNextDue(sched *domain.Schedule) (time.Time, error) {
	return CalculateNextDue(sched, time.Now())
}
