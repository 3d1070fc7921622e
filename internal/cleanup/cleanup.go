// Package cleanup periodically purges expired verification, password reset
// and two-factor tokens.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"

	"github.com/robfig/cron/v3"
)

type TokenPurger interface {
	DeleteExpiredTokens(ctx context.Context, kind models.TokenKind, now time.Time) (int64, error)
}

type Job struct {
	log     *slog.Logger
	purger  TokenPurger
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

func New(log *slog.Logger, purger TokenPurger) *Job {
	return &Job{
		log:     log,
		purger:  purger,
		cron:    cron.New(),
		timeout: 30 * time.Second,
		now:     time.Now,
	}
}

// * RunOnce удаляет истекшие токены всех видов; ошибка одного вида не останавливает остальные
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	const op = "cleanup.Job.RunOnce"

	var (
		total int64
		errs  []error
	)

	now := j.now()

	for _, kind := range models.TokenKinds {
		n, err := j.purger.DeleteExpiredTokens(ctx, kind, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %s: %w", op, kind, err))
			continue
		}

		total += n
	}

	return total, errors.Join(errs...)
}

// * Start регистрирует задачу по расписанию (cron выражение или @every) и запускает планировщик
func (j *Job) Start(ctx context.Context, schedule string) error {
	const op = "cleanup.Job.Start"

	_, err := j.cron.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, j.timeout)
		defer cancel()

		n, err := j.RunOnce(runCtx)
		if err != nil {
			j.log.Error("token cleanup failed", slog.String("op", op), sl.Err(err))
		}

		if n > 0 {
			j.log.Info("expired tokens removed", slog.Int64("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: invalid schedule %q: %w", op, schedule, err)
	}

	j.cron.Start()

	j.log.Info("token cleanup scheduled", slog.String("schedule", schedule))

	return nil
}

// Stop waits for a running purge to finish.
func (j *Job) Stop() {
	<-j.cron.Stop().Done()
}
