package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/repository"
)

// SessionJanitor removes expired pending sessions on an interval.
type SessionJanitor struct {
	pendingRepo repository.PendingSessionRepository
	interval    time.Duration
	now         func() time.Time
	log         *log.Entry
}

func NewSessionJanitor(pendingRepo repository.PendingSessionRepository, interval time.Duration, baseLogger log.FieldLogger) *SessionJanitor {
	return &SessionJanitor{
		pendingRepo: pendingRepo,
		interval:    interval,
		now:         time.Now,
		log:         logger.Component(baseLogger, "session-janitor"),
	}
}

// Run purges until ctx is cancelled. It always returns nil so it can share an
// errgroup with the HTTP server without taking it down.
func (j *SessionJanitor) Run(ctx context.Context) error {
	if j.interval <= 0 {
		j.log.Warn("purge interval not set, janitor disabled")
		return nil
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.PurgeOnce(ctx)
		}
	}
}

func (j *SessionJanitor) PurgeOnce(ctx context.Context) int64 {
	purged, err := j.pendingRepo.PurgeExpired(ctx, j.now())
	if err != nil {
		j.log.WithError(err).Error("purge expired pending sessions")
		return 0
	}
	if purged > 0 {
		j.log.WithField("purged", purged).Info("purged expired pending sessions")
	}
	return purged
}
