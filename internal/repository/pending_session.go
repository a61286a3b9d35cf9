package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ghee-storefront/internal/model"
)

type PendingSessionRepository interface {
	Put(ctx context.Context, session *model.PendingSession) error
	Get(ctx context.Context, sessionID string) (*model.PendingSession, error)
	Delete(ctx context.Context, sessionID string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type pendingSessionRepoImpl struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPendingSessionRepository(db *gorm.DB) PendingSessionRepository {
	return &pendingSessionRepoImpl{
		db:  db,
		now: time.Now,
	}
}

func (r *pendingSessionRepoImpl) Put(ctx context.Context, session *model.PendingSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Get returns ErrPendingSessionNotFound for unknown and expired sessions alike.
func (r *pendingSessionRepoImpl) Get(ctx context.Context, sessionID string) (*model.PendingSession, error) {
	var session model.PendingSession
	err := r.db.WithContext(ctx).
		Where("external_payment_session_id = ?", sessionID).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPendingSessionNotFound
		}
		return nil, err
	}

	if session.Expired(r.now()) {
		return nil, ErrPendingSessionNotFound
	}

	return &session, nil
}

func (r *pendingSessionRepoImpl) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("external_payment_session_id = ?", sessionID).
		Delete(&model.PendingSession{}).Error
}

func (r *pendingSessionRepoImpl) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.PendingSession{})

	return result.RowsAffected, result.Error
}
