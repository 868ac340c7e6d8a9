package repository

import (
	"context"
	"time"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// saveLockKey serializes inserts on postgres so that commit order matches id
// order and a reader using the id cursor never skips a late commit.
const saveLockKey = 0x70757368

type NotificationRepository interface {
	// Save assigns the next id and creation time. Identical notifications are
	// stored as separate rows.
	Save(ctx context.Context, notification *entity.Notification) error
	// FindNewerThan returns the user's notifications with id > sinceID in id
	// order. limit <= 0 means no limit.
	FindNewerThan(ctx context.Context, userID uuid.UUID, sinceID uint64, limit int) ([]entity.Notification, error)
	// MarkConfirmed returns apperror.ErrNotFound when no notification with id
	// belongs to userID. Confirming twice succeeds.
	MarkConfirmed(ctx context.Context, id uint64, userID uuid.UUID) error
	CountUnconfirmed(ctx context.Context, userID uuid.UUID) (int64, error)
	ConfirmAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Save(ctx context.Context, notification *entity.Notification) error {
	notification.ID = 0
	notification.Confirmed = false
	notification.CreatedAt = time.Now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", saveLockKey).Error; err != nil {
				return err
			}
		}
		return tx.Create(notification).Error
	})
}

func (r *notificationRepository) FindNewerThan(ctx context.Context, userID uuid.UUID, sinceID uint64, limit int) ([]entity.Notification, error) {
	notifications := make([]entity.Notification, 0)
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND id > ?", userID, sinceID).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) MarkConfirmed(ctx context.Context, id uint64, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("confirmed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) CountUnconfirmed(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND confirmed = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) ConfirmAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND confirmed = ?", userID, false).
		Update("confirmed", true)
	return res.RowsAffected, res.Error
}
