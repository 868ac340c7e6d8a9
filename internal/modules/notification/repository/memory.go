package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/apperror"
	"github.com/google/uuid"
)

// memoryRepository keeps notifications in process. Used for local runs
// without postgres and as the reference store in tests.
type memoryRepository struct {
	mu     sync.RWMutex
	nextID uint64
	byUser map[uuid.UUID][]*entity.Notification
	byID   map[uint64]*entity.Notification
}

func NewMemoryRepository() NotificationRepository {
	return &memoryRepository{
		byUser: make(map[uuid.UUID][]*entity.Notification),
		byID:   make(map[uint64]*entity.Notification),
	}
}

func (r *memoryRepository) Save(ctx context.Context, notification *entity.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	notification.ID = r.nextID
	notification.Confirmed = false
	notification.CreatedAt = time.Now().UTC()

	stored := *notification
	r.byID[stored.ID] = &stored
	r.byUser[stored.UserID] = append(r.byUser[stored.UserID], &stored)
	return nil
}

func (r *memoryRepository) FindNewerThan(ctx context.Context, userID uuid.UUID, sinceID uint64, limit int) ([]entity.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Per-user slices are appended under the lock in id order.
	list := r.byUser[userID]
	start := sort.Search(len(list), func(i int) bool { return list[i].ID > sinceID })

	out := make([]entity.Notification, 0, len(list)-start)
	for _, n := range list[start:] {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *memoryRepository) MarkConfirmed(ctx context.Context, id uint64, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return apperror.ErrNotFound
	}
	n.Confirmed = true
	return nil
}

func (r *memoryRepository) CountUnconfirmed(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, n := range r.byUser[userID] {
		if !n.Confirmed {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) ConfirmAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, n := range r.byUser[userID] {
		if !n.Confirmed {
			n.Confirmed = true
			updated++
		}
	}
	return updated, nil
}
