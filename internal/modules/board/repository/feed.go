package repository

import (
	"context"
	"time"

	"anoa.com/boardpush/internal/entity"
	"gorm.io/gorm"
)

// BoardFeed pages through boards and replies created since a point in time,
// oldest first.
type BoardFeed interface {
	ListBoardsSince(ctx context.Context, since time.Time, offset, limit int) ([]entity.Board, error)
	// ListRepliesSince populates Reply.Board with the parent board.
	ListRepliesSince(ctx context.Context, since time.Time, offset, limit int) ([]entity.Reply, error)
}

type boardFeed struct {
	db *gorm.DB
}

func NewBoardFeed(db *gorm.DB) BoardFeed {
	return &boardFeed{db: db}
}

func (f *boardFeed) ListBoardsSince(ctx context.Context, since time.Time, offset, limit int) ([]entity.Board, error) {
	var boards []entity.Board
	err := f.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&boards).Error
	return boards, err
}

func (f *boardFeed) ListRepliesSince(ctx context.Context, since time.Time, offset, limit int) ([]entity.Reply, error) {
	var replies []entity.Reply
	err := f.db.WithContext(ctx).
		Preload("Board").
		Where("created_at >= ?", since).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&replies).Error
	return replies, err
}
