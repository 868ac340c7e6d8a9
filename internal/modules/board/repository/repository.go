package repository

import (
	"context"
	"errors"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BoardRepository resolves boards and replies owned by the board subsystem.
// Both lookups return apperror.ErrNotFound for unknown ids.
type BoardRepository interface {
	FindBoard(ctx context.Context, id uuid.UUID) (*entity.Board, error)
	// FindReply populates Reply.Board with the parent board.
	FindReply(ctx context.Context, id uuid.UUID) (*entity.Reply, error)
}

type boardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &boardRepository{db: db}
}

func (r *boardRepository) FindBoard(ctx context.Context, id uuid.UUID) (*entity.Board, error) {
	var board entity.Board
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&board).Error; err != nil {
		return nil, notFound(err)
	}
	return &board, nil
}

func (r *boardRepository) FindReply(ctx context.Context, id uuid.UUID) (*entity.Reply, error) {
	var reply entity.Reply
	if err := r.db.WithContext(ctx).
		Preload("Board").
		Where("id = ?", id).
		First(&reply).Error; err != nil {
		return nil, notFound(err)
	}
	return &reply, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	return err
}
