package repository

import (
	"context"
	"errors"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/apperror"
	"github.com/google/uuid"
)

// fallbackBoardRepository reads from primary and consults fallback only when
// primary has no record. Search indexes lag the database by up to one sync
// interval, so fresh content is found through the second lookup.
type fallbackBoardRepository struct {
	primary  BoardRepository
	fallback BoardRepository
}

func NewFallbackBoardRepository(primary, fallback BoardRepository) BoardRepository {
	return &fallbackBoardRepository{primary: primary, fallback: fallback}
}

func (r *fallbackBoardRepository) FindBoard(ctx context.Context, id uuid.UUID) (*entity.Board, error) {
	board, err := r.primary.FindBoard(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return r.fallback.FindBoard(ctx, id)
	}
	return board, err
}

func (r *fallbackBoardRepository) FindReply(ctx context.Context, id uuid.UUID) (*entity.Reply, error) {
	reply, err := r.primary.FindReply(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return r.fallback.FindReply(ctx, id)
	}
	return reply, err
}
