package repository

import (
	"context"
	"testing"
	"time"

	"anoa.com/boardpush/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardFeed_ListSince(t *testing.T) {
	db, f := newFixture(t)
	old := entity.Board{
		WriterID:  f.writer.ID,
		Category:  entity.CategoryInspiration,
		Title:     "Archived",
		Content:   "old",
		CreatedAt: time.Now().Add(-72 * time.Hour),
	}
	require.NoError(t, db.Create(&old).Error)

	feed := NewBoardFeed(db)
	ctx := context.Background()
	since := time.Now().Add(-24 * time.Hour)

	boards, err := feed.ListBoardsSince(ctx, since, 0, 10)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, f.board.ID, boards[0].ID)

	all, err := feed.ListBoardsSince(ctx, time.Time{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, old.ID, all[0].ID)

	page, err := feed.ListBoardsSince(ctx, time.Time{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, f.board.ID, page[0].ID)

	replies, err := feed.ListRepliesSince(ctx, since, 0, 10)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, f.reply.ID, replies[0].ID)
	assert.Equal(t, f.board.ID, replies[0].Board.ID)
	assert.Equal(t, f.writer.ID, replies[0].Board.WriterID)
}
