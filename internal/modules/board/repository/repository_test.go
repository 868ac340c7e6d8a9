package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/apperror"
	"anoa.com/boardpush/pkg/database"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	writer    entity.User
	responder entity.User
	board     entity.Board
	reply     entity.Reply
}

func newFixture(t *testing.T) (*gorm.DB, fixture) {
	t.Helper()
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entity.User{}, &entity.Profile{}, &entity.Board{}, &entity.Reply{}))

	f := fixture{
		writer:    entity.User{Username: "writer", Email: "writer@example.com"},
		responder: entity.User{Username: "responder", Email: "responder@example.com"},
	}
	require.NoError(t, db.Create(&f.writer).Error)
	require.NoError(t, db.Create(&f.responder).Error)

	f.board = entity.Board{
		WriterID: f.writer.ID,
		Category: entity.CategoryQuestion,
		Title:    "How do I tune gorm pools?",
		Content:  "<p>Asking for a friend</p>",
	}
	require.NoError(t, db.Create(&f.board).Error)

	f.reply = entity.Reply{
		BoardID:  f.board.ID,
		WriterID: f.responder.ID,
		Content:  "Set max open conns",
	}
	require.NoError(t, db.Create(&f.reply).Error)
	return db, f
}

func TestBoardRepository_FindBoard(t *testing.T) {
	db, f := newFixture(t)
	repo := NewBoardRepository(db)

	got, err := repo.FindBoard(context.Background(), f.board.ID)
	require.NoError(t, err)
	assert.Equal(t, f.writer.ID, got.WriterID)
	assert.Equal(t, entity.CategoryQuestion, got.Category)
	assert.Equal(t, f.board.Title, got.Title)

	_, err = repo.FindBoard(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBoardRepository_FindReply(t *testing.T) {
	db, f := newFixture(t)
	repo := NewBoardRepository(db)

	got, err := repo.FindReply(context.Background(), f.reply.ID)
	require.NoError(t, err)
	assert.Equal(t, f.responder.ID, got.WriterID)
	assert.Equal(t, f.board.ID, got.Board.ID)
	assert.Equal(t, f.writer.ID, got.Board.WriterID)
	assert.Equal(t, entity.CategoryQuestion, got.Board.Category)

	_, err = repo.FindReply(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// fakeMeili serves documents by path and answers 404 for anything else.
func fakeMeili(t *testing.T, docs map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		doc, ok := docs[r.URL.Path]
		if r.Method != http.MethodGet || !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Document not found.","code":"document_not_found","type":"invalid_request","link":"https://docs.meilisearch.com/errors#document_not_found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMeiliBoardRepository(t *testing.T) {
	boardID := uuid.New()
	writerID := uuid.New()
	replyID := uuid.New()
	responderID := uuid.New()
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	board := meiliBoardDoc{
		ID:        boardID.String(),
		WriterID:  writerID.String(),
		Category:  string(entity.CategoryCoworking),
		Title:     "Looking for a cofounder",
		Content:   "Remote friendly",
		CreatedAt: created.Unix(),
	}
	srv := fakeMeili(t, map[string]any{
		"/indexes/boards/documents/" + boardID.String(): board,
		"/indexes/replies/documents/" + replyID.String(): meiliReplyDoc{
			ID:        replyID.String(),
			BoardID:   boardID.String(),
			WriterID:  responderID.String(),
			Content:   "Count me in",
			CreatedAt: created.Unix(),
			Board:     board,
		},
	})
	repo := NewMeiliBoardRepository(meilisearch.New(srv.URL))
	ctx := context.Background()

	gotBoard, err := repo.FindBoard(ctx, boardID)
	require.NoError(t, err)
	assert.Equal(t, writerID, gotBoard.WriterID)
	assert.Equal(t, entity.CategoryCoworking, gotBoard.Category)
	assert.True(t, created.Equal(gotBoard.CreatedAt))

	gotReply, err := repo.FindReply(ctx, replyID)
	require.NoError(t, err)
	assert.Equal(t, responderID, gotReply.WriterID)
	assert.Equal(t, boardID, gotReply.BoardID)
	assert.Equal(t, writerID, gotReply.Board.WriterID)
	assert.Equal(t, entity.CategoryCoworking, gotReply.Board.Category)

	_, err = repo.FindBoard(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = repo.FindReply(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMeiliBoardRepository_CorruptDocument(t *testing.T) {
	boardID := uuid.New()
	srv := fakeMeili(t, map[string]any{
		"/indexes/boards/documents/" + boardID.String(): map[string]any{"id": boardID.String(), "writer_id": "not-a-uuid"},
	})
	repo := NewMeiliBoardRepository(meilisearch.New(srv.URL))

	_, err := repo.FindBoard(context.Background(), boardID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "writer"))
}

func TestMeiliBoardRepository_IndexBatches(t *testing.T) {
	var mu sync.Mutex
	received := map[string][]map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var docs []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received[r.URL.Path] = append(received[r.URL.Path], docs...)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"taskUid":1,"indexUid":"boards","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2024-05-01T09:00:00Z"}`))
	}))
	t.Cleanup(srv.Close)

	repo := NewMeiliBoardRepository(meilisearch.New(srv.URL))
	ctx := context.Background()
	board := entity.Board{ID: uuid.New(), WriterID: uuid.New(), Category: entity.CategoryQuestion, Title: "t"}
	reply := entity.Reply{ID: uuid.New(), BoardID: board.ID, WriterID: uuid.New(), Content: "c", Board: board}

	require.NoError(t, repo.IndexBoards(ctx, []entity.Board{board, {ID: uuid.New(), WriterID: uuid.New()}}))
	require.NoError(t, repo.IndexReplies(ctx, []entity.Reply{reply}))
	require.NoError(t, repo.IndexBoards(ctx, nil))

	orphan := entity.Reply{ID: uuid.New(), BoardID: uuid.New()}
	assert.Error(t, repo.IndexReplies(ctx, []entity.Reply{orphan}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received["/indexes/boards/documents"], 2)
	assert.Equal(t, board.ID.String(), received["/indexes/boards/documents"][0]["id"])
	require.Len(t, received["/indexes/replies/documents"], 1)
	embedded := received["/indexes/replies/documents"][0]["board"].(map[string]any)
	assert.Equal(t, board.WriterID.String(), embedded["writer_id"])
}
