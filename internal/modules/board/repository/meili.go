package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/apperror"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
)

const (
	boardsIndex  = "boards"
	repliesIndex = "replies"
)

// Documents mirror the board tables. Reply documents embed their parent board
// so a reply resolves in one request.
type meiliBoardDoc struct {
	ID        string `json:"id"`
	WriterID  string `json:"writer_id"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

type meiliReplyDoc struct {
	ID        string        `json:"id"`
	BoardID   string        `json:"board_id"`
	WriterID  string        `json:"writer_id"`
	Content   string        `json:"content"`
	CreatedAt int64         `json:"created_at"`
	Board     meiliBoardDoc `json:"board"`
}

// MeiliBoardRepository reads boards from the search index instead of the
// primary database.
type MeiliBoardRepository struct {
	client meilisearch.ServiceManager
}

func NewMeiliBoardRepository(client meilisearch.ServiceManager) *MeiliBoardRepository {
	return &MeiliBoardRepository{client: client}
}

func (r *MeiliBoardRepository) FindBoard(ctx context.Context, id uuid.UUID) (*entity.Board, error) {
	var doc meiliBoardDoc
	if err := r.client.Index(boardsIndex).GetDocumentWithContext(ctx, id.String(), nil, &doc); err != nil {
		return nil, meiliNotFound(err)
	}
	return doc.toEntity()
}

func (r *MeiliBoardRepository) FindReply(ctx context.Context, id uuid.UUID) (*entity.Reply, error) {
	var doc meiliReplyDoc
	if err := r.client.Index(repliesIndex).GetDocumentWithContext(ctx, id.String(), nil, &doc); err != nil {
		return nil, meiliNotFound(err)
	}

	board, err := doc.Board.toEntity()
	if err != nil {
		return nil, err
	}
	reply := &entity.Reply{
		BoardID:   board.ID,
		Board:     *board,
		Content:   doc.Content,
		CreatedAt: time.Unix(doc.CreatedAt, 0).UTC(),
	}
	if reply.ID, err = uuid.Parse(doc.ID); err != nil {
		return nil, fmt.Errorf("reply document %q: %w", doc.ID, err)
	}
	if reply.WriterID, err = uuid.Parse(doc.WriterID); err != nil {
		return nil, fmt.Errorf("reply document %q writer: %w", doc.ID, err)
	}
	return reply, nil
}

// IndexBoard upserts a board document.
func (r *MeiliBoardRepository) IndexBoard(board *entity.Board) error {
	return r.IndexBoards(context.Background(), []entity.Board{*board})
}

// IndexReply upserts a reply document. reply.Board must be loaded.
func (r *MeiliBoardRepository) IndexReply(reply *entity.Reply) error {
	return r.IndexReplies(context.Background(), []entity.Reply{*reply})
}

func (r *MeiliBoardRepository) IndexBoards(ctx context.Context, boards []entity.Board) error {
	if len(boards) == 0 {
		return nil
	}
	docs := make([]meiliBoardDoc, len(boards))
	for i := range boards {
		docs[i] = boardDoc(&boards[i])
	}
	_, err := r.client.Index(boardsIndex).AddDocumentsWithContext(ctx, docs, strPtr("id"))
	return err
}

// IndexReplies upserts reply documents. Every reply's Board must be loaded.
func (r *MeiliBoardRepository) IndexReplies(ctx context.Context, replies []entity.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	docs := make([]meiliReplyDoc, len(replies))
	for i, reply := range replies {
		if reply.Board.ID == uuid.Nil {
			return fmt.Errorf("reply %s: parent board not loaded", reply.ID)
		}
		docs[i] = meiliReplyDoc{
			ID:        reply.ID.String(),
			BoardID:   reply.BoardID.String(),
			WriterID:  reply.WriterID.String(),
			Content:   reply.Content,
			CreatedAt: reply.CreatedAt.Unix(),
			Board:     boardDoc(&reply.Board),
		}
	}
	_, err := r.client.Index(repliesIndex).AddDocumentsWithContext(ctx, docs, strPtr("id"))
	return err
}

func boardDoc(board *entity.Board) meiliBoardDoc {
	return meiliBoardDoc{
		ID:        board.ID.String(),
		WriterID:  board.WriterID.String(),
		Category:  string(board.Category),
		Title:     board.Title,
		Content:   board.Content,
		CreatedAt: board.CreatedAt.Unix(),
	}
}

func (d meiliBoardDoc) toEntity() (*entity.Board, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("board document %q: %w", d.ID, err)
	}
	writerID, err := uuid.Parse(d.WriterID)
	if err != nil {
		return nil, fmt.Errorf("board document %q writer: %w", d.ID, err)
	}
	return &entity.Board{
		ID:        id,
		WriterID:  writerID,
		Category:  entity.BoardCategory(d.Category),
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: time.Unix(d.CreatedAt, 0).UTC(),
	}, nil
}

func meiliNotFound(err error) error {
	var meiliErr *meilisearch.Error
	if errors.As(err, &meiliErr) && meiliErr.StatusCode == http.StatusNotFound {
		return apperror.ErrNotFound
	}
	return err
}

func strPtr(s string) *string {
	return &s
}
