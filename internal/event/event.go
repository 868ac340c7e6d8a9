// Package event defines the closed set of domain events the dispatcher consumes.
//
// Every event implements Accept, which calls the matching method on a Handler.
// Handler has one method per kind, so a consumer that forgets a kind does not
// compile.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBoardBanned        Kind = "BOARD_BANNED"
	KindBoardLiked         Kind = "BOARD_LIKED"
	KindReplyLiked         Kind = "REPLY_LIKED"
	KindReplyUploaded      Kind = "REPLY_UPLOADED"
	KindGuestBoardUploaded Kind = "GUEST_BOARD_UPLOADED"
)

type Event interface {
	Kind() Kind
	Metadata() Meta
	Accept(ctx context.Context, h Handler) error
}

type Handler interface {
	HandleBoardBanned(ctx context.Context, ev BoardBanned) error
	HandleBoardLiked(ctx context.Context, ev BoardLiked) error
	HandleReplyLiked(ctx context.Context, ev ReplyLiked) error
	HandleReplyUploaded(ctx context.Context, ev ReplyUploaded) error
	HandleGuestBoardUploaded(ctx context.Context, ev GuestBoardUploaded) error
}

// Meta is shared by every event. Locale is chosen by the producer, which is
// the only party that has request context; the dispatcher never guesses it.
type Meta struct {
	EventID    uuid.UUID `json:"event_id"`
	Locale     string    `json:"locale,omitempty" validate:"max=16"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewMeta(locale string) Meta {
	return Meta{
		EventID:    uuid.New(),
		Locale:     locale,
		OccurredAt: time.Now().UTC(),
	}
}

func (m Meta) Metadata() Meta {
	return m
}

func (m *Meta) fillMeta(fallbackID func() uuid.UUID) {
	if m.EventID == uuid.Nil {
		m.EventID = fallbackID()
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}
}

// BoardBanned is raised by moderation once a board has been taken down.
type BoardBanned struct {
	Meta
	BoardID  uuid.UUID `json:"board_id" validate:"required"`
	WriterID uuid.UUID `json:"writer_id" validate:"required"`
}

func (BoardBanned) Kind() Kind { return KindBoardBanned }

func (e BoardBanned) Accept(ctx context.Context, h Handler) error {
	return h.HandleBoardBanned(ctx, e)
}

type BoardLiked struct {
	Meta
	BoardID uuid.UUID `json:"board_id" validate:"required"`
	LikerID uuid.UUID `json:"liker_id" validate:"required"`
}

func (BoardLiked) Kind() Kind { return KindBoardLiked }

func (e BoardLiked) Accept(ctx context.Context, h Handler) error {
	return h.HandleBoardLiked(ctx, e)
}

type ReplyLiked struct {
	Meta
	ReplyID uuid.UUID `json:"reply_id" validate:"required"`
	LikerID uuid.UUID `json:"liker_id" validate:"required"`
}

func (ReplyLiked) Kind() Kind { return KindReplyLiked }

func (e ReplyLiked) Accept(ctx context.Context, h Handler) error {
	return h.HandleReplyLiked(ctx, e)
}

// ReplyUploaded notifies the parent board's writer. WriterID is the responder.
type ReplyUploaded struct {
	Meta
	ReplyID  uuid.UUID `json:"reply_id" validate:"required"`
	WriterID uuid.UUID `json:"writer_id" validate:"required"`
}

func (ReplyUploaded) Kind() Kind { return KindReplyUploaded }

func (e ReplyUploaded) Accept(ctx context.Context, h Handler) error {
	return h.HandleReplyUploaded(ctx, e)
}

// GuestBoardUploaded is raised when a member answers another member's request
// by writing on their guest board.
type GuestBoardUploaded struct {
	Meta
	BoardID     uuid.UUID `json:"board_id" validate:"required"`
	WriterID    uuid.UUID `json:"writer_id" validate:"required"`
	RequesterID uuid.UUID `json:"requester_id" validate:"required"`
}

func (GuestBoardUploaded) Kind() Kind { return KindGuestBoardUploaded }

func (e GuestBoardUploaded) Accept(ctx context.Context, h Handler) error {
	return h.HandleGuestBoardUploaded(ctx, e)
}
