// Package service turns domain events into stored notifications and serves
// the notification query API.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/internal/event"
	notifRepo "anoa.com/boardpush/internal/modules/notification/repository"
	"anoa.com/boardpush/internal/modules/notification/push"
	"anoa.com/boardpush/internal/modules/notification/template"
	"anoa.com/boardpush/pkg/apperror"
	"anoa.com/boardpush/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRecipientNotFound marks an event whose recipient, actor, or content no
// longer resolves. Such events are dropped.
var ErrRecipientNotFound = errors.New("recipient not found")

// errSelfAction marks an event where the actor would notify themselves.
var errSelfAction = errors.New("actor is the recipient")

type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type BoardLookup interface {
	FindBoard(ctx context.Context, id uuid.UUID) (*entity.Board, error)
	FindReply(ctx context.Context, id uuid.UUID) (*entity.Reply, error)
}

type NotificationService interface {
	event.Handler

	// Dispatch routes ev to its handler. Dropped and skipped events return nil;
	// only storage failures surface.
	Dispatch(ctx context.Context, ev event.Event) error

	// GetNewerNotifications returns the user's notifications with id > sinceID.
	// With a page limit set, hasMore reports that rows remain past the page.
	GetNewerNotifications(ctx context.Context, sinceID uint64, userID uuid.UUID) (notifications []entity.Notification, hasMore bool, err error)
	ConfirmNotification(ctx context.Context, id uint64, userID uuid.UUID) error
	UnconfirmedCount(ctx context.Context, userID uuid.UUID) (int64, error)
	ConfirmAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo      notifRepo.NotificationRepository
	users     UserDirectory
	boards    BoardLookup
	resolver  *template.Resolver
	channel   push.Channel
	logger    *zap.Logger
	pageLimit int
}

func NewNotificationService(
	repo notifRepo.NotificationRepository,
	users UserDirectory,
	boards BoardLookup,
	resolver *template.Resolver,
	channel push.Channel,
	logger *zap.Logger,
	pageLimit int,
) NotificationService {
	return &notificationService{
		repo:      repo,
		users:     users,
		boards:    boards,
		resolver:  resolver,
		channel:   channel,
		logger:    logger.Named("dispatcher"),
		pageLimit: pageLimit,
	}
}

// draft carries what a handler resolved before the shared notify steps.
type draft struct {
	recipientID uuid.UUID
	actorID     *uuid.UUID
	boardID     uuid.UUID
	category    entity.BoardCategory
	excerpt     string
}

func (s *notificationService) Dispatch(ctx context.Context, ev event.Event) error {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(string(ev.Kind())).Observe(time.Since(start).Seconds())
	}()
	return ev.Accept(ctx, s)
}

func (s *notificationService) HandleBoardBanned(ctx context.Context, ev event.BoardBanned) error {
	return s.settle(ev, s.notify(ctx, ev, draft{
		recipientID: ev.WriterID,
		boardID:     ev.BoardID,
	}))
}

func (s *notificationService) HandleBoardLiked(ctx context.Context, ev event.BoardLiked) error {
	board, err := s.findBoard(ctx, ev.BoardID)
	if err != nil {
		return s.settle(ev, err)
	}

	return s.settle(ev, s.notify(ctx, ev, draft{
		recipientID: board.WriterID,
		actorID:     &ev.LikerID,
		boardID:     board.ID,
		category:    board.Category,
		excerpt:     board.Title,
	}))
}

func (s *notificationService) HandleReplyLiked(ctx context.Context, ev event.ReplyLiked) error {
	reply, err := s.findReply(ctx, ev.ReplyID)
	if err != nil {
		return s.settle(ev, err)
	}

	return s.settle(ev, s.notify(ctx, ev, draft{
		recipientID: reply.WriterID,
		actorID:     &ev.LikerID,
		boardID:     reply.BoardID,
		category:    reply.Board.Category,
		excerpt:     reply.Content,
	}))
}

func (s *notificationService) HandleReplyUploaded(ctx context.Context, ev event.ReplyUploaded) error {
	reply, err := s.findReply(ctx, ev.ReplyID)
	if err != nil {
		return s.settle(ev, err)
	}

	return s.settle(ev, s.notify(ctx, ev, draft{
		recipientID: reply.Board.WriterID,
		actorID:     &ev.WriterID,
		boardID:     reply.BoardID,
		category:    reply.Board.Category,
		excerpt:     reply.Content,
	}))
}

func (s *notificationService) HandleGuestBoardUploaded(ctx context.Context, ev event.GuestBoardUploaded) error {
	board, err := s.findBoard(ctx, ev.BoardID)
	if err != nil {
		return s.settle(ev, err)
	}

	return s.settle(ev, s.notify(ctx, ev, draft{
		recipientID: ev.RequesterID,
		actorID:     &ev.WriterID,
		boardID:     board.ID,
		category:    board.Category,
		excerpt:     board.Title,
	}))
}

// notify resolves the recipient and message, stores the notification, then
// hands the stored record to the delivery channel.
func (s *notificationService) notify(ctx context.Context, ev event.Event, d draft) error {
	if d.actorID != nil && *d.actorID == d.recipientID {
		return errSelfAction
	}

	recipient, err := s.findUser(ctx, d.recipientID)
	if err != nil {
		return err
	}

	var actorName string
	if d.actorID != nil {
		actor, err := s.findUser(ctx, *d.actorID)
		if err != nil {
			return fmt.Errorf("actor: %w", err)
		}
		actorName = actor.DisplayName()
	}

	tmpl, notificationType, err := s.resolver.Resolve(ev.Kind(), d.category, ev.Metadata().Locale)
	if err != nil {
		return err
	}

	boardID := d.boardID
	notification := &entity.Notification{
		UserID:           recipient.ID,
		ActorID:          d.actorID,
		BoardID:          &boardID,
		Message:          tmpl.Render(actorName, s.resolver.Excerpt(d.excerpt)),
		NotificationType: notificationType,
	}
	if err := s.repo.Save(ctx, notification); err != nil {
		return fmt.Errorf("save notification for %s: %w", recipient.ID, err)
	}

	s.logger.Debug("notification stored",
		zap.Uint64("notification_id", notification.ID),
		zap.String("user_id", recipient.ID.String()),
		zap.String("type", string(notificationType)),
	)

	if recipient.Email == "" {
		return nil
	}
	if err := s.channel.SendToUser(ctx, recipient.Email, notification); err != nil {
		s.logger.Debug("push delivery dropped",
			zap.Uint64("notification_id", notification.ID),
			zap.Error(err),
		)
	}
	return nil
}

// settle logs and counts the outcome of a handler. Only unexpected errors are
// returned to the caller.
func (s *notificationService) settle(ev event.Event, err error) error {
	kind := string(ev.Kind())
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("event_id", ev.Metadata().EventID.String()),
	}

	switch {
	case err == nil:
		metrics.EventsTotal.WithLabelValues(kind, metrics.OutcomeNotified).Inc()
		return nil
	case errors.Is(err, errSelfAction):
		metrics.EventsTotal.WithLabelValues(kind, metrics.OutcomeSkipped).Inc()
		s.logger.Debug("self action, no notification", fields...)
		return nil
	case errors.Is(err, template.ErrUnsupportedCategory), errors.Is(err, ErrRecipientNotFound):
		metrics.EventsTotal.WithLabelValues(kind, metrics.OutcomeDropped).Inc()
		s.logger.Warn("event dropped", append(fields, zap.Error(err))...)
		return nil
	default:
		metrics.EventsTotal.WithLabelValues(kind, metrics.OutcomeFailed).Inc()
		return fmt.Errorf("%s %s: %w", kind, ev.Metadata().EventID, err)
	}
}

func (s *notificationService) findUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, ErrRecipientNotFound)
	}
	return user, err
}

func (s *notificationService) findBoard(ctx context.Context, id uuid.UUID) (*entity.Board, error) {
	board, err := s.boards.FindBoard(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("board %s: %w", id, ErrRecipientNotFound)
	}
	return board, err
}

func (s *notificationService) findReply(ctx context.Context, id uuid.UUID) (*entity.Reply, error) {
	reply, err := s.boards.FindReply(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("reply %s: %w", id, ErrRecipientNotFound)
	}
	return reply, err
}

func (s *notificationService) GetNewerNotifications(ctx context.Context, sinceID uint64, userID uuid.UUID) ([]entity.Notification, bool, error) {
	if s.pageLimit <= 0 {
		notifications, err := s.repo.FindNewerThan(ctx, userID, sinceID, 0)
		return notifications, false, err
	}

	// One extra row tells whether the page is complete.
	notifications, err := s.repo.FindNewerThan(ctx, userID, sinceID, s.pageLimit+1)
	if err != nil {
		return nil, false, err
	}
	if len(notifications) > s.pageLimit {
		return notifications[:s.pageLimit], true, nil
	}
	return notifications, false, nil
}

func (s *notificationService) ConfirmNotification(ctx context.Context, id uint64, userID uuid.UUID) error {
	return s.repo.MarkConfirmed(ctx, id, userID)
}

func (s *notificationService) UnconfirmedCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnconfirmed(ctx, userID)
}

func (s *notificationService) ConfirmAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.ConfirmAll(ctx, userID)
}
