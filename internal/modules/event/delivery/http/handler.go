package handler

import (
	"errors"
	"net/http"

	"anoa.com/boardpush/internal/event"
	"anoa.com/boardpush/internal/eventbus"
	"anoa.com/boardpush/pkg/apperror"
	"anoa.com/boardpush/pkg/response"
	"anoa.com/boardpush/pkg/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventHandler lets producer services raise domain events over HTTP instead
// of writing to the bus directly.
type EventHandler struct {
	publisher eventbus.Publisher
	logger    *zap.Logger
}

func NewEventHandler(publisher eventbus.Publisher, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		publisher: publisher,
		logger:    logger.Named("event_http"),
	}
}

func (h *EventHandler) PublishEvent(c *gin.Context) {
	var envelope event.Envelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		response.ResponseError(c, apperror.Invalid(validator.FormatValidationError(err)))
		return
	}

	ev, err := envelope.NewEvent()
	if err != nil {
		if errors.Is(err, event.ErrUnknownKind) || errors.Is(err, event.ErrInvalidPayload) {
			response.ResponseError(c, apperror.Invalid(err.Error()))
			return
		}
		response.ResponseError(c, err)
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), ev); err != nil {
		h.logger.Error("publish event failed",
			zap.String("kind", string(ev.Kind())),
			zap.String("event_id", ev.Metadata().EventID.String()),
			zap.Error(err),
		)
		response.ResponseError(c, apperror.ErrUnavailable)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"event_id": ev.Metadata().EventID,
		"kind":     ev.Kind(),
	})
}
