package handler

import (
	"context"
	"net/http"
	"time"

	"anoa.com/boardpush/internal/modules/notification/dto"
	"anoa.com/boardpush/internal/modules/notification/push"
	notifService "anoa.com/boardpush/internal/modules/notification/service"
	"anoa.com/boardpush/pkg/apperror"
	"anoa.com/boardpush/pkg/metrics"
	"anoa.com/boardpush/pkg/response"
	"anoa.com/boardpush/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type NotificationHandler struct {
	service    notifService.NotificationService
	users      notifService.UserDirectory
	subscriber push.Subscriber
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewNotificationHandler(
	service notifService.NotificationService,
	users notifService.UserDirectory,
	subscriber push.Subscriber,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		service:    service,
		users:      users,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // origins are enforced by the CORS middleware
			},
		},
		logger: logger.Named("notification_http"),
	}
}

// REST Endpoints

func (h *NotificationHandler) GetNewerNotifications(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.NewerNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ResponseError(c, apperror.Invalid("since_id must be a non-negative integer"))
		return
	}

	notifications, hasMore, err := h.service.GetNewerNotifications(c.Request.Context(), query.SinceID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	next := query.SinceID
	if len(notifications) > 0 {
		next = notifications[len(notifications)-1].ID
	}
	c.JSON(http.StatusOK, dto.NotificationListResponse{
		Data:        notifications,
		HasMore:     hasMore,
		NextSinceID: next,
	})
}

func (h *NotificationHandler) ConfirmNotification(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri dto.NotificationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ResponseError(c, apperror.Invalid(validator.FormatValidationError(err)))
		return
	}

	if err := h.service.ConfirmNotification(c.Request.Context(), uri.ID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification confirmed"})
}

func (h *NotificationHandler) UnconfirmedCount(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.UnconfirmedCount(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CountResponse{Count: count})
}

func (h *NotificationHandler) ConfirmAll(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	confirmed, err := h.service.ConfirmAll(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConfirmAllResponse{Confirmed: confirmed})
}

// WebSocket Endpoint

// HandleWebSocket streams the user's notifications as they are pushed. The
// token may be passed as a query parameter since browsers cannot set headers
// on websocket requests.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before upgrading so a broker failure is still an HTTP error
	messages, unsubscribe, err := h.subscriber.Subscribe(ctx, user.Email)
	if err != nil {
		h.logger.Error("subscribe failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.ResponseError(c, apperror.ErrUnavailable)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.LiveSubscribers.Inc()
	defer metrics.LiveSubscribers.Dec()

	// Reader loop: only pongs and close frames are expected
	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
