package entity

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeBoardBanned            NotificationType = "BOARD_BANNED"
	TypeBoardLike              NotificationType = "BOARD_LIKE"
	TypeReplyLikeAnswer        NotificationType = "REPLY_LIKE_ANSWER"
	TypeReplyLikeInspiration   NotificationType = "REPLY_LIKE_INSPIRATION"
	TypeReplyLikeCoworking     NotificationType = "REPLY_LIKE_COWORKING"
	TypeReplyUploadAnswer      NotificationType = "REPLY_UPLOAD_ANSWER"
	TypeReplyUploadInspiration NotificationType = "REPLY_UPLOAD_INSPIRATION"
	TypeReplyUploadCoworking   NotificationType = "REPLY_UPLOAD_COWORKING"
	TypeGuestBoardUpload       NotificationType = "GUEST_BOARD_UPLOAD"
)

// NotificationTypes lists every persisted type.
var NotificationTypes = []NotificationType{
	TypeBoardBanned,
	TypeBoardLike,
	TypeReplyLikeAnswer,
	TypeReplyLikeInspiration,
	TypeReplyLikeCoworking,
	TypeReplyUploadAnswer,
	TypeReplyUploadInspiration,
	TypeReplyUploadCoworking,
	TypeGuestBoardUpload,
}

// Notification is immutable once saved, except for Confirmed. IDs are
// assigned by the store in creation order and double as a read cursor.
type Notification struct {
	ID               uint64           `gorm:"primaryKey;autoIncrement;index:idx_push_notifications_cursor,priority:2" json:"id"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;index:idx_push_notifications_cursor,priority:1" json:"user_id"`
	ActorID          *uuid.UUID       `gorm:"type:uuid" json:"actor_id,omitempty"`
	BoardID          *uuid.UUID       `gorm:"type:uuid" json:"board_id,omitempty"`
	Message          string           `gorm:"type:text;not null" json:"message"`
	NotificationType NotificationType `gorm:"size:40;not null" json:"notification_type"`
	Confirmed        bool             `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) TableName() string {
	return "push_notifications"
}
