package dto

import "anoa.com/boardpush/internal/entity"

type NewerNotificationsQuery struct {
	SinceID uint64 `form:"since_id"`
}

// NotificationURI accepts any id; ids that don't belong to the caller,
// including 0, are reported as not found.
type NotificationURI struct {
	ID uint64 `uri:"id"`
}

// NotificationListResponse carries the cursor for the next request. HasMore
// is only set when the server caps page size.
type NotificationListResponse struct {
	Data        []entity.Notification `json:"data"`
	HasMore     bool                  `json:"has_more"`
	NextSinceID uint64                `json:"next_since_id"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ConfirmAllResponse struct {
	Confirmed int64 `json:"confirmed"`
}
