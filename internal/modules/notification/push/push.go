// Package push carries persisted notifications to live client sessions.
// Delivery is best effort: a user with no open session simply misses the push
// and reads the notification later through the query API.
package push

import (
	"context"
	"errors"

	"anoa.com/boardpush/internal/entity"
)

// Destination is the per-user queue clients listen on.
const Destination = "/queue/notification"

// ErrNoSubscriber is returned when nobody is listening on the user's queue.
var ErrNoSubscriber = errors.New("no live subscriber")

type Channel interface {
	SendToUser(ctx context.Context, address string, payload *entity.Notification) error
}

// Subscriber yields raw JSON payloads published for address until cancel is
// called or ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, address string) (<-chan []byte, func(), error)
}

// Topic scopes Destination to one delivery address.
func Topic(address string) string {
	return "user/" + address + Destination
}
