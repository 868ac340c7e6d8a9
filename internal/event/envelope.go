package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"anoa.com/boardpush/pkg/validator"
	"github.com/google/uuid"
)

// envelopeNamespace scopes ids derived from envelope contents.
var envelopeNamespace = uuid.MustParse("5c0f3a52-8a43-4a8e-9d0e-6b1f0f4c2d71")

var (
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Envelope is the wire form of an event on every bus.
type Envelope struct {
	Kind    Kind            `json:"kind" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: ev.Kind(), Payload: payload})
}

func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return env.Event()
}

// Event unpacks the payload into the concrete type named by Kind, fills in
// missing metadata and validates the result. An envelope without an event id
// gets one derived from its bytes, so a redelivered copy decodes to the same id.
func (e Envelope) Event() (Event, error) {
	return e.resolve(e.contentID)
}

// NewEvent is Event for envelopes entering the system for the first time: a
// missing event id is freshly generated, so two identical submissions stay
// two events.
func (e Envelope) NewEvent() (Event, error) {
	return e.resolve(uuid.New)
}

func (e Envelope) contentID() uuid.UUID {
	data := make([]byte, 0, len(e.Kind)+1+len(e.Payload))
	data = append(data, e.Kind...)
	data = append(data, 0)
	data = append(data, e.Payload...)
	return uuid.NewSHA1(envelopeNamespace, data)
}

func (e Envelope) resolve(fallbackID func() uuid.UUID) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch e.Kind {
	case KindBoardBanned:
		ev, err = unpack[BoardBanned](e.Payload, fallbackID)
	case KindBoardLiked:
		ev, err = unpack[BoardLiked](e.Payload, fallbackID)
	case KindReplyLiked:
		ev, err = unpack[ReplyLiked](e.Payload, fallbackID)
	case KindReplyUploaded:
		ev, err = unpack[ReplyUploaded](e.Payload, fallbackID)
	case KindGuestBoardUploaded:
		ev, err = unpack[GuestBoardUploaded](e.Payload, fallbackID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, e.Kind, err)
	}
	return ev, nil
}

type payload interface {
	BoardBanned | BoardLiked | ReplyLiked | ReplyUploaded | GuestBoardUploaded
}

func unpack[T payload](raw json.RawMessage, fallbackID func() uuid.UUID) (Event, error) {
	var v T
	if len(raw) == 0 {
		return nil, errors.New("empty payload")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if err := validator.Struct(v); err != nil {
		return nil, err
	}
	ev := any(&v).(interface{ fillMeta(func() uuid.UUID) })
	ev.fillMeta(fallbackID)
	return any(v).(Event), nil
}
