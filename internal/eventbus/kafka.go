package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anoa.com/boardpush/internal/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSource reads envelopes as a consumer group member. Workers ack out of
// order, but an offset is only committed once every earlier offset fetched
// from its partition has been acked, so a crash redelivers instead of skipping.
type KafkaSource struct {
	reader  *kafka.Reader
	tracker *offsetTracker
}

func NewKafkaSource(brokers []string, topic, groupID string, logger *zap.Logger) *KafkaSource {
	return &KafkaSource{
		tracker: newOffsetTracker(),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				logger.Warn(fmt.Sprintf(msg, args...))
			}),
		}),
	}
}

func (s *KafkaSource) Fetch(ctx context.Context) (Message, error) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	s.tracker.fetched(m)
	return Message{
		Key:   m.Key,
		Value: m.Value,
		ack: func(ctx context.Context) error {
			committable, ok := s.tracker.acked(m)
			if !ok {
				return nil
			}
			return s.reader.CommitMessages(ctx, committable)
		},
	}, nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// KafkaPublisher writes envelopes keyed by event id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne, // Wait for leader acknowledgment
			MaxAttempts:  3,
			BatchTimeout: 10 * time.Millisecond,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				logger.Debug(fmt.Sprintf(msg, args...))
			}),
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev event.Event) error {
	data, err := event.Encode(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Metadata().EventID.String()),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// offsetTracker finds, per partition, the newest fetched message whose
// offset and all earlier fetched offsets have been acked.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	inFlight []kafka.Message // fetch order, offsets ascending
	acked    map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

func (t *offsetTracker) fetched(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.partitions[m.Partition]
	if !ok {
		p = &partitionOffsets{acked: make(map[int64]bool)}
		t.partitions[m.Partition] = p
	}
	// After a rebalance the partition restarts from its committed offset;
	// anything at or past it will be fetched again.
	for i, queued := range p.inFlight {
		if queued.Offset >= m.Offset {
			for _, dropped := range p.inFlight[i:] {
				delete(p.acked, dropped.Offset)
			}
			p.inFlight = p.inFlight[:i]
			break
		}
	}
	p.inFlight = append(p.inFlight, m)
}

// acked records m and reports the message to commit, if the committed
// position can advance.
func (t *offsetTracker) acked(m kafka.Message) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.partitions[m.Partition]
	if !ok {
		return kafka.Message{}, false
	}
	tracked := false
	for _, queued := range p.inFlight {
		if queued.Offset == m.Offset {
			tracked = true
			break
		}
	}
	if !tracked {
		return kafka.Message{}, false
	}
	p.acked[m.Offset] = true

	var (
		last    kafka.Message
		advance bool
	)
	for len(p.inFlight) > 0 && p.acked[p.inFlight[0].Offset] {
		last = p.inFlight[0]
		delete(p.acked, last.Offset)
		p.inFlight = p.inFlight[1:]
		advance = true
	}
	return last, advance
}
