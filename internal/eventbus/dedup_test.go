package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDedup(t *testing.T) (*RedisDeduplicator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDeduplicator(client, time.Hour), mr
}

func TestRedisDeduplicator_ClaimOnce(t *testing.T) {
	d, mr := newDedup(t)
	ctx := context.Background()
	id := uuid.New()

	claimed, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = d.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimed)

	assert.Equal(t, time.Minute, mr.TTL("push_event:"+id.String()), "claims start pending")

	require.NoError(t, d.Confirm(ctx, id))
	assert.Equal(t, time.Hour, mr.TTL("push_event:"+id.String()))

	require.NoError(t, d.Release(ctx, id))
	claimed, err = d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisDeduplicator_UnconfirmedClaimLapses(t *testing.T) {
	d, mr := newDedup(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := d.Claim(ctx, id)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	claimed, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed, "a worker that died mid-dispatch does not block redelivery")
}

func TestRedisDeduplicator_ExpiresAfterTTL(t *testing.T) {
	d, mr := newDedup(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := d.Claim(ctx, id)
	require.NoError(t, err)
	require.NoError(t, d.Confirm(ctx, id))
	mr.FastForward(30 * time.Minute)

	claimed, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimed)

	mr.FastForward(2 * time.Hour)

	claimed, err = d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisDeduplicator_NilClientClaimsEverything(t *testing.T) {
	d := NewRedisDeduplicator(nil, time.Hour)
	id := uuid.New()

	for i := 0; i < 2; i++ {
		claimed, err := d.Claim(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, claimed)
	}
	assert.NoError(t, d.Confirm(context.Background(), id))
	assert.NoError(t, d.Release(context.Background(), id))
}

func TestRunner_SkipsRedeliveredEvents(t *testing.T) {
	d, _ := newDedup(t)
	source := newChanSource()
	dispatcher := &recordingDispatcher{}
	stop := start(t, NewRunner(source, dispatcher, 1, zap.NewNop()).WithDeduplicator(d))
	defer stop()

	ev := banned()
	source.push(t, ev)
	source.push(t, ev)
	source.push(t, banned())

	require.Eventually(t, func() bool { return source.Acked() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, dispatcher.Count())
}

func TestRunner_ReleasesClaimWhenDispatchFails(t *testing.T) {
	d, _ := newDedup(t)
	source := newChanSource()
	dispatcher := &recordingDispatcher{err: errors.New("database is down")}
	stop := start(t, NewRunner(source, dispatcher, 1, zap.NewNop()).WithDeduplicator(d))
	defer stop()

	ev := banned()
	source.push(t, ev)
	source.push(t, ev)

	require.Eventually(t, func() bool { return source.Acked() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, dispatcher.Count())
}

func TestRunner_SkipsRedeliveredEnvelopeWithoutID(t *testing.T) {
	d, _ := newDedup(t)
	source := newChanSource()
	dispatcher := &recordingDispatcher{}
	stop := start(t, NewRunner(source, dispatcher, 1, zap.NewNop()).WithDeduplicator(d))
	defer stop()

	raw := []byte(`{"kind":"BOARD_BANNED","payload":{"board_id":"` + uuid.NewString() + `","writer_id":"` + uuid.NewString() + `"}}`)
	source.ch <- Message{Value: raw}
	source.ch <- Message{Value: raw}

	require.Eventually(t, func() bool { return source.Acked() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, dispatcher.Count())
}
