package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"anoa.com/boardpush/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingAgent struct {
	name     string
	schedule string
	err      error
	runs     atomic.Int32
}

func (a *countingAgent) GetName() string     { return a.name }
func (a *countingAgent) GetSchedule() string { return a.schedule }

func (a *countingAgent) Execute(ctx context.Context) error {
	a.runs.Add(1)
	return a.err
}

func TestScheduler_RunsScheduledAgents(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	job := &countingAgent{name: "tick", schedule: "@every 1s"}
	require.NoError(t, s.RegisterAgent(job))

	s.Start(context.Background())
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	err := s.RegisterAgent(&countingAgent{name: "broken", schedule: "every tuesday"})
	assert.Error(t, err)
	assert.Empty(t, s.GetRegisteredAgents())
}

func TestScheduler_RunAgentByName(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewScheduler(zap.New(core))
	ok := &countingAgent{name: "manual"}
	failing := &countingAgent{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.RegisterAgent(ok))
	require.NoError(t, s.RegisterAgent(failing))

	assert.Equal(t, []string{"manual", "failing"}, s.GetRegisteredAgents())

	require.NoError(t, s.RunAgentByName(context.Background(), "manual"))
	assert.Equal(t, int32(1), ok.runs.Load())

	assert.Error(t, s.RunAgentByName(context.Background(), "failing"))
	assert.Equal(t, 1, logs.FilterMessage("agent run failed").Len())

	assert.ErrorIs(t, s.RunAgentByName(context.Background(), "missing"), apperror.ErrNotFound)
}
