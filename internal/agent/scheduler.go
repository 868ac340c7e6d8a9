package agent

import (
	"context"
	"fmt"
	"sync"

	"anoa.com/boardpush/pkg/apperror"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs registered agents on their cron schedules. Runs of the same
// agent never overlap.
type Scheduler struct {
	cron   *cron.Cron
	agents []Agent
	logger *zap.Logger

	mu  sync.Mutex
	ctx context.Context
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		agents: make([]Agent, 0),
		logger: logger.Named("agent"),
		ctx:    context.Background(),
	}
}

// RegisterAgent adds an agent and schedules it when it has a schedule.
func (s *Scheduler) RegisterAgent(agent Agent) error {
	schedule := agent.GetSchedule()
	if schedule != "" {
		_, err := s.cron.AddFunc(schedule, func() {
			s.run(s.baseContext(), agent)
		})
		if err != nil {
			return fmt.Errorf("schedule agent %s: %w", agent.GetName(), err)
		}
		s.logger.Info("agent scheduled", zap.String("agent", agent.GetName()), zap.String("schedule", schedule))
	} else {
		s.logger.Info("agent registered on demand", zap.String("agent", agent.GetName()))
	}

	s.agents = append(s.agents, agent)
	return nil
}

// Start begins running scheduled agents. Jobs receive ctx and are cancelled
// with it.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("agents", len(s.agents)))
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

// RunAgentByName runs an agent immediately, outside its schedule.
func (s *Scheduler) RunAgentByName(ctx context.Context, name string) error {
	for _, agent := range s.agents {
		if agent.GetName() == name {
			return s.run(ctx, agent)
		}
	}
	return fmt.Errorf("agent %q: %w", name, apperror.ErrNotFound)
}

func (s *Scheduler) GetRegisteredAgents() []string {
	names := make([]string, len(s.agents))
	for i, agent := range s.agents {
		names[i] = agent.GetName()
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, agent Agent) error {
	log := s.logger.With(zap.String("agent", agent.GetName()))
	log.Debug("agent run started")
	if err := agent.Execute(ctx); err != nil {
		log.Error("agent run failed", zap.Error(err))
		return err
	}
	log.Debug("agent run completed")
	return nil
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
