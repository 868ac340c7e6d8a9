package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anoa.com/boardpush/internal/entity"
	"go.uber.org/zap"
)

// BoardFeed lists boards and replies created since a point in time.
type BoardFeed interface {
	ListBoardsSince(ctx context.Context, since time.Time, offset, limit int) ([]entity.Board, error)
	ListRepliesSince(ctx context.Context, since time.Time, offset, limit int) ([]entity.Reply, error)
}

// BoardIndexer upserts boards and replies into the lookup index.
type BoardIndexer interface {
	IndexBoards(ctx context.Context, boards []entity.Board) error
	IndexReplies(ctx context.Context, replies []entity.Reply) error
}

type BoardIndexConfig struct {
	// Schedule is a cron expression; empty runs the agent on demand only.
	Schedule  string
	BatchSize int
	// Overlap re-reads rows created shortly before the previous run started,
	// covering transactions that committed late.
	Overlap time.Duration
}

func DefaultBoardIndexConfig() BoardIndexConfig {
	return BoardIndexConfig{
		Schedule:  "@every 10m",
		BatchSize: 200,
		Overlap:   time.Minute,
	}
}

// BoardIndexAgent copies boards and replies from the database into the search
// index that serves board lookups. The first run copies everything; later runs
// copy rows created since the previous successful run.
type BoardIndexAgent struct {
	feed    BoardFeed
	indexer BoardIndexer
	config  BoardIndexConfig
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

func NewBoardIndexAgent(feed BoardFeed, indexer BoardIndexer, config BoardIndexConfig, logger *zap.Logger) *BoardIndexAgent {
	if config.BatchSize < 1 {
		config.BatchSize = DefaultBoardIndexConfig().BatchSize
	}
	return &BoardIndexAgent{
		feed:    feed,
		indexer: indexer,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

func (a *BoardIndexAgent) GetName() string {
	return "board_index_sync"
}

func (a *BoardIndexAgent) GetSchedule() string {
	return a.config.Schedule
}

func (a *BoardIndexAgent) Execute(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	startedAt := a.now()
	var since time.Time
	if !a.lastSync.IsZero() {
		since = a.lastSync.Add(-a.config.Overlap)
	}

	boards, err := a.syncBoards(ctx, since)
	if err != nil {
		return err
	}
	replies, err := a.syncReplies(ctx, since)
	if err != nil {
		return err
	}

	a.lastSync = startedAt
	a.logger.Info("board index synced",
		zap.Time("since", since),
		zap.Int("boards", boards),
		zap.Int("replies", replies),
	)
	return nil
}

func (a *BoardIndexAgent) syncBoards(ctx context.Context, since time.Time) (int, error) {
	total := 0
	for {
		batch, err := a.feed.ListBoardsSince(ctx, since, total, a.config.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list boards: %w", err)
		}
		if err := a.indexer.IndexBoards(ctx, batch); err != nil {
			return total, fmt.Errorf("index boards: %w", err)
		}
		total += len(batch)
		if len(batch) < a.config.BatchSize {
			return total, nil
		}
	}
}

func (a *BoardIndexAgent) syncReplies(ctx context.Context, since time.Time) (int, error) {
	total := 0
	for {
		batch, err := a.feed.ListRepliesSince(ctx, since, total, a.config.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list replies: %w", err)
		}
		if err := a.indexer.IndexReplies(ctx, batch); err != nil {
			return total, fmt.Errorf("index replies: %w", err)
		}
		total += len(batch)
		if len(batch) < a.config.BatchSize {
			return total, nil
		}
	}
}
