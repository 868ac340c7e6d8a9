package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/apperror"
	"anoa.com/boardpush/pkg/database"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteRepository(t *testing.T) NotificationRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.ConnectSQLite(dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entity.Notification{}))
	return NewNotificationRepository(db)
}

func stores() map[string]func(t *testing.T) NotificationRepository {
	return map[string]func(t *testing.T) NotificationRepository{
		"gorm":   newSQLiteRepository,
		"memory": func(*testing.T) NotificationRepository { return NewMemoryRepository() },
	}
}

func newNotification(userID uuid.UUID, msg string) *entity.Notification {
	return &entity.Notification{
		UserID:           userID,
		Message:          msg,
		NotificationType: entity.TypeBoardLike,
	}
}

func TestSave_AssignsIncreasingIDs(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			repo := newStore(t)
			ctx := context.Background()
			user := uuid.New()

			first := newNotification(user, "same")
			second := newNotification(user, "same")
			first.Confirmed = true // callers cannot pre-confirm

			require.NoError(t, repo.Save(ctx, first))
			require.NoError(t, repo.Save(ctx, second))

			assert.NotZero(t, first.ID)
			assert.Greater(t, second.ID, first.ID)
			assert.False(t, first.CreatedAt.IsZero())

			got, err := repo.FindNewerThan(ctx, user, 0, 0)
			require.NoError(t, err)
			require.Len(t, got, 2, "duplicates are not coalesced")
			assert.False(t, got[0].Confirmed)
			assert.False(t, got[1].Confirmed)
		})
	}
}

func TestFindNewerThan(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			repo := newStore(t)
			ctx := context.Background()
			alice, bob := uuid.New(), uuid.New()

			var aliceIDs []uint64
			for i := 0; i < 5; i++ {
				n := newNotification(alice, fmt.Sprintf("a%d", i))
				require.NoError(t, repo.Save(ctx, n))
				aliceIDs = append(aliceIDs, n.ID)
				require.NoError(t, repo.Save(ctx, newNotification(bob, fmt.Sprintf("b%d", i))))
			}

			got, err := repo.FindNewerThan(ctx, alice, aliceIDs[1], 0)
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i, n := range got {
				assert.Equal(t, aliceIDs[i+2], n.ID)
				assert.Equal(t, alice, n.UserID)
			}

			limited, err := repo.FindNewerThan(ctx, alice, 0, 2)
			require.NoError(t, err)
			assert.Equal(t, []uint64{aliceIDs[0], aliceIDs[1]}, ids(limited))

			again, err := repo.FindNewerThan(ctx, alice, aliceIDs[1], 0)
			require.NoError(t, err)
			assert.Equal(t, ids(got), ids(again), "same cursor gives same result")

			none, err := repo.FindNewerThan(ctx, alice, aliceIDs[4], 0)
			require.NoError(t, err)
			assert.NotNil(t, none)
			assert.Empty(t, none)

			unknown, err := repo.FindNewerThan(ctx, uuid.New(), 0, 0)
			require.NoError(t, err)
			assert.Empty(t, unknown)
		})
	}
}

func TestMarkConfirmed(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			repo := newStore(t)
			ctx := context.Background()
			owner, other := uuid.New(), uuid.New()

			n := newNotification(owner, "hi")
			require.NoError(t, repo.Save(ctx, n))

			err := repo.MarkConfirmed(ctx, n.ID, other)
			assert.ErrorIs(t, err, apperror.ErrNotFound, "other users cannot confirm")

			err = repo.MarkConfirmed(ctx, n.ID+100, owner)
			assert.ErrorIs(t, err, apperror.ErrNotFound)

			count, err := repo.CountUnconfirmed(ctx, owner)
			require.NoError(t, err)
			assert.EqualValues(t, 1, count)

			require.NoError(t, repo.MarkConfirmed(ctx, n.ID, owner))
			require.NoError(t, repo.MarkConfirmed(ctx, n.ID, owner), "confirming twice is a no-op")

			got, err := repo.FindNewerThan(ctx, owner, 0, 0)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.True(t, got[0].Confirmed)
			assert.Equal(t, "hi", got[0].Message)

			count, err = repo.CountUnconfirmed(ctx, owner)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestConfirmAll(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			repo := newStore(t)
			ctx := context.Background()
			owner, other := uuid.New(), uuid.New()

			for i := 0; i < 3; i++ {
				require.NoError(t, repo.Save(ctx, newNotification(owner, "x")))
			}
			require.NoError(t, repo.Save(ctx, newNotification(other, "y")))

			updated, err := repo.ConfirmAll(ctx, owner)
			require.NoError(t, err)
			assert.EqualValues(t, 3, updated)

			count, err := repo.CountUnconfirmed(ctx, other)
			require.NoError(t, err)
			assert.EqualValues(t, 1, count)
		})
	}
}

func TestSave_Concurrent(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			repo := newStore(t)
			ctx := context.Background()
			user := uuid.New()

			const writers = 20
			saved := make([]uint64, writers)
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					n := newNotification(user, fmt.Sprintf("n%d", i))
					assert.NoError(t, repo.Save(ctx, n))
					saved[i] = n.ID
				}(i)
			}
			wg.Wait()

			got, err := repo.FindNewerThan(ctx, user, 0, 0)
			require.NoError(t, err)
			require.Len(t, got, writers)

			sort.Slice(saved, func(i, j int) bool { return saved[i] < saved[j] })
			assert.Equal(t, saved, ids(got), "every id is distinct and returned in order")
		})
	}
}

func ids(list []entity.Notification) []uint64 {
	out := make([]uint64, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}

// postgresDialect runs on sqlite but reports itself as postgres, so the
// postgres-only statements in Save are issued.
type postgresDialect struct{ gorm.Dialector }

func (postgresDialect) Name() string { return "postgres" }

// countAdvisoryLocks records pg_advisory_xact_lock statements and replaces
// them with a no-op sqlite can run.
func countAdvisoryLocks(t *testing.T, db *gorm.DB) *atomic.Int32 {
	t.Helper()
	var locks atomic.Int32
	err := db.Callback().Raw().Before("gorm:raw").Register("test:advisory_lock", func(tx *gorm.DB) {
		if strings.Contains(tx.Statement.SQL.String(), "pg_advisory_xact_lock") {
			locks.Add(1)
			tx.Statement.SQL.Reset()
			tx.Statement.SQL.WriteString("SELECT 1")
			tx.Statement.Vars = nil
		}
	})
	require.NoError(t, err)
	return &locks
}

func TestSave_TakesAdvisoryLockOnPostgres(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	base, err := database.ConnectSQLite(dsn)
	require.NoError(t, err)
	baseSQL, err := base.DB()
	require.NoError(t, err)
	t.Cleanup(func() { baseSQL.Close() })
	require.NoError(t, base.AutoMigrate(&entity.Notification{}))

	pg, err := gorm.Open(postgresDialect{sqlite.Open(dsn)}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	pgSQL, err := pg.DB()
	require.NoError(t, err)
	pgSQL.SetMaxOpenConns(1)
	t.Cleanup(func() { pgSQL.Close() })
	pgLocks := countAdvisoryLocks(t, pg)
	baseLocks := countAdvisoryLocks(t, base)

	ctx := context.Background()
	user := uuid.New()
	repo := NewNotificationRepository(pg)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, newNotification(user, fmt.Sprintf("n%d", i))))
	}
	assert.Equal(t, int32(3), pgLocks.Load(), "one lock per insert")

	require.NoError(t, NewNotificationRepository(base).Save(ctx, newNotification(user, "sqlite")))
	assert.Zero(t, baseLocks.Load())

	got, err := repo.FindNewerThan(ctx, user, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
