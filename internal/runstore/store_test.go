package runstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id string, offset time.Duration) Record {
	return Record{
		ID:        id,
		Recipe:    "branch",
		Input:     map[string]any{"value": "5"},
		Output:    map[string]any{"path": "positive"},
		StartedAt: base.Add(offset),
		Duration:  3 * time.Millisecond,
	}
}

func ids(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// runStoreContract checks the behaviour every Store must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("Save and Get", func(t *testing.T) {
		rec := record("a", 0)
		rec.Error = "boom"
		require.NoError(t, store.Save(ctx, rec))

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "branch", got.Recipe)
		assert.Equal(t, "5", got.Input["value"])
		assert.Equal(t, "positive", got.Output["path"])
		assert.True(t, got.Failed())
		assert.True(t, got.StartedAt.Equal(rec.StartedAt))
		assert.Equal(t, rec.Duration, got.Duration)
	})

	t.Run("Get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List newest first", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, record("c", 2*time.Second)))
		require.NoError(t, store.Save(ctx, record("b", time.Second)))

		all, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, ids(all))

		top, err := store.List(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(top))
	})

	t.Run("Save overwrites", func(t *testing.T) {
		rec := record("b", time.Second)
		rec.Output = map[string]any{"path": "negative"}
		require.NoError(t, store.Save(ctx, rec))

		got, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "negative", got.Output["path"])

		all, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestMemory_Contract(t *testing.T) {
	runStoreContract(t, NewMemory(10))
}

func TestRedis_Contract(t *testing.T) {
	_, client := newMiniredis(t)
	runStoreContract(t, NewRedisFromClient(client))
}

func TestMemory_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	for i := range 5 {
		require.NoError(t, m.Save(ctx, record(fmt.Sprintf("r%d", i), time.Duration(i)*time.Second)))
	}
	assert.Equal(t, 3, m.Len())

	_, err := m.Get(ctx, "r0")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := m.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r3", "r2"}, ids(all))
}

func TestMemory_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewMemory(0).capacity)
}

func TestRedis_TTLPrunesIndex(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	store := NewRedisFromClient(client, WithTTL(time.Minute), WithPrefix("test:"))

	require.NoError(t, store.Save(ctx, record("old", 0)))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, store.Save(ctx, record("new", time.Hour)))

	assert.True(t, mr.Exists("test:new"))
	assert.False(t, mr.Exists("test:old"))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(all))

	members, err := mr.ZMembers("test:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, members)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_Empty(t *testing.T) {
	_, client := newMiniredis(t)
	all, err := NewRedisFromClient(client).List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NoError(t, NewRedisFromClient(client).Ping(context.Background()))
}

func TestTrack(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(4)

	rec, err := Track(ctx, store, zaptest.NewLogger(t), "double", map[string]any{"values": []int{1}},
		func(context.Context) (map[string]any, error) {
			return map[string]any{"results": []int{2}}, nil
		})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Failed())

	saved, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, saved.Output["results"])

	boom := errors.New("boom")
	rec, err = Track(ctx, store, nil, "double", nil, func(context.Context) (map[string]any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	saved, err = store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", saved.Error)
}

type failingStore struct{ Memory }

func (*failingStore) Save(context.Context, Record) error { return errors.New("disk full") }

func TestTrack_SaveFailureIsLogged(t *testing.T) {
	zc, logs := zapobserver.New(zapcore.WarnLevel)
	out := map[string]any{"ok": true}

	rec, err := Track(context.Background(), &failingStore{}, zap.New(zc), "hello", nil,
		func(context.Context) (map[string]any, error) { return out, nil })
	require.NoError(t, err)
	assert.Equal(t, out, rec.Output)
	assert.Equal(t, 1, logs.FilterMessage("failed to save run record").Len())
}

func TestTrack_CancelledRunStillSaved(t *testing.T) {
	store := NewMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	rec, err := Track(ctx, store, nil, "countdown", nil, func(context.Context) (map[string]any, error) {
		cancel()
		return nil, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	_, getErr := store.Get(context.Background(), rec.ID)
	assert.NoError(t, getErr)
}
