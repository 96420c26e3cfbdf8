package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"chatapp-local/internal/keyValue"
	"chatapp-local/internal/models"
	"chatapp-local/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newKV(t *testing.T) keyValue.Store {
	t.Helper()
	kv := keyValue.NewHashmap(zap.NewNop().Sugar())
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestLoadMissingTableIsEmpty(t *testing.T) {
	tables := storage.NewTables(newKV(t), "", zap.NewNop().Sugar())

	users, err := tables.Users.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
	assert.Equal(t, "discord_users", tables.Users.Key())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	tables := storage.NewTables(newKV(t), "test_", zap.NewNop().Sugar())

	servers := make(map[string]models.Server)
	for i := range 25 {
		id := fmt.Sprintf("server-%d", i)
		servers[id] = models.Server{
			ID:      id,
			Name:    fmt.Sprintf("Server %d", i),
			Avatar:  "https://example.com/a.png",
			OwnerID: "owner",
			Members: []string{"owner", fmt.Sprintf("member-%d", i)},
			Channels: []models.Channel{
				{ID: "c1", Name: "general", Type: models.ChannelTypeText},
				{ID: "c2", Name: "voice", Type: models.ChannelTypeVoice},
			},
			Bots: []models.Bot{{ID: "b1", Name: "Helper", Enabled: i%2 == 0}},
		}
	}

	require.NoError(t, tables.Servers.Save(ctx, servers))

	loaded, err := tables.Servers.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, servers, loaded)
}

func TestCorruptTable(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	require.NoError(t, keyValue.Set(ctx, kv, "discord_users", "{not json", 0))

	tables := storage.NewTables(kv, "", zap.NewNop().Sugar())

	_, err := tables.Users.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageCorrupt)

	err = tables.Users.Update(ctx, func(map[string]models.UserRecord) error {
		t.Fatal("update must not run on a corrupt table")
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrStorageCorrupt)
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	table := storage.NewTable[string](newKV(t), "t", zap.NewNop().Sugar())
	require.NoError(t, table.Save(ctx, map[string]string{"a": "1"}))

	errStop := errors.New("stop")
	err := table.Update(ctx, func(records map[string]string) error {
		records["a"] = "2"
		return errStop
	})
	assert.ErrorIs(t, err, errStop)

	value, ok, err := table.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestConcurrentUpdatesAllLand(t *testing.T) {
	ctx := context.Background()
	table := storage.NewTable[int](newKV(t), "t", zap.NewNop().Sugar())

	const writers = 5

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := table.Update(ctx, func(records map[string]int) error {
				records[fmt.Sprint(i)] = i
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := table.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, records, writers)
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	tables := storage.NewTables(newKV(t), "", zap.NewNop().Sugar())

	_, found, err := tables.CurrentUser.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	user := models.User{ID: "u1", Username: "alice", Friends: []string{}, Servers: []string{"s1"}}
	require.NoError(t, tables.CurrentUser.Save(ctx, user, 0))

	loaded, found, err := tables.CurrentUser.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", loaded.Username)
	assert.Equal(t, []string{"s1"}, loaded.Servers)

	require.NoError(t, tables.CurrentUser.Clear(ctx))
	_, found, err = tables.CurrentUser.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}
