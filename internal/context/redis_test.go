package context

import (
	"context"
	"testing"
	"time"

	"github.com/aurastack/aura/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(zap.NewNop(), &config.ContextRedisConfig{
		Addr:   mr.Addr(),
		Prefix: "aura-test",
	}, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_SetGet(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	ac := &AgentContext{
		AgentID:   "agent-1",
		SessionID: "session-1",
		Type:      "task",
		Data:      map[string]any{"goal": "analyze schema"},
	}
	assert.NoError(t, s.Set(ctx, ac))

	got, err := s.Get(ctx, "agent-1", "session-1", "task")
	assert.NoError(t, err)
	assert.Equal(t, "agent-1", got.AgentID)
	assert.Equal(t, "analyze schema", got.Data["goal"])

	_, err = s.Get(ctx, "agent-1", "session-1", "missing")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestRedisStore_NativeExpiry(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	ac := &AgentContext{AgentID: "a", SessionID: "s", Type: "task", TTL: time.Minute}
	assert.NoError(t, s.Set(ctx, ac))

	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "a", "s", "task")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestRedisStore_UpdatePreservesTTL(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	ac := &AgentContext{AgentID: "a", SessionID: "s", Type: "task", Data: map[string]any{"x": "old"}, TTL: time.Minute}
	assert.NoError(t, s.Set(ctx, ac))

	updated, err := s.Update(ctx, "a", "s", "task", map[string]any{"x": "new"})
	assert.NoError(t, err)
	assert.Equal(t, "new", updated.Data["x"])

	// the redis key keeps its original expiry after an update
	ttl := mr.TTL("aura-test:ctx:a:s:task")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestRedisStore_ListFilters(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a1", SessionID: "s1", Type: "task"}))
	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a1", SessionID: "s2", Type: "task"}))
	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a2", SessionID: "s1", Type: "memory"}))

	all, err := s.List(ctx, "", "")
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	byAgent, err := s.List(ctx, "a1", "")
	assert.NoError(t, err)
	assert.Len(t, byAgent, 2)

	both, err := s.List(ctx, "a2", "s1")
	assert.NoError(t, err)
	assert.Len(t, both, 1)
}

func TestRedisStore_RecordQuery(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "a1", "SELECT * FROM users"))
	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "a1", "DELETE FROM logs"))

	dc, err := s.GetDatabaseContext(ctx, "conn-1")
	assert.NoError(t, err)
	assert.Len(t, dc.RecentQueries, 2)
	assert.Equal(t, 1, dc.QueryPatterns["select"])
	assert.Equal(t, 1, dc.QueryPatterns["delete"])

	_, err = s.GetDatabaseContext(ctx, "no-such-conn")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestRedisStore_Conversation(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		err := s.AppendTurn(ctx, "s1", &Turn{AgentID: "a", Role: "user", Content: content})
		assert.NoError(t, err)
	}

	turns, err := s.Conversation(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].Content)

	recent, err := s.Conversation(ctx, "s1", 2)
	assert.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Content)
}

func TestRedisStore_Stats(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a1", SessionID: "s1", Type: "task"}))
	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a2", SessionID: "s2", Type: "memory"}))
	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "a1", "SELECT 1"))
	assert.NoError(t, s.AppendTurn(ctx, "s1", &Turn{AgentID: "a1", Role: "user", Content: "hi"}))

	stats, err := s.Stats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveContexts)
	assert.Equal(t, 1, stats.DatabaseContexts)
	assert.Equal(t, 1, stats.Conversations)
}

func TestNewStore_Factory(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     *config.ContextStoreConfig
		wantErr bool
	}{
		{name: "memory", cfg: &config.ContextStoreConfig{Type: "memory"}},
		{name: "default is memory", cfg: &config.ContextStoreConfig{}},
		{name: "redis", cfg: &config.ContextStoreConfig{Type: "redis", Redis: config.ContextRedisConfig{Addr: mr.Addr()}}},
		{name: "unknown", cfg: &config.ContextStoreConfig{Type: "etcd"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(zap.NewNop(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, s)
			assert.NoError(t, s.Close())
		})
	}
}
