package context

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(zap.NewNop(), time.Hour, 0)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStore_SetGet(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	ac := &AgentContext{
		AgentID:   "agent-1",
		SessionID: "session-1",
		Type:      "task",
		Data:      map[string]any{"goal": "analyze schema"},
	}
	err := s.Set(ctx, ac)
	assert.NoError(t, err)
	assert.False(t, ac.CreatedAt.IsZero())
	assert.Equal(t, time.Hour, ac.TTL) // default applied

	got, err := s.Get(ctx, "agent-1", "session-1", "task")
	assert.NoError(t, err)
	assert.Equal(t, "analyze schema", got.Data["goal"])

	_, err = s.Get(ctx, "agent-1", "session-1", "missing")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestMemoryStore_SetOverwrites(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	first := &AgentContext{AgentID: "a", SessionID: "s", Type: "task", Data: map[string]any{"v": 1}}
	assert.NoError(t, s.Set(ctx, first))

	second := &AgentContext{AgentID: "a", SessionID: "s", Type: "task", Data: map[string]any{"v": 2}}
	assert.NoError(t, s.Set(ctx, second))

	got, err := s.Get(ctx, "a", "s", "task")
	assert.NoError(t, err)
	assert.Equal(t, 2, got.Data["v"])
}

func TestMemoryStore_Update(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	ac := &AgentContext{AgentID: "a", SessionID: "s", Type: "task", Data: map[string]any{"x": "old", "y": "keep"}}
	assert.NoError(t, s.Set(ctx, ac))

	updated, err := s.Update(ctx, "a", "s", "task", map[string]any{"x": "new"})
	assert.NoError(t, err)
	assert.Equal(t, "new", updated.Data["x"])
	assert.Equal(t, "keep", updated.Data["y"])

	_, err = s.Update(ctx, "a", "s", "absent", map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestMemoryStore_ReadsAreIsolatedFromUpdates(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	ac := &AgentContext{AgentID: "a", SessionID: "s", Type: "task", Data: map[string]any{"x": "old"}}
	assert.NoError(t, s.Set(ctx, ac))

	got, err := s.Get(ctx, "a", "s", "task")
	assert.NoError(t, err)

	_, err = s.Update(ctx, "a", "s", "task", map[string]any{"x": "new"})
	assert.NoError(t, err)
	assert.Equal(t, "old", got.Data["x"])

	// mutating a returned snapshot must not leak into the store
	got.Data["x"] = "tampered"
	fresh, err := s.Get(ctx, "a", "s", "task")
	assert.NoError(t, err)
	assert.Equal(t, "new", fresh.Data["x"])

	listed, err := s.List(ctx, "a", "s")
	assert.NoError(t, err)
	assert.Len(t, listed, 1)
	listed[0].Data["x"] = "tampered"
	fresh, err = s.Get(ctx, "a", "s", "task")
	assert.NoError(t, err)
	assert.Equal(t, "new", fresh.Data["x"])
}

func TestMemoryStore_DatabaseContextReadIsolated(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "a1", "SELECT 1"))

	dc, err := s.GetDatabaseContext(ctx, "conn-1")
	assert.NoError(t, err)

	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "a1", "SELECT 2"))
	assert.Len(t, dc.RecentQueries, 1)
	assert.Equal(t, 1, dc.QueryPatterns["select"])
}

func TestMemoryStore_Delete(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	ac := &AgentContext{AgentID: "a", SessionID: "s", Type: "task"}
	assert.NoError(t, s.Set(ctx, ac))
	assert.NoError(t, s.Delete(ctx, "a", "s", "task"))

	_, err := s.Get(ctx, "a", "s", "task")
	assert.ErrorIs(t, err, ErrContextNotFound)

	// deleting an absent key is fine
	assert.NoError(t, s.Delete(ctx, "a", "s", "task"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	expired := &AgentContext{
		AgentID:   "a",
		SessionID: "s",
		Type:      "task",
		CreatedAt: time.Now().Add(-2 * time.Second),
		TTL:       time.Second,
	}
	assert.NoError(t, s.Set(ctx, expired))
	// Set bumps UpdatedAt but expiry is measured from CreatedAt.
	_, err := s.Get(ctx, "a", "s", "task")
	assert.ErrorIs(t, err, ErrContextNotFound)

	// zero TTL never expires
	forever := &AgentContext{
		AgentID:   "a",
		SessionID: "s",
		Type:      "pinned",
		CreatedAt: time.Now().Add(-24 * time.Hour),
		TTL:       -1,
	}
	assert.NoError(t, s.Set(ctx, forever))
	_, err = s.Get(ctx, "a", "s", "pinned")
	assert.NoError(t, err)
}

func TestMemoryStore_ListFilters(t *testing.T) {
	s := newTestMemoryStore(t)
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

	bySession, err := s.List(ctx, "", "s1")
	assert.NoError(t, err)
	assert.Len(t, bySession, 2)

	both, err := s.List(ctx, "a2", "s1")
	assert.NoError(t, err)
	assert.Len(t, both, 1)
	assert.Equal(t, "memory", both[0].Type)
}

func TestMemoryStore_ClearExpired(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Set(ctx, &AgentContext{
		AgentID: "a", SessionID: "s", Type: "old",
		CreatedAt: time.Now().Add(-time.Minute), TTL: time.Second,
	}))
	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a", SessionID: "s", Type: "fresh"}))

	cleared, err := s.ClearExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, cleared)

	remaining, err := s.List(ctx, "", "")
	assert.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestMemoryStore_RecordQuery(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "agent-1", "SELECT * FROM users"))
	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "agent-1", "select id from orders"))
	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "agent-2", "UPDATE users SET name = 'x'"))

	dc, err := s.GetDatabaseContext(ctx, "conn-1")
	assert.NoError(t, err)
	assert.Len(t, dc.RecentQueries, 3)
	assert.Equal(t, 2, dc.QueryPatterns["select"])
	assert.Equal(t, 1, dc.QueryPatterns["update"])
}

func TestMemoryStore_RecentQueriesCapped(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	for i := 0; i < maxRecentQueries+10; i++ {
		assert.NoError(t, s.RecordQuery(ctx, "conn-1", "agent-1", fmt.Sprintf("SELECT %d", i)))
	}
	dc, err := s.GetDatabaseContext(ctx, "conn-1")
	assert.NoError(t, err)
	assert.Len(t, dc.RecentQueries, maxRecentQueries)
	// oldest entries dropped first
	assert.Equal(t, "SELECT 10", dc.RecentQueries[0].Query)
}

func TestMemoryStore_Conversation(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	for i := 0; i < maxConversationSize+5; i++ {
		err := s.AppendTurn(ctx, "s1", &Turn{
			AgentID: "a",
			Role:    "user",
			Content: fmt.Sprintf("message %d", i),
		})
		assert.NoError(t, err)
	}

	full, err := s.Conversation(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.Len(t, full, maxConversationSize)
	assert.Equal(t, "message 5", full[0].Content)

	recent, err := s.Conversation(ctx, "s1", 3)
	assert.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Equal(t, fmt.Sprintf("message %d", maxConversationSize+4), recent[2].Content)

	empty, err := s.Conversation(ctx, "no-such-session", 10)
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_Stats(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a1", SessionID: "s1", Type: "task"}))
	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a2", SessionID: "s1", Type: "task"}))
	assert.NoError(t, s.Set(ctx, &AgentContext{AgentID: "a1", SessionID: "s2", Type: "memory"}))
	assert.NoError(t, s.RecordQuery(ctx, "conn-1", "a1", "SELECT 1"))
	assert.NoError(t, s.AppendTurn(ctx, "s1", &Turn{AgentID: "a1", Role: "user", Content: "hi"}))

	stats, err := s.Stats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, stats.ActiveContexts)
	assert.Equal(t, 1, stats.DatabaseContexts)
	assert.Equal(t, 1, stats.Conversations)
	assert.Equal(t, 2, stats.ContextTypes["task"])
	assert.Equal(t, 1, stats.ContextTypes["memory"])
}
