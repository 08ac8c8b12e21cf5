package tool

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/aurastack/aura/internal/connection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newBuiltinRegistry registers the builtin tools against a manager with
// a seeded sqlite connection and returns the registry with its ID.
func newBuiltinRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	logger := zap.NewNop()

	manager := connection.NewManager(logger, 0, 0)
	t.Cleanup(func() { _ = manager.Close() })

	ctx := context.Background()
	id, err := manager.Add(ctx, &connection.Connection{
		Name:     "builtin-sqlite",
		Type:     connection.SQLite,
		Database: filepath.Join(t.TempDir(), "builtin.db"),
	})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE customer (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE invoices (
			id INTEGER PRIMARY KEY,
			customer_id INTEGER NOT NULL,
			total REAL NOT NULL
		)`,
	} {
		_, err := manager.ExecuteQuery(ctx, id, stmt, 0)
		require.NoError(t, err)
	}

	r := NewRegistry(logger)
	RegisterBuiltinTools(r, manager, nil)
	return r, id
}

func TestBuiltinTools_Registered(t *testing.T) {
	r, _ := newBuiltinRegistry(t)

	for _, name := range []string{
		"connect_database",
		"list_database_connections",
		"query_database",
		"get_database_schema",
		"validate_query",
		"sanitize_query",
		"analyze_schema",
		"suggest_indexes",
		"find_relationships",
		"recursive_reason",
		"explain_reasoning",
		"generate_sql",
	} {
		_, err := r.Get(name)
		assert.NoError(t, err, name)
	}
}

func TestBuiltinTools_SanitizeQuery(t *testing.T) {
	r, _ := newBuiltinRegistry(t)

	result, err := r.Execute(context.Background(), "sanitize_query", map[string]any{
		"query": "SELECT * FROM customer -- drop it",
	})
	require.NoError(t, err)

	sanitized, ok := result.(*SanitizeResult)
	require.True(t, ok)
	assert.True(t, sanitized.WasModified)
	assert.Equal(t, "SELECT * FROM customer", sanitized.SanitizedQuery)
}

func TestBuiltinTools_SuggestIndexes(t *testing.T) {
	r, id := newBuiltinRegistry(t)
	ctx := context.Background()

	result, err := r.Execute(ctx, "suggest_indexes", map[string]any{
		"connection_id": id,
		"table":         "invoices",
	})
	require.NoError(t, err)

	report, ok := result.(*IndexReport)
	require.True(t, ok)
	assert.Equal(t, "invoices", report.Table)

	var found bool
	for _, s := range report.Suggestions {
		if s.Column == "customer_id" && s.Priority == "high" {
			found = true
		}
	}
	assert.True(t, found, "expected a high priority suggestion for customer_id")

	_, err = r.Execute(ctx, "suggest_indexes", map[string]any{
		"connection_id": id,
		"table":         "missing",
	})
	assert.Error(t, err)
}

func TestBuiltinTools_FindRelationships(t *testing.T) {
	r, id := newBuiltinRegistry(t)

	result, err := r.Execute(context.Background(), "find_relationships", map[string]any{
		"connection_id": id,
	})
	require.NoError(t, err)

	report, ok := result.(*RelationshipReport)
	require.True(t, ok)
	require.NotEmpty(t, report.Relationships)

	var found bool
	for _, rel := range report.Relationships {
		if rel.FromTable == "invoices" && rel.FromColumn == "customer_id" && rel.ToTable == "customer" {
			found = true
		}
	}
	assert.True(t, found, "expected invoices.customer_id -> customer")
}

func TestBuiltinTools_ExplainReasoning(t *testing.T) {
	r, _ := newBuiltinRegistry(t)
	ctx := context.Background()

	reasoned, err := r.Execute(ctx, "recursive_reason", map[string]any{
		"problem": "How many customers placed an order last month?",
	})
	require.NoError(t, err)

	// round-trip through JSON the way a protocol payload arrives
	raw, err := json.Marshal(reasoned)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))

	result, err := r.Execute(ctx, "explain_reasoning", map[string]any{
		"reasoning_result": payload,
	})
	require.NoError(t, err)

	explained, ok := result.(map[string]any)
	require.True(t, ok)
	explanation, ok := explained["explanation"].(string)
	require.True(t, ok)
	assert.Contains(t, explanation, "Problem:")
	assert.Contains(t, explanation, "Reasoning process:")
}

func TestBuiltinTools_ExplainReasoningRejectsMalformed(t *testing.T) {
	r, _ := newBuiltinRegistry(t)

	_, err := r.Execute(context.Background(), "explain_reasoning", map[string]any{
		"reasoning_result": "not an object",
	})
	assert.Error(t, err)
}
