package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/aurastack/aura/internal/connection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTools struct {
	lastName   string
	lastParams map[string]any
	result     any
	err        error
}

func (f *fakeTools) Execute(ctx context.Context, name string, params map[string]any) (any, error) {
	f.lastName = name
	f.lastParams = params
	return f.result, f.err
}

func TestDatabaseAgentTestConnection(t *testing.T) {
	tools := &fakeTools{result: map[string]any{"status": "connected"}}
	a := NewDatabaseAgent(zap.NewNop(), tools, "db_agent_test")

	task := a.ExecuteTask(context.Background(), NewTask("test_connection", "", map[string]any{
		"connection_id": "conn-1",
	}))
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "connect_database", tools.lastName)
	assert.Equal(t, "conn-1", tools.lastParams["connection_id"])
	assert.False(t, task.CompletedAt.IsZero())
}

func TestDatabaseAgentMissingConnectionID(t *testing.T) {
	a := NewDatabaseAgent(zap.NewNop(), &fakeTools{}, "")

	task := a.ExecuteTask(context.Background(), NewTask("test_connection", "", nil))
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "connection_id")
}

func TestDatabaseAgentUnknownTaskType(t *testing.T) {
	a := NewDatabaseAgent(zap.NewNop(), &fakeTools{}, "")

	task := a.ExecuteTask(context.Background(), NewTask("make_coffee", "", nil))
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "unknown task type")
}

func TestDatabaseAgentAnalyzeSchema(t *testing.T) {
	schema := &connection.DatabaseSchema{
		ConnectionID: "conn-1",
		Tables: []connection.TableSchema{
			{
				Name:        "orders",
				Columns:     []connection.Column{{Name: "id", Type: "integer"}},
				PrimaryKeys: []string{"id"},
				ForeignKeys: []connection.ForeignKey{{Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id"}},
				RowCount:    2000000,
			},
		},
	}
	tools := &fakeTools{result: schema}
	a := NewDatabaseAgent(zap.NewNop(), tools, "")

	task := a.ExecuteTask(context.Background(), NewTask("analyze_schema", "", map[string]any{
		"connection_id": "conn-1",
		"refresh":       true,
	}))
	require.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "get_database_schema", tools.lastName)
	assert.Equal(t, true, tools.lastParams["refresh"])

	result, ok := task.Result.(map[string]any)
	require.True(t, ok)
	insights, ok := result["insights"].([]string)
	require.True(t, ok)
	assert.Contains(t, insights, "Database contains 1 tables and 0 views")
	assert.Contains(t, insights, "Found 1 foreign key relationships")
	assert.Contains(t, insights, "Large dataset detected (2000000 total rows) - consider partitioning strategies")

	recommendations, ok := result["recommendations"].([]string)
	require.True(t, ok)
	assert.Contains(t, recommendations, "Consider adding timestamp columns (created_at, updated_at) to table orders")
}

func TestDatabaseAgentExecuteQuery(t *testing.T) {
	tools := &fakeTools{result: &connection.QueryResult{RowCount: 3}}
	a := NewDatabaseAgent(zap.NewNop(), tools, "")

	task := a.ExecuteTask(context.Background(), NewTask("execute_query", "", map[string]any{
		"connection_id": "conn-1",
		"query":         "SELECT 1",
		"limit":         10,
	}))
	require.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "query_database", tools.lastName)
	assert.Equal(t, 10, tools.lastParams["limit"])
}

func TestDatabaseAgentExecuteQueryToolError(t *testing.T) {
	tools := &fakeTools{err: errors.New("syntax error")}
	a := NewDatabaseAgent(zap.NewNop(), tools, "")

	task := a.ExecuteTask(context.Background(), NewTask("execute_query", "", map[string]any{
		"connection_id": "conn-1",
		"query":         "SELEC 1",
	}))
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "syntax error")
}

func TestDatabaseAgentRecommendOptimizations(t *testing.T) {
	schema := &connection.DatabaseSchema{
		ConnectionID: "conn-1",
		Tables: []connection.TableSchema{
			{Name: "events", RowCount: 50000},
			{Name: "users", PrimaryKeys: []string{"id"}, Indexes: []connection.Index{{Name: "idx_users_email"}}, RowCount: 100},
		},
	}
	tools := &fakeTools{result: schema}
	a := NewDatabaseAgent(zap.NewNop(), tools, "")

	task := a.ExecuteTask(context.Background(), NewTask("recommend_optimizations", "", map[string]any{
		"connection_id": "conn-1",
	}))
	require.Equal(t, StatusCompleted, task.Status)

	result, ok := task.Result.(map[string]any)
	require.True(t, ok)
	recommendations, ok := result["recommendations"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, recommendations, 2)
	assert.Equal(t, "missing_primary_key", recommendations[0]["type"])
	assert.Equal(t, "missing_indexes", recommendations[1]["type"])
}

func TestDatabaseAgentInfoTracksTasks(t *testing.T) {
	a := NewDatabaseAgent(zap.NewNop(), &fakeTools{}, "db_agent_info")

	info := a.Info()
	assert.Equal(t, "db_agent_info", info.AgentID)
	assert.Equal(t, "database", info.AgentType)
	assert.Equal(t, StatusIdle, info.Status)
	assert.Zero(t, info.TaskCount)

	a.ExecuteTask(context.Background(), NewTask("test_connection", "", map[string]any{"connection_id": "c"}))
	assert.Equal(t, 1, a.Info().TaskCount)
}
