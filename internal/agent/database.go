package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aurastack/aura/internal/connection"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ToolExecutor runs named tools; satisfied by the tool registry.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, params map[string]any) (any, error)
}

// DatabaseAgent executes database tasks: connection testing, schema
// analysis, query execution and optimization recommendations.
type DatabaseAgent struct {
	logger *zap.Logger
	tools  ToolExecutor

	mu         sync.Mutex
	info       Info
	taskCount  int
	lastActive time.Time
}

var _ Agent = (*DatabaseAgent)(nil)

func NewDatabaseAgent(logger *zap.Logger, tools ToolExecutor, agentID string) *DatabaseAgent {
	if agentID == "" {
		agentID = "db_agent_" + uuid.New().String()[:8]
	}
	now := time.Now()
	return &DatabaseAgent{
		logger: logger.Named("agent.database"),
		tools:  tools,
		info: Info{
			AgentID:     agentID,
			AgentType:   "database",
			Name:        "Database Agent",
			Description: "AI agent for database connection and schema analysis",
			Version:     "1.0.0",
			Status:      StatusIdle,
			Tools: []string{
				"connect_database",
				"get_database_schema",
				"query_database",
			},
			CreatedAt:  now,
			LastActive: now,
		},
		lastActive: now,
	}
}

func (a *DatabaseAgent) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	info := a.info
	info.TaskCount = a.taskCount
	info.LastActive = a.lastActive
	return info
}

// ExecuteTask routes the task to its handler and records the outcome.
func (a *DatabaseAgent) ExecuteTask(ctx context.Context, task *Task) *Task {
	a.mu.Lock()
	a.taskCount++
	a.lastActive = time.Now()
	a.info.Status = StatusRunning
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.info.Status = StatusIdle
		a.mu.Unlock()
	}()

	task.Status = StatusRunning

	var result *Task
	switch task.TaskType {
	case "test_connection":
		result = a.testConnection(ctx, task)
	case "analyze_schema":
		result = a.analyzeSchema(ctx, task)
	case "execute_query":
		result = a.executeQuery(ctx, task)
	case "recommend_optimizations":
		result = a.recommendOptimizations(ctx, task)
	default:
		result = task.fail(fmt.Errorf("unknown task type: %s", task.TaskType))
	}

	a.logger.Debug("task finished",
		zap.String("task_id", task.TaskID),
		zap.String("task_type", task.TaskType),
		zap.String("status", string(result.Status)))
	return result
}

func (a *DatabaseAgent) testConnection(ctx context.Context, task *Task) *Task {
	connectionID, _ := task.Parameters["connection_id"].(string)
	if connectionID == "" {
		return task.fail(errors.New("missing connection_id parameter"))
	}
	result, err := a.tools.Execute(ctx, "connect_database", map[string]any{
		"connection_id": connectionID,
	})
	if err != nil {
		return task.fail(err)
	}
	return task.complete(result)
}

func (a *DatabaseAgent) analyzeSchema(ctx context.Context, task *Task) *Task {
	connectionID, _ := task.Parameters["connection_id"].(string)
	if connectionID == "" {
		return task.fail(errors.New("missing connection_id parameter"))
	}
	refresh, _ := task.Parameters["refresh"].(bool)

	raw, err := a.tools.Execute(ctx, "get_database_schema", map[string]any{
		"connection_id": connectionID,
		"refresh":       refresh,
	})
	if err != nil {
		return task.fail(err)
	}
	schema, ok := raw.(*connection.DatabaseSchema)
	if !ok {
		return task.fail(fmt.Errorf("unexpected schema result type %T", raw))
	}

	return task.complete(map[string]any{
		"schema_data":     schema,
		"insights":        schemaInsights(schema),
		"recommendations": schemaRecommendations(schema),
	})
}

func (a *DatabaseAgent) executeQuery(ctx context.Context, task *Task) *Task {
	connectionID, _ := task.Parameters["connection_id"].(string)
	query, _ := task.Parameters["query"].(string)
	if connectionID == "" || query == "" {
		return task.fail(errors.New("missing required parameters: connection_id and query"))
	}
	params := map[string]any{
		"connection_id": connectionID,
		"query":         query,
	}
	if limit, ok := task.Parameters["limit"]; ok {
		params["limit"] = limit
	}
	result, err := a.tools.Execute(ctx, "query_database", params)
	if err != nil {
		return task.fail(err)
	}
	return task.complete(result)
}

func (a *DatabaseAgent) recommendOptimizations(ctx context.Context, task *Task) *Task {
	connectionID, _ := task.Parameters["connection_id"].(string)
	if connectionID == "" {
		return task.fail(errors.New("missing connection_id parameter"))
	}

	raw, err := a.tools.Execute(ctx, "get_database_schema", map[string]any{
		"connection_id": connectionID,
	})
	if err != nil {
		return task.fail(err)
	}
	schema, ok := raw.(*connection.DatabaseSchema)
	if !ok {
		return task.fail(fmt.Errorf("unexpected schema result type %T", raw))
	}

	var recommendations []map[string]any
	for _, table := range schema.Tables {
		if len(table.PrimaryKeys) == 0 {
			recommendations = append(recommendations, map[string]any{
				"type":           "missing_primary_key",
				"table":          table.Name,
				"severity":       "high",
				"recommendation": "Add a primary key to table " + table.Name,
			})
		}
		if table.RowCount > 10000 && len(table.Indexes) == 0 {
			recommendations = append(recommendations, map[string]any{
				"type":           "missing_indexes",
				"table":          table.Name,
				"severity":       "medium",
				"recommendation": "Consider adding indexes to table " + table.Name + " for better query performance",
			})
		}
	}

	return task.complete(map[string]any{
		"recommendations": recommendations,
		"schema_summary": map[string]any{
			"table_count": len(schema.Tables),
			"view_count":  len(schema.Views),
		},
	})
}

func schemaInsights(schema *connection.DatabaseSchema) []string {
	insights := []string{
		fmt.Sprintf("Database contains %d tables and %d views", len(schema.Tables), len(schema.Views)),
	}

	totalForeignKeys := 0
	var totalRows int64
	for _, table := range schema.Tables {
		totalForeignKeys += len(table.ForeignKeys)
		totalRows += table.RowCount
	}
	if totalForeignKeys > 0 {
		insights = append(insights, fmt.Sprintf("Found %d foreign key relationships", totalForeignKeys))
	} else {
		insights = append(insights, "No foreign key relationships detected - consider adding for data integrity")
	}
	if totalRows > 1000000 {
		insights = append(insights, fmt.Sprintf("Large dataset detected (%d total rows) - consider partitioning strategies", totalRows))
	}
	return insights
}

func schemaRecommendations(schema *connection.DatabaseSchema) []string {
	var recommendations []string
	for _, table := range schema.Tables {
		hasTimestamp := false
		for _, col := range table.Columns {
			typeLower := strings.ToLower(col.Type)
			if strings.Contains(typeLower, "timestamp") || strings.Contains(typeLower, "date") {
				hasTimestamp = true
				break
			}
		}
		if !hasTimestamp {
			recommendations = append(recommendations,
				"Consider adding timestamp columns (created_at, updated_at) to table "+table.Name)
		}
		if len(table.Columns) > 30 {
			recommendations = append(recommendations,
				fmt.Sprintf("Table %s has %d columns - consider normalization", table.Name, len(table.Columns)))
		}
	}
	return recommendations
}
