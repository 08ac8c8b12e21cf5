package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aurastack/aura/internal/connection"
)

// SQLGenerateFunc turns a natural language prompt into a SQL statement.
type SQLGenerateFunc func(ctx context.Context, prompt, dbContext string) (string, error)

// RegisterBuiltinTools adds the default database, analysis and reasoning
// tools backed by the connection manager. generateSQL may be nil, in
// which case the generate_sql tool reports that no generator is wired.
func RegisterBuiltinTools(r *Registry, manager *connection.Manager, generateSQL SQLGenerateFunc) {
	validator := NewQueryValidator()
	analyzer := NewSchemaAnalyzer()
	reasoner := NewRecursiveReasoner(DefaultMaxDepth)

	r.Register(&Tool{
		Name:        "connect_database",
		Description: "Connect to a database",
		Category:    "database",
		Parameters: map[string]Parameter{
			"connection_id": {Type: "string", Required: true, Description: "Database connection ID"},
		},
		Returns: map[string]any{"type": "object", "description": "Connection status"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			connectionID, _ := params["connection_id"].(string)
			conn, err := manager.Get(connectionID)
			if err != nil {
				return nil, err
			}
			status := "connected"
			isValid := true
			if err := manager.Test(ctx, connectionID); err != nil {
				status = "failed"
				isValid = false
			}
			return map[string]any{
				"status":          status,
				"connection_id":   connectionID,
				"connection_name": conn.Name,
				"database_type":   string(conn.Type),
				"is_valid":        isValid,
			}, nil
		},
	})

	r.Register(&Tool{
		Name:        "list_database_connections",
		Description: "List all available database connections",
		Category:    "database",
		Parameters:  map[string]Parameter{},
		Returns:     map[string]any{"type": "array", "description": "List of database connections"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			connections := manager.List()
			items := make([]map[string]any, 0, len(connections))
			for _, conn := range connections {
				items = append(items, map[string]any{
					"id":        conn.ID,
					"name":      conn.Name,
					"type":      string(conn.Type),
					"host":      conn.Host,
					"database":  conn.Database,
					"is_active": conn.IsActive,
				})
			}
			return map[string]any{"connections": items, "count": len(items)}, nil
		},
	})

	r.Register(&Tool{
		Name:        "query_database",
		Description: "Execute a SQL query on a database",
		Category:    "database",
		Parameters: map[string]Parameter{
			"connection_id": {Type: "string", Required: true, Description: "Database connection ID"},
			"query":         {Type: "string", Required: true, Description: "SQL query to execute"},
			"limit":         {Type: "integer", Required: false, Description: "Result limit", Default: connection.DefaultQueryLimit},
		},
		Returns: map[string]any{"type": "object", "description": "Query results"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			connectionID, _ := params["connection_id"].(string)
			query, _ := params["query"].(string)
			limit := intParam(params, "limit")

			if v := validator.Validate(query, false, false); !v.IsValid {
				return nil, fmt.Errorf("query rejected: %v", v.Errors)
			}
			return manager.ExecuteQuery(ctx, connectionID, query, limit)
		},
	})

	r.Register(&Tool{
		Name:        "get_database_schema",
		Description: "Get database schema information",
		Category:    "database",
		Parameters: map[string]Parameter{
			"connection_id": {Type: "string", Required: true, Description: "Database connection ID"},
			"refresh":       {Type: "boolean", Required: false, Description: "Refresh schema cache", Default: false},
		},
		Returns: map[string]any{"type": "object", "description": "Database schema"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			connectionID, _ := params["connection_id"].(string)
			refresh, _ := params["refresh"].(bool)
			return manager.GetSchema(ctx, connectionID, refresh)
		},
	})

	r.Register(&Tool{
		Name:        "validate_query",
		Description: "Validate SQL queries for security vulnerabilities and syntax correctness",
		Category:    "analysis",
		Parameters: map[string]Parameter{
			"query":               {Type: "string", Required: true, Description: "SQL query to validate"},
			"allow_modifications": {Type: "boolean", Required: false, Description: "Allow INSERT, UPDATE, DELETE operations"},
			"allow_drops":         {Type: "boolean", Required: false, Description: "Allow DROP operations"},
		},
		Returns: map[string]any{"type": "object", "description": "Validation results"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			query, _ := params["query"].(string)
			allowModifications, _ := params["allow_modifications"].(bool)
			allowDrops, _ := params["allow_drops"].(bool)
			return validator.Validate(query, allowModifications, allowDrops), nil
		},
	})

	r.Register(&Tool{
		Name:        "sanitize_query",
		Description: "Attempt to sanitize SQL query",
		Category:    "analysis",
		Parameters: map[string]Parameter{
			"query": {Type: "string", Required: true, Description: "SQL query to sanitize"},
		},
		Returns: map[string]any{"type": "object", "description": "Sanitized query and applied changes"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			query, _ := params["query"].(string)
			return validator.Sanitize(query), nil
		},
	})

	r.Register(&Tool{
		Name:        "analyze_schema",
		Description: "Analyze database schema and provide insights",
		Category:    "analysis",
		Parameters: map[string]Parameter{
			"connection_id": {Type: "string", Required: true, Description: "Database connection ID"},
		},
		Returns: map[string]any{"type": "object", "description": "Analysis results"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			connectionID, _ := params["connection_id"].(string)
			schema, err := manager.GetSchema(ctx, connectionID, false)
			if err != nil {
				return nil, err
			}
			return analyzer.Analyze(schema), nil
		},
	})

	r.Register(&Tool{
		Name:        "suggest_indexes",
		Description: "Suggest indexes for a table",
		Category:    "analysis",
		Parameters: map[string]Parameter{
			"connection_id": {Type: "string", Required: true, Description: "Database connection ID"},
			"table":         {Type: "string", Required: true, Description: "Table name"},
		},
		Returns: map[string]any{"type": "object", "description": "Index suggestions"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			connectionID, _ := params["connection_id"].(string)
			tableName, _ := params["table"].(string)
			schema, err := manager.GetSchema(ctx, connectionID, false)
			if err != nil {
				return nil, err
			}
			for i := range schema.Tables {
				if schema.Tables[i].Name == tableName {
					return analyzer.SuggestIndexes(&schema.Tables[i]), nil
				}
			}
			return nil, fmt.Errorf("table not found: %s", tableName)
		},
	})

	r.Register(&Tool{
		Name:        "find_relationships",
		Description: "Find relationships between tables",
		Category:    "analysis",
		Parameters: map[string]Parameter{
			"connection_id": {Type: "string", Required: true, Description: "Database connection ID"},
		},
		Returns: map[string]any{"type": "object", "description": "Explicit and implicit table relationships"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			connectionID, _ := params["connection_id"].(string)
			schema, err := manager.GetSchema(ctx, connectionID, false)
			if err != nil {
				return nil, err
			}
			return analyzer.FindRelationships(schema), nil
		},
	})

	r.Register(&Tool{
		Name:        "recursive_reason",
		Description: "Recursive reasoning tool that breaks complex problems into smaller sub-problems",
		Category:    "reasoning",
		Parameters: map[string]Parameter{
			"problem":   {Type: "string", Required: true, Description: "The problem to solve"},
			"max_depth": {Type: "integer", Required: false, Description: "Maximum recursion depth", Default: DefaultMaxDepth},
		},
		Returns: map[string]any{"type": "object", "description": "Reasoning results"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			problem, _ := params["problem"].(string)
			return reasoner.Reason(problem, nil, intParam(params, "max_depth")), nil
		},
	})

	r.Register(&Tool{
		Name:        "explain_reasoning",
		Description: "Generate explanation of reasoning process",
		Category:    "reasoning",
		Parameters: map[string]Parameter{
			"reasoning_result": {Type: "object", Required: true, Description: "Result from a recursive_reason call"},
		},
		Returns: map[string]any{"type": "string", "description": "Readable explanation"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			raw, err := json.Marshal(params["reasoning_result"])
			if err != nil {
				return nil, err
			}
			var result ReasoningResult
			if err := json.Unmarshal(raw, &result); err != nil {
				return nil, fmt.Errorf("invalid reasoning_result: %w", err)
			}
			if result.ReasoningTree == nil {
				return nil, fmt.Errorf("reasoning_result has no reasoning tree")
			}
			return map[string]any{"explanation": reasoner.Explain(&result)}, nil
		},
	})

	r.Register(&Tool{
		Name:        "generate_sql",
		Description: "Generate SQL query from natural language",
		Category:    "code_generation",
		Parameters: map[string]Parameter{
			"prompt":  {Type: "string", Required: true, Description: "Natural language prompt"},
			"context": {Type: "string", Required: false, Description: "Database context"},
		},
		Returns: map[string]any{"type": "string", "description": "Generated SQL query"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			if generateSQL == nil {
				return nil, fmt.Errorf("no SQL generator configured")
			}
			prompt, _ := params["prompt"].(string)
			dbContext, _ := params["context"].(string)
			sql, err := generateSQL(ctx, prompt, dbContext)
			if err != nil {
				return nil, err
			}
			return map[string]any{"sql": sql}, nil
		},
	})
}

// intParam reads an integer tool parameter, accepting the numeric types
// JSON decoding produces.
func intParam(params map[string]any, name string) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
