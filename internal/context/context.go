package context

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrContextNotFound is returned when no entry matches the requested key,
// including entries that have already expired.
var ErrContextNotFound = errors.New("context not found")

// DefaultTTL is the expiry applied to entries that do not carry their own.
const DefaultTTL = 3600 * time.Second

// AgentContext is a single unit of shared state scoped to an agent session.
type AgentContext struct {
	AgentID   string         `json:"agent_id"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"context_type"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	TTL       time.Duration  `json:"ttl"`
}

// Key returns the storage key for the context. Entries are unique per
// agent, session and type.
func (c *AgentContext) Key() string {
	return ContextKey(c.AgentID, c.SessionID, c.Type)
}

func ContextKey(agentID, sessionID, contextType string) string {
	return fmt.Sprintf("%s:%s:%s", agentID, sessionID, contextType)
}

// Expired reports whether the entry's TTL has elapsed. A zero TTL means
// the entry never expires.
func (c *AgentContext) Expired(now time.Time) bool {
	if c.TTL <= 0 {
		return false
	}
	return now.After(c.CreatedAt.Add(c.TTL))
}

// DatabaseContext carries connection-scoped query history shared across
// agents working against the same database.
type DatabaseContext struct {
	ConnectionID  string         `json:"connection_id"`
	Schema        map[string]any `json:"schema_info,omitempty"`
	RecentQueries []QueryRecord  `json:"recent_queries"`
	QueryPatterns map[string]int `json:"query_patterns"`
	Performance   map[string]any `json:"performance_stats,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// QueryRecord is one executed query remembered in a database context.
type QueryRecord struct {
	Query     string    `json:"query"`
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is one exchange in a session conversation history.
type Turn struct {
	AgentID   string         `json:"agent_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Stats summarizes the current store contents.
type Stats struct {
	ActiveContexts   int            `json:"active_contexts"`
	DatabaseContexts int            `json:"database_contexts"`
	Conversations    int            `json:"active_conversations"`
	ContextTypes     map[string]int `json:"context_types"`
}

// Store persists agent contexts, database contexts and conversation
// history for the MCP server.
type Store interface {
	// Set stores a context, replacing any existing entry under the same key.
	Set(ctx context.Context, ac *AgentContext) error
	// Get returns the context for the key, or ErrContextNotFound if absent
	// or expired.
	Get(ctx context.Context, agentID, sessionID, contextType string) (*AgentContext, error)
	// Update merges data into an existing context and bumps UpdatedAt.
	Update(ctx context.Context, agentID, sessionID, contextType string, data map[string]any) (*AgentContext, error)
	// Delete removes a context. Deleting an absent key is not an error.
	Delete(ctx context.Context, agentID, sessionID, contextType string) error
	// List returns live contexts, optionally filtered by agent and/or session.
	List(ctx context.Context, agentID, sessionID string) ([]*AgentContext, error)

	// SetDatabaseContext stores connection-scoped state.
	SetDatabaseContext(ctx context.Context, dc *DatabaseContext) error
	// GetDatabaseContext returns state for a connection, or ErrContextNotFound.
	GetDatabaseContext(ctx context.Context, connectionID string) (*DatabaseContext, error)
	// RecordQuery appends an executed query to the connection's history,
	// creating the database context if needed.
	RecordQuery(ctx context.Context, connectionID, agentID, query string) error

	// AppendTurn adds a turn to the session's conversation history.
	AppendTurn(ctx context.Context, sessionID string, turn *Turn) error
	// Conversation returns up to limit most recent turns, oldest first.
	// A limit <= 0 returns the full retained history.
	Conversation(ctx context.Context, sessionID string, limit int) ([]*Turn, error)

	// ClearExpired drops expired contexts and returns how many were removed.
	ClearExpired(ctx context.Context) (int, error)
	// Stats reports store-wide counters.
	Stats(ctx context.Context) (*Stats, error)
	// Close releases store resources.
	Close() error
}
