package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrToolNotFound is returned when no tool matches the requested name.
var ErrToolNotFound = errors.New("tool not found")

// Handler executes a tool invocation.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Parameter describes one tool parameter.
type Parameter struct {
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Tool is a named capability agents can invoke through the MCP server.
type Tool struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Parameters  map[string]Parameter `json:"parameters"`
	Returns     map[string]any       `json:"returns,omitempty"`
	Handler     Handler              `json:"-"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Execute validates required parameters and runs the handler.
func (t *Tool) Execute(ctx context.Context, params map[string]any) (any, error) {
	for name, spec := range t.Parameters {
		if !spec.Required {
			continue
		}
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("missing required parameter: %s", name)
		}
	}
	result, err := t.Handler(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("tool execution failed: %w", err)
	}
	return result, nil
}

// Registry holds the tools available to agents.
type Registry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	tools map[string]*Tool
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger.Named("tool.registry"),
		tools:  make(map[string]*Tool),
	}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t *Tool) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	r.logger.Debug("registered tool",
		zap.String("tool_name", t.Name),
		zap.String("category", t.Category))
}

// Get returns the tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, ErrToolNotFound
	}
	return t, nil
}

// List returns all tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ListByCategory returns tools in the category sorted by name.
func (r *Registry) ListByCategory(category string) []*Tool {
	var result []*Tool
	for _, t := range r.List() {
		if t.Category == category {
			result = append(result, t)
		}
	}
	return result
}

// Remove drops a tool from the registry.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	return true
}

// Execute looks up a tool and runs it.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return t.Execute(ctx, params)
}
