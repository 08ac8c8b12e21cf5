package agent

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAgentNotFound is returned when no agent matches the requested ID.
var ErrAgentNotFound = errors.New("agent not found")

// Status is the lifecycle state of an agent or task.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is one unit of work submitted to an agent.
type Task struct {
	TaskID      string         `json:"task_id"`
	TaskType    string         `json:"task_type"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Status      Status         `json:"status"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt time.Time      `json:"completed_at,omitzero"`
}

// NewTask builds a task with a fresh ID.
func NewTask(taskType, description string, parameters map[string]any) *Task {
	if parameters == nil {
		parameters = make(map[string]any)
	}
	return &Task{
		TaskID:      uuid.New().String(),
		TaskType:    taskType,
		Description: description,
		Parameters:  parameters,
		Status:      StatusIdle,
		CreatedAt:   time.Now(),
	}
}

func (t *Task) complete(result any) *Task {
	t.Result = result
	t.Status = StatusCompleted
	t.CompletedAt = time.Now()
	return t
}

func (t *Task) fail(err error) *Task {
	t.Error = err.Error()
	t.Status = StatusFailed
	t.CompletedAt = time.Now()
	return t
}

// Info describes an agent for listings.
type Info struct {
	AgentID     string    `json:"agent_id"`
	AgentType   string    `json:"agent_type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Status      Status    `json:"status"`
	Tools       []string  `json:"tools"`
	TaskCount   int       `json:"task_count"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// Agent is a specialized worker that executes typed tasks.
type Agent interface {
	// Info returns the agent's descriptor.
	Info() Info
	// ExecuteTask runs one task and returns it with result or error set.
	ExecuteTask(ctx context.Context, task *Task) *Task
}

// Registry tracks the agents available in the system.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	byType map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		byType: make(map[string][]string),
	}
}

// Register adds an agent to the registry.
func (r *Registry) Register(a Agent) {
	info := a.Info()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[info.AgentID] = a
	r.byType[info.AgentType] = append(r.byType[info.AgentType], info.AgentID)
}

// Unregister removes an agent.
func (r *Registry) Unregister(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return false
	}
	agentType := a.Info().AgentType
	delete(r.agents, agentID)

	ids := r.byType[agentType]
	for i, id := range ids {
		if id == agentID {
			r.byType[agentType] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the agent by ID.
func (r *Registry) Get(agentID string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return a, nil
}

// GetByType returns all agents of a type.
func (r *Registry) GetByType(agentType string) []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Agent
	for _, id := range r.byType[agentType] {
		if a, ok := r.agents[id]; ok {
			result = append(result, a)
		}
	}
	return result
}

// List returns descriptors for every registered agent sorted by ID.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Info, 0, len(r.agents))
	for _, a := range r.agents {
		result = append(result, a.Info())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AgentID < result[j].AgentID })
	return result
}

// Types returns the distinct agent types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.byType))
	for agentType := range r.byType {
		result = append(result, agentType)
	}
	sort.Strings(result)
	return result
}
