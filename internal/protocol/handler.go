package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ctxstore "github.com/aurastack/aura/internal/context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxProcessedHistory bounds the processed message ID log.
const maxProcessedHistory = 1000

// ToolExecutor runs named tools; satisfied by the tool registry.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, params map[string]any) (any, error)
}

type handlerFunc func(ctx context.Context, msg *Message) (map[string]any, error)

// Handler routes protocol messages to their type-specific handlers,
// backed by the context store and tool registry.
type Handler struct {
	logger *zap.Logger
	store  ctxstore.Store
	tools  ToolExecutor

	handlers map[MessageType]handlerFunc

	mu        sync.Mutex
	queue     []*Message
	processed []string
}

func NewHandler(logger *zap.Logger, store ctxstore.Store, tools ToolExecutor) *Handler {
	h := &Handler{
		logger: logger.Named("protocol.handler"),
		store:  store,
		tools:  tools,
	}
	h.handlers = map[MessageType]handlerFunc{
		ContextRequest: h.handleContextRequest,
		ContextUpdate:  h.handleContextUpdate,
		ToolCall:       h.handleToolCall,
		AgentHandoff:   h.handleAgentHandoff,
	}
	return h
}

// NewMessage builds a message with a fresh ID.
func NewMessage(messageType MessageType, senderID, sessionID string, payload map[string]any) *Message {
	return &Message{
		MessageID:   uuid.New().String(),
		MessageType: messageType,
		SenderID:    senderID,
		SessionID:   sessionID,
		Payload:     payload,
	}
}

// Route dispatches a message and records it in the queue. Handler
// failures are reported in the result rather than as an error.
func (h *Handler) Route(ctx context.Context, msg *Message) *RouteResult {
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}

	handler, ok := h.handlers[msg.MessageType]
	if !ok {
		return &RouteResult{
			Success: false,
			Error:   fmt.Sprintf("no handler for message type: %s", msg.MessageType),
		}
	}

	h.mu.Lock()
	h.queue = append(h.queue, msg)
	h.mu.Unlock()

	result, err := handler(ctx, msg)
	if err != nil {
		h.logger.Warn("message handler failed",
			zap.String("message_id", msg.MessageID),
			zap.String("message_type", string(msg.MessageType)),
			zap.Error(err))
		return &RouteResult{Success: false, Error: err.Error(), MessageID: msg.MessageID}
	}

	h.mu.Lock()
	h.processed = append(h.processed, msg.MessageID)
	h.mu.Unlock()

	return &RouteResult{Success: true, Result: result, MessageID: msg.MessageID}
}

// handleContextRequest fetches a context entry for the sender's session.
func (h *Handler) handleContextRequest(ctx context.Context, msg *Message) (map[string]any, error) {
	contextType, _ := msg.Payload["context_type"].(string)
	if contextType == "" {
		return nil, errors.New("context_type is required")
	}

	agentID := msg.SenderID
	if filters, ok := msg.Payload["filters"].(map[string]any); ok {
		if v, ok := filters["agent_id"].(string); ok && v != "" {
			agentID = v
		}
	}

	ac, err := h.store.Get(ctx, agentID, msg.SessionID, contextType)
	if err != nil {
		if errors.Is(err, ctxstore.ErrContextNotFound) {
			return map[string]any{
				"message_type": string(ContextResponse),
				"context_type": contextType,
				"found":        false,
			}, nil
		}
		return nil, err
	}
	return map[string]any{
		"message_type": string(ContextResponse),
		"context_type": contextType,
		"found":        true,
		"context_key":  ac.Key(),
		"context_data": ac.Data,
	}, nil
}

// handleContextUpdate merges payload data into the sender's context,
// creating it when absent.
func (h *Handler) handleContextUpdate(ctx context.Context, msg *Message) (map[string]any, error) {
	contextType, _ := msg.Payload["context_type"].(string)
	if contextType == "" {
		return nil, errors.New("context_type is required")
	}
	data, _ := msg.Payload["data"].(map[string]any)
	if data == nil {
		return nil, errors.New("data is required")
	}

	ac, err := h.store.Update(ctx, msg.SenderID, msg.SessionID, contextType, data)
	if errors.Is(err, ctxstore.ErrContextNotFound) {
		ac = &ctxstore.AgentContext{
			AgentID:   msg.SenderID,
			SessionID: msg.SessionID,
			Type:      contextType,
			Data:      data,
		}
		err = h.store.Set(ctx, ac)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message_type": "context_update_ack",
		"updated":      true,
		"context_key":  ac.Key(),
	}, nil
}

// handleToolCall executes the named tool unless it requires approval.
func (h *Handler) handleToolCall(ctx context.Context, msg *Message) (map[string]any, error) {
	toolName, _ := msg.Payload["tool_name"].(string)
	if toolName == "" {
		return nil, errors.New("tool_name is required")
	}
	params, _ := msg.Payload["tool_parameters"].(map[string]any)
	requiresApproval, _ := msg.Payload["requires_approval"].(bool)

	if requiresApproval {
		return map[string]any{
			"message_type":     string(ToolResponse),
			"tool_name":        toolName,
			"execution_status": "queued",
		}, nil
	}

	result, err := h.tools.Execute(ctx, toolName, params)
	if err != nil {
		return map[string]any{
			"message_type":     string(ToolResponse),
			"tool_name":        toolName,
			"execution_status": "failed",
			"success":          false,
			"error_message":    err.Error(),
		}, nil
	}
	return map[string]any{
		"message_type":     string(ToolResponse),
		"tool_name":        toolName,
		"execution_status": "completed",
		"success":          true,
		"result":           result,
	}, nil
}

// handleAgentHandoff stores a handoff context addressed to the target
// agent so it can pick the task up in the same session.
func (h *Handler) handleAgentHandoff(ctx context.Context, msg *Message) (map[string]any, error) {
	targetAgentID, _ := msg.Payload["target_agent_id"].(string)
	if targetAgentID == "" {
		return nil, errors.New("target_agent_id is required")
	}
	taskDescription, _ := msg.Payload["task_description"].(string)
	contextKeys := stringSlice(msg.Payload["context_keys"])

	err := h.store.Set(ctx, &ctxstore.AgentContext{
		AgentID:   targetAgentID,
		SessionID: msg.SessionID,
		Type:      "handoff",
		Data: map[string]any{
			"from_agent":       msg.SenderID,
			"task_description": taskDescription,
			"context_keys":     contextKeys,
		},
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message_type":             "handoff_ack",
		"target_agent":             targetAgentID,
		"task_queued":              true,
		"context_keys_transferred": contextKeys,
	}, nil
}

// Queue returns routed messages, optionally filtered by session.
func (h *Handler) Queue(sessionID string) []*Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionID == "" {
		result := make([]*Message, len(h.queue))
		copy(result, h.queue)
		return result
	}
	var result []*Message
	for _, msg := range h.queue {
		if msg.SessionID == sessionID {
			result = append(result, msg)
		}
	}
	return result
}

// ClearProcessed trims the processed log to the most recent entries.
func (h *Handler) ClearProcessed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.processed) > maxProcessedHistory {
		h.processed = h.processed[len(h.processed)-maxProcessedHistory:]
	}
}

// Stats reports queue and processing counters.
func (h *Handler) Stats() *Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := &Stats{
		TotalMessages:     len(h.queue),
		ProcessedMessages: len(h.processed),
		MessageTypes:      make(map[string]int),
	}
	sessions := make(map[string]struct{})
	for _, msg := range h.queue {
		stats.MessageTypes[string(msg.MessageType)]++
		sessions[msg.SessionID] = struct{}{}
	}
	stats.ActiveSessions = len(sessions)
	return stats
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
