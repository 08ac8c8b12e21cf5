package protocol

// MessageType identifies an MCP protocol message kind.
type MessageType string

const (
	ContextRequest  MessageType = "context_request"
	ContextResponse MessageType = "context_response"
	ContextUpdate   MessageType = "context_update"
	ToolCall        MessageType = "tool_call"
	ToolResponse    MessageType = "tool_response"
	AgentHandoff    MessageType = "agent_handoff"
	ErrorMessage    MessageType = "error"
)

// Message is the envelope exchanged between agents and the MCP server.
type Message struct {
	MessageID   string         `json:"message_id"`
	MessageType MessageType    `json:"message_type"`
	SenderID    string         `json:"sender_id"`
	RecipientID string         `json:"recipient_id,omitempty"`
	SessionID   string         `json:"session_id"`
	Payload     map[string]any `json:"payload"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RouteResult reports the outcome of dispatching one message.
type RouteResult struct {
	Success   bool           `json:"success"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
}

// Stats summarizes handler activity.
type Stats struct {
	TotalMessages     int            `json:"total_messages"`
	ProcessedMessages int            `json:"processed_messages"`
	MessageTypes      map[string]int `json:"message_types"`
	ActiveSessions    int            `json:"active_sessions"`
}
