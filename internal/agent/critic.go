package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurastack/aura/internal/llm"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Validation is the critic's verdict on a generated SQL statement.
type Validation struct {
	IsValid          bool   `json:"is_valid"`
	Reason           string `json:"reason"`
	ReworkSuggestion string `json:"rework_suggestion,omitempty"`
}

// Critic reviews generated SQL for correctness, security and alignment
// with the user's original request.
type Critic struct {
	logger *zap.Logger
	client llm.ChatClient
}

func NewCritic(logger *zap.Logger, client llm.ChatClient) *Critic {
	return &Critic{
		logger: logger.Named("agent.critic"),
		client: client,
	}
}

// Review asks the model to judge the SQL against the original prompt.
// A malformed model response counts as an invalid verdict, not an error,
// so the rework loop can retry.
func (c *Critic) Review(ctx context.Context, originalPrompt, sql string) (*Validation, error) {
	rendered, err := renderTemplate(criticPrompt, criticPromptData{
		Prompt: originalPrompt,
		SQL:    sql,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render critic prompt: %w", err)
	}

	response, err := c.client.Complete(ctx, []llm.ChatMessage{
		{Role: "user", Content: rendered},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to review SQL: %w", err)
	}

	verdict := parseValidation(response)
	c.logger.Debug("reviewed SQL",
		zap.Bool("is_valid", verdict.IsValid),
		zap.String("reason", verdict.Reason))
	return verdict, nil
}

// parseValidation reads the verdict out of the model's response,
// tolerating surrounding prose and code fences.
func parseValidation(response string) *Validation {
	response = extractJSONObject(response)
	isValid := gjson.Get(response, "is_valid")
	if !isValid.Exists() {
		return &Validation{
			IsValid:          false,
			Reason:           "reviewer returned a malformed response",
			ReworkSuggestion: "Regenerate the query and keep it simple.",
		}
	}
	return &Validation{
		IsValid:          isValid.Bool(),
		Reason:           gjson.Get(response, "reason").String(),
		ReworkSuggestion: gjson.Get(response, "rework_suggestion").String(),
	}
}

// extractJSONObject trims prose and fencing around the outermost object.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
