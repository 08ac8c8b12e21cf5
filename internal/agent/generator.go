package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurastack/aura/internal/llm"

	"go.uber.org/zap"
)

// Generator turns natural language questions into SQL statements,
// optionally incorporating rework feedback from the critic.
type Generator struct {
	logger *zap.Logger
	client llm.ChatClient
}

func NewGenerator(logger *zap.Logger, client llm.ChatClient) *Generator {
	return &Generator{
		logger: logger.Named("agent.generator"),
		client: client,
	}
}

// Generate produces a SQL statement for the prompt. reworkFeedback from
// a failed review is folded into the request when present.
func (g *Generator) Generate(ctx context.Context, prompt, dbContext, reworkFeedback string) (string, error) {
	rendered, err := renderTemplate(generatorPrompt, generatorPromptData{
		Context:        dbContext,
		Prompt:         prompt,
		ReworkFeedback: reworkFeedback,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render generator prompt: %w", err)
	}

	response, err := g.client.Complete(ctx, []llm.ChatMessage{
		{Role: "user", Content: rendered},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	sql := stripCodeFences(response)
	g.logger.Debug("generated SQL",
		zap.Int("prompt_len", len(prompt)),
		zap.Bool("rework", reworkFeedback != ""))
	return sql, nil
}

// stripCodeFences removes markdown fencing models tend to wrap SQL in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```sql", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
