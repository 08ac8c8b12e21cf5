package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aurastack/aura/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedClient returns canned responses in order, recording the
// prompts it was asked to complete.
type scriptedClient struct {
	responses []string
	err       error
	prompts   []string
}

func (s *scriptedClient) Complete(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	}
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

func TestGeneratorStripsCodeFences(t *testing.T) {
	client := &scriptedClient{responses: []string{"```sql\nSELECT 1;\n```"}}
	g := NewGenerator(zap.NewNop(), client)

	sql, err := g.Generate(context.Background(), "count everything", "", "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", sql)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "count everything")
	assert.NotContains(t, client.prompts[0], "rework attempt")
}

func TestGeneratorIncludesReworkFeedback(t *testing.T) {
	client := &scriptedClient{responses: []string{"SELECT 2;"}}
	g := NewGenerator(zap.NewNop(), client)

	_, err := g.Generate(context.Background(), "count", "schema: sales_table", "use an explicit column list")
	require.NoError(t, err)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "rework attempt")
	assert.Contains(t, client.prompts[0], "use an explicit column list")
	assert.Contains(t, client.prompts[0], "schema: sales_table")
}

func TestGeneratorDefaultsDialectAndContext(t *testing.T) {
	client := &scriptedClient{responses: []string{"SELECT 3;"}}
	g := NewGenerator(zap.NewNop(), client)

	_, err := g.Generate(context.Background(), "count", "", "")
	require.NoError(t, err)
	assert.Contains(t, client.prompts[0], "PostgreSQL")
	assert.Contains(t, client.prompts[0], "No schema context provided.")
}

func TestCriticParsesVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		valid    bool
		reason   string
	}{
		{
			name:     "valid verdict",
			response: `{"is_valid": true, "reason": "query matches the request"}`,
			valid:    true,
			reason:   "query matches the request",
		},
		{
			name:     "invalid with suggestion",
			response: `{"is_valid": false, "reason": "missing GROUP BY", "rework_suggestion": "group by month"}`,
			valid:    false,
			reason:   "missing GROUP BY",
		},
		{
			name:     "fenced json",
			response: "Here is my review:\n```json\n{\"is_valid\": true, \"reason\": \"ok\"}\n```",
			valid:    true,
			reason:   "ok",
		},
		{
			name:     "malformed response",
			response: "I cannot review this query.",
			valid:    false,
			reason:   "reviewer returned a malformed response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCritic(zap.NewNop(), &scriptedClient{responses: []string{tt.response}})
			verdict, err := c.Review(context.Background(), "prompt", "SELECT 1;")
			require.NoError(t, err)
			assert.Equal(t, tt.valid, verdict.IsValid)
			assert.Equal(t, tt.reason, verdict.Reason)
		})
	}
}

func TestOrchestratorValidFirstAttempt(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"SELECT product_name FROM sales_table;",
		`{"is_valid": true, "reason": "looks correct"}`,
	}}
	o := newTestOrchestrator(client)

	outcome, err := o.GenerateQuery(context.Background(), "sess-1", "list products", "")
	require.NoError(t, err)
	assert.Equal(t, "Success", outcome.Status)
	assert.Equal(t, "SELECT product_name FROM sales_table;", outcome.FinalQuery)
	assert.Equal(t, "looks correct", outcome.Details)
	assert.Equal(t, 1, outcome.Attempts)
	assert.True(t, strings.HasPrefix(outcome.JobID, "job_sess-1_"))
}

func TestOrchestratorReworkThenValid(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"SELECT * FROM sales_table;",
		`{"is_valid": false, "reason": "avoid SELECT *", "rework_suggestion": "name the columns"}`,
		"SELECT product_name FROM sales_table;",
		`{"is_valid": true, "reason": "fixed"}`,
	}}
	o := newTestOrchestrator(client)

	outcome, err := o.GenerateQuery(context.Background(), "sess-2", "list products", "")
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, "SELECT product_name FROM sales_table;", outcome.FinalQuery)

	// second generator prompt carries the critic's suggestion
	require.Len(t, client.prompts, 4)
	assert.Contains(t, client.prompts[2], "name the columns")
}

func TestOrchestratorFallbackAfterExhaustion(t *testing.T) {
	rejected := `{"is_valid": false, "reason": "nope", "rework_suggestion": "try again"}`
	client := &scriptedClient{responses: []string{
		"SELECT 1;", rejected,
		"SELECT 2;", rejected,
		"SELECT 3;", rejected,
	}}
	o := newTestOrchestrator(client)

	outcome, err := o.GenerateQuery(context.Background(), "sess-3", "show me top products", "")
	require.NoError(t, err)
	assert.Equal(t, "Success", outcome.Status)
	assert.Equal(t, "Demo mode - using fallback SQL generation", outcome.Details)
	assert.Equal(t, MaxReworkAttempts, outcome.Attempts)
	assert.Contains(t, outcome.FinalQuery, "ORDER BY total_revenue DESC LIMIT 10")
}

func TestOrchestratorGeneratorError(t *testing.T) {
	o := newTestOrchestrator(&scriptedClient{err: errors.New("upstream unavailable")})

	_, err := o.GenerateQuery(context.Background(), "sess-4", "anything", "")
	assert.ErrorContains(t, err, "upstream unavailable")
}

func TestFallbackSQLPatterns(t *testing.T) {
	assert.Contains(t, fallbackSQL("top 10 products"), "LIMIT 10")
	assert.Contains(t, fallbackSQL("revenue by month"), "DATE_FORMAT")
	assert.Contains(t, fallbackSQL("sales over 10k"), "total_revenue > 10000")
	assert.Contains(t, fallbackSQL("something else entirely"), "ORDER BY sale_date DESC LIMIT 5")
}

func newTestOrchestrator(client llm.ChatClient) *Orchestrator {
	logger := zap.NewNop()
	return NewOrchestrator(logger, NewGenerator(logger, client), NewCritic(logger, client))
}
