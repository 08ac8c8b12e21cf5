package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveReasoner_SimpleQuestion(t *testing.T) {
	r := NewRecursiveReasoner(0)

	result := r.Reason("show all users", nil, 0)
	assert.Equal(t, "show all users", result.Problem)
	assert.NotEmpty(t, result.Solution)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Equal(t, 1, result.StepsTaken)
	assert.Equal(t, 0, result.MaxDepthReached)
	assert.Empty(t, result.ReasoningTree.SubQuestions)
}

func TestRecursiveReasoner_DecomposesConjunction(t *testing.T) {
	r := NewRecursiveReasoner(0)

	problem := "calculate the total revenue per region and rank the regions by their quarterly growth percentage"
	result := r.Reason(problem, nil, 0)

	require.NotEmpty(t, result.ReasoningTree.SubQuestions)
	assert.Equal(t, 2, len(result.ReasoningTree.SubQuestions))
	assert.True(t, strings.HasPrefix(result.Solution, "To solve '"))
	assert.Greater(t, result.StepsTaken, 1)
	assert.Greater(t, result.MaxDepthReached, 0)
}

func TestRecursiveReasoner_DatabaseJoinDecomposition(t *testing.T) {
	r := NewRecursiveReasoner(0)

	problem := "construct a database query joining several normalized relation schemas with optimal ordering semantics applied"
	result := r.Reason(problem, nil, 0)

	require.Len(t, result.ReasoningTree.SubQuestions, 3)
	assert.Equal(t, "Identify the tables involved", result.ReasoningTree.SubQuestions[0].Question)
	// synthesized confidence carries the combination discount
	assert.InDelta(t, 0.8*0.95, result.Confidence, 0.001)
}

func TestRecursiveReasoner_SchemaContext(t *testing.T) {
	r := NewRecursiveReasoner(0)

	rctx := &ReasoningContext{TableNames: []string{"users", "orders"}}
	result := r.Reason("identify the tables in this database", rctx, 0)
	assert.Contains(t, result.Solution, "users, orders")
}

func TestRecursiveReasoner_MaxDepthBounds(t *testing.T) {
	r := NewRecursiveReasoner(2)

	problem := "analyze customer churn patterns against subscription tiers and compare retention outcomes across regional cohorts"
	result := r.Reason(problem, nil, 0)
	assert.LessOrEqual(t, result.MaxDepthReached, 2)
}

func TestRecursiveReasoner_Explain(t *testing.T) {
	r := NewRecursiveReasoner(0)

	result := r.Reason("list current sessions", nil, 0)
	explanation := r.Explain(result)
	assert.Contains(t, explanation, "Problem: list current sessions")
	assert.Contains(t, explanation, "Reasoning process:")
	assert.Contains(t, explanation, "Q: list current sessions")
}
