package tool

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds the reasoning tree.
const DefaultMaxDepth = 3

// ReasoningStep labels the role of a node in the reasoning tree.
type ReasoningStep string

const (
	StepAnalyze    ReasoningStep = "analyze"
	StepDecompose  ReasoningStep = "decompose"
	StepSolve      ReasoningStep = "solve"
	StepVerify     ReasoningStep = "verify"
	StepSynthesize ReasoningStep = "synthesize"
)

// ReasoningNode is one node of the reasoning tree.
type ReasoningNode struct {
	StepType     ReasoningStep    `json:"step_type"`
	Question     string           `json:"question"`
	Answer       string           `json:"answer,omitempty"`
	Confidence   float64          `json:"confidence"`
	Depth        int              `json:"depth"`
	SubQuestions []*ReasoningNode `json:"sub_questions"`
}

// ReasoningResult is the outcome of solving one problem.
type ReasoningResult struct {
	Problem         string         `json:"problem"`
	Solution        string         `json:"solution"`
	Confidence      float64        `json:"confidence"`
	ReasoningTree   *ReasoningNode `json:"reasoning_tree"`
	StepsTaken      int            `json:"steps_taken"`
	MaxDepthReached int            `json:"max_depth_reached"`
}

// ReasoningContext carries optional schema hints into the reasoner.
type ReasoningContext struct {
	TableNames  []string
	ColumnNames []string
}

// RecursiveReasoner breaks complex questions into sub-problems, solves
// the leaves with simple heuristics and synthesizes the answers back up.
type RecursiveReasoner struct {
	maxDepth int
}

func NewRecursiveReasoner(maxDepth int) *RecursiveReasoner {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &RecursiveReasoner{maxDepth: maxDepth}
}

// Reason solves the problem and returns the full reasoning tree.
func (r *RecursiveReasoner) Reason(problem string, rctx *ReasoningContext, maxDepth int) *ReasoningResult {
	if maxDepth <= 0 {
		maxDepth = r.maxDepth
	}
	if rctx == nil {
		rctx = &ReasoningContext{}
	}

	root := &ReasoningNode{StepType: StepAnalyze, Question: problem}
	r.solve(root, rctx, maxDepth)

	return &ReasoningResult{
		Problem:         problem,
		Solution:        root.Answer,
		Confidence:      root.Confidence,
		ReasoningTree:   root,
		StepsTaken:      countSteps(root),
		MaxDepthReached: maxTreeDepth(root),
	}
}

func (r *RecursiveReasoner) solve(node *ReasoningNode, rctx *ReasoningContext, maxDepth int) {
	if node.Depth >= maxDepth || isSimpleEnough(node.Question) {
		node.Answer = solveDirectly(node.Question, rctx)
		node.Confidence = 0.8
		return
	}

	subProblems := decompose(node.Question)
	if len(subProblems) == 0 {
		node.Answer = solveDirectly(node.Question, rctx)
		node.Confidence = 0.6
		return
	}

	for _, sub := range subProblems {
		subNode := &ReasoningNode{
			StepType: StepSolve,
			Question: sub,
			Depth:    node.Depth + 1,
		}
		node.SubQuestions = append(node.SubQuestions, subNode)
		r.solve(subNode, rctx, maxDepth)
	}

	node.Answer = synthesize(node)
	node.Confidence = combinedConfidence(node)
}

// isSimpleEnough gates direct solving: short questions and lookups.
func isSimpleEnough(question string) bool {
	if len(strings.Fields(question)) < 10 {
		return true
	}
	lower := strings.ToLower(question)
	for _, keyword := range []string{"what is", "show", "list", "get", "find", "count"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// decompose splits a problem into sub-problems, or returns nil when no
// decomposition pattern applies.
func decompose(problem string) []string {
	lower := strings.ToLower(problem)

	if strings.Contains(lower, " and ") {
		parts := strings.Split(problem, " and ")
		if len(parts) > 1 {
			subs := make([]string, 0, len(parts))
			for _, p := range parts {
				subs = append(subs, strings.TrimSpace(p))
			}
			return subs
		}
	}

	var subs []string
	if strings.Contains(lower, "database") || strings.Contains(lower, "query") {
		if strings.Contains(lower, "join") || strings.Contains(lower, "multiple tables") {
			subs = append(subs,
				"Identify the tables involved",
				"Determine the join conditions",
				"Construct the SELECT statement")
		} else if strings.Contains(lower, "aggregate") || strings.Contains(lower, "group by") {
			subs = append(subs,
				"Identify the aggregation columns",
				"Determine the grouping criteria",
				"Apply the aggregation function")
		}
	}
	if strings.Contains(lower, "analyze") || strings.Contains(lower, "compare") {
		subs = append(subs,
			"Extract the data",
			"Calculate relevant metrics",
			"Compare and interpret results")
	}
	if strings.Contains(lower, "where") && (strings.Contains(lower, "and") || strings.Contains(lower, "or")) {
		subs = append(subs,
			"Identify primary filter criteria",
			"Identify secondary filter criteria",
			"Combine filters logically")
	}
	return subs
}

// solveDirectly answers a simple question with heuristics.
func solveDirectly(question string, rctx *ReasoningContext) string {
	lower := strings.ToLower(question)

	if strings.Contains(lower, "database") || strings.Contains(lower, "table") {
		if strings.Contains(lower, "identify") && strings.Contains(lower, "tables") && len(rctx.TableNames) > 0 {
			names := rctx.TableNames
			if len(names) > 5 {
				names = names[:5]
			}
			return "Tables involved: " + strings.Join(names, ", ")
		}
		if strings.Contains(lower, "columns") && len(rctx.ColumnNames) > 0 {
			names := rctx.ColumnNames
			if len(names) > 5 {
				names = names[:5]
			}
			return "Columns: " + strings.Join(names, ", ")
		}
	}
	if strings.Contains(lower, "select") || strings.Contains(lower, "query") {
		return "Construct a SELECT query with appropriate columns and conditions"
	}
	if strings.Contains(lower, "join") {
		return "Use JOIN clause to combine data from multiple tables"
	}
	if strings.Contains(lower, "group") || strings.Contains(lower, "aggregate") {
		return "Apply GROUP BY with appropriate aggregation function (SUM, COUNT, AVG, etc.)"
	}
	return "Solution for: " + question
}

// synthesize combines sub-answers into one numbered solution.
func synthesize(node *ReasoningNode) string {
	var lines []string
	for i, sub := range node.SubQuestions {
		if sub.Answer != "" {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, sub.Answer))
		}
	}
	return fmt.Sprintf("To solve '%s':\n%s", node.Question, strings.Join(lines, "\n"))
}

// combinedConfidence averages sub-confidences with a synthesis discount.
func combinedConfidence(node *ReasoningNode) float64 {
	sum, n := 0.0, 0
	for _, sub := range node.SubQuestions {
		if sub.Confidence > 0 {
			sum += sub.Confidence
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n) * 0.95
}

func countSteps(node *ReasoningNode) int {
	count := 1
	for _, sub := range node.SubQuestions {
		count += countSteps(sub)
	}
	return count
}

func maxTreeDepth(node *ReasoningNode) int {
	deepest := node.Depth
	for _, sub := range node.SubQuestions {
		if d := maxTreeDepth(sub); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Explain renders a reasoning result as readable text.
func (r *RecursiveReasoner) Explain(result *ReasoningResult) string {
	lines := []string{
		"Problem: " + result.Problem,
		"Solution: " + result.Solution,
		fmt.Sprintf("Confidence: %.0f%%", result.Confidence*100),
		fmt.Sprintf("Steps taken: %d", result.StepsTaken),
		fmt.Sprintf("Maximum depth: %d", result.MaxDepthReached),
		"",
		"Reasoning process:",
	}
	explainNode(result.ReasoningTree, &lines, 0)
	return strings.Join(lines, "\n")
}

func explainNode(node *ReasoningNode, lines *[]string, indent int) {
	prefix := strings.Repeat("  ", indent)
	*lines = append(*lines, prefix+"Q: "+node.Question)
	if node.Answer != "" {
		*lines = append(*lines, fmt.Sprintf("%sA: %s (confidence: %.0f%%)", prefix, node.Answer, node.Confidence*100))
	}
	if len(node.SubQuestions) > 0 {
		*lines = append(*lines, prefix+"Sub-problems:")
		for _, sub := range node.SubQuestions {
			explainNode(sub, lines, indent+1)
		}
	}
}
