package tool

import (
	"regexp"
	"strings"
)

// dangerous statements, blocked unless drops are allowed
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bDROP\s+TABLE\b`),
	regexp.MustCompile(`(?i)\bDROP\s+DATABASE\b`),
	regexp.MustCompile(`(?i)\bTRUNCATE\b`),
	regexp.MustCompile(`(?i)\bDELETE\s+FROM\b.*\bWHERE\s+1\s*=\s*1\b`),
	regexp.MustCompile(`(?i)\bEXEC\s*\(`),
	regexp.MustCompile(`(?i)\bEXECUTE\s*\(`),
	regexp.MustCompile(`(?i);\s*DROP\b`),
	regexp.MustCompile(`(?i)--\s*DROP\b`),
	regexp.MustCompile(`(?i)/\*.*DROP.*\*/`),
}

// injection signatures, reported as warnings
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)'\s*OR\s+'1'\s*=\s*'1`),
	regexp.MustCompile(`(?i)'\s*OR\s+1\s*=\s*1`),
	regexp.MustCompile(`(?i)'\s*;\s*--`),
	regexp.MustCompile(`(?i)'\s*UNION\s+SELECT`),
	regexp.MustCompile(`(?i)'\s*AND\s+'1'\s*=\s*'1`),
}

var modificationPatterns = map[string]*regexp.Regexp{
	"INSERT": regexp.MustCompile(`(?i)\bINSERT\b`),
	"UPDATE": regexp.MustCompile(`(?i)\bUPDATE\b`),
	"DELETE": regexp.MustCompile(`(?i)\bDELETE\b`),
	"MERGE":  regexp.MustCompile(`(?i)\bMERGE\b`),
}

var modificationOrder = []string{"INSERT", "UPDATE", "DELETE", "MERGE"}

var (
	reUpdate     = regexp.MustCompile(`(?i)\bUPDATE\b`)
	reDeleteFrom = regexp.MustCompile(`(?i)\bDELETE\s+FROM\b`)
	reWhere      = regexp.MustCompile(`(?i)\bWHERE\b`)
	reSelectStar = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	reSelect     = regexp.MustCompile(`(?i)\bSELECT\b`)
	reLimit      = regexp.MustCompile(`(?i)\bLIMIT\b`)

	reLineComment  = regexp.MustCompile(`--[^\n]*`)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// ValidationResult is the outcome of checking one SQL statement.
type ValidationResult struct {
	IsValid       bool     `json:"is_valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Suggestions   []string `json:"suggestions"`
	QueryType     string   `json:"query_type"`
	SecurityScore float64  `json:"security_score"`
}

// SanitizeResult describes the changes made while cleaning a statement.
type SanitizeResult struct {
	OriginalQuery  string   `json:"original_query"`
	SanitizedQuery string   `json:"sanitized_query"`
	Changes        []string `json:"changes"`
	WasModified    bool     `json:"was_modified"`
}

// QueryValidator checks SQL statements for destructive operations,
// injection signatures and common mistakes.
type QueryValidator struct{}

func NewQueryValidator() *QueryValidator {
	return &QueryValidator{}
}

// Validate checks a statement. Modification statements and drops are
// rejected unless explicitly allowed.
func (v *QueryValidator) Validate(query string, allowModifications, allowDrops bool) *ValidationResult {
	result := &ValidationResult{
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
	}

	if strings.TrimSpace(query) == "" {
		result.Errors = append(result.Errors, "Query is empty")
		result.QueryType = "UNKNOWN"
		return result
	}

	if !allowDrops {
		for _, pattern := range dangerousPatterns {
			if pattern.MatchString(query) {
				result.Errors = append(result.Errors, "Dangerous operation detected: "+pattern.String())
			}
		}
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(query) {
			result.Warnings = append(result.Warnings, "Suspicious pattern detected (possible SQL injection): "+pattern.String())
		}
	}

	if !allowModifications {
		for _, keyword := range modificationOrder {
			if modificationPatterns[keyword].MatchString(query) {
				result.Errors = append(result.Errors, "Modification operation '"+keyword+"' not allowed")
			}
		}
	}

	if strings.Count(query, ";") > 1 {
		result.Warnings = append(result.Warnings, "Multiple SQL statements detected - ensure this is intentional")
	}

	if reUpdate.MatchString(query) && !reWhere.MatchString(query) {
		result.Warnings = append(result.Warnings, "UPDATE without WHERE clause - will affect all rows")
	}
	if reDeleteFrom.MatchString(query) && !reWhere.MatchString(query) {
		result.Warnings = append(result.Warnings, "DELETE without WHERE clause - will delete all rows")
	}

	if reSelectStar.MatchString(query) {
		result.Suggestions = append(result.Suggestions, "Consider specifying column names instead of SELECT *")
	}
	if reSelect.MatchString(query) && !reLimit.MatchString(query) {
		result.Suggestions = append(result.Suggestions, "Consider adding LIMIT clause to prevent large result sets")
	}

	if strings.Count(query, "(") != strings.Count(query, ")") {
		result.Errors = append(result.Errors, "Unbalanced parentheses")
	}
	if strings.Count(query, "'")%2 != 0 {
		result.Warnings = append(result.Warnings, "Unmatched single quotes - check string literals")
	}

	result.IsValid = len(result.Errors) == 0
	result.QueryType = DetectQueryType(query)
	result.SecurityScore = securityScore(len(result.Errors), len(result.Warnings))
	return result
}

// Sanitize strips comments and extra statement separators.
func (v *QueryValidator) Sanitize(query string) *SanitizeResult {
	result := &SanitizeResult{OriginalQuery: query, Changes: []string{}}
	sanitized := query

	if strings.Contains(sanitized, "--") {
		sanitized = reLineComment.ReplaceAllString(sanitized, "")
		result.Changes = append(result.Changes, "Removed SQL comments")
	}
	if strings.Contains(sanitized, "/*") {
		sanitized = reBlockComment.ReplaceAllString(sanitized, "")
		result.Changes = append(result.Changes, "Removed block comments")
	}
	if n := strings.Count(sanitized, ";"); n > 1 {
		// keep only the final separator
		sanitized = strings.Replace(sanitized, ";", " ", n-1)
		result.Changes = append(result.Changes, "Removed multiple statement separators")
	}

	result.SanitizedQuery = strings.TrimSpace(sanitized)
	result.WasModified = len(result.Changes) > 0
	return result
}

// DetectQueryType classifies a statement by its leading keyword.
func DetectQueryType(query string) string {
	head := strings.ToUpper(strings.TrimSpace(query))
	for _, t := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "ALTER", "DROP"} {
		if strings.HasPrefix(head, t) {
			return t
		}
	}
	return "UNKNOWN"
}

// securityScore rates a statement from 0 to 100, higher is safer.
func securityScore(errorCount, warningCount int) float64 {
	score := 100.0 - float64(errorCount)*30 - float64(warningCount)*10
	if score < 0 {
		return 0
	}
	return score
}
