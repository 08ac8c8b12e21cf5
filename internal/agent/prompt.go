package agent

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var generatorPrompt = template.Must(template.New("generator").Funcs(sprig.FuncMap()).Parse(strings.TrimSpace(`
You are an expert data analyst. Your task is to convert a user's question
into a syntactically correct SQL query for a {{ .Dialect | default "PostgreSQL" }} database.
Use the provided database schema context. Respond ONLY with the SQL query.

Database Schema Context:
{{ .Context | default "No schema context provided." }}

User's question:
{{ .Prompt }}
{{- if .ReworkFeedback }}

This is a rework attempt. The previous query was flawed.
Please correct it based on this feedback:
{{ .ReworkFeedback }}
{{- end }}
`)))

var criticPrompt = template.Must(template.New("critic").Funcs(sprig.FuncMap()).Parse(strings.TrimSpace(`
You are a senior data architect acting as a meticulous code reviewer.
Analyze the provided SQL query based on the user's original request.
Check for: 1. Syntactic correctness. 2. Security vulnerabilities.
3. Correctness in addressing the user's request.
Respond ONLY with a JSON object matching the specified format.

"user_request": {{ .Prompt | quote }},
"sql_query": {{ .SQL | quote }},

"response_format": {
    "is_valid": "boolean",
    "reason": "string",
    "rework_suggestion": "string (provide if invalid)"
}
`)))

type generatorPromptData struct {
	Dialect        string
	Context        string
	Prompt         string
	ReworkFeedback string
}

type criticPromptData struct {
	Prompt string
	SQL    string
}

func renderTemplate(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
