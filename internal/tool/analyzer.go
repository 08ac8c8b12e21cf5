package tool

import (
	"fmt"
	"strings"

	"github.com/aurastack/aura/internal/connection"
)

const (
	largeTableRows   = 100000
	wideTableColumns = 30
)

// SchemaInsight flags one notable property of a schema.
type SchemaInsight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details []any  `json:"details"`
}

// SchemaAnalysis is the outcome of inspecting a full database schema.
type SchemaAnalysis struct {
	Statistics      map[string]int  `json:"statistics"`
	Insights        []SchemaInsight `json:"insights"`
	Recommendations []string        `json:"recommendations"`
	QualityScore    float64         `json:"quality_score"`
}

// IndexSuggestion proposes one new index.
type IndexSuggestion struct {
	Column   string `json:"column"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

// IndexReport lists suggested indexes for one table.
type IndexReport struct {
	Table            string            `json:"table"`
	ExistingIndexes  int               `json:"existing_indexes"`
	Suggestions      []IndexSuggestion `json:"suggestions"`
	TotalSuggestions int               `json:"total_suggestions"`
}

// Relationship links two tables through a column.
type Relationship struct {
	Type       string `json:"type"`
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	Confidence string `json:"confidence"`
}

// RelationshipReport summarizes discovered table relationships.
type RelationshipReport struct {
	TotalRelationships    int            `json:"total_relationships"`
	ExplicitRelationships int            `json:"explicit_relationships"`
	ImplicitRelationships int            `json:"implicit_relationships"`
	Relationships         []Relationship `json:"relationships"`
}

// SchemaAnalyzer inspects database schemas for quality problems, index
// candidates and table relationships.
type SchemaAnalyzer struct{}

func NewSchemaAnalyzer() *SchemaAnalyzer {
	return &SchemaAnalyzer{}
}

// Analyze reports statistics, insights and a quality score for a schema.
func (a *SchemaAnalyzer) Analyze(schema *connection.DatabaseSchema) *SchemaAnalysis {
	analysis := &SchemaAnalysis{
		Statistics:      make(map[string]int),
		Insights:        []SchemaInsight{},
		Recommendations: []string{},
	}

	totalColumns := 0
	for _, t := range schema.Tables {
		totalColumns += len(t.Columns)
	}
	analysis.Statistics["total_tables"] = len(schema.Tables)
	analysis.Statistics["total_views"] = len(schema.Views)
	analysis.Statistics["total_columns"] = totalColumns

	var largeTables, wideTables []any
	var tablesWithoutPK []any
	for _, t := range schema.Tables {
		qualified := t.Schema + "." + t.Name
		if t.RowCount > largeTableRows {
			largeTables = append(largeTables, map[string]any{"table": qualified, "rows": t.RowCount})
		}
		if len(t.PrimaryKeys) == 0 {
			tablesWithoutPK = append(tablesWithoutPK, qualified)
		}
		if len(t.Columns) > wideTableColumns {
			wideTables = append(wideTables, map[string]any{"table": qualified, "columns": len(t.Columns)})
		}
	}

	if len(largeTables) > 0 {
		analysis.Insights = append(analysis.Insights, SchemaInsight{
			Type:    "performance",
			Message: fmt.Sprintf("Found %d large tables that may benefit from indexing", len(largeTables)),
			Details: topN(largeTables, 5),
		})
		analysis.Recommendations = append(analysis.Recommendations,
			"Consider using LIMIT clauses when querying large tables")
	}
	if len(tablesWithoutPK) > 0 {
		analysis.Insights = append(analysis.Insights, SchemaInsight{
			Type:    "schema_quality",
			Message: fmt.Sprintf("Found %d tables without primary keys", len(tablesWithoutPK)),
			Details: topN(tablesWithoutPK, 5),
		})
		analysis.Recommendations = append(analysis.Recommendations,
			"Tables without primary keys may cause performance issues")
	}
	if len(wideTables) > 0 {
		analysis.Insights = append(analysis.Insights, SchemaInsight{
			Type:    "schema_design",
			Message: fmt.Sprintf("Found %d tables with many columns", len(wideTables)),
			Details: topN(wideTables, 5),
		})
		analysis.Recommendations = append(analysis.Recommendations,
			"SELECT only required columns instead of SELECT * for wide tables")
	}

	analysis.QualityScore = qualityScore(len(tablesWithoutPK), len(schema.Tables), len(largeTables))
	return analysis
}

// SuggestIndexes proposes single-column indexes for unindexed columns
// that look like join keys, temporal filters or searched strings.
func (a *SchemaAnalyzer) SuggestIndexes(table *connection.TableSchema) *IndexReport {
	report := &IndexReport{
		Table:           table.Name,
		ExistingIndexes: len(table.Indexes),
		Suggestions:     []IndexSuggestion{},
	}

	indexed := make(map[string]bool)
	for _, idx := range table.Indexes {
		for _, col := range idx.Columns {
			indexed[col] = true
		}
	}

	for _, col := range table.Columns {
		if indexed[col.Name] {
			continue
		}
		nameLower := strings.ToLower(col.Name)
		typeLower := strings.ToLower(col.Type)

		if strings.Contains(nameLower, "id") && col.Name != "id" {
			report.Suggestions = append(report.Suggestions, IndexSuggestion{
				Column:   col.Name,
				Type:     "single_column",
				Reason:   "Appears to be a foreign key",
				Priority: "high",
			})
		}
		if strings.Contains(typeLower, "date") || strings.Contains(typeLower, "timestamp") || strings.Contains(typeLower, "time") {
			report.Suggestions = append(report.Suggestions, IndexSuggestion{
				Column:   col.Name,
				Type:     "single_column",
				Reason:   "Date columns are often used in WHERE and ORDER BY",
				Priority: "medium",
			})
		}
		if strings.Contains(typeLower, "varchar") || strings.Contains(typeLower, "text") {
			if strings.Contains(nameLower, "email") || strings.Contains(nameLower, "name") || strings.Contains(nameLower, "code") {
				report.Suggestions = append(report.Suggestions, IndexSuggestion{
					Column:   col.Name,
					Type:     "single_column",
					Reason:   "Commonly searched string column",
					Priority: "medium",
				})
			}
		}
	}

	report.TotalSuggestions = len(report.Suggestions)
	return report
}

// FindRelationships discovers explicit foreign keys and implicit links
// from "_id" naming conventions.
func (a *SchemaAnalyzer) FindRelationships(schema *connection.DatabaseSchema) *RelationshipReport {
	report := &RelationshipReport{Relationships: []Relationship{}}

	tableNames := make(map[string]bool, len(schema.Tables))
	for _, t := range schema.Tables {
		tableNames[t.Name] = true
	}

	explicit := make(map[string]bool)
	for _, t := range schema.Tables {
		for _, fk := range t.ForeignKeys {
			report.Relationships = append(report.Relationships, Relationship{
				Type:       "explicit",
				FromTable:  t.Name,
				FromColumn: fk.Column,
				ToTable:    fk.ReferencedTable,
				ToColumn:   fk.ReferencedColumn,
				Confidence: "high",
			})
			explicit[t.Name+"."+fk.Column+"->"+fk.ReferencedTable] = true
		}
	}

	for _, t := range schema.Tables {
		for _, col := range t.Columns {
			if !strings.HasSuffix(col.Name, "_id") || col.Name == "id" {
				continue
			}
			target := strings.TrimSuffix(col.Name, "_id")
			if !tableNames[target] {
				continue
			}
			if explicit[t.Name+"."+col.Name+"->"+target] {
				continue
			}
			report.Relationships = append(report.Relationships, Relationship{
				Type:       "implicit",
				FromTable:  t.Name,
				FromColumn: col.Name,
				ToTable:    target,
				ToColumn:   "id",
				Confidence: "medium",
			})
		}
	}

	for _, r := range report.Relationships {
		if r.Type == "explicit" {
			report.ExplicitRelationships++
		} else {
			report.ImplicitRelationships++
		}
	}
	report.TotalRelationships = len(report.Relationships)
	return report
}

func topN(items []any, n int) []any {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// qualityScore rates schema health from 0 to 100.
func qualityScore(tablesWithoutPK, totalTables, largeTables int) float64 {
	if totalTables == 0 {
		return 0
	}
	score := 100.0
	score -= float64(tablesWithoutPK) / float64(totalTables) * 40
	if float64(largeTables)/float64(totalTables) > 0.5 {
		score -= 20
	}
	if score < 0 {
		return 0
	}
	return score
}
