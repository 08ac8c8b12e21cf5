package connection

import (
	"time"
)

// DatabaseType identifies a supported database backend.
type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgresql"
	MySQL      DatabaseType = "mysql"
	SQLite     DatabaseType = "sqlite"
	MSSQL      DatabaseType = "mssql"
	Oracle     DatabaseType = "oracle"
	MongoDB    DatabaseType = "mongodb"
	Snowflake  DatabaseType = "snowflake"
	BigQuery   DatabaseType = "bigquery"
	Redshift   DatabaseType = "redshift"
	Databricks DatabaseType = "databricks"
	ClickHouse DatabaseType = "clickhouse"
	Cassandra  DatabaseType = "cassandra"
)

// AllDatabaseTypes lists every type exposed by the supported-databases
// catalog, in a stable order.
var AllDatabaseTypes = []DatabaseType{
	PostgreSQL, MySQL, SQLite, MSSQL, Oracle, MongoDB,
	Snowflake, BigQuery, Redshift, Databricks, ClickHouse, Cassandra,
}

// DefaultPort returns the conventional port for the database type.
// SQLite is file-based and has no port.
func (t DatabaseType) DefaultPort() int {
	switch t {
	case PostgreSQL:
		return 5432
	case MySQL:
		return 3306
	case SQLite:
		return 0
	case MSSQL:
		return 1433
	case Oracle:
		return 1521
	case MongoDB:
		return 27017
	case Snowflake, BigQuery, Databricks:
		return 443
	case Redshift:
		return 5439
	case ClickHouse:
		return 8123
	case Cassandra:
		return 9042
	default:
		return 5432
	}
}

// Description returns a short human readable summary of the database type.
func (t DatabaseType) Description() string {
	switch t {
	case PostgreSQL:
		return "Advanced open-source relational database"
	case MySQL:
		return "Popular open-source relational database"
	case SQLite:
		return "Lightweight file-based database"
	case MSSQL:
		return "Microsoft SQL Server"
	case Oracle:
		return "Enterprise database system"
	case MongoDB:
		return "Document-oriented NoSQL database"
	case Snowflake:
		return "Cloud-native data warehouse"
	case BigQuery:
		return "Google Cloud data warehouse"
	case Redshift:
		return "Amazon data warehouse"
	case Databricks:
		return "Unified analytics platform"
	case ClickHouse:
		return "Column-oriented database for analytics"
	case Cassandra:
		return "Distributed NoSQL database"
	default:
		return "Database system"
	}
}

// Connection holds the settings for one registered database.
type Connection struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Type             DatabaseType   `json:"type"`
	Host             string         `json:"host"`
	Port             int            `json:"port"`
	Database         string         `json:"database"`
	Username         string         `json:"username"`
	Password         string         `json:"-"`
	SSLEnabled       bool           `json:"ssl_enabled"`
	ConnectionString string         `json:"connection_string,omitempty"`
	IsActive         bool           `json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Column describes one column of a table or view.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// ForeignKey describes a foreign key constraint.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// Index describes an index on a table.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableSchema describes one table or view.
type TableSchema struct {
	Name        string       `json:"name"`
	Schema      string       `json:"schema"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Indexes     []Index      `json:"indexes"`
	RowCount    int64        `json:"row_count"`
	TableType   string       `json:"table_type"`
	Description string       `json:"description,omitempty"`
}

// DatabaseSchema is the introspected structure of one database.
type DatabaseSchema struct {
	ConnectionID string        `json:"connection_id"`
	Schemas      []string      `json:"schemas"`
	Tables       []TableSchema `json:"tables"`
	Views        []TableSchema `json:"views"`
	LastUpdated  time.Time     `json:"last_updated"`
}

// QueryResult is the outcome of a SELECT or modification statement.
type QueryResult struct {
	Columns         []string `json:"columns"`
	Rows            [][]any  `json:"rows"`
	RowCount        int      `json:"row_count"`
	RowsAffected    int64    `json:"rows_affected"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
}
