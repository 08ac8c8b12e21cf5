package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrUnsupportedType is returned when a connection names a database type
// that has no live driver. Such types still appear in the supported
// databases catalog but cannot be connected to.
var ErrUnsupportedType = errors.New("no driver available for database type")

// Driver is a live handle to one database.
type Driver interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error
	// Introspect reads the database structure.
	Introspect(ctx context.Context) (*DatabaseSchema, error)
	// Query runs a statement. Rows of SELECT-like statements are capped
	// at limit; other statements report rows affected.
	Query(ctx context.Context, query string, limit int) (*QueryResult, error)
	// Close releases the underlying pool.
	Close() error
}

// openDriver opens a driver for the connection settings.
func openDriver(conn *Connection) (Driver, error) {
	switch conn.Type {
	case PostgreSQL:
		return openPostgres(conn)
	case MySQL:
		return openMySQL(conn)
	case SQLite:
		return openSQLite(conn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, conn.Type)
	}
}

// isRowQuery reports whether the statement produces a result set.
func isRowQuery(query string) bool {
	head := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

// runQuery executes a statement through gorm and shapes the result.
func runQuery(ctx context.Context, db *gorm.DB, query string, limit int) (*QueryResult, error) {
	start := time.Now()

	if !isRowQuery(query) {
		tx := db.WithContext(ctx).Exec(query)
		if tx.Error != nil {
			return nil, fmt.Errorf("failed to execute statement: %w", tx.Error)
		}
		return &QueryResult{
			Columns:         []string{},
			Rows:            [][]any{},
			RowsAffected:    tx.RowsAffected,
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	rows, err := db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if limit > 0 && len(result.Rows) >= limit {
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			// drivers return []byte for text columns
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	result.RowCount = len(result.Rows)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func pingGorm(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}
