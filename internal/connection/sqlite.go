package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sqliteDriver struct {
	conn *Connection
	db   *gorm.DB
}

var _ Driver = (*sqliteDriver)(nil)

// openSQLite opens a file-based database. The Database field holds the
// file path; ":memory:" works as usual.
func openSQLite(conn *Connection) (Driver, error) {
	path := conn.ConnectionString
	if path == "" {
		path = conn.Database
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return &sqliteDriver{conn: conn, db: db}, nil
}

func (d *sqliteDriver) Ping(ctx context.Context) error {
	return pingGorm(ctx, d.db)
}

func (d *sqliteDriver) Query(ctx context.Context, query string, limit int) (*QueryResult, error) {
	return runQuery(ctx, d.db, query, limit)
}

func (d *sqliteDriver) Close() error {
	return closeGorm(d.db)
}

func (d *sqliteDriver) Introspect(ctx context.Context) (*DatabaseSchema, error) {
	schema := &DatabaseSchema{
		ConnectionID: d.conn.ID,
		Schemas:      []string{"main"},
		LastUpdated:  time.Now(),
	}

	var tableRows []struct {
		Name string
		Type string
	}
	err := d.db.WithContext(ctx).
		Raw(`SELECT name, type FROM sqlite_master
		     WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		     ORDER BY name`).
		Scan(&tableRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, row := range tableRows {
		ts, err := d.introspectTable(ctx, row.Name)
		if err != nil {
			return nil, err
		}
		if row.Type == "view" {
			ts.TableType = "VIEW"
			schema.Views = append(schema.Views, *ts)
		} else {
			ts.TableType = "TABLE"
			schema.Tables = append(schema.Tables, *ts)
		}
	}
	return schema, nil
}

func (d *sqliteDriver) introspectTable(ctx context.Context, tableName string) (*TableSchema, error) {
	ts := &TableSchema{
		Name:        tableName,
		Schema:      "main",
		PrimaryKeys: []string{},
		ForeignKeys: []ForeignKey{},
		Indexes:     []Index{},
	}

	var colRows []struct {
		Name      string
		Type      string
		NotNull   int
		DfltValue *string
		Pk        int
	}
	err := d.db.WithContext(ctx).
		Raw(fmt.Sprintf("PRAGMA table_info(%q)", tableName)).
		Scan(&colRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read columns for %s: %w", tableName, err)
	}
	for _, col := range colRows {
		c := Column{
			Name:     col.Name,
			Type:     col.Type,
			Nullable: col.NotNull == 0,
		}
		if col.DfltValue != nil {
			c.Default = *col.DfltValue
		}
		ts.Columns = append(ts.Columns, c)
		if col.Pk > 0 {
			ts.PrimaryKeys = append(ts.PrimaryKeys, col.Name)
		}
	}

	var fkRows []struct {
		Table string
		From  string
		To    string
	}
	err = d.db.WithContext(ctx).
		Raw(fmt.Sprintf("PRAGMA foreign_key_list(%q)", tableName)).
		Scan(&fkRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys for %s: %w", tableName, err)
	}
	for _, fk := range fkRows {
		ts.ForeignKeys = append(ts.ForeignKeys, ForeignKey{
			Column:           fk.From,
			ReferencedTable:  fk.Table,
			ReferencedColumn: fk.To,
		})
	}

	var idxRows []struct {
		Name   string
		Unique int
	}
	err = d.db.WithContext(ctx).
		Raw(fmt.Sprintf("PRAGMA index_list(%q)", tableName)).
		Scan(&idxRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes for %s: %w", tableName, err)
	}
	for _, row := range idxRows {
		var cols []struct {
			Name string
		}
		err = d.db.WithContext(ctx).
			Raw(fmt.Sprintf("PRAGMA index_info(%q)", row.Name)).
			Scan(&cols).Error
		if err != nil {
			return nil, fmt.Errorf("failed to read index columns for %s: %w", row.Name, err)
		}
		idx := Index{Name: row.Name, Unique: row.Unique == 1}
		for _, col := range cols {
			idx.Columns = append(idx.Columns, col.Name)
		}
		ts.Indexes = append(ts.Indexes, idx)
	}

	var rowCount int64
	err = d.db.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT COUNT(*) FROM %q", tableName)).
		Scan(&rowCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count rows for %s: %w", tableName, err)
	}
	ts.RowCount = rowCount
	return ts, nil
}
