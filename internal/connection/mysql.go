package connection

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type mysqlDriver struct {
	conn *Connection
	db   *gorm.DB
}

var _ Driver = (*mysqlDriver)(nil)

func openMySQL(conn *Connection) (Driver, error) {
	dsn := conn.ConnectionString
	if dsn == "" {
		tls := "false"
		if conn.SSLEnabled {
			tls = "true"
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&tls=%s",
			conn.Username, conn.Password, conn.Host, conn.Port, conn.Database, tls)
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	return &mysqlDriver{conn: conn, db: db}, nil
}

func (d *mysqlDriver) Ping(ctx context.Context) error {
	return pingGorm(ctx, d.db)
}

func (d *mysqlDriver) Query(ctx context.Context, query string, limit int) (*QueryResult, error) {
	return runQuery(ctx, d.db, query, limit)
}

func (d *mysqlDriver) Close() error {
	return closeGorm(d.db)
}

func (d *mysqlDriver) Introspect(ctx context.Context) (*DatabaseSchema, error) {
	schema := &DatabaseSchema{
		ConnectionID: d.conn.ID,
		Schemas:      []string{d.conn.Database},
		LastUpdated:  time.Now(),
	}

	var tableRows []struct {
		TableName string
		TableType string
		TableRows int64
	}
	err := d.db.WithContext(ctx).
		Raw(`SELECT table_name, table_type, COALESCE(table_rows, 0) AS table_rows
		     FROM information_schema.tables
		     WHERE table_schema = ?
		     ORDER BY table_name`, d.conn.Database).
		Scan(&tableRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, row := range tableRows {
		ts, err := d.introspectTable(ctx, row.TableName)
		if err != nil {
			return nil, err
		}
		ts.RowCount = row.TableRows
		if row.TableType == "VIEW" {
			ts.TableType = "VIEW"
			schema.Views = append(schema.Views, *ts)
		} else {
			ts.TableType = "TABLE"
			schema.Tables = append(schema.Tables, *ts)
		}
	}
	return schema, nil
}

func (d *mysqlDriver) introspectTable(ctx context.Context, tableName string) (*TableSchema, error) {
	ts := &TableSchema{
		Name:        tableName,
		Schema:      d.conn.Database,
		PrimaryKeys: []string{},
		ForeignKeys: []ForeignKey{},
		Indexes:     []Index{},
	}

	var colRows []struct {
		ColumnName    string
		ColumnType    string
		IsNullable    string
		ColumnDefault *string
		ColumnKey     string
	}
	err := d.db.WithContext(ctx).
		Raw(`SELECT column_name, column_type, is_nullable, column_default, column_key
		     FROM information_schema.columns
		     WHERE table_schema = ? AND table_name = ?
		     ORDER BY ordinal_position`, d.conn.Database, tableName).
		Scan(&colRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read columns for %s: %w", tableName, err)
	}
	for _, col := range colRows {
		c := Column{
			Name:     col.ColumnName,
			Type:     col.ColumnType,
			Nullable: col.IsNullable == "YES",
		}
		if col.ColumnDefault != nil {
			c.Default = *col.ColumnDefault
		}
		ts.Columns = append(ts.Columns, c)
		if col.ColumnKey == "PRI" {
			ts.PrimaryKeys = append(ts.PrimaryKeys, col.ColumnName)
		}
	}

	var fkRows []struct {
		ColumnName           string
		ReferencedTableName  string
		ReferencedColumnName string
	}
	err = d.db.WithContext(ctx).
		Raw(`SELECT column_name, referenced_table_name, referenced_column_name
		     FROM information_schema.key_column_usage
		     WHERE table_schema = ? AND table_name = ?
		       AND referenced_table_name IS NOT NULL`, d.conn.Database, tableName).
		Scan(&fkRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys for %s: %w", tableName, err)
	}
	for _, fk := range fkRows {
		ts.ForeignKeys = append(ts.ForeignKeys, ForeignKey{
			Column:           fk.ColumnName,
			ReferencedTable:  fk.ReferencedTableName,
			ReferencedColumn: fk.ReferencedColumnName,
		})
	}

	var idxRows []struct {
		IndexName  string
		ColumnName string
		NonUnique  int
	}
	err = d.db.WithContext(ctx).
		Raw(`SELECT index_name, column_name, non_unique
		     FROM information_schema.statistics
		     WHERE table_schema = ? AND table_name = ?
		     ORDER BY index_name, seq_in_index`, d.conn.Database, tableName).
		Scan(&idxRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes for %s: %w", tableName, err)
	}
	byName := make(map[string]*Index)
	var indexOrder []string
	for _, row := range idxRows {
		idx, ok := byName[row.IndexName]
		if !ok {
			idx = &Index{Name: row.IndexName, Unique: row.NonUnique == 0}
			byName[row.IndexName] = idx
			indexOrder = append(indexOrder, row.IndexName)
		}
		idx.Columns = append(idx.Columns, row.ColumnName)
	}
	for _, name := range indexOrder {
		ts.Indexes = append(ts.Indexes, *byName[name])
	}
	return ts, nil
}
