package connection

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type postgresDriver struct {
	conn *Connection
	db   *gorm.DB
}

var _ Driver = (*postgresDriver)(nil)

func openPostgres(conn *Connection) (Driver, error) {
	dsn := conn.ConnectionString
	if dsn == "" {
		sslmode := "disable"
		if conn.SSLEnabled {
			sslmode = "require"
		}
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			conn.Host, conn.Username, conn.Password, conn.Database, conn.Port, sslmode)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	return &postgresDriver{conn: conn, db: db}, nil
}

func (d *postgresDriver) Ping(ctx context.Context) error {
	return pingGorm(ctx, d.db)
}

func (d *postgresDriver) Query(ctx context.Context, query string, limit int) (*QueryResult, error) {
	return runQuery(ctx, d.db, query, limit)
}

func (d *postgresDriver) Close() error {
	return closeGorm(d.db)
}

func (d *postgresDriver) Introspect(ctx context.Context) (*DatabaseSchema, error) {
	schema := &DatabaseSchema{
		ConnectionID: d.conn.ID,
		LastUpdated:  time.Now(),
	}

	var schemaNames []string
	err := d.db.WithContext(ctx).
		Raw(`SELECT schema_name FROM information_schema.schemata
		     WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		     ORDER BY schema_name`).
		Scan(&schemaNames).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	schema.Schemas = schemaNames

	var tableRows []struct {
		TableSchema string
		TableName   string
		TableType   string
	}
	err = d.db.WithContext(ctx).
		Raw(`SELECT table_schema, table_name, table_type FROM information_schema.tables
		     WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		     ORDER BY table_schema, table_name`).
		Scan(&tableRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, row := range tableRows {
		ts, err := d.introspectTable(ctx, row.TableSchema, row.TableName)
		if err != nil {
			return nil, err
		}
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

func (d *postgresDriver) introspectTable(ctx context.Context, schemaName, tableName string) (*TableSchema, error) {
	ts := &TableSchema{
		Name:        tableName,
		Schema:      schemaName,
		PrimaryKeys: []string{},
		ForeignKeys: []ForeignKey{},
		Indexes:     []Index{},
	}

	var colRows []struct {
		ColumnName    string
		DataType      string
		IsNullable    string
		ColumnDefault *string
	}
	err := d.db.WithContext(ctx).
		Raw(`SELECT column_name, data_type, is_nullable, column_default
		     FROM information_schema.columns
		     WHERE table_schema = ? AND table_name = ?
		     ORDER BY ordinal_position`, schemaName, tableName).
		Scan(&colRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read columns for %s.%s: %w", schemaName, tableName, err)
	}
	for _, col := range colRows {
		c := Column{
			Name:     col.ColumnName,
			Type:     col.DataType,
			Nullable: col.IsNullable == "YES",
		}
		if col.ColumnDefault != nil {
			c.Default = *col.ColumnDefault
		}
		ts.Columns = append(ts.Columns, c)
	}

	var pkCols []string
	err = d.db.WithContext(ctx).
		Raw(`SELECT kcu.column_name
		     FROM information_schema.table_constraints tc
		     JOIN information_schema.key_column_usage kcu
		       ON tc.constraint_name = kcu.constraint_name
		      AND tc.table_schema = kcu.table_schema
		     WHERE tc.constraint_type = 'PRIMARY KEY'
		       AND tc.table_schema = ? AND tc.table_name = ?
		     ORDER BY kcu.ordinal_position`, schemaName, tableName).
		Scan(&pkCols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read primary keys for %s.%s: %w", schemaName, tableName, err)
	}
	ts.PrimaryKeys = pkCols

	var fkRows []struct {
		ColumnName        string
		ForeignTableName  string
		ForeignColumnName string
	}
	err = d.db.WithContext(ctx).
		Raw(`SELECT kcu.column_name,
		            ccu.table_name AS foreign_table_name,
		            ccu.column_name AS foreign_column_name
		     FROM information_schema.table_constraints tc
		     JOIN information_schema.key_column_usage kcu
		       ON tc.constraint_name = kcu.constraint_name
		      AND tc.table_schema = kcu.table_schema
		     JOIN information_schema.constraint_column_usage ccu
		       ON tc.constraint_name = ccu.constraint_name
		      AND tc.table_schema = ccu.table_schema
		     WHERE tc.constraint_type = 'FOREIGN KEY'
		       AND tc.table_schema = ? AND tc.table_name = ?`, schemaName, tableName).
		Scan(&fkRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys for %s.%s: %w", schemaName, tableName, err)
	}
	for _, fk := range fkRows {
		ts.ForeignKeys = append(ts.ForeignKeys, ForeignKey{
			Column:           fk.ColumnName,
			ReferencedTable:  fk.ForeignTableName,
			ReferencedColumn: fk.ForeignColumnName,
		})
	}

	var idxRows []struct {
		IndexName  string
		ColumnName string
		IsUnique   bool
	}
	err = d.db.WithContext(ctx).
		Raw(`SELECT i.relname AS index_name, a.attname AS column_name, ix.indisunique AS is_unique
		     FROM pg_index ix
		     JOIN pg_class i ON i.oid = ix.indexrelid
		     JOIN pg_class t ON t.oid = ix.indrelid
		     JOIN pg_namespace n ON n.oid = t.relnamespace
		     JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		     WHERE n.nspname = ? AND t.relname = ?
		     ORDER BY i.relname`, schemaName, tableName).
		Scan(&idxRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes for %s.%s: %w", schemaName, tableName, err)
	}
	byName := make(map[string]*Index)
	var indexOrder []string
	for _, row := range idxRows {
		idx, ok := byName[row.IndexName]
		if !ok {
			idx = &Index{Name: row.IndexName, Unique: row.IsUnique}
			byName[row.IndexName] = idx
			indexOrder = append(indexOrder, row.IndexName)
		}
		idx.Columns = append(idx.Columns, row.ColumnName)
	}
	for _, name := range indexOrder {
		ts.Indexes = append(ts.Indexes, *byName[name])
	}

	// counting is approximate via statistics to avoid scanning large tables
	var rowCount int64
	err = d.db.WithContext(ctx).
		Raw(`SELECT COALESCE(reltuples::bigint, 0)
		     FROM pg_class c JOIN pg_namespace n ON n.oid = c.relnamespace
		     WHERE n.nspname = ? AND c.relname = ?`, schemaName, tableName).
		Scan(&rowCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read row count for %s.%s: %w", schemaName, tableName, err)
	}
	if rowCount < 0 {
		rowCount = 0
	}
	ts.RowCount = rowCount
	return ts, nil
}
