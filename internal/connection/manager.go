package connection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrConnectionNotFound is returned when no connection matches the ID.
var ErrConnectionNotFound = errors.New("connection not found")

const (
	// DefaultQueryLimit caps result sets when the caller gives no limit.
	DefaultQueryLimit = 1000
	// MaxQueryLimit is the hard upper bound on result set size.
	MaxQueryLimit = 10000
)

// Manager owns registered database connections, their live drivers and
// a per-connection schema cache.
type Manager struct {
	logger *zap.Logger

	mu          sync.RWMutex
	connections map[string]*Connection
	drivers     map[string]Driver
	schemaCache map[string]*DatabaseSchema

	defaultLimit int
	maxLimit     int
}

// NewManager creates a connection manager. Non-positive limits fall back
// to the package defaults.
func NewManager(logger *zap.Logger, defaultLimit, maxLimit int) *Manager {
	if defaultLimit <= 0 {
		defaultLimit = DefaultQueryLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxQueryLimit
	}
	return &Manager{
		logger:       logger.Named("connection.manager"),
		connections:  make(map[string]*Connection),
		drivers:      make(map[string]Driver),
		schemaCache:  make(map[string]*DatabaseSchema),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Add opens and verifies a driver for the connection, then registers it.
// A connection that cannot be reached is not registered.
func (m *Manager) Add(ctx context.Context, conn *Connection) (string, error) {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now
	conn.IsActive = true
	if conn.Metadata == nil {
		conn.Metadata = make(map[string]any)
	}

	driver, err := openDriver(conn)
	if err != nil {
		return "", err
	}
	if err := driver.Ping(ctx); err != nil {
		_ = driver.Close()
		return "", fmt.Errorf("failed to connect to %s: %w", conn.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID] = conn
	m.drivers[conn.ID] = driver

	m.logger.Info("registered database connection",
		zap.String("connection_id", conn.ID),
		zap.String("name", conn.Name),
		zap.String("type", string(conn.Type)))
	return conn.ID, nil
}

// Get returns the connection by ID.
func (m *Manager) Get(connectionID string) (*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[connectionID]
	if !ok {
		return nil, ErrConnectionNotFound
	}
	return conn, nil
}

// List returns all registered connections sorted by creation time.
func (m *Manager) List() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		result = append(result, conn)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Remove closes the driver and drops the connection and its cached schema.
func (m *Manager) Remove(connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.connections[connectionID]; !ok {
		return ErrConnectionNotFound
	}
	if driver, ok := m.drivers[connectionID]; ok {
		if err := driver.Close(); err != nil {
			m.logger.Warn("failed to close driver",
				zap.String("connection_id", connectionID),
				zap.Error(err))
		}
	}
	delete(m.connections, connectionID)
	delete(m.drivers, connectionID)
	delete(m.schemaCache, connectionID)

	m.logger.Info("removed database connection", zap.String("connection_id", connectionID))
	return nil
}

// Test pings the connection's database.
func (m *Manager) Test(ctx context.Context, connectionID string) error {
	driver, err := m.driver(connectionID)
	if err != nil {
		return err
	}
	return driver.Ping(ctx)
}

// GetSchema returns the introspected schema, cached after the first call.
// Set refresh to bypass the cache.
func (m *Manager) GetSchema(ctx context.Context, connectionID string, refresh bool) (*DatabaseSchema, error) {
	if !refresh {
		m.mu.RLock()
		cached, ok := m.schemaCache[connectionID]
		m.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	driver, err := m.driver(connectionID)
	if err != nil {
		return nil, err
	}
	schema, err := driver.Introspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect schema: %w", err)
	}

	m.mu.Lock()
	m.schemaCache[connectionID] = schema
	m.mu.Unlock()
	return schema, nil
}

// ExecuteQuery runs a statement on the connection's database. The limit
// is clamped to [1, maxLimit]; zero or negative means the default.
func (m *Manager) ExecuteQuery(ctx context.Context, connectionID, query string, limit int) (*QueryResult, error) {
	driver, err := m.driver(connectionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = m.defaultLimit
	}
	if limit > m.maxLimit {
		limit = m.maxLimit
	}

	result, err := driver.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("executed query",
		zap.String("connection_id", connectionID),
		zap.Int("row_count", result.RowCount),
		zap.Int64("execution_time_ms", result.ExecutionTimeMs))
	return result, nil
}

// Close releases all drivers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, driver := range m.drivers {
		if err := driver.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.drivers, id)
	}
	return firstErr
}

func (m *Manager) driver(connectionID string) (Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[connectionID]
	if !ok {
		return nil, ErrConnectionNotFound
	}
	return driver, nil
}
