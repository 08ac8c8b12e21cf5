package context

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxRecentQueries    = 50
	maxConversationSize = 100
)

// MemoryStore keeps all contexts in process memory. It is the default
// backend for single-instance deployments and tests.
type MemoryStore struct {
	logger *zap.Logger

	mu            sync.RWMutex
	contexts      map[string]*AgentContext
	dbContexts    map[string]*DatabaseContext
	conversations map[string][]*Turn

	defaultTTL time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. When sweepInterval is
// positive a background goroutine clears expired entries on that cadence;
// expired entries are also dropped lazily on read either way.
func NewMemoryStore(logger *zap.Logger, defaultTTL, sweepInterval time.Duration) *MemoryStore {
	if defaultTTL == 0 {
		defaultTTL = DefaultTTL
	}
	s := &MemoryStore{
		logger:        logger.Named("context.store.memory"),
		contexts:      make(map[string]*AgentContext),
		dbContexts:    make(map[string]*DatabaseContext),
		conversations: make(map[string][]*Turn),
		defaultTTL:    defaultTTL,
		done:          make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweep(sweepInterval)
	}
	return s
}

// cloneAgentContext copies an entry so callers can read it outside the
// store lock while Update mutates the stored Data map.
func cloneAgentContext(ac *AgentContext) *AgentContext {
	dup := *ac
	if ac.Data != nil {
		dup.Data = make(map[string]any, len(ac.Data))
		for k, v := range ac.Data {
			dup.Data[k] = v
		}
	}
	if ac.Metadata != nil {
		dup.Metadata = make(map[string]any, len(ac.Metadata))
		for k, v := range ac.Metadata {
			dup.Metadata[k] = v
		}
	}
	return &dup
}

// cloneDatabaseContext copies the parts RecordQuery mutates in place.
func cloneDatabaseContext(dc *DatabaseContext) *DatabaseContext {
	dup := *dc
	dup.RecentQueries = make([]QueryRecord, len(dc.RecentQueries))
	copy(dup.RecentQueries, dc.RecentQueries)
	if dc.QueryPatterns != nil {
		dup.QueryPatterns = make(map[string]int, len(dc.QueryPatterns))
		for k, v := range dc.QueryPatterns {
			dup.QueryPatterns[k] = v
		}
	}
	return &dup
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, _ := s.ClearExpired(context.Background())
			if n > 0 {
				s.logger.Debug("cleared expired contexts", zap.Int("count", n))
			}
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) Set(_ context.Context, ac *AgentContext) error {
	now := time.Now()
	if ac.CreatedAt.IsZero() {
		ac.CreatedAt = now
	}
	ac.UpdatedAt = now
	if ac.TTL == 0 {
		ac.TTL = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ac.Key()] = ac
	return nil
}

func (s *MemoryStore) Get(_ context.Context, agentID, sessionID, contextType string) (*AgentContext, error) {
	key := ContextKey(agentID, sessionID, contextType)

	s.mu.Lock()
	defer s.mu.Unlock()
	ac, ok := s.contexts[key]
	if !ok {
		return nil, ErrContextNotFound
	}
	if ac.Expired(time.Now()) {
		delete(s.contexts, key)
		return nil, ErrContextNotFound
	}
	return cloneAgentContext(ac), nil
}

func (s *MemoryStore) Update(ctx context.Context, agentID, sessionID, contextType string, data map[string]any) (*AgentContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ContextKey(agentID, sessionID, contextType)
	ac, ok := s.contexts[key]
	if !ok || ac.Expired(time.Now()) {
		delete(s.contexts, key)
		return nil, ErrContextNotFound
	}
	if ac.Data == nil {
		ac.Data = make(map[string]any, len(data))
	}
	for k, v := range data {
		ac.Data[k] = v
	}
	ac.UpdatedAt = time.Now()
	return cloneAgentContext(ac), nil
}

func (s *MemoryStore) Delete(_ context.Context, agentID, sessionID, contextType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, ContextKey(agentID, sessionID, contextType))
	return nil
}

func (s *MemoryStore) List(_ context.Context, agentID, sessionID string) ([]*AgentContext, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*AgentContext, 0, len(s.contexts))
	for key, ac := range s.contexts {
		if ac.Expired(now) {
			delete(s.contexts, key)
			continue
		}
		if agentID != "" && ac.AgentID != agentID {
			continue
		}
		if sessionID != "" && ac.SessionID != sessionID {
			continue
		}
		result = append(result, cloneAgentContext(ac))
	}
	return result, nil
}

func (s *MemoryStore) SetDatabaseContext(_ context.Context, dc *DatabaseContext) error {
	dc.UpdatedAt = time.Now()
	if dc.QueryPatterns == nil {
		dc.QueryPatterns = make(map[string]int)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbContexts[dc.ConnectionID] = dc
	return nil
}

func (s *MemoryStore) GetDatabaseContext(_ context.Context, connectionID string) (*DatabaseContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dc, ok := s.dbContexts[connectionID]
	if !ok {
		return nil, ErrContextNotFound
	}
	return cloneDatabaseContext(dc), nil
}

func (s *MemoryStore) RecordQuery(_ context.Context, connectionID, agentID, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dc, ok := s.dbContexts[connectionID]
	if !ok {
		dc = &DatabaseContext{
			ConnectionID:  connectionID,
			QueryPatterns: make(map[string]int),
		}
		s.dbContexts[connectionID] = dc
	}
	dc.RecentQueries = append(dc.RecentQueries, QueryRecord{
		Query:     query,
		AgentID:   agentID,
		Timestamp: time.Now(),
	})
	if len(dc.RecentQueries) > maxRecentQueries {
		dc.RecentQueries = dc.RecentQueries[len(dc.RecentQueries)-maxRecentQueries:]
	}
	dc.QueryPatterns[queryVerb(query)]++
	dc.UpdatedAt = time.Now()
	return nil
}

// queryVerb buckets a query by its leading keyword for pattern counting.
func queryVerb(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

func (s *MemoryStore) AppendTurn(_ context.Context, sessionID string, turn *Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.conversations[sessionID], turn)
	if len(turns) > maxConversationSize {
		turns = turns[len(turns)-maxConversationSize:]
	}
	s.conversations[sessionID] = turns
	return nil
}

func (s *MemoryStore) Conversation(_ context.Context, sessionID string, limit int) ([]*Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.conversations[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	result := make([]*Turn, len(turns))
	copy(result, turns)
	return result, nil
}

func (s *MemoryStore) ClearExpired(_ context.Context) (int, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for key, ac := range s.contexts {
		if ac.Expired(now) {
			delete(s.contexts, key)
			cleared++
		}
	}
	return cleared, nil
}

func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		DatabaseContexts: len(s.dbContexts),
		Conversations:    len(s.conversations),
		ContextTypes:     make(map[string]int),
	}
	for _, ac := range s.contexts {
		if ac.Expired(now) {
			continue
		}
		stats.ActiveContexts++
		stats.ContextTypes[ac.Type]++
	}
	return stats, nil
}

func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
