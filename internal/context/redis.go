package context

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aurastack/aura/internal/common/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore persists contexts in Redis so multiple MCP server instances
// can share state. Agent contexts rely on native key expiry; conversation
// history is kept in capped lists.
type RedisStore struct {
	logger     *zap.Logger
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(logger *zap.Logger, cfg *config.ContextRedisConfig, defaultTTL time.Duration) (*RedisStore, error) {
	if defaultTTL == 0 {
		defaultTTL = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{
		logger:     logger.Named("context.store.redis"),
		client:     client,
		prefix:     cfg.Prefix,
		defaultTTL: defaultTTL,
	}, nil
}

func (s *RedisStore) contextKey(agentID, sessionID, contextType string) string {
	return fmt.Sprintf("%s:ctx:%s", s.prefix, ContextKey(agentID, sessionID, contextType))
}

func (s *RedisStore) dbContextKey(connectionID string) string {
	return fmt.Sprintf("%s:dbctx:%s", s.prefix, connectionID)
}

func (s *RedisStore) conversationKey(sessionID string) string {
	return fmt.Sprintf("%s:conv:%s", s.prefix, sessionID)
}

func (s *RedisStore) Set(ctx context.Context, ac *AgentContext) error {
	now := time.Now()
	if ac.CreatedAt.IsZero() {
		ac.CreatedAt = now
	}
	ac.UpdatedAt = now
	if ac.TTL == 0 {
		ac.TTL = s.defaultTTL
	}

	data, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	var expiry time.Duration
	if ac.TTL > 0 {
		expiry = ac.TTL
	}
	return s.client.Set(ctx, s.contextKey(ac.AgentID, ac.SessionID, ac.Type), data, expiry).Err()
}

func (s *RedisStore) Get(ctx context.Context, agentID, sessionID, contextType string) (*AgentContext, error) {
	data, err := s.client.Get(ctx, s.contextKey(agentID, sessionID, contextType)).Bytes()
	if err == redis.Nil {
		return nil, ErrContextNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get context: %w", err)
	}
	var ac AgentContext
	if err := json.Unmarshal(data, &ac); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return &ac, nil
}

func (s *RedisStore) Update(ctx context.Context, agentID, sessionID, contextType string, data map[string]any) (*AgentContext, error) {
	ac, err := s.Get(ctx, agentID, sessionID, contextType)
	if err != nil {
		return nil, err
	}
	if ac.Data == nil {
		ac.Data = make(map[string]any, len(data))
	}
	for k, v := range data {
		ac.Data[k] = v
	}
	ac.UpdatedAt = time.Now()

	payload, err := json.Marshal(ac)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}
	key := s.contextKey(agentID, sessionID, contextType)
	// Preserve the remaining expiry rather than resetting it.
	if err := s.client.Set(ctx, key, payload, redis.KeepTTL).Err(); err != nil {
		return nil, err
	}
	return ac, nil
}

func (s *RedisStore) Delete(ctx context.Context, agentID, sessionID, contextType string) error {
	return s.client.Del(ctx, s.contextKey(agentID, sessionID, contextType)).Err()
}

func (s *RedisStore) List(ctx context.Context, agentID, sessionID string) ([]*AgentContext, error) {
	var result []*AgentContext
	iter := s.client.Scan(ctx, 0, fmt.Sprintf("%s:ctx:*", s.prefix), 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get context: %w", err)
		}
		var ac AgentContext
		if err := json.Unmarshal(data, &ac); err != nil {
			s.logger.Warn("skipping malformed context entry",
				zap.String("key", iter.Val()),
				zap.Error(err))
			continue
		}
		if agentID != "" && ac.AgentID != agentID {
			continue
		}
		if sessionID != "" && ac.SessionID != sessionID {
			continue
		}
		result = append(result, &ac)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan contexts: %w", err)
	}
	return result, nil
}

func (s *RedisStore) SetDatabaseContext(ctx context.Context, dc *DatabaseContext) error {
	dc.UpdatedAt = time.Now()
	if dc.QueryPatterns == nil {
		dc.QueryPatterns = make(map[string]int)
	}
	data, err := json.Marshal(dc)
	if err != nil {
		return fmt.Errorf("failed to marshal database context: %w", err)
	}
	return s.client.Set(ctx, s.dbContextKey(dc.ConnectionID), data, 0).Err()
}

func (s *RedisStore) GetDatabaseContext(ctx context.Context, connectionID string) (*DatabaseContext, error) {
	data, err := s.client.Get(ctx, s.dbContextKey(connectionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrContextNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get database context: %w", err)
	}
	var dc DatabaseContext
	if err := json.Unmarshal(data, &dc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal database context: %w", err)
	}
	return &dc, nil
}

func (s *RedisStore) RecordQuery(ctx context.Context, connectionID, agentID, query string) error {
	dc, err := s.GetDatabaseContext(ctx, connectionID)
	if err == ErrContextNotFound {
		dc = &DatabaseContext{
			ConnectionID:  connectionID,
			QueryPatterns: make(map[string]int),
		}
	} else if err != nil {
		return err
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
	return s.SetDatabaseContext(ctx, dc)
}

func (s *RedisStore) AppendTurn(ctx context.Context, sessionID string, turn *Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	key := s.conversationKey(sessionID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxConversationSize, -1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Conversation(ctx context.Context, sessionID string, limit int) ([]*Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := s.client.LRange(ctx, s.conversationKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	turns := make([]*Turn, 0, len(items))
	for _, item := range items {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	return turns, nil
}

// ClearExpired is a no-op for Redis since expiry is handled natively.
func (s *RedisStore) ClearExpired(_ context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ContextTypes: make(map[string]int)}

	contexts, err := s.List(ctx, "", "")
	if err != nil {
		return nil, err
	}
	stats.ActiveContexts = len(contexts)
	for _, ac := range contexts {
		stats.ContextTypes[ac.Type]++
	}

	for _, pattern := range []struct {
		match string
		count *int
	}{
		{fmt.Sprintf("%s:dbctx:*", s.prefix), &stats.DatabaseContexts},
		{fmt.Sprintf("%s:conv:*", s.prefix), &stats.Conversations},
	} {
		iter := s.client.Scan(ctx, 0, pattern.match, 100).Iterator()
		for iter.Next(ctx) {
			*pattern.count++
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
	}
	return stats, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
