package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds configuration for the Redis connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore persists chat state in Redis. Sessions and messages are
// hashes; per-user and global session indexes are sorted sets scored
// by updated_at so sidebar listing and idle pruning are range reads.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore creates a Redis-backed store with connection validation.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb, now: time.Now}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func sessionKey(id string) string       { return "axiom:session:" + id }
func sessionMsgsKey(id string) string   { return "axiom:session:" + id + ":messages" }
func userSessionsKey(uid string) string { return "axiom:user:" + uid + ":sessions" }
func messageKey(id string) string       { return "axiom:message:" + id }
func attachmentsKey(id string) string   { return "axiom:message:" + id + ":attachments" }

const allSessionsKey = "axiom:sessions"

func (s *RedisStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	now := s.now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.ID), map[string]any{
		"id":         session.ID,
		"user_id":    session.UserID,
		"title":      "",
		"created_at": now.Format(time.RFC3339Nano),
		"updated_at": now.Format(time.RFC3339Nano),
	})
	pipe.ZAdd(ctx, userSessionsKey(userID), redis.Z{Score: float64(now.UnixNano()), Member: session.ID})
	pipe.ZAdd(ctx, allSessionsKey, redis.Z{Score: float64(now.UnixNano()), Member: session.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}
	return session, nil
}

func (s *RedisStore) GetSession(ctx context.Context, id, userID string) (*Session, error) {
	fields, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	if len(fields) == 0 || fields["user_id"] != userID {
		return nil, ErrSessionNotFound
	}
	return sessionFromFields(fields), nil
}

func (s *RedisStore) TouchSession(ctx context.Context, id, title string) error {
	exists, err := s.rdb.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("touch session failed: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	now := s.now().UTC()
	userID, _ := s.rdb.HGet(ctx, sessionKey(id), "user_id").Result()

	pipe := s.rdb.TxPipeline()
	values := map[string]any{"updated_at": now.Format(time.RFC3339Nano)}
	if title != "" {
		values["title"] = title
	}
	pipe.HSet(ctx, sessionKey(id), values)
	pipe.ZAdd(ctx, userSessionsKey(userID), redis.Z{Score: float64(now.UnixNano()), Member: id})
	pipe.ZAdd(ctx, allSessionsKey, redis.Z{Score: float64(now.UnixNano()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("touch session failed: %w", err)
	}
	return nil
}

func (s *RedisStore) ListSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.rdb.ZRevRange(ctx, userSessionsKey(userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}

	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		fields, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		sessions = append(sessions, *sessionFromFields(fields))
	}
	return sessions, nil
}

func (s *RedisStore) CreateMessage(ctx context.Context, sessionID, role, content string) (*Message, error) {
	exists, err := s.rdb.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("create message failed: %w", err)
	}
	if exists == 0 {
		return nil, ErrSessionNotFound
	}

	message := &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, messageKey(message.ID), map[string]any{
		"id":         message.ID,
		"session_id": sessionID,
		"role":       role,
		"content":    content,
		"created_at": message.CreatedAt.Format(time.RFC3339Nano),
	})
	pipe.RPush(ctx, sessionMsgsKey(sessionID), message.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("create message failed: %w", err)
	}
	return message, nil
}

func (s *RedisStore) UpdateMessageContent(ctx context.Context, id, content string) error {
	exists, err := s.rdb.Exists(ctx, messageKey(id)).Result()
	if err != nil {
		return fmt.Errorf("update message failed: %w", err)
	}
	if exists == 0 {
		return ErrMessageNotFound
	}
	if err := s.rdb.HSet(ctx, messageKey(id), "content", content).Err(); err != nil {
		return fmt.Errorf("update message failed: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	ids, err := s.rdb.LRange(ctx, sessionMsgsKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("recent messages failed: %w", err)
	}
	return s.collectMessages(ctx, ids)
}

func (s *RedisStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	ids, err := s.rdb.LRange(ctx, sessionMsgsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return s.collectMessages(ctx, ids)
}

func (s *RedisStore) collectMessages(ctx context.Context, ids []string) ([]Message, error) {
	messages := make([]Message, 0, len(ids))
	for _, id := range ids {
		fields, err := s.rdb.HGetAll(ctx, messageKey(id)).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		created, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
		messages = append(messages, Message{
			ID:        fields["id"],
			SessionID: fields["session_id"],
			Role:      fields["role"],
			Content:   fields["content"],
			CreatedAt: created,
		})
	}
	return messages, nil
}

func (s *RedisStore) AddAttachment(ctx context.Context, att Attachment) error {
	exists, err := s.rdb.Exists(ctx, messageKey(att.MessageID)).Result()
	if err != nil {
		return fmt.Errorf("add attachment failed: %w", err)
	}
	if exists == 0 {
		return ErrMessageNotFound
	}
	data, err := json.Marshal(att)
	if err != nil {
		return fmt.Errorf("add attachment failed: %w", err)
	}
	if err := s.rdb.RPush(ctx, attachmentsKey(att.MessageID), data).Err(); err != nil {
		return fmt.Errorf("add attachment failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Attachments(ctx context.Context, messageID string) ([]Attachment, error) {
	entries, err := s.rdb.LRange(ctx, attachmentsKey(messageID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("attachments failed: %w", err)
	}
	attachments := make([]Attachment, 0, len(entries))
	for _, entry := range entries {
		var att Attachment
		if err := json.Unmarshal([]byte(entry), &att); err != nil {
			continue
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func (s *RedisStore) PruneIdleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	max := fmt.Sprintf("%d", cutoff.UTC().UnixNano())
	ids, err := s.rdb.ZRangeByScore(ctx, allSessionsKey, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, fmt.Errorf("prune sessions failed: %w", err)
	}

	pruned := 0
	for _, id := range ids {
		userID, _ := s.rdb.HGet(ctx, sessionKey(id), "user_id").Result()
		msgIDs, _ := s.rdb.LRange(ctx, sessionMsgsKey(id), 0, -1).Result()

		pipe := s.rdb.TxPipeline()
		for _, msgID := range msgIDs {
			pipe.Del(ctx, messageKey(msgID), attachmentsKey(msgID))
		}
		pipe.Del(ctx, sessionMsgsKey(id), sessionKey(id))
		pipe.ZRem(ctx, allSessionsKey, id)
		if userID != "" {
			pipe.ZRem(ctx, userSessionsKey(userID), id)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return pruned, fmt.Errorf("prune sessions failed: %w", err)
		}
		pruned++
	}
	return pruned, nil
}

func sessionFromFields(fields map[string]string) *Session {
	created, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	updated, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return &Session{
		ID:        fields["id"],
		UserID:    fields["user_id"],
		Title:     fields["title"],
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
