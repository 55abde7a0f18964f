package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and as the
// fallback when Redis is not configured. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	messages    map[string]*Message
	bySession   map[string][]string
	attachments map[string][]Attachment
	now         func() time.Time
	seq         int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*Session),
		messages:    make(map[string]*Message),
		bySession:   make(map[string][]string),
		attachments: make(map[string][]Attachment),
		now:         time.Now,
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session
	return copySession(session), nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id, userID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

func (s *MemoryStore) TouchSession(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if title != "" {
		session.Title = title
	}
	session.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []Session
	for _, session := range s.sessions {
		if session.UserID == userID {
			sessions = append(sessions, *session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, sessionID, role, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}
	s.seq++
	message := &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		// monotonic offset keeps ordering stable within one clock tick
		CreatedAt: s.now().Add(time.Duration(s.seq) * time.Nanosecond),
	}
	s.messages[message.ID] = message
	s.bySession[sessionID] = append(s.bySession[sessionID], message.ID)
	return copyMessage(message), nil
}

func (s *MemoryStore) UpdateMessageContent(ctx context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	message.Content = content
	return nil
}

func (s *MemoryStore) RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.bySession[sessionID]
	if n > 0 && len(ids) > n {
		ids = ids[len(ids)-n:]
	}
	return s.collect(ids), nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.bySession[sessionID]), nil
}

func (s *MemoryStore) collect(ids []string) []Message {
	messages := make([]Message, 0, len(ids))
	for _, id := range ids {
		if message, ok := s.messages[id]; ok {
			messages = append(messages, *message)
		}
	}
	return messages
}

func (s *MemoryStore) AddAttachment(ctx context.Context, att Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[att.MessageID]; !ok {
		return ErrMessageNotFound
	}
	s.attachments[att.MessageID] = append(s.attachments[att.MessageID], att)
	return nil
}

func (s *MemoryStore) Attachments(ctx context.Context, messageID string) ([]Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Attachment(nil), s.attachments[messageID]...), nil
}

func (s *MemoryStore) PruneIdleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			for _, msgID := range s.bySession[id] {
				delete(s.messages, msgID)
				delete(s.attachments, msgID)
			}
			delete(s.bySession, id)
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned, nil
}

func copySession(s *Session) *Session {
	c := *s
	return &c
}

func copyMessage(m *Message) *Message {
	c := *m
	return &c
}
