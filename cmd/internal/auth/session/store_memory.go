package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. Used without a database and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Row
	byHash map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]Row),
		byHash: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[in.ID]; ok {
		return Row{}, fmt.Errorf("session: duplicate id")
	}
	if _, ok := s.byHash[in.TokenHash]; ok {
		return Row{}, fmt.Errorf("session: duplicate token hash")
	}

	now := in.Now.UTC()
	row := Row{
		ID:         in.ID,
		UserID:     in.UserID,
		TokenHash:  in.TokenHash,
		Remember:   in.Remember,
		CreatedAt:  now,
		LastUsedAt: &now,
		ExpiresAt:  in.ExpiresAt.UTC(),
		UserAgent:  in.UserAgent,
		IP:         in.IP,
	}
	s.byID[row.ID] = row
	s.byHash[row.TokenHash] = row.ID
	return row, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byID[sessionID]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return row, nil
}

func (s *MemoryStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[tokenHash]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	return s.update(ctx, sessionID, func(r *Row) {
		t := now.UTC()
		r.LastUsedAt = &t
	})
}

func (s *MemoryStore) Revoke(ctx context.Context, now time.Time, sessionID string) error {
	return s.update(ctx, sessionID, func(r *Row) {
		if r.RevokedAt == nil {
			t := now.UTC()
			r.RevokedAt = &t
		}
	})
}

func (s *MemoryStore) update(ctx context.Context, sessionID string, fn func(*Row)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[sessionID]
	if !ok {
		return nil
	}
	fn(&row)
	s.byID[sessionID] = row
	return nil
}
