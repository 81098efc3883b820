package social

import (
	"context"
	"sort"
	"sync"
	"time"
)

type edge struct {
	from int64
	to   int64
}

// MemoryStore keeps the edge set in process. Used without a database and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	edges map[edge]time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{edges: make(map[edge]time.Time)}
}

func (s *MemoryStore) AddEdge(ctx context.Context, followerID, followedID int64, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if followerID == followedID {
		return false, SelfFollowError{Op: "social.AddEdge", UserID: followerID}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := edge{from: followerID, to: followedID}
	if _, ok := s.edges[e]; ok {
		return false, nil
	}
	s.edges[e] = now.UTC()
	return true, nil
}

func (s *MemoryStore) RemoveEdge(ctx context.Context, followerID, followedID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := edge{from: followerID, to: followedID}
	if _, ok := s.edges[e]; !ok {
		return false, nil
	}
	delete(s.edges, e)
	return true, nil
}

func (s *MemoryStore) HasEdge(ctx context.Context, followerID, followedID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.edges[edge{from: followerID, to: followedID}]
	return ok, nil
}

func (s *MemoryStore) CountFollowers(ctx context.Context, userID int64) (int, error) {
	ids, err := s.collect(ctx, func(e edge) (int64, bool) { return e.from, e.to == userID }, 0)
	return len(ids), err
}

func (s *MemoryStore) CountFollowing(ctx context.Context, userID int64) (int, error) {
	ids, err := s.collect(ctx, func(e edge) (int64, bool) { return e.to, e.from == userID }, 0)
	return len(ids), err
}

func (s *MemoryStore) ListFollowers(ctx context.Context, userID int64, limit int) ([]int64, error) {
	return s.collect(ctx, func(e edge) (int64, bool) { return e.from, e.to == userID }, clampLimit(limit))
}

func (s *MemoryStore) ListFollowing(ctx context.Context, userID int64, limit int) ([]int64, error) {
	return s.collect(ctx, func(e edge) (int64, bool) { return e.to, e.from == userID }, clampLimit(limit))
}

// collect returns the matching ids newest first; limit 0 means all.
func (s *MemoryStore) collect(ctx context.Context, match func(edge) (int64, bool), limit int) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type hit struct {
		id int64
		at time.Time
	}

	s.mu.RLock()
	hits := make([]hit, 0)
	for e, at := range s.edges {
		if id, ok := match(e); ok {
			hits = append(hits, hit{id: id, at: at})
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].at.Equal(hits[j].at) {
			return hits[i].at.After(hits[j].at)
		}
		return hits[i].id > hits[j].id
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]int64, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.id)
	}
	return out, nil
}
