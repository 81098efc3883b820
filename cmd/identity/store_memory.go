package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured
// and by tests. A single mutex makes every check-then-write atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]User
	byUsername map[string]int64
	byEmail    map[string]int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[int64]User),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if in.Username == "" || in.Email == "" {
		return User{}, invalid(op, "username and email are required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[in.Username]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if _, ok := s.byEmail[in.Email]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	s.nextID++
	u := User{
		ID:           s.nextID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now.UTC(),
	}
	s.byID[u.ID] = u
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByID", Resource: "user"}
	}
	return u, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getByKey(ctx, "identity.GetUserByUsername", s.byUsername, username)
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getByKey(ctx, "identity.GetUserByEmail", s.byEmail, email)
}

func (s *MemoryStore) getByKey(ctx context.Context, op string, index map[string]int64, key string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.byID[id], nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if in.Username == "" {
		return User{}, invalid(op, "username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[in.UserID]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if holder, taken := s.byUsername[in.Username]; taken && holder != u.ID {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	delete(s.byUsername, u.Username)
	u.Username = in.Username
	u.AboutMe = in.AboutMe
	s.byUsername[u.Username] = u.ID
	s.byID[u.ID] = u
	return u, nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	return s.mutate(ctx, "identity.UpdatePasswordHash", userID, func(u *User) { u.PasswordHash = hash })
}

func (s *MemoryStore) TouchLastSeen(ctx context.Context, userID int64, now time.Time) error {
	ts := now.UTC()
	return s.mutate(ctx, "identity.TouchLastSeen", userID, func(u *User) { u.LastSeen = &ts })
}

func (s *MemoryStore) mutate(ctx context.Context, op string, userID int64, fn func(*User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	fn(&u)
	s.byID[userID] = u
	return nil
}

// Count returns the number of stored users.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
