package social

import (
	"context"
	"time"
)

// MaxList caps ListFollowers and ListFollowing.
const MaxList = 100

// Store persists the edge set.
//
// Contract:
//   - AddEdge inserts follower->followed if absent and reports whether it did;
//     a duplicate is not an error. A missing user yields identity.NotFoundError.
//   - RemoveEdge deletes the edge if present and reports whether it did.
//   - Both are safe under concurrent calls on the same pair.
type Store interface {
	AddEdge(ctx context.Context, followerID, followedID int64, now time.Time) (bool, error)
	RemoveEdge(ctx context.Context, followerID, followedID int64) (bool, error)
	HasEdge(ctx context.Context, followerID, followedID int64) (bool, error)

	CountFollowers(ctx context.Context, userID int64) (int, error)
	CountFollowing(ctx context.Context, userID int64) (int, error)

	// Lists are newest first and hold at most limit ids.
	ListFollowers(ctx context.Context, userID int64, limit int) ([]int64, error)
	ListFollowing(ctx context.Context, userID int64, limit int) ([]int64, error)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxList {
		return MaxList
	}
	return limit
}
