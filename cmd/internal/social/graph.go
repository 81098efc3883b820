package social

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xORB/blog-website/cmd/identity"
)

// Event kinds published to the followed user.
const (
	EventFollowCreated = "follow.created"
	EventFollowRemoved = "follow.removed"
)

// Event describes one edge change. Target is the followed user.
type Event struct {
	Type             string    `json:"type"`
	FollowerID       int64     `json:"follower_id"`
	FollowerUsername string    `json:"follower_username"`
	TargetID         int64     `json:"target_id"`
	At               time.Time `json:"at"`
}

// Notifier receives edge changes. Publish must not block.
type Notifier interface {
	Publish(userID int64, ev Event)
}

// UserLookup resolves user ids. identity.Store satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (identity.User, error)
}

// ProfileStats is what a profile page shows about the graph.
type ProfileStats struct {
	Followers   int  `json:"followers"`
	Following   int  `json:"following"`
	IsFollowing bool `json:"is_following"`
}

// Graph is the follow service. The acting user is always passed in.
type Graph struct {
	store    Store
	users    UserLookup
	notifier Notifier
	metrics  *Metrics
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Graph.
type Option func(*Graph)

// WithNotifier attaches a Notifier for follow events.
func WithNotifier(n Notifier) Option { return func(g *Graph) { g.notifier = n } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option { return func(g *Graph) { g.log = log } }

// WithMetrics attaches counters.
func WithMetrics(m *Metrics) Option { return func(g *Graph) { g.metrics = m } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(g *Graph) { g.now = now } }

// NewGraph wires a Graph.
func NewGraph(store Store, users UserLookup, opts ...Option) (*Graph, error) {
	if store == nil {
		return nil, fmt.Errorf("social: nil store")
	}
	if users == nil {
		return nil, fmt.Errorf("social: nil user lookup")
	}
	g := &Graph{store: store, users: users, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g, nil
}

// Follow adds follower -> followee. Following someone already followed is a no-op.
func (g *Graph) Follow(ctx context.Context, follower identity.User, followeeID int64) error {
	const op = "social.Follow"

	if follower.ID == followeeID {
		g.metrics.observe("follow", "self")
		return SelfFollowError{Op: op, UserID: follower.ID}
	}
	if err := g.requireUser(ctx, op, followeeID); err != nil {
		g.metrics.observe("follow", resultFor(err))
		return err
	}

	now := g.now().UTC()
	created, err := g.store.AddEdge(ctx, follower.ID, followeeID, now)
	if err != nil {
		g.metrics.observe("follow", resultFor(err))
		return err
	}
	if !created {
		g.metrics.observe("follow", "noop")
		return nil
	}

	g.metrics.observe("follow", "ok")
	g.log.Info("social.follow.ok", "follower_id", follower.ID, "followed_id", followeeID)
	g.publish(followeeID, Event{
		Type:             EventFollowCreated,
		FollowerID:       follower.ID,
		FollowerUsername: follower.Username,
		TargetID:         followeeID,
		At:               now,
	})
	return nil
}

// Unfollow removes follower -> followee if present.
func (g *Graph) Unfollow(ctx context.Context, follower identity.User, followeeID int64) error {
	const op = "social.Unfollow"

	if follower.ID == followeeID {
		g.metrics.observe("unfollow", "self")
		return SelfFollowError{Op: op, UserID: follower.ID}
	}
	if err := g.requireUser(ctx, op, followeeID); err != nil {
		g.metrics.observe("unfollow", resultFor(err))
		return err
	}

	removed, err := g.store.RemoveEdge(ctx, follower.ID, followeeID)
	if err != nil {
		g.metrics.observe("unfollow", resultFor(err))
		return err
	}
	if !removed {
		g.metrics.observe("unfollow", "noop")
		return nil
	}

	g.metrics.observe("unfollow", "ok")
	g.log.Info("social.unfollow.ok", "follower_id", follower.ID, "followed_id", followeeID)
	g.publish(followeeID, Event{
		Type:             EventFollowRemoved,
		FollowerID:       follower.ID,
		FollowerUsername: follower.Username,
		TargetID:         followeeID,
		At:               g.now().UTC(),
	})
	return nil
}

// IsFollowing reports whether the edge follower -> followee exists.
func (g *Graph) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return g.store.HasEdge(ctx, followerID, followeeID)
}

// FollowersCount is the number of users following userID.
func (g *Graph) FollowersCount(ctx context.Context, userID int64) (int, error) {
	return g.store.CountFollowers(ctx, userID)
}

// FollowingCount is the number of users userID follows.
func (g *Graph) FollowingCount(ctx context.Context, userID int64) (int, error) {
	return g.store.CountFollowing(ctx, userID)
}

// Stats gathers the counts for userID and whether viewerID follows them.
func (g *Graph) Stats(ctx context.Context, viewerID, userID int64) (ProfileStats, error) {
	var (
		st  ProfileStats
		err error
	)
	if st.Followers, err = g.store.CountFollowers(ctx, userID); err != nil {
		return ProfileStats{}, err
	}
	if st.Following, err = g.store.CountFollowing(ctx, userID); err != nil {
		return ProfileStats{}, err
	}
	if viewerID != 0 && viewerID != userID {
		if st.IsFollowing, err = g.store.HasEdge(ctx, viewerID, userID); err != nil {
			return ProfileStats{}, err
		}
	}
	return st, nil
}

// Followers returns the usernames following userID, newest first.
func (g *Graph) Followers(ctx context.Context, userID int64, limit int) ([]string, error) {
	ids, err := g.store.ListFollowers(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return g.usernames(ctx, ids)
}

// Following returns the usernames userID follows, newest first.
func (g *Graph) Following(ctx context.Context, userID int64, limit int) ([]string, error) {
	ids, err := g.store.ListFollowing(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return g.usernames(ctx, ids)
}

func (g *Graph) usernames(ctx context.Context, ids []int64) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := g.users.GetUserByID(ctx, id)
		if err != nil {
			// Deleted between the list and the lookup.
			if identity.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, u.Username)
	}
	return out, nil
}

func (g *Graph) requireUser(ctx context.Context, op string, id int64) error {
	if _, err := g.users.GetUserByID(ctx, id); err != nil {
		if identity.IsNotFound(err) {
			return identity.NotFoundError{Op: op, Resource: "user"}
		}
		return err
	}
	return nil
}

func (g *Graph) publish(userID int64, ev Event) {
	if g.notifier == nil {
		return
	}
	g.notifier.Publish(userID, ev)
}

func resultFor(err error) string {
	switch {
	case identity.IsNotFound(err):
		return "not_found"
	case IsSelfFollow(err):
		return "self"
	default:
		return "error"
	}
}
