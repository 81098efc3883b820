package social

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xORB/blog-website/cmd/identity"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[int64][]Event
}

func (n *recordingNotifier) Publish(userID int64, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[int64][]Event)
	}
	n.events[userID] = append(n.events[userID], ev)
}

func (n *recordingNotifier) For(userID int64) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events[userID]...)
}

type fixture struct {
	graph    *Graph
	users    *identity.MemoryStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	users := identity.NewMemoryStore()
	n := &recordingNotifier{}
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	g, err := NewGraph(NewMemoryStore(), users, WithNotifier(n), WithMetrics(m))
	require.NoError(t, err)
	return fixture{graph: g, users: users, notifier: n}
}

func (f fixture) user(t *testing.T, name string) identity.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), identity.CreateUserInput{
		Username:     name,
		Email:        name + "@x.com",
		PasswordHash: "h",
	})
	require.NoError(t, err)
	return u
}

func TestNewGraph_RequiresDeps(t *testing.T) {
	_, err := NewGraph(nil, identity.NewMemoryStore())
	assert.Error(t, err)
	_, err = NewGraph(NewMemoryStore(), nil)
	assert.Error(t, err)
}

func TestFollow_AliceBobScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	require.NoError(t, f.graph.Follow(ctx, alice, bob.ID))

	ok, err := f.graph.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.graph.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok, "edges are directed")

	n, err := f.graph.FollowersCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.graph.FollowingCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.graph.FollowersCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, f.graph.Unfollow(ctx, alice, bob.ID))
	ok, err = f.graph.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	n, err = f.graph.FollowersCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFollow_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	require.NoError(t, f.graph.Follow(ctx, alice, bob.ID))
	require.NoError(t, f.graph.Follow(ctx, alice, bob.ID))

	n, err := f.graph.FollowersCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	evs := f.notifier.For(bob.ID)
	require.Len(t, evs, 1, "only the inserting call publishes")
	assert.Equal(t, EventFollowCreated, evs[0].Type)
	assert.Equal(t, alice.ID, evs[0].FollowerID)
	assert.Equal(t, "alice", evs[0].FollowerUsername)
}

func TestUnfollow_AbsentEdgeIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	require.NoError(t, f.graph.Unfollow(ctx, alice, bob.ID))
	assert.Empty(t, f.notifier.For(bob.ID))

	require.NoError(t, f.graph.Follow(ctx, alice, bob.ID))
	require.NoError(t, f.graph.Unfollow(ctx, alice, bob.ID))
	require.NoError(t, f.graph.Unfollow(ctx, alice, bob.ID))

	evs := f.notifier.For(bob.ID)
	require.Len(t, evs, 2)
	assert.Equal(t, EventFollowRemoved, evs[1].Type)
}

func TestFollow_Self(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	err := f.graph.Follow(ctx, alice, alice.ID)
	require.Error(t, err)
	assert.True(t, IsSelfFollow(err))

	err = f.graph.Unfollow(ctx, alice, alice.ID)
	require.Error(t, err)
	assert.True(t, IsSelfFollow(err))

	ok, err := f.graph.IsFollowing(ctx, alice.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollow_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	err := f.graph.Follow(ctx, alice, 9999)
	require.Error(t, err)
	assert.True(t, identity.IsNotFound(err))

	err = f.graph.Unfollow(ctx, alice, 9999)
	require.Error(t, err)
	assert.True(t, identity.IsNotFound(err))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	require.NoError(t, f.graph.Follow(ctx, alice, bob.ID))
	require.NoError(t, f.graph.Follow(ctx, carol, bob.ID))
	require.NoError(t, f.graph.Follow(ctx, bob, carol.ID))

	st, err := f.graph.Stats(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ProfileStats{Followers: 2, Following: 1, IsFollowing: true}, st)

	st, err = f.graph.Stats(ctx, bob.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ProfileStats{Followers: 2, Following: 1}, st)

	st, err = f.graph.Stats(ctx, 0, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ProfileStats{Followers: 0, Following: 1}, st)
}

func TestFollowersAndFollowing_NewestFirst(t *testing.T) {
	users := identity.NewMemoryStore()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g, err := NewGraph(NewMemoryStore(), users, WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	require.NoError(t, err)

	f := fixture{graph: g, users: users}
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	require.NoError(t, g.Follow(ctx, bob, alice.ID))
	require.NoError(t, g.Follow(ctx, carol, alice.ID))
	require.NoError(t, g.Follow(ctx, alice, bob.ID))
	require.NoError(t, g.Follow(ctx, alice, carol.ID))

	names, err := g.Followers(ctx, alice.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "bob"}, names)

	names, err = g.Following(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, names)
}

func TestFollow_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.graph.Follow(ctx, alice, bob.ID)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	count, err := f.graph.FollowersCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, f.notifier.For(bob.ID), 1)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	m.observe("follow", "ok")

	var nilMetrics *Metrics
	nilMetrics.observe("follow", "ok")
}
