package social

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/pgtest"
)

func newPostgresFixture(t *testing.T) (*PostgresStore, *identity.PostgresStore) {
	t.Helper()

	pool := pgtest.OpenPool(t)
	schema := pgtest.NewSchema(t, pool)

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(schema))
	if err != nil {
		t.Fatalf("identity.NewPostgresStore: %v", err)
	}
	st, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	return st, users
}

func mustUser(t *testing.T, users *identity.PostgresStore, name string) identity.User {
	t.Helper()
	u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Username:     name,
		Email:        name + "@x.com",
		PasswordHash: "h",
	})
	if err != nil {
		t.Fatalf("CreateUser %s: %v", name, err)
	}
	return u
}

func TestPostgresStore_EdgeLifecycle(t *testing.T) {
	st, users := newPostgresFixture(t)
	ctx := context.Background()
	alice := mustUser(t, users, "alice")
	bob := mustUser(t, users, "bob")

	created, err := st.AddEdge(ctx, alice.ID, bob.ID, time.Now())
	if err != nil || !created {
		t.Fatalf("AddEdge: created=%v err=%v", created, err)
	}
	created, err = st.AddEdge(ctx, alice.ID, bob.ID, time.Now())
	if err != nil || created {
		t.Fatalf("duplicate AddEdge: created=%v err=%v", created, err)
	}

	if n, err := st.CountFollowers(ctx, bob.ID); err != nil || n != 1 {
		t.Fatalf("CountFollowers: n=%d err=%v", n, err)
	}
	if n, err := st.CountFollowing(ctx, alice.ID); err != nil || n != 1 {
		t.Fatalf("CountFollowing: n=%d err=%v", n, err)
	}
	ids, err := st.ListFollowers(ctx, bob.ID, 10)
	if err != nil || len(ids) != 1 || ids[0] != alice.ID {
		t.Fatalf("ListFollowers: ids=%v err=%v", ids, err)
	}

	removed, err := st.RemoveEdge(ctx, alice.ID, bob.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveEdge: removed=%v err=%v", removed, err)
	}
	if ok, err := st.HasEdge(ctx, alice.ID, bob.ID); err != nil || ok {
		t.Fatalf("HasEdge after remove: ok=%v err=%v", ok, err)
	}
}

func TestPostgresStore_Constraints(t *testing.T) {
	st, users := newPostgresFixture(t)
	ctx := context.Background()
	alice := mustUser(t, users, "alice")

	if _, err := st.AddEdge(ctx, alice.ID, alice.ID, time.Now()); !IsSelfFollow(err) {
		t.Fatalf("expected self-follow error, got %v", err)
	}
	if _, err := st.AddEdge(ctx, alice.ID, alice.ID+1000, time.Now()); !identity.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresStore_ConcurrentFollow(t *testing.T) {
	st, users := newPostgresFixture(t)
	ctx := context.Background()
	alice := mustUser(t, users, "alice")
	bob := mustUser(t, users, "bob")

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inserts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := st.AddEdge(ctx, alice.ID, bob.ID, time.Now())
			if err != nil {
				t.Errorf("AddEdge: %v", err)
				return
			}
			if created {
				mu.Lock()
				inserts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserts != 1 {
		t.Fatalf("expected exactly one insert, got %d", inserts)
	}
	if c, err := st.CountFollowers(ctx, bob.ID); err != nil || c != 1 {
		t.Fatalf("CountFollowers: n=%d err=%v", c, err)
	}
}
