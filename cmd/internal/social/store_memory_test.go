package social

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AddRemove(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	created, err := st.AddEdge(ctx, 1, 2, now)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = st.AddEdge(ctx, 1, 2, now)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = st.AddEdge(ctx, 3, 3, now)
	assert.True(t, IsSelfFollow(err))

	removed, err := st.RemoveEdge(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = st.RemoveEdge(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryStore_ListClampsLimit(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := int64(2); i <= MaxList+10; i++ {
		_, err := st.AddEdge(ctx, i, 1, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	ids, err := st.ListFollowers(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, ids, MaxList)
	assert.Equal(t, int64(MaxList+10), ids[0])

	ids, err = st.ListFollowers(ctx, 1, 5)
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	n, err := st.CountFollowers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, MaxList+9, n)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	st := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.AddEdge(ctx, 1, 2, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	_, err = st.HasEdge(ctx, 1, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
