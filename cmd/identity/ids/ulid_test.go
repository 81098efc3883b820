package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID_SortsByTime(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a, err := NewULID(t0)
	require.NoError(t, err)
	b, err := NewULID(t0.Add(time.Second))
	require.NoError(t, err)

	assert.Len(t, a, 26)
	assert.Less(t, a, b)
	assert.True(t, ValidULID(a))
}

func TestValidULID_Rejects(t *testing.T) {
	for _, s := range []string{"", "short", "!!!!!!!!!!!!!!!!!!!!!!!!!!", "01ARZ3NDEKTSV4RRFFQ69G5FAVX"} {
		assert.False(t, ValidULID(s), s)
	}
}
