package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSeenAndForget(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	seen, err := s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, s.Forget(ctx, "evt-1"))
	seen, err = s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
