package keys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateKeyID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a candidate in range", func(t *testing.T) {
		id, err := AllocateKeyID(ctx, "tenant-a", func(context.Context, string, int64) (bool, error) {
			return false, nil
		}, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, id, int64(keyIDMin))
		assert.LessOrEqual(t, id, int64(keyIDMax))
	})

	t.Run("retries past collisions", func(t *testing.T) {
		calls := 0
		id, err := AllocateKeyID(ctx, "tenant-a", func(context.Context, string, int64) (bool, error) {
			calls++
			// First two candidates are taken
			return calls <= 2, nil
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.NotZero(t, id)
	})

	t.Run("exhausts the attempt budget", func(t *testing.T) {
		calls := 0
		_, err := AllocateKeyID(ctx, "tenant-a", func(context.Context, string, int64) (bool, error) {
			calls++
			return true, nil
		}, 5)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAllocationExhausted)
		assert.Equal(t, 5, calls)
	})

	t.Run("propagates probe errors", func(t *testing.T) {
		_, err := AllocateKeyID(ctx, "tenant-a", func(context.Context, string, int64) (bool, error) {
			return false, assert.AnError
		}, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
