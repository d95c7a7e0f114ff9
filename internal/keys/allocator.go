package keys

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
)

// Key identifiers are drawn uniformly from a fixed wide range. The range is
// wide enough that collisions within a tenant are rare and absorbed by
// retrying, avoiding any cross-process counter coordination.
const (
	keyIDMin = 10_000_000
	keyIDMax = 9_999_999_999
)

// DefaultAllocationAttempts bounds the allocator's retry loop
const DefaultAllocationAttempts = 24

// ErrAllocationExhausted is returned when no unique key id was found within
// the attempt budget. Callers should treat this as retryable.
var ErrAllocationExhausted = errors.New("failed to allocate a unique key id")

// ExistsFunc probes whether a candidate key id is already taken for a tenant.
// The probe is advisory; the repository's uniqueness constraint remains the
// authority on insert.
type ExistsFunc func(ctx context.Context, tenantID string, keyID int64) (bool, error)

// AllocateKeyID draws random candidates until one passes the existence probe,
// retrying up to attempts times. attempts <= 0 uses the default budget.
func AllocateKeyID(ctx context.Context, tenantID string, exists ExistsFunc, attempts int) (int64, error) {
	if attempts <= 0 {
		attempts = DefaultAllocationAttempts
	}

	for i := 0; i < attempts; i++ {
		candidate := keyIDMin + rand.Int64N(keyIDMax-keyIDMin+1)
		taken, err := exists(ctx, tenantID, candidate)
		if err != nil {
			return 0, fmt.Errorf("existence check failed: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return 0, fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, attempts)
}
