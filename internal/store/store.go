// Package store defines the durable state contract for issued key pairs.
//
// Any implementation must enforce per-tenant key id uniqueness at the
// storage boundary (constraint or equivalent) and keep DeactivateOthers
// atomic with respect to concurrent reads, so the lifecycle engine stays
// correct across multiple processes sharing one store.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist for (tenant, key id)
var ErrNotFound = errors.New("key not found")

// ErrDuplicate is returned by Create when (tenant, key id) already exists.
// It also catches races the allocator's advisory existence check missed.
var ErrDuplicate = errors.New("a key with this key_id already exists for this tenant")

// KeyRecord is one issued key pair. After creation, Active is the only
// field that is ever mutated; records are never physically deleted here.
type KeyRecord struct {
	TenantID string
	KeyID    int64

	// Algorithm is the registry name ("rsa", "ed25519", "ec-p256")
	Algorithm string

	// Curve is set only for EC-family algorithms
	Curve string

	// PEM-encoded key material
	PrivateKeyPEM string
	PublicKeyPEM  string

	// KeySize is set only for RSA
	KeySize int

	CreatedAt time.Time
	ExpiresAt time.Time
	Active    bool
}

// ActiveUnexpired reports whether the record is active and not yet expired
// at the given instant.
func (r *KeyRecord) ActiveUnexpired(now time.Time) bool {
	return r.Active && r.ExpiresAt.After(now)
}

// ListFilter narrows and pages a tenant's key listing
type ListFilter struct {
	// Active filters on the active flag; nil means no filter
	Active *bool

	// IncludeExpired includes records whose ExpiresAt has passed
	IncludeExpired bool

	Limit  int
	Offset int
}

// Repository is the durable store for key records. Operations are durable
// and immediately consistent once they return. Implementations provide
// their own synchronization; no caller holds cross-request locks.
type Repository interface {
	// Exists reports whether a record exists for (tenant, key id)
	Exists(ctx context.Context, tenantID string, keyID int64) (bool, error)

	// Create persists a new record, failing with ErrDuplicate if
	// (tenant, key id) is already taken.
	Create(ctx context.Context, rec *KeyRecord) error

	// GetOne returns the record for (tenant, key id), or ErrNotFound
	GetOne(ctx context.Context, tenantID string, keyID int64) (*KeyRecord, error)

	// Save persists mutations to an existing record
	Save(ctx context.Context, rec *KeyRecord) error

	// DeactivateOthers atomically flips Active to false for every record of
	// the tenant that is currently active, unexpired at now, and not
	// excludeKeyID. Returns the number of records changed. No concurrent
	// reader may observe a half-applied flip.
	DeactivateOthers(ctx context.Context, tenantID string, excludeKeyID int64, now time.Time) (int, error)

	// GetActiveUnexpired returns the tenant's active, unexpired records,
	// newest CreatedAt first.
	GetActiveUnexpired(ctx context.Context, tenantID string, now time.Time) ([]KeyRecord, error)

	// ListKeys returns one page of the tenant's records matching the filter,
	// newest CreatedAt first, along with the total count of the filtered set
	// before pagination.
	ListKeys(ctx context.Context, tenantID string, now time.Time, filter ListFilter) ([]KeyRecord, int, error)
}
