// Package service implements the key lifecycle engine: issuing, rotating,
// disabling, listing and publishing tenant signing keys.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alechenninger/keymint/internal/clock"
	"github.com/alechenninger/keymint/internal/keys"
	"github.com/alechenninger/keymint/internal/store"
)

// Default engine options, matching the service's documented defaults
const (
	DefaultAlgorithm    = keys.AlgorithmRSA
	DefaultDurationDays = 90
	DefaultListLimit    = 50
	MaxListLimit        = 200
)

// Observer receives lifecycle events for logging or other side channels.
// Implementations must not block and must never record private material.
type Observer interface {
	KeyIssued(ctx context.Context, rec *store.KeyRecord)
	KeyRotated(ctx context.Context, rec *store.KeyRecord, deactivated int)
	KeyDisabled(ctx context.Context, tenantID string, keyID int64)
}

type noopObserver struct{}

func (noopObserver) KeyIssued(context.Context, *store.KeyRecord)         {}
func (noopObserver) KeyRotated(context.Context, *store.KeyRecord, int)   {}
func (noopObserver) KeyDisabled(context.Context, string, int64)          {}

// Options tunes engine defaults. Zero values fall back to the package
// defaults above.
type Options struct {
	DefaultAlgorithm    string
	DefaultDurationDays int
	AllocationAttempts  int
	DefaultListLimit    int
	MaxListLimit        int
}

// Config assembles a Service
type Config struct {
	Store    store.Repository
	Registry *keys.Registry
	Clock    clock.Clock
	Observer Observer
	Options  Options
}

// Service orchestrates key lifecycle operations over the strategy registry
// and the repository. It owns all KeyRecord mutation; authorization happens
// before any of these methods run.
type Service struct {
	store    store.Repository
	registry *keys.Registry
	clock    clock.Clock
	observer Observer
	opts     Options
}

// NewService creates a lifecycle engine
func NewService(cfg Config) *Service {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = noopObserver{}
	}

	opts := cfg.Options
	if opts.DefaultAlgorithm == "" {
		opts.DefaultAlgorithm = DefaultAlgorithm
	}
	if opts.DefaultDurationDays == 0 {
		opts.DefaultDurationDays = DefaultDurationDays
	}
	if opts.AllocationAttempts == 0 {
		opts.AllocationAttempts = keys.DefaultAllocationAttempts
	}
	if opts.DefaultListLimit == 0 {
		opts.DefaultListLimit = DefaultListLimit
	}
	if opts.MaxListLimit == 0 {
		opts.MaxListLimit = MaxListLimit
	}

	return &Service{
		store:    cfg.Store,
		registry: cfg.Registry,
		clock:    clk,
		observer: obs,
		opts:     opts,
	}
}

// IssueRequest carries the optional parameters of an issue operation.
// Nil pointers mean "not provided".
type IssueRequest struct {
	// KeyID requests an explicit identifier instead of auto-allocation
	KeyID *int64

	// Algorithm selects the strategy; empty uses the configured default
	Algorithm string

	// KeySize is an RSA modulus size hint; ignored by other algorithms
	KeySize *int

	// DurationDays sets the validity window; nil uses the default
	DurationDays *int
}

// RotateRequest is an issue plus optional deactivation of the tenant's
// other current keys.
type RotateRequest struct {
	IssueRequest
	DeactivatePrevious bool
}

// ListQuery narrows and pages a listing
type ListQuery struct {
	// Active filters on the active flag; nil means no filter
	Active *bool

	// IncludeExpired includes records whose expiry has passed
	IncludeExpired bool

	// Limit is clamped to the configured maximum; zero uses the default
	Limit int

	Offset int
}

// Page is one page of a listing plus the filtered total and the effective
// paging parameters.
type Page struct {
	Items  []store.KeyRecord
	Total  int
	Limit  int
	Offset int
}

// Issue generates and persists a new key pair for the tenant
func (s *Service) Issue(ctx context.Context, tenantID string, req IssueRequest) (*store.KeyRecord, error) {
	rec, err := s.issue(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	s.observer.KeyIssued(ctx, rec)
	return rec, nil
}

// issue is the shared create path used by Issue and Rotate
func (s *Service) issue(ctx context.Context, tenantID string, req IssueRequest) (*store.KeyRecord, error) {
	algorithm := strings.ToLower(req.Algorithm)
	if algorithm == "" {
		algorithm = s.opts.DefaultAlgorithm
	}
	strategy, err := s.registry.Get(algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	durationDays := s.opts.DefaultDurationDays
	if req.DurationDays != nil {
		durationDays = *req.DurationDays
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: duration_days must be positive", ErrInvalidParameter)
	}

	sizeHint := 0
	if req.KeySize != nil {
		if *req.KeySize <= 0 {
			return nil, fmt.Errorf("%w: key_size must be positive", ErrInvalidParameter)
		}
		sizeHint = *req.KeySize
	}

	keyID, err := s.resolveKeyID(ctx, tenantID, req.KeyID)
	if err != nil {
		return nil, err
	}

	privatePEM, publicPEM, desc, err := strategy.GeneratePair(sizeHint)
	if err != nil {
		if errors.Is(err, keys.ErrDisallowedKeySize) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	now := s.clock.Now().UTC()
	rec := &store.KeyRecord{
		TenantID:      tenantID,
		KeyID:         keyID,
		Algorithm:     algorithm,
		Curve:         desc.Curve,
		PrivateKeyPEM: privatePEM,
		PublicKeyPEM:  publicPEM,
		KeySize:       desc.KeySize,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(durationDays) * 24 * time.Hour),
		Active:        true,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		// The allocator's existence probe is advisory; the store's
		// uniqueness constraint catches the race here.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return rec, nil
}

// resolveKeyID validates an explicit key id or allocates a fresh one
func (s *Service) resolveKeyID(ctx context.Context, tenantID string, explicit *int64) (int64, error) {
	if explicit != nil {
		keyID := *explicit
		if keyID <= 0 {
			return 0, fmt.Errorf("%w: key_id must be a positive integer", ErrInvalidParameter)
		}
		taken, err := s.store.Exists(ctx, tenantID, keyID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		if taken {
			return 0, ErrConflict
		}
		return keyID, nil
	}

	keyID, err := keys.AllocateKeyID(ctx, tenantID, s.store.Exists, s.opts.AllocationAttempts)
	if err != nil {
		if errors.Is(err, keys.ErrAllocationExhausted) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return keyID, nil
}

// Rotate issues a new key and, when requested, deactivates the tenant's
// other active unexpired keys. The new key is persisted active before the
// bulk deactivation runs, so readers never observe an empty active set;
// a brief window where both old and new keys are active is accepted.
func (s *Service) Rotate(ctx context.Context, tenantID string, req RotateRequest) (*store.KeyRecord, error) {
	rec, err := s.issue(ctx, tenantID, req.IssueRequest)
	if err != nil {
		return nil, err
	}

	deactivated := 0
	if req.DeactivatePrevious {
		deactivated, err = s.store.DeactivateOthers(ctx, tenantID, rec.KeyID, s.clock.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
	}

	s.observer.KeyRotated(ctx, rec, deactivated)
	return rec, nil
}

// Disable flips the record inactive. Disabling an already-inactive key
// succeeds; the operation is idempotent.
func (s *Service) Disable(ctx context.Context, tenantID string, keyID int64) (*store.KeyRecord, error) {
	rec, err := s.store.GetOne(ctx, tenantID, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	rec.Active = false
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.observer.KeyDisabled(ctx, tenantID, keyID)
	return rec, nil
}

// KeySet publishes the tenant's active unexpired public keys. It requires
// no principal; verifiers fetch it anonymously. An empty set is valid.
func (s *Service) KeySet(ctx context.Context, tenantID string) (*keys.KeySet, error) {
	records, err := s.store.GetActiveUnexpired(ctx, tenantID, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	set := &keys.KeySet{Keys: make([]keys.KeySetEntry, 0, len(records))}
	for _, rec := range records {
		strategy, err := s.registry.Get(rec.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		entry, err := strategy.KeySetEntry(rec.PublicKeyPEM, rec.KeyID)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key %d: %w", rec.KeyID, err)
		}
		set.Keys = append(set.Keys, entry)
	}
	return set, nil
}

// List returns one page of the tenant's keys. The limit defaults and is
// clamped to the configured maximum; the offset must be non-negative.
func (s *Service) List(ctx context.Context, tenantID string, q ListQuery) (*Page, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.opts.DefaultListLimit
	}
	if limit > s.opts.MaxListLimit {
		limit = s.opts.MaxListLimit
	}
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must be non-negative", ErrInvalidParameter)
	}

	items, total, err := s.store.ListKeys(ctx, tenantID, s.clock.Now().UTC(), store.ListFilter{
		Active:         q.Active,
		IncludeExpired: q.IncludeExpired,
		Limit:          limit,
		Offset:         q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return &Page{Items: items, Total: total, Limit: limit, Offset: q.Offset}, nil
}
