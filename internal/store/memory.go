package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is the in-memory reference implementation of Repository,
// used for tests and development. A single RWMutex guards all state, which
// also makes DeactivateOthers atomic relative to concurrent reads.
type MemoryRepository struct {
	mu       sync.RWMutex
	byTenant map[string]map[int64]*memoryRecord
	seq      uint64
}

// memoryRecord pairs a record with its insertion sequence so listings have
// a deterministic order when CreatedAt ties.
type memoryRecord struct {
	rec KeyRecord
	seq uint64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byTenant: make(map[string]map[int64]*memoryRecord),
	}
}

// Exists reports whether a record exists for (tenant, key id)
func (m *MemoryRepository) Exists(ctx context.Context, tenantID string, keyID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byTenant[tenantID][keyID]
	return ok, nil
}

// Create persists a new record, enforcing (tenant, key id) uniqueness under
// the write lock.
func (m *MemoryRepository) Create(ctx context.Context, rec *KeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tenant, ok := m.byTenant[rec.TenantID]
	if !ok {
		tenant = make(map[int64]*memoryRecord)
		m.byTenant[rec.TenantID] = tenant
	}
	if _, taken := tenant[rec.KeyID]; taken {
		return ErrDuplicate
	}

	m.seq++
	tenant[rec.KeyID] = &memoryRecord{rec: *rec, seq: m.seq}
	return nil
}

// GetOne returns a copy of the record for (tenant, key id)
func (m *MemoryRepository) GetOne(ctx context.Context, tenantID string, keyID int64) (*KeyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.byTenant[tenantID][keyID]
	if !ok {
		return nil, ErrNotFound
	}
	rec := entry.rec
	return &rec, nil
}

// Save persists mutations to an existing record
func (m *MemoryRepository) Save(ctx context.Context, rec *KeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.byTenant[rec.TenantID][rec.KeyID]
	if !ok {
		return ErrNotFound
	}
	entry.rec = *rec
	return nil
}

// DeactivateOthers flips Active to false for the tenant's other currently
// active, unexpired records in one critical section.
func (m *MemoryRepository) DeactivateOthers(ctx context.Context, tenantID string, excludeKeyID int64, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for keyID, entry := range m.byTenant[tenantID] {
		if keyID == excludeKeyID {
			continue
		}
		if entry.rec.ActiveUnexpired(now) {
			entry.rec.Active = false
			count++
		}
	}
	return count, nil
}

// GetActiveUnexpired returns the tenant's active, unexpired records,
// newest first.
func (m *MemoryRepository) GetActiveUnexpired(ctx context.Context, tenantID string, now time.Time) ([]KeyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*memoryRecord
	for _, entry := range m.byTenant[tenantID] {
		if entry.rec.ActiveUnexpired(now) {
			entries = append(entries, entry)
		}
	}
	sortNewestFirst(entries)

	out := make([]KeyRecord, len(entries))
	for i, entry := range entries {
		out[i] = entry.rec
	}
	return out, nil
}

// ListKeys returns one page of the tenant's filtered records plus the
// filtered total.
func (m *MemoryRepository) ListKeys(ctx context.Context, tenantID string, now time.Time, filter ListFilter) ([]KeyRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*memoryRecord
	for _, entry := range m.byTenant[tenantID] {
		if filter.Active != nil && entry.rec.Active != *filter.Active {
			continue
		}
		if !filter.IncludeExpired && !entry.rec.ExpiresAt.After(now) {
			continue
		}
		entries = append(entries, entry)
	}
	sortNewestFirst(entries)
	total := len(entries)

	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	out := make([]KeyRecord, 0, end-start)
	for _, entry := range entries[start:end] {
		out = append(out, entry.rec)
	}
	return out, total, nil
}

// sortNewestFirst orders by CreatedAt descending, breaking ties by
// insertion order descending.
func sortNewestFirst(entries []*memoryRecord) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rec.CreatedAt.Equal(entries[j].rec.CreatedAt) {
			return entries[i].seq > entries[j].seq
		}
		return entries[i].rec.CreatedAt.After(entries[j].rec.CreatedAt)
	})
}
