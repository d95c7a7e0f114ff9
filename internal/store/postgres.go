package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS key_pairs (
    id BIGSERIAL PRIMARY KEY,
    tenant_id VARCHAR(255) NOT NULL,
    key_id BIGINT NOT NULL,
    algorithm VARCHAR(32) NOT NULL DEFAULT 'rsa',
    curve VARCHAR(32),
    private_key_pem TEXT NOT NULL,
    public_key_pem  TEXT NOT NULL,
    key_size INT,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    CONSTRAINT uq_tenant_kid UNIQUE (tenant_id, key_id)
);
CREATE INDEX IF NOT EXISTS ix_key_pairs_tenant ON key_pairs (tenant_id);
`

// PostgresRepository is a pgx-backed Repository. The uq_tenant_kid unique
// constraint is the authority on key id uniqueness; DeactivateOthers is a
// single UPDATE statement and therefore atomic for readers.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects a pool to the given DSN
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// EnsureSchema applies the key_pairs DDL if the table is missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying pool (idempotent)
func (r *PostgresRepository) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}

// Exists reports whether a record exists for (tenant, key id)
func (r *PostgresRepository) Exists(ctx context.Context, tenantID string, keyID int64) (bool, error) {
	const q = `SELECT 1 FROM key_pairs WHERE tenant_id = $1 AND key_id = $2 LIMIT 1`

	var one int
	err := r.pool.QueryRow(ctx, q, tenantID, keyID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a new record, mapping a unique violation to ErrDuplicate
func (r *PostgresRepository) Create(ctx context.Context, rec *KeyRecord) error {
	const q = `
INSERT INTO key_pairs
  (tenant_id, key_id, algorithm, curve, private_key_pem, public_key_pem, key_size, created_at, expires_at, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, q,
		rec.TenantID, rec.KeyID, rec.Algorithm, nullString(rec.Curve),
		rec.PrivateKeyPEM, rec.PublicKeyPEM, nullInt(rec.KeySize),
		rec.CreatedAt, rec.ExpiresAt, rec.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetOne returns the record for (tenant, key id), or ErrNotFound
func (r *PostgresRepository) GetOne(ctx context.Context, tenantID string, keyID int64) (*KeyRecord, error) {
	const q = selectColumns + ` WHERE tenant_id = $1 AND key_id = $2`

	rec, err := scanRecord(r.pool.QueryRow(ctx, q, tenantID, keyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Save persists the active flag, the only field mutated post-creation
func (r *PostgresRepository) Save(ctx context.Context, rec *KeyRecord) error {
	const q = `UPDATE key_pairs SET active = $1 WHERE tenant_id = $2 AND key_id = $3`

	tag, err := r.pool.Exec(ctx, q, rec.Active, rec.TenantID, rec.KeyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateOthers flips active for the tenant's other current keys in one
// statement.
func (r *PostgresRepository) DeactivateOthers(ctx context.Context, tenantID string, excludeKeyID int64, now time.Time) (int, error) {
	const q = `
UPDATE key_pairs
   SET active = FALSE
 WHERE tenant_id = $1
   AND active = TRUE
   AND expires_at > $2
   AND key_id <> $3`

	tag, err := r.pool.Exec(ctx, q, tenantID, now, excludeKeyID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// GetActiveUnexpired returns the tenant's active, unexpired records,
// newest first.
func (r *PostgresRepository) GetActiveUnexpired(ctx context.Context, tenantID string, now time.Time) ([]KeyRecord, error) {
	const q = selectColumns + `
 WHERE tenant_id = $1
   AND active = TRUE
   AND expires_at > $2
 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, q, tenantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListKeys returns one page of the tenant's filtered records plus the
// filtered total.
func (r *PostgresRepository) ListKeys(ctx context.Context, tenantID string, now time.Time, filter ListFilter) ([]KeyRecord, int, error) {
	wheres := []string{"tenant_id = $1"}
	args := []any{tenantID}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		wheres = append(wheres, fmt.Sprintf("active = $%d", len(args)))
	}
	if !filter.IncludeExpired {
		args = append(args, now)
		wheres = append(wheres, fmt.Sprintf("expires_at > $%d", len(args)))
	}
	whereSQL := strings.Join(wheres, " AND ")

	var total int
	countQ := `SELECT COUNT(*) FROM key_pairs WHERE ` + whereSQL
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Offset, filter.Limit)
	pageQ := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id DESC OFFSET $%d LIMIT $%d`,
		selectColumns, whereSQL, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, pageQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recs, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

const selectColumns = `
SELECT tenant_id, key_id, algorithm, curve, private_key_pem, public_key_pem, key_size, created_at, expires_at, active
  FROM key_pairs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*KeyRecord, error) {
	var rec KeyRecord
	var curve *string
	var keySize *int

	err := row.Scan(&rec.TenantID, &rec.KeyID, &rec.Algorithm, &curve,
		&rec.PrivateKeyPEM, &rec.PublicKeyPEM, &keySize,
		&rec.CreatedAt, &rec.ExpiresAt, &rec.Active)
	if err != nil {
		return nil, err
	}
	if curve != nil {
		rec.Curve = *curve
	}
	if keySize != nil {
		rec.KeySize = *keySize
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]KeyRecord, error) {
	var out []KeyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
