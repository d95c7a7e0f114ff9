package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow plays back a canned column tuple in selectColumns order
type fakeRow struct {
	values []any
}

func (f *fakeRow) Scan(dest ...any) error {
	for i, v := range f.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		case **int:
			if v == nil {
				*d = nil
			} else {
				n := v.(int)
				*d = &n
			}
		case *time.Time:
			*d = v.(time.Time)
		case *bool:
			*d = v.(bool)
		}
	}
	return nil
}

func TestScanRecord(t *testing.T) {
	tz := time.FixedZone("CET", 3600)
	created := time.Date(2026, 3, 1, 13, 0, 0, 0, tz)
	expires := time.Date(2026, 6, 1, 13, 0, 0, 0, tz)

	t.Run("rsa row with nullable columns unset", func(t *testing.T) {
		rec, err := scanRecord(&fakeRow{values: []any{
			"acme", int64(10000001), "rsa", nil, "priv", "pub", 2048, created, expires, true,
		}})
		require.NoError(t, err)

		assert.Equal(t, "acme", rec.TenantID)
		assert.Empty(t, rec.Curve)
		assert.Equal(t, 2048, rec.KeySize)

		// Timestamps come back normalized to UTC
		assert.Equal(t, time.UTC, rec.CreatedAt.Location())
		assert.True(t, rec.CreatedAt.Equal(created))
	})

	t.Run("ec row without a key size", func(t *testing.T) {
		rec, err := scanRecord(&fakeRow{values: []any{
			"acme", int64(10000002), "ec-p256", "P-256", "priv", "pub", nil, created, expires, false,
		}})
		require.NoError(t, err)

		assert.Equal(t, "P-256", rec.Curve)
		assert.Zero(t, rec.KeySize)
		assert.False(t, rec.Active)
	})
}

func TestNullableParams(t *testing.T) {
	assert.Nil(t, nullString(""))
	require.NotNil(t, nullString("P-256"))
	assert.Equal(t, "P-256", *nullString("P-256"))

	assert.Nil(t, nullInt(0))
	require.NotNil(t, nullInt(2048))
	assert.Equal(t, 2048, *nullInt(2048))
}
