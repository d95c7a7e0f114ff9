package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate() *Gate {
	return NewGate(NewStaticCredentialStore(map[string]Account{
		"creator": {
			Secret:   "creator-secret",
			TenantID: "acme",
			Roles:    []string{RoleCreate},
		},
		"viewer": {
			Secret:   "viewer-secret",
			TenantID: "acme",
			Roles:    []string{RoleView},
		},
		"tenant-admin": {
			Secret:   "admin-secret",
			TenantID: "acme",
			Roles:    []string{RoleAdmin},
		},
		"operator": {
			Secret:   "operator-secret",
			TenantID: "ops",
			Roles:    []string{RoleAdminGlobal},
		},
	}))
}

func TestGateAuthorize(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate()

	t.Run("missing credentials", func(t *testing.T) {
		_, err := gate.Authorize(ctx, "", "", "acme", RoleView)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := gate.Authorize(ctx, "nobody", "whatever", "acme", RoleView)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := gate.Authorize(ctx, "creator", "not-the-secret", "acme", RoleCreate)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("matching role in own tenant", func(t *testing.T) {
		principal, err := gate.Authorize(ctx, "creator", "creator-secret", "acme", RoleCreate)
		require.NoError(t, err)
		assert.Equal(t, "acme", principal.TenantID)
	})

	t.Run("any of the required roles suffices", func(t *testing.T) {
		_, err := gate.Authorize(ctx, "creator", "creator-secret", "acme", RoleRotate, RoleCreate)
		assert.NoError(t, err)
	})

	t.Run("insufficient role", func(t *testing.T) {
		_, err := gate.Authorize(ctx, "viewer", "viewer-secret", "acme", RoleCreate)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("tenant mismatch beats role match", func(t *testing.T) {
		// creator has the right role but for the wrong tenant
		_, err := gate.Authorize(ctx, "creator", "creator-secret", "globex", RoleCreate)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin passes every role check in its tenant", func(t *testing.T) {
		for _, role := range []string{RoleCreate, RoleRotate, RoleDisable, RoleView} {
			_, err := gate.Authorize(ctx, "tenant-admin", "admin-secret", "acme", role)
			assert.NoError(t, err)
		}
	})

	t.Run("admin is still tenant-bound", func(t *testing.T) {
		_, err := gate.Authorize(ctx, "tenant-admin", "admin-secret", "globex", RoleView)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin_global crosses tenants", func(t *testing.T) {
		for _, tenant := range []string{"acme", "globex", "ops"} {
			_, err := gate.Authorize(ctx, "operator", "operator-secret", tenant, RoleDisable)
			assert.NoError(t, err)
		}
	})
}

func TestStaticCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := NewStaticCredentialStore(map[string]Account{
		"client": {Secret: "secret", TenantID: "acme", Roles: []string{RoleView}},
	})

	t.Run("resolves a principal", func(t *testing.T) {
		principal, err := store.Authenticate(ctx, "client", "secret")
		require.NoError(t, err)
		assert.Equal(t, "acme", principal.TenantID)
		assert.True(t, principal.HasRole(RoleView))
	})

	t.Run("unknown id and bad secret are indistinguishable", func(t *testing.T) {
		_, err := store.Authenticate(ctx, "missing", "secret")
		require.ErrorIs(t, err, ErrUnknownClient)

		_, badSecret := store.Authenticate(ctx, "client", "wrong")
		assert.Equal(t, err.Error(), badSecret.Error())
	})
}
