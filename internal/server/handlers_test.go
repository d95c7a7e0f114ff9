package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/keymint/internal/auth"
	"github.com/alechenninger/keymint/internal/clock"
	"github.com/alechenninger/keymint/internal/keys"
	"github.com/alechenninger/keymint/internal/service"
	"github.com/alechenninger/keymint/internal/store"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, cacheTTL time.Duration) (http.Handler, *clock.FixtureClock) {
	t.Helper()

	clk := clock.NewFixtureClock(testStart)

	registry := keys.NewRegistry()
	registry.Register(keys.NewRSAStrategy(nil, 0))
	registry.Register(keys.NewEd25519Strategy())
	registry.Register(keys.NewECP256Strategy())

	svc := service.NewService(service.Config{
		Store:    store.NewMemoryRepository(),
		Registry: registry,
		Clock:    clk,
	})

	gate := auth.NewGate(auth.NewStaticCredentialStore(map[string]auth.Account{
		"acme-admin": {Secret: "admin-secret", TenantID: "acme", Roles: []string{auth.RoleAdmin}},
		"acme-view":  {Secret: "view-secret", TenantID: "acme", Roles: []string{auth.RoleView}},
	}))

	handler := NewHandler(svc, gate, nil, newKeySetCache(cacheTTL))
	r := chi.NewRouter()
	handler.Routes(r)
	return r, clk
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, clientID, clientSecret string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if clientID != "" {
		req.SetBasicAuth(clientID, clientSecret)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIssueKeyEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	t.Run("issues with an empty body", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys",
			map[string]any{"algorithm": "ed25519"}, "acme-admin", "admin-secret")
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "acme", body["tenant_id"])
		assert.Equal(t, "ed25519", body["algorithm"])
		assert.Equal(t, true, body["active"])
		assert.NotContains(t, rec.Body.String(), "PRIVATE KEY")
	})

	t.Run("explicit key id conflict", func(t *testing.T) {
		payload := map[string]any{"algorithm": "ed25519", "key_id": 12345678}
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys", payload, "acme-admin", "admin-secret")
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(t, router, http.MethodPost, "/tenants/acme/keys", payload, "acme-admin", "admin-secret")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid parameter", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys",
			map[string]any{"algorithm": "dsa"}, "acme-admin", "admin-secret")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tenants/acme/keys", bytes.NewBufferString("{nope"))
		req.SetBasicAuth("acme-admin", "admin-secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no credentials", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys", nil, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("insufficient role", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys", nil, "acme-view", "view-secret")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong tenant", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/tenants/globex/keys", nil, "acme-admin", "admin-secret")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("header credentials work too", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tenants/acme/keys", bytes.NewBufferString(`{"algorithm": "ed25519"}`))
		req.Header.Set("X-Client-Id", "acme-admin")
		req.Header.Set("X-Client-Secret", "admin-secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestRotateKeyEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	issue := doRequest(t, router, http.MethodPost, "/tenants/acme/keys",
		map[string]any{"algorithm": "ed25519"}, "acme-admin", "admin-secret")
	require.Equal(t, http.StatusCreated, issue.Code)
	oldKeyID := int64(decodeBody(t, issue)["key_id"].(float64))

	rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys/rotate",
		map[string]any{"algorithm": "ed25519", "deactivate_previous": true}, "acme-admin", "admin-secret")
	require.Equal(t, http.StatusCreated, rec.Code)
	newKeyID := int64(decodeBody(t, rec)["key_id"].(float64))
	assert.NotEqual(t, oldKeyID, newKeyID)

	// Only the rotated key remains published
	jwks := doRequest(t, router, http.MethodGet, "/tenants/acme/.well-known/jwks.json", nil, "", "")
	require.Equal(t, http.StatusOK, jwks.Code)

	var set keys.KeySet
	require.NoError(t, json.Unmarshal(jwks.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)
}

func TestDisableKeyEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	issue := doRequest(t, router, http.MethodPost, "/tenants/acme/keys",
		map[string]any{"algorithm": "ed25519", "key_id": 10000042}, "acme-admin", "admin-secret")
	require.Equal(t, http.StatusCreated, issue.Code)

	t.Run("disables and is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys/10000042/disable", nil, "acme-admin", "admin-secret")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, false, decodeBody(t, rec)["active"])
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys/555/disable", nil, "acme-admin", "admin-secret")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric key id", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys/abc/disable", nil, "acme-admin", "admin-secret")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListKeysEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, router, http.MethodPost, "/tenants/acme/keys",
			map[string]any{"algorithm": "ed25519"}, "acme-admin", "admin-secret")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("view role can list", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/tenants/acme/keys?limit=2", nil, "acme-view", "view-secret")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, float64(3), body["total"])
		assert.Equal(t, float64(2), body["limit"])
		assert.Len(t, body["items"], 2)
	})

	t.Run("listing requires credentials", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/tenants/acme/keys", nil, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad boolean filter", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/tenants/acme/keys?active=perhaps", nil, "acme-view", "view-secret")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestKeySetEndpoint(t *testing.T) {
	t.Run("is public and empty for a fresh tenant", func(t *testing.T) {
		router, _ := newTestRouter(t, 0)

		rec := doRequest(t, router, http.MethodGet, "/tenants/acme/.well-known/jwks.json", nil, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"keys": []}`, rec.Body.String())
	})

	t.Run("mutations invalidate the cached document", func(t *testing.T) {
		router, _ := newTestRouter(t, time.Minute)

		// Prime the cache with the empty set
		rec := doRequest(t, router, http.MethodGet, "/tenants/acme/.well-known/jwks.json", nil, "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		issue := doRequest(t, router, http.MethodPost, "/tenants/acme/keys",
			map[string]any{"algorithm": "ed25519"}, "acme-admin", "admin-secret")
		require.Equal(t, http.StatusCreated, issue.Code)

		rec = doRequest(t, router, http.MethodGet, "/tenants/acme/.well-known/jwks.json", nil, "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var set keys.KeySet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
		require.Len(t, set.Keys, 1)
		assert.Equal(t, "OKP", set.Keys[0].Kty)
		assert.Equal(t, "EdDSA", set.Keys[0].Alg)
	})
}
