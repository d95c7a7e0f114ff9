package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/alechenninger/keymint/internal/auth"
	"github.com/alechenninger/keymint/internal/service"
	"github.com/alechenninger/keymint/internal/store"
)

// Handler serves the key lifecycle API. The authorization gate runs before
// every operation that requires a principal; the key-set endpoint is public.
type Handler struct {
	svc   *service.Service
	gate  *auth.Gate
	log   logrus.FieldLogger
	cache *keySetCache
}

// NewHandler creates the API handler. cache may be nil to disable key-set
// response caching.
func NewHandler(svc *service.Service, gate *auth.Gate, log logrus.FieldLogger, cache *keySetCache) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{svc: svc, gate: gate, log: log, cache: cache}
}

// Routes mounts the API onto a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Route("/tenants/{tenant}", func(r chi.Router) {
		r.Post("/keys", h.issueKey)
		r.Post("/keys/rotate", h.rotateKey)
		r.Post("/keys/{keyID}/disable", h.disableKey)
		r.Get("/keys", h.listKeys)
		r.Get("/.well-known/jwks.json", h.keySet)
	})
}

// issuePayload is the request body shared by issue and rotate
type issuePayload struct {
	KeyID              *int64 `json:"key_id"`
	Algorithm          string `json:"algorithm"`
	KeySize            *int   `json:"key_size"`
	DurationDays       *int   `json:"duration_days"`
	DeactivatePrevious bool   `json:"deactivate_previous"`
}

// keyMetadata is the public projection of a record. Private material is
// never serialized by the transport.
type keyMetadata struct {
	TenantID  string    `json:"tenant_id"`
	KeyID     int64     `json:"key_id"`
	Algorithm string    `json:"algorithm"`
	Curve     string    `json:"curve,omitempty"`
	KeySize   int       `json:"key_size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
}

func toMetadata(rec *store.KeyRecord) keyMetadata {
	return keyMetadata{
		TenantID:  rec.TenantID,
		KeyID:     rec.KeyID,
		Algorithm: rec.Algorithm,
		Curve:     rec.Curve,
		KeySize:   rec.KeySize,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
		Active:    rec.Active,
	}
}

func (h *Handler) issueKey(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	if _, err := h.authorize(r, tenantID, auth.RoleCreate); err != nil {
		h.writeError(w, r, err)
		return
	}

	payload, err := decodePayload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.svc.Issue(r.Context(), tenantID, issueRequest(payload))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cache.invalidate(tenantID)
	h.writeJSON(w, http.StatusCreated, toMetadata(rec))
}

func (h *Handler) rotateKey(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	if _, err := h.authorize(r, tenantID, auth.RoleRotate); err != nil {
		h.writeError(w, r, err)
		return
	}

	payload, err := decodePayload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.svc.Rotate(r.Context(), tenantID, service.RotateRequest{
		IssueRequest:       issueRequest(payload),
		DeactivatePrevious: payload.DeactivatePrevious,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cache.invalidate(tenantID)
	h.writeJSON(w, http.StatusCreated, toMetadata(rec))
}

func (h *Handler) disableKey(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	if _, err := h.authorize(r, tenantID, auth.RoleDisable); err != nil {
		h.writeError(w, r, err)
		return
	}

	keyID, err := strconv.ParseInt(chi.URLParam(r, "keyID"), 10, 64)
	if err != nil {
		h.writeError(w, r, service.ErrInvalidParameter)
		return
	}

	rec, err := h.svc.Disable(r.Context(), tenantID, keyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cache.invalidate(tenantID)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id": rec.TenantID,
		"key_id":    rec.KeyID,
		"active":    rec.Active,
	})
}

func (h *Handler) keySet(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	if body, ok := h.cache.get(tenantID); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	set, err := h.svc.KeySet(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body, err := json.Marshal(set)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.cache.set(tenantID, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) listKeys(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	if _, err := h.authorize(r, tenantID, auth.RoleView); err != nil {
		h.writeError(w, r, err)
		return
	}

	query, err := parseListQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.svc.List(r.Context(), tenantID, query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]keyMetadata, len(page.Items))
	for i := range page.Items {
		items[i] = toMetadata(&page.Items[i])
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":  page.Total,
		"items":  items,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// authorize extracts client credentials and runs the gate
func (h *Handler) authorize(r *http.Request, tenantID string, required ...string) (*auth.Principal, error) {
	clientID, clientSecret := clientCredentials(r)
	return h.gate.Authorize(r.Context(), clientID, clientSecret, tenantID, required...)
}

// clientCredentials extracts the client id and secret from Basic auth or
// the explicit credential headers.
func clientCredentials(r *http.Request) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok {
		return id, secret
	}
	return r.Header.Get("X-Client-Id"), r.Header.Get("X-Client-Secret")
}

// decodePayload reads an optional JSON body; an empty body is a valid
// all-defaults request.
func decodePayload(r *http.Request) (*issuePayload, error) {
	var payload issuePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return &issuePayload{}, nil
		}
		return nil, service.ErrInvalidParameter
	}
	return &payload, nil
}

func issueRequest(payload *issuePayload) service.IssueRequest {
	return service.IssueRequest{
		KeyID:        payload.KeyID,
		Algorithm:    payload.Algorithm,
		KeySize:      payload.KeySize,
		DurationDays: payload.DurationDays,
	}
}

func parseListQuery(r *http.Request) (service.ListQuery, error) {
	var query service.ListQuery
	params := r.URL.Query()

	if raw := params.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return query, service.ErrInvalidParameter
		}
		query.Active = &active
	}
	if raw := params.Get("include_expired"); raw != "" {
		includeExpired, err := strconv.ParseBool(raw)
		if err != nil {
			return query, service.ErrInvalidParameter
		}
		query.IncludeExpired = includeExpired
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, service.ErrInvalidParameter
		}
		query.Limit = limit
	}
	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return query, service.ErrInvalidParameter
		}
		query.Offset = offset
	}
	return query, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Error("failed to write response")
	}
}

// writeError maps engine and gate errors to statuses. Retryable kinds get
// 5xx; everything else reflects the caller's input. Storage detail never
// reaches the response body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "missing or invalid credentials"
	case errors.Is(err, auth.ErrForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrInvalidParameter):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrConflict):
		status, message = http.StatusConflict, service.ErrConflict.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, service.ErrNotFound.Error()
	case errors.Is(err, service.ErrAllocationExhausted):
		status, message = http.StatusServiceUnavailable, "failed to allocate a unique key id, try again"
	case errors.Is(err, service.ErrStorageFailure):
		status, message = http.StatusInternalServerError, "storage failure"
	}

	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
