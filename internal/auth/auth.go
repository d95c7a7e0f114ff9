// Package auth resolves caller credentials to a tenant-scoped principal and
// gates lifecycle operations on tenant match and role sufficiency.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Role tags understood by the gate
const (
	RoleCreate  = "create"
	RoleRotate  = "rotate"
	RoleDisable = "disable"
	RoleView    = "view"

	// RoleAdmin grants all operations within the principal's own tenant
	RoleAdmin = "admin"

	// RoleAdminGlobal additionally waives tenant-match enforcement
	RoleAdminGlobal = "admin_global"
)

// ErrUnauthenticated means credentials were missing or did not resolve to a
// principal.
var ErrUnauthenticated = errors.New("missing or invalid credentials")

// ErrForbidden means the principal is not allowed to perform the operation.
// Tenant mismatch and insufficient role surface identically so responses
// cannot be used to probe which tenants or roles exist.
var ErrForbidden = errors.New("forbidden")

// ErrUnknownClient is returned by credential stores when a client id is
// unknown or the secret does not match.
var ErrUnknownClient = errors.New("unknown client")

// Principal is the resolved identity for one request. It is derived per
// request and never persisted.
type Principal struct {
	TenantID string
	Roles    []string
}

// HasRole reports whether the principal carries the given role tag
func (p *Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// CredentialStore looks up a principal from client credentials.
// Implementations return ErrUnknownClient for unknown ids and secret
// mismatches alike.
type CredentialStore interface {
	Authenticate(ctx context.Context, clientID, clientSecret string) (*Principal, error)
}

// Gate authorizes lifecycle operations. The transport layer composes it in
// front of every engine call that requires a principal.
type Gate struct {
	creds CredentialStore
}

// NewGate creates a gate backed by the given credential store
func NewGate(creds CredentialStore) *Gate {
	return &Gate{creds: creds}
}

// Authorize resolves the credentials and enforces, in order: authentication,
// tenant match (waived for admin_global), and role sufficiency (admin and
// admin_global always pass; otherwise the principal needs at least one of
// the required roles). The tenant check runs before the role check so that
// role-mismatch responses cannot reveal whether a tenant/role combination
// exists.
func (g *Gate) Authorize(ctx context.Context, clientID, clientSecret, tenantID string, required ...string) (*Principal, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrUnauthenticated
	}

	principal, err := g.creds.Authenticate(ctx, clientID, clientSecret)
	if err != nil {
		if errors.Is(err, ErrUnknownClient) {
			return nil, ErrUnauthenticated
		}
		// Credential store failures must not leak detail to callers
		return nil, fmt.Errorf("%w: credential lookup failed", ErrUnauthenticated)
	}

	if !principal.HasRole(RoleAdminGlobal) && principal.TenantID != tenantID {
		return nil, ErrForbidden
	}

	if principal.HasRole(RoleAdmin) || principal.HasRole(RoleAdminGlobal) {
		return principal, nil
	}
	for _, role := range required {
		if principal.HasRole(role) {
			return principal, nil
		}
	}
	return nil, ErrForbidden
}
