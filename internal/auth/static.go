package auth

import (
	"context"
	"crypto/subtle"
	"slices"
)

// Account is one configured client credential entry
type Account struct {
	Secret   string
	TenantID string
	Roles    []string
}

// StaticCredentialStore resolves principals from a fixed in-memory account
// table, built from configuration. Suitable for development and tests.
type StaticCredentialStore struct {
	accounts map[string]Account
}

// NewStaticCredentialStore creates a store over the given accounts
func NewStaticCredentialStore(accounts map[string]Account) *StaticCredentialStore {
	if accounts == nil {
		accounts = make(map[string]Account)
	}
	return &StaticCredentialStore{accounts: accounts}
}

// Authenticate matches the client id and secret against the account table
func (s *StaticCredentialStore) Authenticate(ctx context.Context, clientID, clientSecret string) (*Principal, error) {
	account, ok := s.accounts[clientID]
	if !ok {
		return nil, ErrUnknownClient
	}
	if subtle.ConstantTimeCompare([]byte(account.Secret), []byte(clientSecret)) != 1 {
		return nil, ErrUnknownClient
	}
	return &Principal{
		TenantID: account.TenantID,
		Roles:    slices.Clone(account.Roles),
	}, nil
}
