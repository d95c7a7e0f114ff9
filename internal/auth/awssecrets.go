package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client the store
// uses, extracted for test fakes.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerConfig configures the AWS-backed credential store
type SecretsManagerConfig struct {
	Region string

	// Prefix is the secret name prefix; client secrets live at
	// "<prefix>/<client_id>".
	Prefix string

	// Client overrides the SDK client (used in tests)
	Client SecretsManagerAPI
}

// secretPayload is the expected JSON shape of a client secret value
type secretPayload struct {
	ClientSecret string   `json:"client_secret"`
	TenantID     string   `json:"tenant_id"`
	Roles        []string `json:"roles"`
}

// SecretsManagerCredentialStore resolves principals from AWS Secrets
// Manager. Lookup failures of any kind surface as ErrUnknownClient so no
// secret-store detail reaches callers.
type SecretsManagerCredentialStore struct {
	client SecretsManagerAPI
	prefix string
}

// NewSecretsManagerCredentialStore creates the store, loading the default
// AWS config when no client is supplied.
func NewSecretsManagerCredentialStore(ctx context.Context, cfg SecretsManagerConfig) (*SecretsManagerCredentialStore, error) {
	client := cfg.Client
	if client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = secretsmanager.NewFromConfig(awsCfg)
	}

	return &SecretsManagerCredentialStore{
		client: client,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

// Authenticate fetches the client's secret entry and matches the secret
func (s *SecretsManagerCredentialStore) Authenticate(ctx context.Context, clientID, clientSecret string) (*Principal, error) {
	name := s.prefix + "/" + clientID

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, ErrUnknownClient
	}

	var payload secretPayload
	if out.SecretString == nil || json.Unmarshal([]byte(*out.SecretString), &payload) != nil {
		return nil, ErrUnknownClient
	}
	if subtle.ConstantTimeCompare([]byte(payload.ClientSecret), []byte(clientSecret)) != 1 {
		return nil, ErrUnknownClient
	}

	return &Principal{
		TenantID: payload.TenantID,
		Roles:    payload.Roles,
	}, nil
}
