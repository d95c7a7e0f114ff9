// Package config loads and assembles keymint's process configuration from
// file, environment and command-line flags.
package config

// Config is the root configuration structure for keymint
type Config struct {
	// Server configuration (HTTP port, response caching)
	Server ServerConfig `koanf:"server"`

	// Storage selects and configures the key repository backend
	Storage StorageConfig `koanf:"storage"`

	// Auth selects and configures the credential store
	Auth AuthConfig `koanf:"auth"`

	// Keys tunes key generation defaults
	Keys KeysConfig `koanf:"keys"`

	// Listing tunes list pagination limits
	Listing ListingConfig `koanf:"listing"`

	// Observability configures logging
	Observability *ObservabilityConfig `koanf:"observability"`
}

// ServerConfig contains network-level server settings
type ServerConfig struct {
	// HTTPPort is the port the API listens on
	HTTPPort int `koanf:"http_port" usage:"HTTP server port"`

	// KeySetCacheTTL caches published key-set documents for this duration
	// (e.g. "30s"). Empty or zero disables the cache.
	KeySetCacheTTL string `koanf:"key_set_cache_ttl" usage:"key-set response cache TTL (e.g. 30s); empty disables"`
}

// StorageConfig selects the key repository backend
type StorageConfig struct {
	// Type selects the repository implementation
	// Options: "memory", "postgres"
	Type string `koanf:"type" usage:"storage backend (memory, postgres)"`

	// PostgresDSN is the connection string for the postgres backend
	PostgresDSN string `koanf:"postgres_dsn" usage:"postgres connection string"`
}

// AuthConfig selects the credential store backend
type AuthConfig struct {
	// Type selects the credential store implementation
	// Options: "static", "aws"
	Type string `koanf:"type" usage:"credential store backend (static, aws)"`

	// Accounts is the static account table (static backend)
	Accounts map[string]AccountConfig `koanf:"accounts"`

	// AWS configures the Secrets Manager backend
	AWS AWSSecretsConfig `koanf:"aws"`
}

// AccountConfig is one static client credential entry
type AccountConfig struct {
	ClientSecret string   `koanf:"client_secret"`
	TenantID     string   `koanf:"tenant_id"`
	Roles        []string `koanf:"roles"`
}

// AWSSecretsConfig configures the Secrets Manager credential store
type AWSSecretsConfig struct {
	Region string `koanf:"region" usage:"AWS region for the secrets manager backend"`

	// SecretsPrefix is the secret name prefix; client entries live at
	// "<prefix>/<client_id>".
	SecretsPrefix string `koanf:"secrets_prefix" usage:"secret name prefix for client credentials"`
}

// KeysConfig tunes key generation
type KeysConfig struct {
	// DefaultAlgorithm is used when a request does not name one
	DefaultAlgorithm string `koanf:"default_algorithm" usage:"default key algorithm (rsa, ed25519, ec-p256)"`

	// DefaultRSASize is the RSA modulus size used without a hint
	DefaultRSASize int `koanf:"default_rsa_size" usage:"default RSA key size in bits"`

	// AllowedRSASizes is the set of acceptable RSA modulus sizes
	AllowedRSASizes []int `koanf:"allowed_rsa_sizes"`

	// DefaultDurationDays is the validity window without an explicit one
	DefaultDurationDays int `koanf:"default_duration_days" usage:"default key validity in days"`

	// AllocationAttempts bounds the key id allocator retry loop
	AllocationAttempts int `koanf:"allocation_attempts" usage:"key id allocation attempt budget"`
}

// ListingConfig tunes list pagination
type ListingConfig struct {
	DefaultLimit int `koanf:"default_limit" usage:"default page size for key listings"`
	MaxLimit     int `koanf:"max_limit" usage:"maximum page size for key listings"`
}

// ObservabilityConfig configures logging
type ObservabilityConfig struct {
	// LogLevel: "debug", "info", "warn", "error"
	LogLevel string `koanf:"log_level" usage:"log level (debug, info, warn, error)"`

	// LogFormat: "text" or "json"
	LogFormat string `koanf:"log_format" usage:"log format (text, json)"`
}

// Default returns the configuration used when nothing else sets a value
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPPort: 8080,
		},
		Storage: StorageConfig{
			Type: "memory",
		},
		Auth: AuthConfig{
			Type: "static",
			AWS: AWSSecretsConfig{
				Region:        "eu-west-1",
				SecretsPrefix: "keymint/clients",
			},
		},
		Keys: KeysConfig{
			DefaultAlgorithm:    "rsa",
			DefaultRSASize:      2048,
			AllowedRSASizes:     []int{2048, 3072, 4096},
			DefaultDurationDays: 90,
			AllocationAttempts:  24,
		},
		Listing: ListingConfig{
			DefaultLimit: 50,
			MaxLimit:     200,
		},
		Observability: &ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}
