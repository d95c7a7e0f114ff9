package keys

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Algorithm names accepted by the registry
const (
	AlgorithmRSA     = "rsa"
	AlgorithmEd25519 = "ed25519"
	AlgorithmECP256  = "ec-p256"
)

// ErrUnknownAlgorithm is returned when a strategy is requested for an
// unregistered algorithm name.
var ErrUnknownAlgorithm = errors.New("unsupported algorithm")

// ErrDisallowedKeySize is returned when a size hint is outside the
// configured allowed set.
var ErrDisallowedKeySize = errors.New("disallowed key size")

// Descriptor reports the concrete signing parameters of a generated pair.
type Descriptor struct {
	// Alg is the JWT signing algorithm tag (e.g. "RS256", "EdDSA", "ES256")
	Alg string

	// Curve is the curve name for EC-family algorithms, empty otherwise
	Curve string

	// KeySize is the modulus size in bits for RSA, zero otherwise
	KeySize int
}

// Strategy generates key pairs and encodes public material for one algorithm.
// Implementations are stateless apart from configuration and safe for
// concurrent use.
type Strategy interface {
	// Name returns the algorithm name used for registry lookup
	Name() string

	// GeneratePair generates a new key pair, returning the private key as a
	// PEM-encoded PKCS#8 block and the public key as a PEM-encoded
	// SubjectPublicKeyInfo block. sizeHint is only meaningful for RSA;
	// zero means the configured default.
	GeneratePair(sizeHint int) (privatePEM, publicPEM string, desc Descriptor, err error)

	// KeySetEntry encodes a public key as a published key-set entry
	KeySetEntry(publicPEM string, keyID int64) (KeySetEntry, error)
}

// Registry holds the set of registered strategies keyed by algorithm name.
// It is populated once at startup and read-only afterwards.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry creates an empty strategy registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Strategy)}
}

// Register adds a strategy under its algorithm name, replacing any previous
// registration for that name.
func (r *Registry) Register(s Strategy) {
	r.byName[s.Name()] = s
}

// Get returns the strategy for the given algorithm name.
// Unknown names produce an error naming the requested value and the
// registered alternatives.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownAlgorithm, name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Names returns the registered algorithm names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// encodePrivatePEM serializes a private key as a PEM-encoded PKCS#8 block
func encodePrivatePEM(key crypto.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// encodePublicPEM serializes a public key as a PEM-encoded SubjectPublicKeyInfo block
func encodePublicPEM(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// decodePublicPEM parses a PEM-encoded SubjectPublicKeyInfo block
func decodePublicPEM(publicPEM string) (any, error) {
	block, _ := pem.Decode([]byte(publicPEM))
	if block == nil {
		return nil, errors.New("no PEM block found in public key material")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}
