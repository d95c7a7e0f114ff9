package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strconv"
)

// Ed25519Strategy generates Ed25519 key pairs for EdDSA signing.
// Key size and curve are fixed by the algorithm; size hints are ignored.
type Ed25519Strategy struct{}

// NewEd25519Strategy creates an Ed25519 strategy
func NewEd25519Strategy() *Ed25519Strategy {
	return &Ed25519Strategy{}
}

// Name returns the algorithm name
func (s *Ed25519Strategy) Name() string {
	return AlgorithmEd25519
}

// GeneratePair generates an Ed25519 key pair. sizeHint is ignored.
func (s *Ed25519Strategy) GeneratePair(sizeHint int) (string, string, Descriptor, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", Descriptor{}, fmt.Errorf("failed to generate Ed25519 key: %w", err)
	}

	privatePEM, err := encodePrivatePEM(priv)
	if err != nil {
		return "", "", Descriptor{}, err
	}
	publicPEM, err := encodePublicPEM(pub)
	if err != nil {
		return "", "", Descriptor{}, err
	}

	return privatePEM, publicPEM, Descriptor{Alg: "EdDSA", Curve: "Ed25519"}, nil
}

// KeySetEntry encodes the raw 32-byte public value as an OKP entry
func (s *Ed25519Strategy) KeySetEntry(publicPEM string, keyID int64) (KeySetEntry, error) {
	pub, err := decodePublicPEM(publicPEM)
	if err != nil {
		return KeySetEntry{}, err
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return KeySetEntry{}, fmt.Errorf("expected Ed25519 public key, got %T", pub)
	}

	return KeySetEntry{
		Kty: "OKP",
		Use: "sig",
		Alg: "EdDSA",
		Kid: strconv.FormatInt(keyID, 10),
		Crv: "Ed25519",
		X:   b64url(edPub),
	}, nil
}
