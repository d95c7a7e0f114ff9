package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"strconv"
)

// ECP256Strategy generates NIST P-256 key pairs for ES256 signing.
// Curve is fixed by the algorithm; size hints are ignored.
type ECP256Strategy struct{}

// NewECP256Strategy creates a P-256 strategy
func NewECP256Strategy() *ECP256Strategy {
	return &ECP256Strategy{}
}

// Name returns the algorithm name
func (s *ECP256Strategy) Name() string {
	return AlgorithmECP256
}

// GeneratePair generates a P-256 key pair. sizeHint is ignored.
func (s *ECP256Strategy) GeneratePair(sizeHint int) (string, string, Descriptor, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", Descriptor{}, fmt.Errorf("failed to generate P-256 key: %w", err)
	}

	privatePEM, err := encodePrivatePEM(key)
	if err != nil {
		return "", "", Descriptor{}, err
	}
	publicPEM, err := encodePublicPEM(&key.PublicKey)
	if err != nil {
		return "", "", Descriptor{}, err
	}

	return privatePEM, publicPEM, Descriptor{Alg: "ES256", Curve: "P-256"}, nil
}

// KeySetEntry encodes the curve point as fixed 32-byte big-endian coordinates
func (s *ECP256Strategy) KeySetEntry(publicPEM string, keyID int64) (KeySetEntry, error) {
	pub, err := decodePublicPEM(publicPEM)
	if err != nil {
		return KeySetEntry{}, err
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return KeySetEntry{}, fmt.Errorf("expected ECDSA public key, got %T", pub)
	}
	if ecPub.Curve != elliptic.P256() {
		return KeySetEntry{}, fmt.Errorf("expected P-256 curve, got %s", ecPub.Curve.Params().Name)
	}

	// Coordinates are fixed-width for the curve, zero-padded on the left
	x := ecPub.X.FillBytes(make([]byte, 32))
	y := ecPub.Y.FillBytes(make([]byte, 32))

	return KeySetEntry{
		Kty: "EC",
		Use: "sig",
		Alg: "ES256",
		Kid: strconv.FormatInt(keyID, 10),
		Crv: "P-256",
		X:   b64url(x),
		Y:   b64url(y),
	}, nil
}
