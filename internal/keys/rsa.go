package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"math/big"
	"slices"
	"strconv"
)

// Default RSA sizing used when no configuration is provided
var defaultAllowedRSASizes = []int{2048, 3072, 4096}

const defaultRSASize = 2048

// RSAStrategy generates RSA key pairs for RS256 signing.
// Generated keys always use public exponent 65537.
type RSAStrategy struct {
	allowedSizes []int
	defaultSize  int
}

// NewRSAStrategy creates an RSA strategy with the given allowed modulus
// sizes and default size. Nil or zero arguments fall back to
// {2048, 3072, 4096} and 2048.
func NewRSAStrategy(allowedSizes []int, defaultSize int) *RSAStrategy {
	if len(allowedSizes) == 0 {
		allowedSizes = defaultAllowedRSASizes
	}
	if defaultSize == 0 {
		defaultSize = defaultRSASize
	}
	sizes := slices.Clone(allowedSizes)
	slices.Sort(sizes)
	return &RSAStrategy{
		allowedSizes: sizes,
		defaultSize:  defaultSize,
	}
}

// Name returns the algorithm name
func (s *RSAStrategy) Name() string {
	return AlgorithmRSA
}

// GeneratePair generates an RSA key pair. A zero sizeHint uses the
// configured default; any other value must belong to the allowed set.
func (s *RSAStrategy) GeneratePair(sizeHint int) (string, string, Descriptor, error) {
	size := sizeHint
	if size == 0 {
		size = s.defaultSize
	}
	if !slices.Contains(s.allowedSizes, size) {
		return "", "", Descriptor{}, fmt.Errorf("%w: key_size must be one of %v", ErrDisallowedKeySize, s.allowedSizes)
	}

	// crypto/rsa uses public exponent 65537
	key, err := rsa.GenerateKey(rand.Reader, size)
	if err != nil {
		return "", "", Descriptor{}, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privatePEM, err := encodePrivatePEM(key)
	if err != nil {
		return "", "", Descriptor{}, err
	}
	publicPEM, err := encodePublicPEM(&key.PublicKey)
	if err != nil {
		return "", "", Descriptor{}, err
	}

	return privatePEM, publicPEM, Descriptor{Alg: "RS256", KeySize: size}, nil
}

// KeySetEntry encodes the RSA public key with base64url modulus and exponent
func (s *RSAStrategy) KeySetEntry(publicPEM string, keyID int64) (KeySetEntry, error) {
	pub, err := decodePublicPEM(publicPEM)
	if err != nil {
		return KeySetEntry{}, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return KeySetEntry{}, fmt.Errorf("expected RSA public key, got %T", pub)
	}

	return KeySetEntry{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: strconv.FormatInt(keyID, 10),
		N:   b64urlUint(rsaPub.N),
		E:   b64urlUint(big.NewInt(int64(rsaPub.E))),
	}, nil
}
