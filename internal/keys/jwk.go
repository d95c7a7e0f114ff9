package keys

import (
	"encoding/base64"
	"math/big"
)

// KeySetEntry is the published JWK projection of one public key.
// Field presence depends on the key type: n/e for RSA, crv/x for OKP,
// crv/x/y for EC.
type KeySetEntry struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// OKP / EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// KeySet is the published key-set document for one tenant
type KeySet struct {
	Keys []KeySetEntry `json:"keys"`
}

// b64url encodes bytes as unpadded base64url
func b64url(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// b64urlUint encodes an unsigned integer as the unpadded base64url form of
// its minimal big-endian byte sequence, per RFC 7518 section 2.
func b64urlUint(n *big.Int) string {
	if n.Sign() == 0 {
		return b64url([]byte{0})
	}
	return b64url(n.Bytes())
}
