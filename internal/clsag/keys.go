package clsag

import (
	"crypto/rand"
	"fmt"

	"filippo.io/edwards25519"
)

// RandomScalar returns a uniform scalar mod l, suitable for a nonce, a fake
// ring response, or a key share.
func RandomScalar() (*edwards25519.Scalar, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return nil, fmt.Errorf("clsag: reading random bytes: %w", err)
	}

	s, err := new(edwards25519.Scalar).SetUniformBytes(wide[:])
	if err != nil {
		// Unreachable: wide is always exactly 64 bytes.
		panic(err)
	}
	return s, nil
}

// ScalarBasePoint returns x*G.
func ScalarBasePoint(x *edwards25519.Scalar) *edwards25519.Point {
	return new(edwards25519.Point).ScalarBaseMult(x)
}

// DecodePoint decompresses a 32-byte Ed25519 point encoding.
func DecodePoint(b []byte) (*edwards25519.Point, error) {
	p, err := new(edwards25519.Point).SetBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return p, nil
}

// DecodeScalar decodes a 32-byte canonical scalar encoding.
func DecodeScalar(b []byte) (*edwards25519.Scalar, error) {
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return s, nil
}
