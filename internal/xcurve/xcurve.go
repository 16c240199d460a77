// Package xcurve implements the canonical cross-curve projection spec.md
// §4.2 requires: both parties generate their Monero spend-key share s_a/s_b
// as a uniform scalar strictly less than the Ed25519 group order ℓ, which
// is itself strictly less than the secp256k1 group order n. That ordering
// (ℓ < n, both close to 2^252..2^256) means the same 32-byte integer is a
// valid scalar on both curves without any modular reduction, so the
// adaptor statement point T = s_a·G can be computed directly on secp256k1
// and, once recovered, converted back losslessly into the Ed25519 scalar.
package xcurve

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcec/v2"
)

// StatementPoint computes T = s·G on secp256k1 for an Ed25519 scalar s,
// using s's integer value directly (no reduction) since it is guaranteed
// to be less than the Ed25519 order and therefore also less than the
// secp256k1 order.
func StatementPoint(s *edwards25519.Scalar) (*btcec.PublicKey, error) {
	be, err := littleToBigEndian(s.Bytes())
	if err != nil {
		return nil, err
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(be); overflow {
		return nil, fmt.Errorf("xcurve: scalar %x overflows secp256k1 order, "+
			"violates the ℓ < n projection invariant", be)
	}

	var j btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&scalar, &j)
	j.ToAffine()

	return btcec.NewPublicKey(&j.X, &j.Y), nil
}

// ToModNScalar converts an Ed25519 scalar into the secp256k1 scalar with
// the same integer value, the same losslessness argument as StatementPoint
// relies on. Used to turn a party's own spend-key share s_x into the
// adaptor-signature decryption key once the statement point T_x = s_x·G
// was published as their side of the swap_setup exchange.
func ToModNScalar(s *edwards25519.Scalar) (*btcec.ModNScalar, error) {
	be, err := littleToBigEndian(s.Bytes())
	if err != nil {
		return nil, err
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(be); overflow {
		return nil, fmt.Errorf("xcurve: scalar %x overflows secp256k1 order, "+
			"violates the ℓ < n projection invariant", be)
	}
	return &scalar, nil
}

// ToEdwardsScalar converts a recovered secp256k1 scalar back into the
// Ed25519 scalar it was generated from. It fails if the recovered value
// happens to exceed the Ed25519 order, which would indicate the scalar was
// never validly constructed per the projection invariant above.
func ToEdwardsScalar(t *btcec.ModNScalar) (*edwards25519.Scalar, error) {
	be := t.Bytes()
	le, err := bigToLittleEndian(be[:])
	if err != nil {
		return nil, err
	}

	s, err := new(edwards25519.Scalar).SetCanonicalBytes(le)
	if err != nil {
		return nil, fmt.Errorf("xcurve: recovered scalar is not a canonical "+
			"Ed25519 scalar: %w", err)
	}
	return s, nil
}

func littleToBigEndian(b []byte) ([]byte, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("xcurve: expected 32-byte scalar, got %d", len(b))
	}
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out, nil
}

func bigToLittleEndian(b []byte) ([]byte, error) {
	return littleToBigEndian(b)
}
