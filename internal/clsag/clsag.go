// Package clsag implements a Monero-compatible Concise Linkable Spontaneous
// Anonymous Group ring signature over an 11-member ring, with the real
// signer fixed at index 0 by convention of this package. Concealing the
// real index (ring shuffling) is the caller's responsibility.
package clsag

import (
	"fmt"

	"filippo.io/edwards25519"
)

// RingSize is the number of members in the signature ring and commitment
// ring. The core assumes the real signer is always at index 0.
const RingSize = 11

// Signature is a produced CLSAG signature in its in-memory (non-wire) form.
// D here is the raw point; use Signature.Wire to obtain the Monero wire
// encoding, which divides D by 8.
type Signature struct {
	H0        *edwards25519.Scalar
	Responses [RingSize]*edwards25519.Scalar
	I         *edwards25519.Point
	D         *edwards25519.Point
}

// WireSignature is the Monero consensus encoding of a CLSAG signature:
// responses[0..11], c1 = h_0, and D' = D/8, each 32 bytes. The key image I
// travels on the transaction input, not in the signature itself.
type WireSignature struct {
	Responses [RingSize][32]byte
	C1        [32]byte
	DPrime    [32]byte
}

// Wire converts a Signature to its on-chain encoding, dividing D by 8 per
// Monero convention.
func (s *Signature) Wire() WireSignature {
	var w WireSignature
	for i, r := range s.Responses {
		copy(w.Responses[i][:], r.Bytes())
	}
	copy(w.C1[:], s.H0.Bytes())

	dPrime := new(edwards25519.Point).ScalarMult(invEight, s.D)
	copy(w.DPrime[:], dPrime.Bytes())

	return w
}

// SignInput collects everything needed to produce a CLSAG over an 11-ring.
type SignInput struct {
	// Message is the transaction digest being signed.
	Message []byte

	// RealScalar is the discrete log of Ring[0], i.e. Ring[0] = x*G.
	RealScalar *edwards25519.Scalar

	// HpPk is the cached hash-to-point of Ring[0]. Passing it in avoids
	// recomputing H_p(Ring[0]) on every call.
	HpPk *edwards25519.Point

	// Nonce is the signer's uniform random alpha for this signature.
	Nonce *edwards25519.Scalar

	Ring           [RingSize]*edwards25519.Point
	CommitmentRing [RingSize]*edwards25519.Point

	// FakeResponses are the uniform random s_1..s_10 used for every ring
	// member except the real one.
	FakeResponses [RingSize - 1]*edwards25519.Scalar

	// Z is the blinding difference between CommitmentRing[0] and
	// PseudoOutputCommitment: CommitmentRing[0] - PseudoOutputCommitment = Z*G.
	Z *edwards25519.Scalar

	PseudoOutputCommitment *edwards25519.Point
}

// Sign produces an 11-ring CLSAG signature binding Message, closing the
// ring at the real index (0) with the response derived from RealScalar and
// Z. It never panics; malformed input (wrong ring length, nil fields) is
// reported as an error.
func Sign(in *SignInput) (*Signature, error) {
	if err := validateRings(in.Ring[:], in.CommitmentRing[:]); err != nil {
		return nil, err
	}
	if in.RealScalar == nil || in.HpPk == nil || in.Nonce == nil || in.Z == nil || in.PseudoOutputCommitment == nil {
		return nil, fmt.Errorf("%w: missing scalar or point input", ErrInvalidSignature)
	}
	for i, s := range in.FakeResponses {
		if s == nil {
			return nil, fmt.Errorf("%w: nil fake response at index %d", ErrInvalidSignature, i)
		}
	}

	D := new(edwards25519.Point).ScalarMult(in.Z, in.HpPk)
	I := new(edwards25519.Point).ScalarMult(in.RealScalar, in.HpPk)

	mus := aggregationScalars(in.Ring[:], in.CommitmentRing[:], I, D,
		in.PseudoOutputCommitment)

	prefix := roundHashPrefix(in.Ring[:], in.CommitmentRing[:],
		in.PseudoOutputCommitment, in.Message)

	L0 := new(edwards25519.Point).ScalarBaseMult(in.Nonce)
	R0 := new(edwards25519.Point).ScalarMult(in.Nonce, in.HpPk)

	h := hashToScalar(prefix, L0.Bytes(), R0.Bytes())

	responses := make([]*edwards25519.Scalar, RingSize)
	responses[0] = nil // filled in once the ring closes
	hPrev := h

	for i := 1; i < RingSize; i++ {
		s := in.FakeResponses[i-1]
		responses[i] = s

		adjustedCommitment := new(edwards25519.Point).Subtract(
			in.CommitmentRing[i-1], in.PseudoOutputCommitment)

		L := closeL(hPrev, mus, s, in.Ring[i], adjustedCommitment)
		R := closeR(hPrev, mus, s, in.Ring[i], I, D)

		hPrev = hashToScalar(prefix, L.Bytes(), R.Bytes())
	}

	// s_0 = alpha - h_10*(mu_P*x + mu_C*z)
	muPx := new(edwards25519.Scalar).Multiply(mus.muP, in.RealScalar)
	muCz := new(edwards25519.Scalar).Multiply(mus.muC, in.Z)
	inner := new(edwards25519.Scalar).Add(muPx, muCz)
	term := new(edwards25519.Scalar).Multiply(hPrev, inner)
	s0 := new(edwards25519.Scalar).Subtract(in.Nonce, term)
	responses[0] = s0

	sig := &Signature{
		H0: h,
		I:  I,
		D:  D,
	}
	copy(sig.Responses[:], responses)

	return sig, nil
}

// VerifyInput collects the public data needed to verify a CLSAG.
type VerifyInput struct {
	Message                []byte
	Ring                   [RingSize]*edwards25519.Point
	CommitmentRing         [RingSize]*edwards25519.Point
	PseudoOutputCommitment *edwards25519.Point
}

// Verify computes the aggregation scalars once from the signature's own
// ring inputs, then walks the ring from h_0, rebuilding each member's L/R
// with the same response and adjusted commitment Sign used for it.
// Returns nil if the signature is valid, or an error describing why it
// isn't.
func Verify(sig *Signature, in *VerifyInput) error {
	if sig == nil {
		return fmt.Errorf("%w: nil signature", ErrInvalidSignature)
	}
	if err := validateRings(in.Ring[:], in.CommitmentRing[:]); err != nil {
		return err
	}
	for i, r := range sig.Responses {
		if r == nil {
			return fmt.Errorf("%w: nil response at index %d", ErrInvalidSignature, i)
		}
	}
	if sig.I == nil || sig.D == nil || sig.H0 == nil {
		return fmt.Errorf("%w: missing key image, D, or h_0", ErrInvalidSignature)
	}
	if in.PseudoOutputCommitment == nil {
		return fmt.Errorf("%w: missing pseudo-output commitment", ErrInvalidSignature)
	}

	mus := aggregationScalars(in.Ring[:], in.CommitmentRing[:], sig.I, sig.D,
		in.PseudoOutputCommitment)

	prefix := roundHashPrefix(in.Ring[:], in.CommitmentRing[:],
		in.PseudoOutputCommitment, in.Message)

	h := sig.H0
	for i := 0; i < RingSize; i++ {
		pkIdx := (i + 1) % RingSize
		s := sig.Responses[pkIdx]

		// Member j >= 1 pairs with CommitmentRing[j-1], as in Sign; the
		// closing real member (index 0) pairs with CommitmentRing[0], whose
		// difference from the pseudo-output commitment is Z*G.
		cIdx := pkIdx - 1
		if pkIdx == 0 {
			cIdx = 0
		}
		adjustedCommitment := new(edwards25519.Point).Subtract(
			in.CommitmentRing[cIdx], in.PseudoOutputCommitment)

		L := closeL(h, mus, s, in.Ring[pkIdx], adjustedCommitment)
		R := closeR(h, mus, s, in.Ring[pkIdx], sig.I, sig.D)

		h = hashToScalar(prefix, L.Bytes(), R.Bytes())
	}

	if h.Equal(sig.H0) != 1 {
		return ErrInvalidSignature
	}

	return nil
}

// closeL computes L_i = s_i*G + h_prev*mu_P*pk_i + h_prev*mu_C*adjustedCommitment_i.
func closeL(hPrev *edwards25519.Scalar, mus aggHashes, s *edwards25519.Scalar,
	pk, adjustedCommitment *edwards25519.Point) *edwards25519.Point {

	cP := new(edwards25519.Scalar).Multiply(hPrev, mus.muP)
	cC := new(edwards25519.Scalar).Multiply(hPrev, mus.muC)

	term1 := new(edwards25519.Point).ScalarBaseMult(s)
	term2 := new(edwards25519.Point).ScalarMult(cP, pk)
	term3 := new(edwards25519.Point).ScalarMult(cC, adjustedCommitment)

	return new(edwards25519.Point).Add(new(edwards25519.Point).Add(term1, term2), term3)
}

// closeR computes R_i = s_i*H_p(pk_i) + h_prev*mu_P*I + h_prev*mu_C*D.
func closeR(hPrev *edwards25519.Scalar, mus aggHashes, s *edwards25519.Scalar,
	pk, I, D *edwards25519.Point) *edwards25519.Point {

	cP := new(edwards25519.Scalar).Multiply(hPrev, mus.muP)
	cC := new(edwards25519.Scalar).Multiply(hPrev, mus.muC)

	hpPk := HashToPoint(pk)

	term1 := new(edwards25519.Point).ScalarMult(s, hpPk)
	term2 := new(edwards25519.Point).ScalarMult(cP, I)
	term3 := new(edwards25519.Point).ScalarMult(cC, D)

	return new(edwards25519.Point).Add(new(edwards25519.Point).Add(term1, term2), term3)
}

func validateRings(ring, cring []*edwards25519.Point) error {
	if len(ring) != RingSize {
		return fmt.Errorf("%w: ring has %d members, want %d", ErrInvalidSignature, len(ring), RingSize)
	}
	if len(cring) != RingSize {
		return fmt.Errorf("%w: commitment ring has %d members, want %d", ErrInvalidSignature, len(cring), RingSize)
	}
	for i, p := range ring {
		if p == nil {
			return fmt.Errorf("%w: nil ring member at index %d", ErrInvalidSignature, i)
		}
	}
	for i, p := range cring {
		if p == nil {
			return fmt.Errorf("%w: nil commitment ring member at index %d", ErrInvalidSignature, i)
		}
	}
	return nil
}
