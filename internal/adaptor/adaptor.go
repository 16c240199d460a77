// Package adaptor implements two-party ECDSA adaptor signatures over
// secp256k1: encSign/encVerify/decrypt/recover, as used to bind Bob's
// Bitcoin redeem signature to Alice's Monero spend scalar (spec.md §4.2).
//
// Construction: given a statement point T = t*G (t unknown to the signer),
// a message digest e, and the signer's keypair (x, X=x*G):
//
//	k  <- random nonce
//	Rhat = k*G                    (published; lets a verifier check EncSign
//	                                without knowing t)
//	R    = k*T                     (the adaptor point; its x-coordinate
//	                                becomes the final signature's r)
//	r    = R.x mod n
//	s'   = k^-1 * (e + r*x) mod n
//
// Decrypting with t yields s = s' * t^-1 mod n, a normal ECDSA signature
// (r, s) whose nonce point is t*Rhat = t*k*G = k*T = R, so r matches by
// construction. Publishing (r, s) on-chain and comparing against (r, s')
// lets recover extract t = s' * s^-1 mod n.
package adaptor

import (
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// PreSignature is Bob's "encrypted signature" σ̃: a presignature that does
// not verify as a standalone ECDSA signature but that completes into one
// given the discrete log of the statement point.
type PreSignature struct {
	// Rhat = k*G, the unblinded nonce commitment.
	Rhat *btcec.PublicKey

	// R = k*T, the adaptor point. Its x-coordinate is the r of the
	// eventual completed signature.
	R *btcec.PublicKey

	// S is s' = k^-1*(e + r*x) mod n.
	S *btcec.ModNScalar
}

// r returns the x-coordinate of R reduced mod the group order n, the value
// that becomes the completed signature's r component.
func (p *PreSignature) r() *btcec.ModNScalar {
	var rJ btcec.JacobianPoint
	p.R.AsJacobian(&rJ)
	return fieldToModN(&rJ.X)
}

func fieldToModN(f *btcec.FieldVal) *btcec.ModNScalar {
	var s btcec.ModNScalar
	s.SetByteSlice(f.Bytes()[:])
	return &s
}

// EncSign produces a presignature on msgHash binding statement T, using
// signer's private key x. T need not be known to have a known discrete log
// to the signer -- it is just a public point.
func EncSign(x *btcec.PrivateKey, t *btcec.PublicKey, msgHash [32]byte) (*PreSignature, error) {
	var k btcec.ModNScalar
	if err := randomModNScalar(&k); err != nil {
		return nil, fmt.Errorf("adaptor: sampling nonce: %w", err)
	}

	var rHatJ, rJ, tJ btcec.JacobianPoint
	t.AsJacobian(&tJ)

	btcec.ScalarBaseMultNonConst(&k, &rHatJ)
	rHatJ.ToAffine()
	rHat := btcec.NewPublicKey(&rHatJ.X, &rHatJ.Y)

	btcec.ScalarMultNonConst(&k, &tJ, &rJ)
	rJ.ToAffine()
	r := btcec.NewPublicKey(&rJ.X, &rJ.Y)

	rScalar := fieldToModN(&rJ.X)

	var e btcec.ModNScalar
	e.SetByteSlice(msgHash[:])

	xScalar := x.Key

	var rx btcec.ModNScalar
	rx.Mul2(rScalar, &xScalar)

	var inner btcec.ModNScalar
	inner.Add2(&e, &rx)

	kInv := k
	kInv.InverseNonConst()

	var s btcec.ModNScalar
	s.Mul2(&kInv, &inner)

	return &PreSignature{Rhat: rHat, R: r, S: &s}, nil
}

// EncVerify checks the self-consistency of a presignature: s'*Rhat must
// equal e*G + r*X. This is a necessary sanity check, not a zero-knowledge
// proof that r was honestly derived as (k*T).x for the same k as Rhat --
// that binding falls out of the algebra only once decryption is attempted,
// which is why decrypt's caller must locally verify the completed
// signature before broadcasting it (see recovery.ExtractMoneroScalar).
func EncVerify(x *btcec.PublicKey, t *btcec.PublicKey, msgHash [32]byte, sig *PreSignature) error {
	if sig == nil || sig.Rhat == nil || sig.R == nil || sig.S == nil {
		return fmt.Errorf("%w: incomplete presignature", ErrInvalidPreSignature)
	}
	if sig.S.IsZero() {
		return fmt.Errorf("%w: zero response", ErrInvalidPreSignature)
	}

	var e btcec.ModNScalar
	e.SetByteSlice(msgHash[:])

	r := sig.r()

	var xJ, rhatJ, lhsJ, egJ, rxJ, rhsJ btcec.JacobianPoint
	x.AsJacobian(&xJ)
	sig.Rhat.AsJacobian(&rhatJ)

	btcec.ScalarMultNonConst(sig.S, &rhatJ, &lhsJ)
	lhsJ.ToAffine()

	btcec.ScalarBaseMultNonConst(&e, &egJ)
	btcec.ScalarMultNonConst(r, &xJ, &rxJ)
	btcec.AddNonConst(&egJ, &rxJ, &rhsJ)
	rhsJ.ToAffine()

	lhsJ.X.Normalize()
	lhsJ.Y.Normalize()
	rhsJ.X.Normalize()
	rhsJ.Y.Normalize()
	if !lhsJ.X.Equals(&rhsJ.X) || !lhsJ.Y.Equals(&rhsJ.Y) {
		return ErrInvalidPreSignature
	}

	return nil
}

// Decrypt completes a presignature into a standard ECDSA signature, given
// the discrete log t of the statement point. It normalizes s to the
// low-S form required by Bitcoin's standardness rules; the caller does not
// need to separately track which sign of t was used because recover tries
// both.
func Decrypt(sig *PreSignature, t *btcec.ModNScalar) (*ecdsa.Signature, error) {
	if t.IsZero() {
		return nil, fmt.Errorf("%w: zero discrete log", ErrInvalidPreSignature)
	}

	tInv := *t
	tInv.InverseNonConst()

	var s btcec.ModNScalar
	s.Mul2(sig.S, &tInv)

	r := sig.r()

	if s.IsOverHalfOrder() {
		s.Negate()
	}

	return ecdsa.NewSignature(r, &s), nil
}

// Recover extracts the discrete log t of the statement point from a
// presignature and the completed signature that appeared on-chain. It
// returns ErrRecoveryMismatch if the completed signature's r does not
// match the presignature's, or if neither sign of the candidate t matches
// the published statement point -- both of which indicate a counterparty
// that submitted a malformed or non-matching signature (spec.md §4.4: this
// is fatal for the swap, and diagnostic only if both implementations are
// correct).
func Recover(sig *PreSignature, completed *ecdsa.Signature, t *btcec.PublicKey) (*btcec.ModNScalar, error) {
	r := sig.r()
	completedR := completed.R()
	completedS := completed.S()
	if !scalarEqual(&completedR, r) {
		return nil, fmt.Errorf("%w: r mismatch", ErrRecoveryMismatch)
	}

	sInv := completedS
	sInv.InverseNonConst()

	var candidate btcec.ModNScalar
	candidate.Mul2(sig.S, &sInv)

	if matchesStatement(&candidate, t) {
		return &candidate, nil
	}

	negated := candidate
	negated.Negate()
	if matchesStatement(&negated, t) {
		return &negated, nil
	}

	return nil, fmt.Errorf("%w: recovered scalar does not match statement point", ErrRecoveryMismatch)
}

func matchesStatement(candidate *btcec.ModNScalar, t *btcec.PublicKey) bool {
	var j btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(candidate, &j)
	j.ToAffine()

	var tj btcec.JacobianPoint
	t.AsJacobian(&tj)

	j.X.Normalize()
	j.Y.Normalize()
	tj.X.Normalize()
	tj.Y.Normalize()

	return j.X.Equals(&tj.X) && j.Y.Equals(&tj.Y)
}

func scalarEqual(a, b *btcec.ModNScalar) bool {
	diff := *a
	diff.Add(neg(b))
	return diff.IsZero()
}

func neg(s *btcec.ModNScalar) *btcec.ModNScalar {
	n := *s
	n.Negate()
	return &n
}

func randomModNScalar(out *btcec.ModNScalar) error {
	var buf [32]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return err
		}
		if overflow := out.SetByteSlice(buf[:]); !overflow && !out.IsZero() {
			return nil
		}
	}
}
