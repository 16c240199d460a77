package clsag

import (
	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"
)

// aggHashes holds the two aggregation scalars that bind the signature ring
// and the commitment ring together.
type aggHashes struct {
	muP *edwards25519.Scalar
	muC *edwards25519.Scalar
}

// aggregationScalars computes mu_P and mu_C exactly as CLSAG_agg_0 and
// CLSAG_agg_1, over the concatenation of the ring, the commitment ring, the
// key image, D (untransformed), and the pseudo output commitment.
func aggregationScalars(ring, cring []*edwards25519.Point, I, D,
	pseudoOut *edwards25519.Point) aggHashes {

	ringBytes := concatPoints(ring)
	cringBytes := concatPoints(cring)
	iBytes := I.Bytes()
	dBytes := D.Bytes()
	outBytes := pseudoOut.Bytes()

	muP := hashToScalar([]byte("CLSAG_agg_0"), ringBytes, cringBytes, iBytes, dBytes, outBytes)
	muC := hashToScalar([]byte("CLSAG_agg_1"), ringBytes, cringBytes, iBytes, dBytes, outBytes)

	return aggHashes{muP: muP, muC: muC}
}

// roundHashPrefix computes "CLSAG_round" || ring || cring || C_out || m,
// the prefix shared by every hash in the ring-closure loop.
func roundHashPrefix(ring, cring []*edwards25519.Point, pseudoOut *edwards25519.Point,
	msg []byte) []byte {

	prefix := make([]byte, 0, 11+len(ring)*32+len(cring)*32+32+len(msg))
	prefix = append(prefix, "CLSAG_round"...)
	prefix = append(prefix, concatPoints(ring)...)
	prefix = append(prefix, concatPoints(cring)...)
	prefix = append(prefix, pseudoOut.Bytes()...)
	prefix = append(prefix, msg...)

	return prefix
}

func concatPoints(points []*edwards25519.Point) []byte {
	out := make([]byte, 0, len(points)*32)
	for _, p := range points {
		out = append(out, p.Bytes()...)
	}
	return out
}

// hashToScalar is H_s: Keccak-256 of the concatenated parts, reduced mod
// the Ed25519 group order l.
func hashToScalar(parts ...[]byte) *edwards25519.Scalar {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	digest := h.Sum(nil)

	// SetUniformBytes performs a wide (mod-l) reduction and requires a
	// 64-byte input; zero-extending our 32-byte digest leaves its value
	// unchanged while satisfying that width, so the result is exactly
	// digest mod l.
	var wide [64]byte
	copy(wide[:32], digest)

	s, err := new(edwards25519.Scalar).SetUniformBytes(wide[:])
	if err != nil {
		// SetUniformBytes only fails on bad input length, which cannot
		// happen here: wide is always 64 bytes.
		panic(err)
	}
	return s
}

// HashToPoint is H_p: a hash-to-curve function mapping a compressed
// Ed25519 point to another point of the prime-order subgroup, independent
// of the input's discrete log. It uses try-and-increment: hash the input
// together with an incrementing counter until the digest decodes as a
// valid curve point, then clears the cofactor.
//
// This does not reproduce Monero's exact consensus hash-to-point (which
// uses an Elligator2 variant, ge_fromfe_frombytes_vartime) byte-for-byte;
// see DESIGN.md for why that tradeoff was made. It is a valid hash-to-curve
// construction in its own right and is used consistently by both Sign and
// Verify in this package, which is all the CLSAG algorithm itself requires.
func HashToPoint(p *edwards25519.Point) *edwards25519.Point {
	input := p.Bytes()

	for counter := byte(0); ; counter++ {
		h := sha3.NewLegacyKeccak256()
		h.Write([]byte("CLSAG_hash_to_point"))
		h.Write(input)
		h.Write([]byte{counter})
		digest := h.Sum(nil)

		candidate, err := new(edwards25519.Point).SetBytes(digest)
		if err != nil {
			continue
		}

		return new(edwards25519.Point).MultByCofactor(candidate)
	}
}
