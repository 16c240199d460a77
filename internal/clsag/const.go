package clsag

import "filippo.io/edwards25519"

// invEightBytes is 1/8 mod l, the Ed25519 group order, in the same
// little-endian canonical encoding Monero uses for its D' = D/8 wire
// convention.
var invEightBytes = [32]byte{
	121, 47, 220, 226, 41, 229, 6, 97, 208, 218, 28, 125, 179, 157, 211, 7,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 6,
}

var invEight = mustInvEight()

func mustInvEight() *edwards25519.Scalar {
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(invEightBytes[:])
	if err != nil {
		panic(err)
	}
	return s
}

// EightTimes multiplies a point by 8, undoing the D/8 wire transform.
// 8 * (P * 1/8) = P for any point P on the prime-order subgroup, since l is
// prime and 8 is invertible mod l.
func EightTimes(p *edwards25519.Point) *edwards25519.Point {
	return new(edwards25519.Point).MultByCofactor(p)
}

// DivideByEight scales a point by 1/8 mod l, the Monero wire convention for
// transmitting D.
func DivideByEight(p *edwards25519.Point) *edwards25519.Point {
	return new(edwards25519.Point).ScalarMult(invEight, p)
}
