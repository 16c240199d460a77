package clsag

import (
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/require"
)

// testRing builds a signable ring with the real key at index 0 derived from
// x, and every other ring member and commitment filled with fresh random
// scalars, mirroring the property-based construction used upstream.
func testRing(t *testing.T, x *edwards25519.Scalar) *SignInput {
	t.Helper()

	ring := [RingSize]*edwards25519.Point{}
	ring[0] = ScalarBasePoint(x)
	for i := 1; i < RingSize; i++ {
		s, err := RandomScalar()
		require.NoError(t, err)
		ring[i] = ScalarBasePoint(s)
	}

	z, err := RandomScalar()
	require.NoError(t, err)

	cring := [RingSize]*edwards25519.Point{}
	cring[0] = ScalarBasePoint(z) // commitment_ring[0] - pseudoOut = z*G when pseudoOut = identity-derived below
	for i := 1; i < RingSize; i++ {
		s, err := RandomScalar()
		require.NoError(t, err)
		cring[i] = ScalarBasePoint(s)
	}

	// pseudoOutputCommitment chosen as the identity-relative point so that
	// commitment_ring[0] - pseudoOutputCommitment = z*G holds exactly.
	pseudoOut := new(edwards25519.Point).ScalarBaseMult(edwards25519.NewScalar())

	fake := [RingSize - 1]*edwards25519.Scalar{}
	for i := range fake {
		s, err := RandomScalar()
		require.NoError(t, err)
		fake[i] = s
	}

	alpha, err := RandomScalar()
	require.NoError(t, err)

	return &SignInput{
		Message:                []byte("hello world, monero is amazing!!"),
		RealScalar:             x,
		HpPk:                   HashToPoint(ring[0]),
		Nonce:                  alpha,
		Ring:                   ring,
		CommitmentRing:         cring,
		FakeResponses:          fake,
		Z:                      z,
		PseudoOutputCommitment: pseudoOut,
	}
}

func verifyInputFrom(in *SignInput) *VerifyInput {
	return &VerifyInput{
		Message:                in.Message,
		Ring:                   in.Ring,
		CommitmentRing:         in.CommitmentRing,
		PseudoOutputCommitment: in.PseudoOutputCommitment,
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)

	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	err = Verify(sig, verifyInputFrom(in))
	require.NoError(t, err)
}

// TestKnownSignerIndex mirrors the spec's "ring[0] = 5*G, x=5" scenario: the
// real key is an explicit small scalar rather than a random one, to pin down
// that the real index is always 0 regardless of which scalar value signs.
func TestKnownSignerIndex(t *testing.T) {
	five := edwards25519.NewScalar()
	one, err := new(edwards25519.Scalar).SetCanonicalBytes(scalarBytes(1))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		five.Add(five, one)
	}

	in := testRing(t, five)
	require.Equal(t, ScalarBasePoint(five).Bytes(), in.Ring[0].Bytes())

	sig, err := Sign(in)
	require.NoError(t, err)
	require.NoError(t, Verify(sig, verifyInputFrom(in)))
}

func scalarBytes(v byte) []byte {
	b := make([]byte, 32)
	b[0] = v
	return b
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	vin := verifyInputFrom(in)
	vin.Message = append([]byte{}, in.Message...)
	vin.Message[0] ^= 0x01

	require.ErrorIs(t, Verify(sig, vin), ErrInvalidSignature)
}

func TestVerifyRejectsTamperedRingPoint(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	vin := verifyInputFrom(in)
	other, err := RandomScalar()
	require.NoError(t, err)
	vin.Ring[3] = ScalarBasePoint(other)

	require.ErrorIs(t, Verify(sig, vin), ErrInvalidSignature)
}

func TestVerifyRejectsTamperedResponse(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	sig.Responses[4] = new(edwards25519.Scalar).Add(sig.Responses[4], mustOne())

	require.ErrorIs(t, Verify(sig, verifyInputFrom(in)), ErrInvalidSignature)
}

func TestVerifyRejectsTamperedH0(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	sig.H0 = new(edwards25519.Scalar).Add(sig.H0, mustOne())

	require.ErrorIs(t, Verify(sig, verifyInputFrom(in)), ErrInvalidSignature)
}

func TestVerifyRejectsTamperedKeyImage(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	other, err := RandomScalar()
	require.NoError(t, err)
	sig.I = ScalarBasePoint(other)

	require.ErrorIs(t, Verify(sig, verifyInputFrom(in)), ErrInvalidSignature)
}

func TestVerifyRejectsTamperedD(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	other, err := RandomScalar()
	require.NoError(t, err)
	sig.D = ScalarBasePoint(other)

	require.ErrorIs(t, Verify(sig, verifyInputFrom(in)), ErrInvalidSignature)
}

// TestAggregationBindsCommitmentRing checks that mu_C genuinely depends on
// the commitment ring: changing it while keeping the signature ring fixed
// must break verification.
func TestAggregationBindsCommitmentRing(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	vin := verifyInputFrom(in)
	other, err := RandomScalar()
	require.NoError(t, err)
	vin.CommitmentRing[2] = ScalarBasePoint(other)

	require.ErrorIs(t, Verify(sig, vin), ErrInvalidSignature)
}

func TestDivideByEightRoundTrip(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	p := ScalarBasePoint(x)

	divided := DivideByEight(p)
	restored := EightTimes(divided)

	require.Equal(t, p.Bytes(), restored.Bytes())
}

func TestWireDPrimeRoundTrip(t *testing.T) {
	x, err := RandomScalar()
	require.NoError(t, err)
	in := testRing(t, x)

	sig, err := Sign(in)
	require.NoError(t, err)

	wire := sig.Wire()

	dPrime, err := DecodePoint(wire.DPrime[:])
	require.NoError(t, err)

	restored := EightTimes(dPrime)
	require.Equal(t, sig.D.Bytes(), restored.Bytes())
}

func mustOne() *edwards25519.Scalar {
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(scalarBytes(1))
	if err != nil {
		panic(err)
	}
	return s
}
