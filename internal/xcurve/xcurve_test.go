package xcurve

import (
	"testing"

	"filippo.io/edwards25519"
	"github.com/athanorlabs/btcxmrswap/internal/clsag"
	"github.com/stretchr/testify/require"
)

func TestStatementPointFromRandomScalar(t *testing.T) {
	s, err := clsag.RandomScalar()
	require.NoError(t, err)

	point, err := StatementPoint(s)
	require.NoError(t, err)
	require.NotNil(t, point)
}

func TestEndianConversionRoundTrip(t *testing.T) {
	s, err := clsag.RandomScalar()
	require.NoError(t, err)

	_, err = StatementPoint(s)
	require.NoError(t, err)

	// Round-trip through the big/little-endian conversion used internally
	// for the secp256k1 <-> Ed25519 scalar bridge.
	be, err := littleToBigEndian(s.Bytes())
	require.NoError(t, err)

	le, err := bigToLittleEndian(be)
	require.NoError(t, err)

	restored, err := new(edwards25519.Scalar).SetCanonicalBytes(le)
	require.NoError(t, err)
	require.Equal(t, s.Bytes(), restored.Bytes())
}
