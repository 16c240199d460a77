package recovery

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/athanorlabs/btcxmrswap/internal/adaptor"
	"github.com/athanorlabs/btcxmrswap/internal/clsag"
	"github.com/athanorlabs/btcxmrswap/internal/xcurve"
)

func TestExtractMoneroScalarRoundTrip(t *testing.T) {
	s, err := clsag.RandomScalar()
	require.NoError(t, err)

	statement, err := xcurve.StatementPoint(s)
	require.NoError(t, err)

	signer, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	msgHash := sha256.Sum256([]byte("redeem tx sighash"))

	presig, err := adaptor.EncSign(signer, statement, msgHash)
	require.NoError(t, err)
	require.NoError(t, adaptor.EncVerify(signer.PubKey(), statement, msgHash, presig))

	var t32 btcec.ModNScalar
	sBytes := s.Bytes()
	var beBytes [32]byte
	for i := 0; i < 32; i++ {
		beBytes[i] = sBytes[31-i]
	}
	t32.SetByteSlice(beBytes[:])

	completed, err := adaptor.Decrypt(presig, &t32)
	require.NoError(t, err)

	recovered, err := ExtractMoneroScalar(presig, completed, statement)
	require.NoError(t, err)
	require.Equal(t, s.Bytes(), recovered.Bytes())
}

func TestExtractMoneroScalarRejectsMismatch(t *testing.T) {
	s1, err := clsag.RandomScalar()
	require.NoError(t, err)
	s2, err := clsag.RandomScalar()
	require.NoError(t, err)

	statement1, err := xcurve.StatementPoint(s1)
	require.NoError(t, err)

	signer, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	msgHash := sha256.Sum256([]byte("redeem tx sighash"))

	presig, err := adaptor.EncSign(signer, statement1, msgHash)
	require.NoError(t, err)

	var t32 btcec.ModNScalar
	sBytes := s2.Bytes()
	var beBytes [32]byte
	for i := 0; i < 32; i++ {
		beBytes[i] = sBytes[31-i]
	}
	t32.SetByteSlice(beBytes[:])

	// Decrypting with the wrong scalar produces a signature that does not
	// decrypt back to a value matching statement1.
	completed, err := adaptor.Decrypt(presig, &t32)
	require.NoError(t, err)

	_, err = ExtractMoneroScalar(presig, completed, statement1)
	require.ErrorIs(t, err, ErrRecoveryFatal)
}
