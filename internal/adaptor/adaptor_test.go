package adaptor

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func randKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

func TestEncSignEncVerify(t *testing.T) {
	signer := randKey(t)
	tKey := randKey(t)
	statement := tKey.PubKey()

	msg := sha256.Sum256([]byte("redeem tx digest"))

	sig, err := EncSign(signer, statement, msg)
	require.NoError(t, err)

	err = EncVerify(signer.PubKey(), statement, msg, sig)
	require.NoError(t, err)
}

func TestEncVerifyRejectsWrongSigner(t *testing.T) {
	signer := randKey(t)
	other := randKey(t)
	tKey := randKey(t)
	statement := tKey.PubKey()

	msg := sha256.Sum256([]byte("redeem tx digest"))

	sig, err := EncSign(signer, statement, msg)
	require.NoError(t, err)

	err = EncVerify(other.PubKey(), statement, msg, sig)
	require.ErrorIs(t, err, ErrInvalidPreSignature)
}

func TestDecryptRecoverRoundTrip(t *testing.T) {
	signer := randKey(t)
	tKey := randKey(t)
	statement := tKey.PubKey()

	msg := sha256.Sum256([]byte("redeem tx digest"))

	sig, err := EncSign(signer, statement, msg)
	require.NoError(t, err)
	require.NoError(t, EncVerify(signer.PubKey(), statement, msg, sig))

	completed, err := Decrypt(sig, &tKey.Key)
	require.NoError(t, err)

	ok := completed.Verify(msg[:], signer.PubKey())
	require.True(t, ok, "decrypted signature must verify under signer's key")

	recovered, err := Recover(sig, completed, statement)
	require.NoError(t, err)

	var original btcec.ModNScalar
	original.Set(&tKey.Key)

	// recover may return t or its negation depending on which sign
	// Decrypt normalized s to; either is a valid discrete log witness,
	// but it must match the one actually used to generate the key.
	require.True(t, scalarsMatch(recovered, &original))
}

func scalarsMatch(a, b *btcec.ModNScalar) bool {
	var negB btcec.ModNScalar
	negB.Set(b)
	negB.Negate()

	return *a == *b || *a == negB
}

func TestRecoverRejectsMismatchedStatement(t *testing.T) {
	signer := randKey(t)
	tKey := randKey(t)
	statement := tKey.PubKey()

	msg := sha256.Sum256([]byte("redeem tx digest"))

	sig, err := EncSign(signer, statement, msg)
	require.NoError(t, err)

	completed, err := Decrypt(sig, &tKey.Key)
	require.NoError(t, err)

	wrongKey := randKey(t)
	_, err = Recover(sig, completed, wrongKey.PubKey())
	require.ErrorIs(t, err, ErrRecoveryMismatch)
}
