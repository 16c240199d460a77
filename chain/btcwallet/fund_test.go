package btcwallet

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func testFundingUTXO(t *testing.T, value btcutil.Amount) FundingUTXO {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(priv.PubKey().SerializeCompressed()), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	return FundingUTXO{
		Outpoint:     wire.OutPoint{Index: 0},
		Value:        value,
		PrivKey:      priv,
		PkScript:     pkScript,
		ChangeScript: pkScript,
	}
}

func TestFundLockOutputPaysRequestedAmount(t *testing.T) {
	utxo := testFundingUTXO(t, 1_000_000)
	funder := NewFunder(utxo, &chaincfg.RegressionNetParams, 1)

	lockScript := utxo.PkScript // any valid script works as the lock output target
	tx, err := funder.FundLockOutput(context.Background(), lockScript, 500_000)
	require.NoError(t, err)

	require.Len(t, tx.TxIn, 1)
	require.Equal(t, utxo.Outpoint, tx.TxIn[0].PreviousOutPoint)
	require.NotEmpty(t, tx.TxIn[0].Witness, "expect a signed witness for the spent P2WPKH input")

	require.Equal(t, int64(500_000), tx.TxOut[0].Value)
	require.Equal(t, lockScript, tx.TxOut[0].PkScript)
}

func TestFundLockOutputRejectsInsufficientValue(t *testing.T) {
	utxo := testFundingUTXO(t, 1000)
	funder := NewFunder(utxo, &chaincfg.RegressionNetParams, 1)

	_, err := funder.FundLockOutput(context.Background(), utxo.PkScript, 500_000)
	require.ErrorContains(t, err, "funding utxo holds")
}

func TestFundLockOutputAddsChangeWhenLeftover(t *testing.T) {
	utxo := testFundingUTXO(t, 1_000_000)
	funder := NewFunder(utxo, &chaincfg.RegressionNetParams, 1)

	tx, err := funder.FundLockOutput(context.Background(), utxo.PkScript, 100_000)
	require.NoError(t, err)

	require.Len(t, tx.TxOut, 2, "expect a lock output plus a change output")
}
