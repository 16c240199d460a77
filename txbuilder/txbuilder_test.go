package txbuilder

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func randPub(t *testing.T) *btcec.PublicKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key.PubKey()
}

func TestLockPkScriptBuildsP2WSHOutput(t *testing.T) {
	buyer, seller := randPub(t), randPub(t)

	redeemScript, out, err := LockPkScript(buyer, seller, 144, 1_000_000)
	require.NoError(t, err)
	require.NotEmpty(t, redeemScript)
	require.EqualValues(t, 1_000_000, out.Value)
	require.Equal(t, byte(0x00), out.PkScript[0], "expect P2WSH version byte")
}

func TestLockPkScriptRejectsNonPositiveAmount(t *testing.T) {
	buyer, seller := randPub(t), randPub(t)

	_, _, err := LockPkScript(buyer, seller, 144, 0)
	require.Error(t, err)
}

func TestBuildLockTxAssemblesInputsAndOutputs(t *testing.T) {
	buyer, seller := randPub(t), randPub(t)

	input := &wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0}}
	skel, err := BuildLockTx(LockTxParams{
		Inputs:    []*wire.TxIn{input},
		LockAmt:   500_000,
		BuyerPub:  buyer,
		SellerPub: seller,
		TCancel:   100,
	})
	require.NoError(t, err)
	require.Len(t, skel.Tx.TxIn, 1)
	require.Len(t, skel.Tx.TxOut, 1)
	require.EqualValues(t, 500_000, skel.PrevOutValue)
}

func TestBuildCancelThenRefundChain(t *testing.T) {
	buyer, seller := randPub(t), randPub(t)
	lockOutpoint := wire.OutPoint{Index: 0}

	cancelSkel, err := BuildCancelTx(lockOutpoint, 1_000_000, 1_000, LockTxParams{
		BuyerPub:  buyer,
		SellerPub: seller,
		TCancel:   144,
	}, 288)
	require.NoError(t, err)
	require.Equal(t, CSVSequence(144), cancelSkel.Tx.TxIn[0].Sequence)

	cancelOutpoint := wire.OutPoint{Hash: cancelSkel.Tx.TxHash(), Index: 0}
	destPk, _, err := LockPkScript(buyer, seller, 144, 1) // reuse as arbitrary dest script
	require.NoError(t, err)

	refundTx, err := BuildRefundTx(cancelOutpoint, cancelSkel.PrevOutValue, 500, destPk)
	require.NoError(t, err)
	require.EqualValues(t, cancelSkel.PrevOutValue-500, refundTx.TxOut[0].Value)
	require.Equal(t, wire.MaxTxInSequenceNum, refundTx.TxIn[0].Sequence)
}

func TestBuildPunishRequiresCSVSequence(t *testing.T) {
	cancelOutpoint := wire.OutPoint{Index: 0}

	punishTx, err := BuildPunishTx(cancelOutpoint, 900_000, 500, 288, []byte{0x00})
	require.NoError(t, err)
	require.Equal(t, CSVSequence(288), punishTx.TxIn[0].Sequence)
}

func TestFeeExceedsAmountRejected(t *testing.T) {
	_, err := BuildRedeemTx(wire.OutPoint{}, 1000, 1000, []byte{0x00})
	require.Error(t, err)
}
