package txbuilder

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

func sha256Sum(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// LockTxParams describes the funding transaction's inputs and the amount
// being committed to the 2-of-2 lock output; everything else (change
// output, fee) is the caller's concern since it depends on the wallet's
// coin selection, per spec.md's "wallet adapters are an external
// collaborator" scoping.
type LockTxParams struct {
	Inputs   []*wire.TxIn
	LockAmt  int64
	BuyerPub *btcec.PublicKey
	SellerPub *btcec.PublicKey
	TCancel  uint32
	ChangeOut *wire.TxOut // nil if no change
}

// Skeleton is an unsigned transaction together with the redeem script
// and amount of the single output it spends going forward (needed for
// witness construction/signing), matching the "skeleton" vocabulary
// spec.md §2 uses for this component.
type Skeleton struct {
	Tx           *wire.MsgTx
	RedeemScript []byte
	PrevOutValue int64
	PrevOutPk    []byte
}

// BuildLockTx assembles the unsigned funding transaction locking LockAmt
// into the buyer/seller 2-of-2 output, matching lnwallet's
// genFundingPkScript shape generalized to the redeem/cancel branch script.
func BuildLockTx(p LockTxParams) (*Skeleton, error) {
	redeemScript, lockOut, err := LockPkScript(p.BuyerPub, p.SellerPub, p.TCancel, p.LockAmt)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range p.Inputs {
		tx.AddTxIn(in)
	}
	tx.AddTxOut(lockOut)
	if p.ChangeOut != nil {
		tx.AddTxOut(p.ChangeOut)
	}

	return &Skeleton{
		Tx:           tx,
		RedeemScript: redeemScript,
		PrevOutValue: p.LockAmt,
		PrevOutPk:    lockOut.PkScript,
	}, nil
}

// spendFromOutpoint builds a single-input, single-output unsigned
// transaction spending lockOutpoint (a previous Skeleton's output 0),
// locked to sequence (for CSV-gated spends; use wire.MaxTxInSequenceNum
// for an immediate spend) and sending the swept amount to dest.
func spendFromOutpoint(lockOutpoint wire.OutPoint, sequence uint32, sweptAmt int64, destPk []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: lockOutpoint,
		Sequence:         sequence,
	})
	tx.AddTxOut(wire.NewTxOut(sweptAmt, destPk))
	return tx
}

// BuildRedeemTx spends the lock output's immediate 2-of-2 branch,
// delivering the funds to destPk (the seller's payout script at every call
// site) once Alice has completed Bob's adaptor presignature. feeAmt is subtracted from lockOut.Value for the
// single output.
func BuildRedeemTx(lockOutpoint wire.OutPoint, lockAmt int64, feeAmt int64, destPk []byte) (*wire.MsgTx, error) {
	if feeAmt >= lockAmt {
		return nil, fmt.Errorf("txbuilder: fee %d exceeds lock amount %d", feeAmt, lockAmt)
	}
	return spendFromOutpoint(lockOutpoint, wire.MaxTxInSequenceNum, lockAmt-feeAmt, destPk), nil
}

// BuildCancelTx spends the lock output's CSV(tCancel) branch into a fresh
// cancel output carrying the refund/punish branch script.
func BuildCancelTx(lockOutpoint wire.OutPoint, lockAmt int64, feeAmt int64, p LockTxParams, tPunish uint32) (*Skeleton, error) {
	if feeAmt >= lockAmt {
		return nil, fmt.Errorf("txbuilder: fee %d exceeds lock amount %d", feeAmt, lockAmt)
	}

	redeemScript, cancelOut, err := CancelPkScript(p.BuyerPub, p.SellerPub, tPunish, lockAmt-feeAmt)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: lockOutpoint,
		Sequence:         CSVSequence(p.TCancel),
	})
	tx.AddTxOut(cancelOut)

	return &Skeleton{
		Tx:           tx,
		RedeemScript: redeemScript,
		PrevOutValue: lockAmt - feeAmt,
		PrevOutPk:    cancelOut.PkScript,
	}, nil
}

// BuildRefundTx spends the cancel output's immediate buyer-only branch.
func BuildRefundTx(cancelOutpoint wire.OutPoint, cancelAmt int64, feeAmt int64, destPk []byte) (*wire.MsgTx, error) {
	if feeAmt >= cancelAmt {
		return nil, fmt.Errorf("txbuilder: fee %d exceeds cancel amount %d", feeAmt, cancelAmt)
	}
	return spendFromOutpoint(cancelOutpoint, wire.MaxTxInSequenceNum, cancelAmt-feeAmt, destPk), nil
}

// BuildPunishTx spends the cancel output's CSV(tPunish) seller-only branch.
func BuildPunishTx(cancelOutpoint wire.OutPoint, cancelAmt int64, feeAmt int64, tPunish uint32, destPk []byte) (*wire.MsgTx, error) {
	if feeAmt >= cancelAmt {
		return nil, fmt.Errorf("txbuilder: fee %d exceeds cancel amount %d", feeAmt, cancelAmt)
	}
	return spendFromOutpoint(cancelOutpoint, CSVSequence(tPunish), cancelAmt-feeAmt, destPk), nil
}

// SigHash computes the BIP-143 witness signature hash for input 0 of tx
// spending an output worth prevValue locked by prevPkScript, using the
// fetcher-based TxSigHashes API the teacher's own (newer) btcd dependency
// requires.
func SigHash(tx *wire.MsgTx, prevPkScript []byte, prevValue int64, redeemScript []byte) ([]byte, error) {
	fetcher := txscript.NewCannedPrevOutputFetcher(prevPkScript, prevValue)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	return txscript.CalcWitnessSigHash(redeemScript, sigHashes, txscript.SigHashAll, tx, 0, prevValue)
}
