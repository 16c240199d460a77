// Package txbuilder assembles the Bitcoin transaction skeletons and
// witness scripts the swap protocol spends through: lock, redeem, cancel,
// refund, punish. The branching-script construction (OP_IF/OP_ELSE guarding
// an immediate spend path against a delayed one) follows the same builder
// idiom the teacher uses for its HTLC scripts, generalized from a
// payment-hash/revocation-hash branch to a redeem/cancel-timelock branch.
package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// CSVSequence encodes a relative-locktime block count into the nSequence
// value BIP-68/112 require to enforce it via OP_CHECKSEQUENCEVERIFY. Block
// counts are carried in the low 16 bits with the locktime-type flag
// (bit 22) left clear, matching the teacher's SequenceLockTimeMask
// constant in script_utils.go.
func CSVSequence(blocks uint32) uint32 {
	return blocks & 0x0000ffff
}

// multiSigScript builds a bare 2-of-2 CHECKMULTISIG script over aPub and
// bPub, larger serialized key first (the reverse of genMultiSigScript's
// ascending order); RedeemWitness and ParseMultiSigWitness use the same
// order so witness construction and script construction agree on
// signature order.
func multiSigScript(aPub, bPub *btcec.PublicKey) ([]byte, error) {
	a, b := aPub.SerializeCompressed(), bPub.SerializeCompressed()
	if bytes.Compare(a, b) == -1 {
		a, b = b, a
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_2)
	builder.AddData(a)
	builder.AddData(b)
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	return builder.Script()
}

// witnessScriptHash wraps redeemScript in a version-0 P2WSH output script.
func witnessScriptHash(redeemScript []byte) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	h := sha256Sum(redeemScript)
	builder.AddData(h[:])
	return builder.Script()
}

// LockRedeemScript builds the witness script for the Bitcoin lock output.
// It offers two spend paths:
//
//	IF   <immediate 2-of-2, used by the redeem tx as soon as Alice's
//	     adaptor signature is completed>
//	ELSE <CHECKSEQUENCEVERIFY(tCancel), then EITHER party's lone
//	     signature moves the funds into the cancel output>
//
// The cancel path deliberately accepts either signer alone rather than a
// second 2-of-2: spec.md §4.3's scenario 2 has Bob trigger cancel and
// scenario 4 has Alice trigger it, with no cancel-presignature exchange
// protocol listed among spec.md §6's four peer protocols to arrange a
// live 2-of-2 co-signature at t_cancel time. A lone-signer CSV branch
// gives both parties the unilateral recovery path spec.md's invariant I3
// requires without inventing an unlisted fifth wire message.
//
// This mirrors senderHTLCScript's OP_IF/OP_ELSE shape with the
// payment/revocation branch replaced by a redeem/cancel-timelock branch.
func LockRedeemScript(buyerPub, sellerPub *btcec.PublicKey, tCancel uint32) ([]byte, error) {
	multisig, err := multiSigScript(buyerPub, sellerPub)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	builder.AddOps(multisig)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(CSVSequence(tCancel)))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddOp(txscript.OP_IF)
	builder.AddData(buyerPub.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddData(sellerPub.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)
	builder.AddOp(txscript.OP_ENDIF)
	return builder.Script()
}

// LockPkScript returns the redeem script for the lock output together with
// its P2WSH public key script and a ready-to-use wire.TxOut.
func LockPkScript(buyerPub, sellerPub *btcec.PublicKey, tCancel uint32, amt int64) (
	redeemScript []byte, out *wire.TxOut, err error) {

	if amt <= 0 {
		return nil, nil, fmt.Errorf("txbuilder: lock amount must be positive, got %d", amt)
	}

	redeemScript, err = LockRedeemScript(buyerPub, sellerPub, tCancel)
	if err != nil {
		return nil, nil, err
	}

	pkScript, err := witnessScriptHash(redeemScript)
	if err != nil {
		return nil, nil, err
	}

	return redeemScript, wire.NewTxOut(amt, pkScript), nil
}

// CancelRedeemScript builds the witness script for the cancel output,
// itself branching between the buyer's immediate refund path and the
// seller's punish path, unlocked only after tPunish additional blocks:
//
//	IF   <CHECKSEQUENCEVERIFY(tPunish) <sellerPub> CHECKSIG>   // punish
//	ELSE <buyerPub> CHECKSIG                                    // refund
func CancelRedeemScript(buyerPub, sellerPub *btcec.PublicKey, tPunish uint32) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	builder.AddInt64(int64(CSVSequence(tPunish)))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(sellerPub.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddData(buyerPub.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)
	return builder.Script()
}

// CancelPkScript mirrors LockPkScript for the cancel output.
func CancelPkScript(buyerPub, sellerPub *btcec.PublicKey, tPunish uint32, amt int64) (
	redeemScript []byte, out *wire.TxOut, err error) {

	if amt <= 0 {
		return nil, nil, fmt.Errorf("txbuilder: cancel output amount must be positive, got %d", amt)
	}

	redeemScript, err = CancelRedeemScript(buyerPub, sellerPub, tPunish)
	if err != nil {
		return nil, nil, err
	}

	pkScript, err := witnessScriptHash(redeemScript)
	if err != nil {
		return nil, nil, err
	}

	return redeemScript, wire.NewTxOut(amt, pkScript), nil
}
