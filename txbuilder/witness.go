package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/wire"
)

// derSig appends the SIGHASH_ALL byte to a DER-encoded ECDSA signature,
// the wire format every CHECKMULTISIG/CHECKSIG witness element expects.
func derSig(sig *ecdsa.Signature) []byte {
	return append(sig.Serialize(), byte(sigHashAllByte))
}

const sigHashAllByte = 0x01

// RedeemWitness builds the witness stack for the lock output's immediate
// 2-of-2 branch: a leading nil (CHECKMULTISIG's historical off-by-one),
// both signatures in the order the redeem script's sorted pubkeys expect,
// a 1 to select the IF branch, and the redeem script itself — following
// spendMultiSig's stack-order convention, extended with the branch
// selector senderHtlcSpendRevoke/Redeem also append last before the
// script.
func RedeemWitness(buyerPub, sellerPub *btcec.PublicKey, buyerSig, sellerSig *ecdsa.Signature, redeemScript []byte) wire.TxWitness {
	a, b := buyerPub.SerializeCompressed(), sellerPub.SerializeCompressed()
	sigA, sigB := derSig(buyerSig), derSig(sellerSig)

	witness := make(wire.TxWitness, 5)
	witness[0] = nil
	if bytes.Compare(a, b) == -1 {
		witness[1] = sigB
		witness[2] = sigA
	} else {
		witness[1] = sigA
		witness[2] = sigB
	}
	witness[3] = []byte{1} // select IF branch (immediate redeem)
	witness[4] = redeemScript
	return witness
}

// CancelWitness builds the witness stack for the lock output's CSV-gated
// cancel branch, spendable by either party alone (see LockRedeemScript):
// the lone signer's signature, an inner selector choosing which of the
// two hardcoded pubkeys CHECKSIG verifies against (true = buyer), and
// nil to select the outer ELSE branch so CHECKSEQUENCEVERIFY is
// enforced.
func CancelWitness(signerSig *ecdsa.Signature, signerIsBuyer bool, redeemScript []byte) wire.TxWitness {
	var inner []byte
	if signerIsBuyer {
		inner = []byte{1}
	}
	return wire.TxWitness{derSig(signerSig), inner, nil, redeemScript}
}

// RefundWitness builds the witness stack for the cancel output's
// immediate buyer-only branch.
func RefundWitness(buyerSig *ecdsa.Signature, redeemScript []byte) wire.TxWitness {
	return wire.TxWitness{derSig(buyerSig), nil, redeemScript}
}

// PunishWitness builds the witness stack for the cancel output's
// CSV(tPunish)-gated seller-only branch.
func PunishWitness(sellerSig *ecdsa.Signature, redeemScript []byte) wire.TxWitness {
	return wire.TxWitness{derSig(sellerSig), []byte{1}, redeemScript}
}

// ParseMultiSigWitness reverses RedeemWitness's sorted-pubkey stack
// ordering, returning the buyer's and seller's signatures as
// they appear in a witness already observed on-chain. Used by the side
// whose own signature was completed by the counterparty (Bob's redeem
// presignature, decrypted and broadcast by Alice) to recover it for
// internal/adaptor.Recover.
func ParseMultiSigWitness(buyerPub, sellerPub *btcec.PublicKey, witness wire.TxWitness) (buyerSig, sellerSig *ecdsa.Signature, err error) {
	if len(witness) != 5 {
		return nil, nil, fmt.Errorf("txbuilder: expected 5-element multisig witness, got %d", len(witness))
	}

	a, b := buyerPub.SerializeCompressed(), sellerPub.SerializeCompressed()
	var rawA, rawB []byte
	if bytes.Compare(a, b) == -1 {
		rawB, rawA = witness[1], witness[2]
	} else {
		rawA, rawB = witness[1], witness[2]
	}

	buyerSig, err = parseDERSig(rawA)
	if err != nil {
		return nil, nil, fmt.Errorf("txbuilder: parsing buyer signature: %w", err)
	}
	sellerSig, err = parseDERSig(rawB)
	if err != nil {
		return nil, nil, fmt.Errorf("txbuilder: parsing seller signature: %w", err)
	}
	return buyerSig, sellerSig, nil
}

func parseDERSig(raw []byte) (*ecdsa.Signature, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty signature")
	}
	// Strip the trailing sighash-type byte appended by derSig.
	return ecdsa.ParseDERSignature(raw[:len(raw)-1])
}
