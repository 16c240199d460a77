package btcwallet

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/chain"

	swapchain "github.com/athanorlabs/btcxmrswap/chain"
)

// isAlreadyInChain matches the class of rejections a full node or
// neutrino peer returns for a transaction (or a conflicting spend of the
// same input) that has already been accepted, generalizing the
// RpcVerifyError ambiguity spec.md §9 flags: this module treats any such
// rejection as success rather than trying to enumerate every node's exact
// error string.
func isAlreadyInChain(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already have transaction") ||
		strings.Contains(msg, "already in block chain") ||
		strings.Contains(msg, "already spent")
}

// isNonFinal matches the rejection class produced when a transaction's
// CSV/CLTV clause has not yet matured.
func isNonFinal(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "non-final") || strings.Contains(msg, "non-bip68-final")
}

// matchRelevantTx inspects a single notification from the client's
// Notifications channel for a filtered block containing txid, returning
// nil if this notification isn't the one being waited on. A match always
// reports one confirmation; confirmations is not consulted.
func matchRelevantTx(n interface{}, txid *chainhash.Hash, confirmations uint32) *swapchain.TxStatus {
	switch note := n.(type) {
	case chain.FilteredBlockConnected:
		for _, tx := range note.RelevantTxs {
			if tx.Hash().IsEqual(txid) {
				return &swapchain.TxStatus{
					Confirmed:     true,
					Confirmations: 1,
					BlockHeight:   note.Block.Height,
				}
			}
		}
	}
	return nil
}

// matchScriptTx inspects a single notification for a confirmed transaction
// carrying an output paying pkScript, used by StatusOfScript to let a
// counterparty discover a lock transaction's outpoint by script alone —
// neither side ever sends the other a raw txid/vout over the wire protocol,
// so this is the only way the recipient of a lock learns where it landed.
func matchScriptTx(n interface{}, pkScript []byte) *swapchain.TxStatus {
	switch note := n.(type) {
	case chain.FilteredBlockConnected:
		for _, tx := range note.RelevantTxs {
			for vout, out := range tx.MsgTx().TxOut {
				if bytes.Equal(out.PkScript, pkScript) {
					return &swapchain.TxStatus{
						Confirmed:     true,
						Confirmations: 1,
						BlockHeight:   note.Block.Height,
						Outpoint:      &wire.OutPoint{Hash: *tx.Hash(), Index: uint32(vout)},
					}
				}
			}
		}
	}
	return nil
}

func bytesReader(hexStr string) *bytes.Reader {
	raw, _ := hex.DecodeString(hexStr)
	return bytes.NewReader(raw)
}
