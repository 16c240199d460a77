// Package chain defines the capability interfaces the swap core consumes
// for Bitcoin and Monero chain access, spec.md §6's "chain interfaces"
// contract. Concrete backends (chain/btcwallet, chain/moneroclient) are
// injected by the daemon; the core never depends on them directly,
// matching spec.md §9's "shared wallet access is behind a capability
// interface... concrete backend is injected" design note and the same
// ChainControl-as-collaborator shape chainregistry.go assembles for lnd.
package chain

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TxStatus reports a transaction's confirmation state for status_of_script
// and watch_for_tx.
type TxStatus struct {
	Confirmed     bool
	Confirmations uint32
	BlockHeight   int32

	// Outpoint identifies the specific output status_of_script matched,
	// when the backend's index can resolve one (e.g. a wallet/filter
	// backend that already tracks pkScript->outpoint). nil if the
	// backend can only report confirmation depth, not identity — callers
	// that need the outpoint (e.g. to construct a spend of it) should
	// treat a nil Outpoint the same as "not yet observed".
	Outpoint *wire.OutPoint
}

// BitcoinBackend is the capability surface spec.md §6 names:
// broadcast/watch_for_tx/get_raw_tx/estimate_fee/status_of_script.
type BitcoinBackend interface {
	// Broadcast submits tx to the network. An "already in chain" response
	// from the backend is surfaced via ErrAlreadyInChain rather than a
	// generic error, so callers can treat it as the success case spec.md
	// §7 requires.
	Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error)

	// WatchForTx blocks until txid is seen confirmed or ctx is cancelled.
	// confirmations is the requested depth; the btcwallet backend returns
	// at the first block containing txid, reporting one confirmation, and
	// does not wait for a greater depth.
	WatchForTx(ctx context.Context, txid *chainhash.Hash, confirmations uint32) (*TxStatus, error)

	// GetRawTx fetches a previously broadcast transaction by id.
	GetRawTx(ctx context.Context, txid *chainhash.Hash) (*wire.MsgTx, error)

	// EstimateFee returns a satoshi-per-vbyte feerate targeting
	// confirmation within confTarget blocks.
	EstimateFee(ctx context.Context, confTarget uint32) (btcutil.Amount, error)

	// StatusOfScript reports whether pkScript has ever received or spent
	// an output, used by the recovery subsystem to detect a redeem/cancel
	// that happened while the daemon was offline.
	StatusOfScript(ctx context.Context, pkScript []byte) (*TxStatus, error)
}

// MoneroBackend is the capability surface spec.md §6 names:
// transfer/check_tx/create_from_keys.
type MoneroBackend interface {
	// Transfer sends amount atomic units to addr and waits for
	// confirmations confirmations. txKey is the transaction's one-time
	// private key, required alongside txHash to build the transfer_proof
	// message spec.md §6 sends next (`{swap_id, monero_tx_hash, tx_key}`).
	Transfer(ctx context.Context, addr string, amount uint64, confirmations uint32) (txHash, txKey string, err error)

	// CheckTx verifies that txHash pays amount to address, provable via
	// txKey, and has reached confirmations confirmations — the
	// transfer-proof verification spec.md §6's peer protocol delivers.
	CheckTx(ctx context.Context, txHash, txKey, address string, amount uint64, confirmations uint32) (bool, error)

	// CreateFromKeys restores (or opens) a wallet from a known spend/view
	// keypair, as the swap executor does once it has combined both
	// parties' key shares (spec.md §4.4).
	CreateFromKeys(ctx context.Context, spendKey, viewKey [32]byte, restoreHeight uint64) error
}

// ErrAlreadyInChain is returned by Broadcast when the backend reports the
// transaction (or a conflicting spend of the same input) is already
// confirmed or in the mempool — spec.md §7 treats this as success.
var ErrAlreadyInChain = chainErr("chain: transaction already in chain")

// ErrTimelockNotExpired is returned by Broadcast when the backend rejects
// a transaction because a CSV/CLTV clause it relies on has not yet
// matured — surfaced verbatim to the CLI per spec.md §7.
var ErrTimelockNotExpired = chainErr("chain: timelock not yet expired")

type chainErr string

func (e chainErr) Error() string { return string(e) }
