// Package recovery implements the cancel/refund/punish subsystem spec.md
// §4.4/§4.3 describes: deriving and broadcasting the cancel, refund, and
// punish transactions against the lock output's timelock branches, and
// extracting Alice's Monero spend scalar from a completed Bitcoin
// signature once it is observed on-chain.
//
// Grounded on breacharbiter.go's persisted-retribution design: a small,
// durable record of "which sweep am I owed, and from what outpoint" that
// survives a restart, watched against chain events rather than held only
// in memory. This package carries no state of its own — callers
// (protocol/xmrtaker, protocol/xmrmaker) persist the relevant Skeleton
// inside their own stage payloads — but the broadcast/classification
// logic below is exactly the piece breacharbiter.go's retribution flow
// and this swap's cancel/refund/punish flow share.
package recovery

import (
	"context"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/athanorlabs/btcxmrswap/chain"
	"github.com/athanorlabs/btcxmrswap/internal/adaptor"
	"github.com/athanorlabs/btcxmrswap/internal/xcurve"
	"github.com/athanorlabs/btcxmrswap/swaplog"
)

var log = swaplog.SubLogger("RECV")

// ErrRecoveryFatal wraps a recovery-extraction failure that spec.md §4.4
// calls fatal-but-diagnostic-only: it can only happen if the counterparty
// submitted a malformed or non-matching signature, which is impossible
// between two correct implementations.
var ErrRecoveryFatal = errors.New("recovery: counterparty signature does not match its presignature")

// ExtractMoneroScalar recovers the Ed25519 Monero spend scalar Alice
// committed to as the adaptor statement, given Bob's stored presignature,
// the completed signature observed in Alice's broadcast redeem
// transaction, and the secp256k1 adaptor statement point T_a published
// during setup.
// Implements spec.md §4.2 recover + the cross-curve conversion back to
// Ed25519 (spec.md §4.4).
func ExtractMoneroScalar(presig *adaptor.PreSignature, completed *ecdsa.Signature, statement *btcec.PublicKey) (*edwards25519.Scalar, error) {
	t, err := adaptor.Recover(presig, completed, statement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecoveryFatal, err)
	}

	s, err := xcurve.ToEdwardsScalar(t)
	if err != nil {
		return nil, fmt.Errorf("%w: recovered scalar is not a valid Ed25519 scalar: %v", ErrRecoveryFatal, err)
	}
	return s, nil
}

// BroadcastResult reports how a timelock-gated broadcast settled.
type BroadcastResult struct {
	// AlreadyInChain is true when the backend reported the transaction
	// (or a conflicting spend) as already confirmed or mempool-resident
	// — spec.md §7 treats this identically to a fresh successful
	// broadcast.
	AlreadyInChain bool
	TxHash         *chainhash.Hash
}

// BroadcastTx submits tx and classifies the outcome per spec.md §4.3's
// cancel-flow discipline: an already-in-chain response is success; a
// timelock-not-expired response is returned verbatim as
// chain.ErrTimelockNotExpired so the caller can surface spec.md §7's
// "please try again later" message without mutating its persisted stage.
func BroadcastTx(ctx context.Context, backend chain.BitcoinBackend, label string, tx *wire.MsgTx) (BroadcastResult, error) {
	hash, err := backend.Broadcast(ctx, tx)
	if err == nil {
		log.Infof("broadcast %s tx %v", label, hash)
		return BroadcastResult{TxHash: hash}, nil
	}

	if errors.Is(err, chain.ErrAlreadyInChain) {
		txHash := tx.TxHash()
		log.Infof("%s tx %v already in chain, treating as success", label, txHash)
		return BroadcastResult{AlreadyInChain: true, TxHash: &txHash}, nil
	}

	if errors.Is(err, chain.ErrTimelockNotExpired) {
		return BroadcastResult{}, err
	}

	return BroadcastResult{}, fmt.Errorf("recovery: broadcasting %s tx: %w", label, err)
}
