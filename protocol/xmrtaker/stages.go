// Package xmrtaker implements Bob's side of the swap — he pays Bitcoin
// and receives Monero — as the 13-stage tagged-variant state machine
// spec.md §4.3 describes. Each stage is its own Go type implementing
// swap.Stage; the Executor dispatches on the concrete type the same way
// contractcourt's resolvers dispatch on the embedding struct, rather than
// on a shared "current phase" enum field, per spec.md §9's explicit
// re-architecture guidance away from an inheritance/enum hierarchy.
package xmrtaker

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/athanorlabs/btcxmrswap/protocol/swap"
	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// Common fields every stage carries: the swap's fixed parameters and
// identity, and Bob's own Bitcoin keypair (generated once at Started and
// never rotated).
type Common struct {
	Params swap.Params
	Peer   swapdb.PeerID

	// BuyerBtcPriv is Bob's secp256k1 private key for the 2-of-2 lock
	// script, serialized.
	BuyerBtcPriv [32]byte
	BuyerBtcPub  [33]byte

	// BuyerPayoutScript is where refunded Bitcoin value is sent on the
	// refund transaction's single output (the redeem transaction pays
	// SellerPayoutScript instead); supplied by the external wallet at
	// Start, matching spec.md's "address derivation" out-of-scope item.
	BuyerPayoutScript []byte

	// OwnKeyShare is Bob's own (s_b, v_b) Monero key share, sampled once
	// at Start and published to Alice in the swap_setup request.
	OwnKeyShare swap.MoneroKeyShare
}

// Started is the fresh stage: no network I/O has happened yet.
type Started struct {
	Common
}

func (Started) Name() swap.StageName { return "Started" }
func (Started) Terminal() bool       { return false }

// SwapSetupCompleted holds everything exchanged during setup: Alice's
// Bitcoin pubkey and Monero key-share commitments, and Bob's own Monero
// key share, plus the assembled (unfunded) lock output script.
type SwapSetupCompleted struct {
	Common

	SellerBtcPub [33]byte

	// SA is Alice's published Monero spend commitment point (Ed25519); VA
	// is her view-key share scalar, sent in the clear. TA is her secp256k1
	// adaptor statement point.
	SA [32]byte
	VA [32]byte
	TA [33]byte

	RedeemScript []byte
	LockPkScript []byte
	LockAmt      int64

	// SellerPayoutScript is where Alice's redeem transaction pays — not
	// Bob's own payout. Bob needs it to recompute the exact redeem
	// transaction Alice will broadcast (see doAwaitRedeemOrCancelTimelock).
	SellerPayoutScript []byte

	// SharedAddr is the standard Monero address for the combined (S_a+S_b,
	// V_a+V_b) public keypair, computed once both shares' commitment
	// points are known. Neither party can spend from it alone.
	SharedAddr string
}

func (SwapSetupCompleted) Name() swap.StageName { return "SwapSetupCompleted" }
func (SwapSetupCompleted) Terminal() bool       { return false }

// BtcLocked records that the lock transaction has been broadcast and
// seen in a block (WatchForTx with a depth of one).
type BtcLocked struct {
	SwapSetupCompleted

	LockOutpoint wire.OutPoint
}

func (BtcLocked) Name() swap.StageName { return "BtcLocked" }
func (BtcLocked) Terminal() bool       { return false }

// XmrLockProofReceived records Alice's transfer-proof message: the
// Monero lock transaction hash and its private tx key, not yet confirmed.
type XmrLockProofReceived struct {
	BtcLocked

	MoneroTxHash string
	MoneroTxKey  string
}

func (XmrLockProofReceived) Name() swap.StageName { return "XmrLockProofReceived" }
func (XmrLockProofReceived) Terminal() bool       { return false }

// XmrLocked records that the Monero lock transaction has reached the
// configured confirmation depth and paid the agreed amount to the
// expected shared address.
type XmrLocked struct {
	XmrLockProofReceived
}

func (XmrLocked) Name() swap.StageName { return "XmrLocked" }
func (XmrLocked) Terminal() bool       { return false }

// EncSigSent records that Bob's redeem presignature has been delivered to
// Alice. PreSignature is its CBOR wire encoding, kept so a crash/resume
// can re-derive the recovery path without resigning.
type EncSigSent struct {
	XmrLocked

	PreSignature []byte
}

func (EncSigSent) Name() swap.StageName { return "EncSigSent" }
func (EncSigSent) Terminal() bool       { return false }

// BtcRedeemed records that Alice's completed redeem transaction has been
// observed on Bitcoin and Bob has recovered her spend-key share.
type BtcRedeemed struct {
	EncSigSent

	RecoveredSA [32]byte
}

func (BtcRedeemed) Name() swap.StageName { return "BtcRedeemed" }
func (BtcRedeemed) Terminal() bool       { return false }

// CancelTimelockExpired records that t_cancel has elapsed with no redeem
// observed; Bob is now eligible to broadcast the cancel transaction.
type CancelTimelockExpired struct {
	XmrLocked
}

func (CancelTimelockExpired) Name() swap.StageName { return "CancelTimelockExpired" }
func (CancelTimelockExpired) Terminal() bool       { return false }

// BtcCancelled records that the cancel transaction has confirmed,
// opening the refund (immediate, Bob-only) and punish (CSV(t_punish),
// Alice-only) branches.
type BtcCancelled struct {
	CancelTimelockExpired

	CancelOutpoint wire.OutPoint
	CancelAmt      int64
	CancelRedeem   []byte
	CancelPkScript []byte
}

func (BtcCancelled) Name() swap.StageName { return "BtcCancelled" }
func (BtcCancelled) Terminal() bool       { return false }

// BtcRefunded is terminal: Bob's BTC was returned via the refund branch.
type BtcRefunded struct {
	BtcCancelled

	RefundTxHash string
}

func (BtcRefunded) Name() swap.StageName { return "BtcRefunded" }
func (BtcRefunded) Terminal() bool       { return true }

// BtcPunished is terminal: Alice swept the cancel output's punish
// branch; Bob's BTC is lost unless a cooperative XMR redeem succeeds.
type BtcPunished struct {
	BtcCancelled
}

func (BtcPunished) Name() swap.StageName { return "BtcPunished" }
func (BtcPunished) Terminal() bool       { return true }

// XmrRedeemed is terminal: Bob successfully opened the claimed Monero
// wallet holding the combined spend/view key.
type XmrRedeemed struct {
	BtcRedeemed
}

func (XmrRedeemed) Name() swap.StageName { return "XmrRedeemed" }
func (XmrRedeemed) Terminal() bool       { return true }

// SafelyAborted is terminal: no on-chain effect occurred before the swap
// was abandoned.
type SafelyAborted struct {
	Common

	Reason string
}

func (SafelyAborted) Name() swap.StageName { return "SafelyAborted" }
func (SafelyAborted) Terminal() bool       { return true }

// decodeStage decodes a persisted (StageName, payload) pair back into its
// concrete stage type.
func decodeStage(name swap.StageName, payload []byte) (swap.Stage, error) {
	switch name {
	case "Started":
		var s Started
		return &s, swap.DecodeStage(payload, &s)
	case "SwapSetupCompleted":
		var s SwapSetupCompleted
		return &s, swap.DecodeStage(payload, &s)
	case "BtcLocked":
		var s BtcLocked
		return &s, swap.DecodeStage(payload, &s)
	case "XmrLockProofReceived":
		var s XmrLockProofReceived
		return &s, swap.DecodeStage(payload, &s)
	case "XmrLocked":
		var s XmrLocked
		return &s, swap.DecodeStage(payload, &s)
	case "EncSigSent":
		var s EncSigSent
		return &s, swap.DecodeStage(payload, &s)
	case "BtcRedeemed":
		var s BtcRedeemed
		return &s, swap.DecodeStage(payload, &s)
	case "CancelTimelockExpired":
		var s CancelTimelockExpired
		return &s, swap.DecodeStage(payload, &s)
	case "BtcCancelled":
		var s BtcCancelled
		return &s, swap.DecodeStage(payload, &s)
	case "BtcRefunded":
		var s BtcRefunded
		return &s, swap.DecodeStage(payload, &s)
	case "BtcPunished":
		var s BtcPunished
		return &s, swap.DecodeStage(payload, &s)
	case "XmrRedeemed":
		var s XmrRedeemed
		return &s, swap.DecodeStage(payload, &s)
	case "SafelyAborted":
		var s SafelyAborted
		return &s, swap.DecodeStage(payload, &s)
	default:
		return nil, unknownStageErr(name)
	}
}

type unknownStageErr swap.StageName

func (e unknownStageErr) Error() string {
	return "xmrtaker: unknown persisted stage " + string(e)
}
