// Package xmrmaker implements Alice's side of the swap — she receives
// Bitcoin and pays Monero — as a tagged-variant state machine symmetric to
// protocol/xmrtaker's. Where Bob's executor drives itself forward by
// calling out to a Host, Alice's first stage is instead produced
// reactively inside HandleSwapSetup, since swap_setup is a request she
// receives rather than sends (spec.md §6).
package xmrmaker

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/athanorlabs/btcxmrswap/protocol/swap"
	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// Common fields every stage carries.
type Common struct {
	Params swap.Params
	Peer   swapdb.PeerID

	// SellerBtcPriv/Pub is Alice's secp256k1 keypair for the 2-of-2 lock
	// script, generated once when the swap_setup request arrives.
	SellerBtcPriv [32]byte
	SellerBtcPub  [33]byte

	BuyerBtcPub [33]byte

	// SellerPayoutScript is where the redeem transaction's Bitcoin output
	// pays once Alice completes and broadcasts it (spec.md §4.2: "Alice
	// publishes redeem_tx"). Supplied by the external wallet collaborator
	// once per swap, matching spec.md's "address derivation" out-of-scope
	// item and mirroring protocol/xmrtaker's BuyerPayoutScript for the
	// refund branch.
	SellerPayoutScript []byte

	// OwnKeyShare is Alice's own (s_a, v_a) Monero key share, sampled
	// once when the swap_setup request arrives.
	OwnKeyShare swap.MoneroKeyShare

	RedeemScript []byte
	LockPkScript []byte
	LockAmt      int64
	SharedAddr   string
}

// SwapSetupCompleted is Alice's first persisted stage: the response has
// already been sent back to Bob by the time this is written (spec.md §6's
// swap_setup is a single request/response round trip), so there is no
// earlier "Started" stage distinct from it on this side.
type SwapSetupCompleted struct {
	Common
}

func (SwapSetupCompleted) Name() swap.StageName { return "SwapSetupCompleted" }
func (SwapSetupCompleted) Terminal() bool       { return false }

// BtcLocked records that Bob's lock transaction has confirmed. Bob never
// sends its txid over the wire (spec.md §6 has no message carrying one),
// so the outpoint here comes from status_of_script alone: the first poll
// that observes LockPkScript paid already reports it at one confirmation
// (chain/btcwallet's notification feed only surfaces transactions inside a
// filtered block, not the mempool), so there is no useful intermediate
// "seen but unconfirmed" stage to track separately.
type BtcLocked struct {
	SwapSetupCompleted

	LockOutpoint wire.OutPoint
}

func (BtcLocked) Name() swap.StageName { return "BtcLocked" }
func (BtcLocked) Terminal() bool       { return false }

// XmrLockSent records that Alice has broadcast the Monero lock transfer
// and delivered transfer_proof to Bob.
type XmrLockSent struct {
	BtcLocked

	MoneroTxHash string
	MoneroTxKey  string
}

func (XmrLockSent) Name() swap.StageName { return "XmrLockSent" }
func (XmrLockSent) Terminal() bool       { return false }

// EncSigReceived records that Bob's presignature has arrived and been
// verified against his known pubkey and the redeem sighash, but not yet
// decrypted/broadcast. There is no separate "awaiting" stage distinct
// from XmrLockSent: the event race against t_cancel this embeds is
// resolved entirely inside doAwaitEncSigOrCancelTimelock, the same way
// protocol/xmrtaker's BtcLocked stays put (rather than gaining an
// "awaiting" marker) while doAwaitXmrProofOrCancelTimelock polls it.
type EncSigReceived struct {
	XmrLockSent

	PreSignature []byte
}

func (EncSigReceived) Name() swap.StageName { return "EncSigReceived" }
func (EncSigReceived) Terminal() bool       { return false }

// BtcRedeemed is terminal: Alice decrypted Bob's presignature with her own
// spend scalar, assembled and broadcast the redeem transaction, and
// claimed the Bitcoin.
type BtcRedeemed struct {
	EncSigReceived

	RedeemTxHash string
}

func (BtcRedeemed) Name() swap.StageName { return "BtcRedeemed" }
func (BtcRedeemed) Terminal() bool       { return true }

// CancelTimelockExpired records that t_cancel elapsed with no
// encrypted_signature observed; Alice is now eligible to broadcast the
// cancel transaction herself (spec.md §4.3 scenario 4).
type CancelTimelockExpired struct {
	XmrLockSent
}

func (CancelTimelockExpired) Name() swap.StageName { return "CancelTimelockExpired" }
func (CancelTimelockExpired) Terminal() bool       { return false }

// BtcCancelled records that the cancel transaction has confirmed, opening
// Alice's punish branch (gated by CSV(t_punish)) and Bob's
// refund branch (immediate, not Alice's concern).
type BtcCancelled struct {
	CancelTimelockExpired

	CancelOutpoint wire.OutPoint
	CancelAmt      int64
	CancelRedeem   []byte
	CancelPkScript []byte
}

func (BtcCancelled) Name() swap.StageName { return "BtcCancelled" }
func (BtcCancelled) Terminal() bool       { return false }

// BtcPunished is terminal: Alice swept the cancel output's punish branch.
// She keeps the Bitcoin but the Monero she locked is stranded unless Bob
// later completes a cooperative redeem, which does not change this
// stage — it only lets Bob recover, and is driven by
// HandleCooperativeRedeemRequest independent of this executor's own
// progression.
type BtcPunished struct {
	BtcCancelled
}

func (BtcPunished) Name() swap.StageName { return "BtcPunished" }
func (BtcPunished) Terminal() bool       { return true }

// SafelyAborted is terminal: swap_setup was received but no Monero was
// ever locked.
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
	case "SwapSetupCompleted":
		var s SwapSetupCompleted
		return &s, swap.DecodeStage(payload, &s)
	case "BtcLocked":
		var s BtcLocked
		return &s, swap.DecodeStage(payload, &s)
	case "XmrLockSent":
		var s XmrLockSent
		return &s, swap.DecodeStage(payload, &s)
	case "EncSigReceived":
		var s EncSigReceived
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
	case "BtcPunished":
		var s BtcPunished
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
	return "xmrmaker: unknown persisted stage " + string(e)
}
