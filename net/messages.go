// Package net defines the four peer message contracts spec.md §6 names —
// swap_setup, transfer_proof, encrypted_signature, and
// cooperative_xmr_redeem_after_punish — as CBOR-tagged Go structs, plus the
// Handler/Host collaborator interfaces the protocol executor talks to.
// Actual transport (who dials whom, multiplexing, NAT traversal) is an
// external collaborator per spec.md §1's explicit out-of-scope listing;
// this package only defines what goes over the wire and how a local
// implementation is expected to route it, the same division
// mewmix-atomic-swap's net package draws between its Host and its
// message/Message types.
package net

import "github.com/athanorlabs/btcxmrswap/swapdb"

// Message is implemented by every peer-protocol payload type below.
type Message interface {
	// ProtocolID returns this message's wire protocol identifier, e.g.
	// "/btcxmrswap/swap_setup/1.0.0", matching the naming spec.md §6 gives
	// each protocol.
	ProtocolID() string
}

// SwapSetupRequest is Bob's initial message to Alice: "/.../swap_setup/1.0.0".
type SwapSetupRequest struct {
	SwapID    swapdb.SwapID `cbor:"swap_id"`
	BtcAmount uint64        `cbor:"btc_amount"`

	// BuyerBtcPub is Bob's secp256k1 pubkey for the 2-of-2 lock script,
	// compressed SEC1 encoding.
	BuyerBtcPub [33]byte `cbor:"buyer_btc_pub"`

	// SB is Bob's Monero spend-key share commitment point S_b = s_b·G.
	// Symmetric with SwapSetupResponse.SA: Bob's spend scalar s_b stays
	// secret (Alice never needs to recover it — only Bob redeems
	// Bitcoin, so only Alice's spend share needs the adaptor-signature
	// recovery path).
	SB [32]byte `cbor:"s_b_point"`

	// VB is Bob's Monero view-key share scalar v_b, sent in the clear
	// for the same reason SwapSetupResponse.VA is.
	VB [32]byte `cbor:"v_b_scalar"`
}

func (SwapSetupRequest) ProtocolID() string { return "/btcxmrswap/swap_setup/1.0.0" }

// SwapSetupResponse is Alice's reply completing key/commitment exchange.
type SwapSetupResponse struct {
	SwapID     swapdb.SwapID `cbor:"swap_id"`
	XMRAmount  uint64        `cbor:"xmr_amount"`
	SellerBtcPub [33]byte    `cbor:"seller_btc_pub"`

	// SA is Alice's Monero spend-key share commitment point S_a = s_a·G,
	// Ed25519 compressed encoding. The spend scalar s_a itself stays
	// secret until Bob's redeem adaptor signature is completed and
	// extracted on-chain (spec.md §4.4) — only its commitment is
	// published here.
	SA [32]byte `cbor:"s_a_point"`

	// VA is Alice's Monero view-key share scalar v_a itself, sent in the
	// clear: unlike the spend share, knowing a view scalar only grants
	// the ability to scan the chain for incoming transfers, never to
	// spend, so both parties exchange their view shares directly rather
	// than through the adaptor-signature recovery path used for spend.
	VA [32]byte `cbor:"v_a_scalar"`

	// TA is the secp256k1 adaptor statement point T_a = s_a·G computed
	// via the §4.2 cross-curve projection (internal/xcurve), compressed
	// SEC1 encoding. Distinct from SA: SA lives on Ed25519 for the CLSAG
	// side, TA lives on secp256k1 for the Bitcoin-side adaptor signature,
	// and only Alice (who knows s_a) can produce TA — Bob cannot derive
	// one curve's point from the other's encoding.
	TA [33]byte `cbor:"t_a_point"`

	TCancel uint32 `cbor:"t_cancel"`
	TPunish uint32 `cbor:"t_punish"`

	// SellerPayoutScript is where Alice's redeem transaction pays once she
	// completes and broadcasts it (spec.md §4.2: "Alice publishes
	// redeem_tx"). Bob needs this to recompute the exact transaction
	// Alice will broadcast — its deterministic SegWit txid is how he
	// detects the redeem without a push notification (see
	// protocol/xmrtaker's doAwaitRedeemOrCancelTimelock).
	SellerPayoutScript []byte `cbor:"seller_payout_script"`
}

func (SwapSetupResponse) ProtocolID() string { return "/btcxmrswap/swap_setup/1.0.0" }

// TransferProofMessage is Alice's notice that she has broadcast the
// Monero lock transaction: "/.../transfer_proof/1.0.0".
type TransferProofMessage struct {
	SwapID        swapdb.SwapID `cbor:"swap_id"`
	MoneroTxHash  string        `cbor:"monero_tx_hash"`
	TxKey         string        `cbor:"tx_key"`
}

func (TransferProofMessage) ProtocolID() string { return "/btcxmrswap/transfer_proof/1.0.0" }

// EncryptedSignatureMessage carries Bob's redeem adaptor signature to
// Alice: "/.../encrypted_signature/1.0.0".
type EncryptedSignatureMessage struct {
	SwapID       swapdb.SwapID `cbor:"swap_id"`
	PreSignature []byte        `cbor:"pre_signature"` // wire encoding of internal/adaptor.PreSignature
}

func (EncryptedSignatureMessage) ProtocolID() string { return "/btcxmrswap/encrypted_signature/1.0.0" }

// CooperativeRedeemRequest is Bob's post-punish request for Alice's
// Monero scalar share: "/.../cooperative_xmr_redeem_after_punish/1.0.0".
type CooperativeRedeemRequest struct {
	SwapID swapdb.SwapID `cbor:"swap_id"`
}

func (CooperativeRedeemRequest) ProtocolID() string {
	return "/btcxmrswap/cooperative_xmr_redeem_after_punish/1.0.0"
}

// RejectReason enumerates why Alice declined a cooperative redeem
// request, matching spec.md §6's three-member set exactly.
type RejectReason string

const (
	RejectUnknownSwap      RejectReason = "UnknownSwap"
	RejectMaliciousRequest RejectReason = "MaliciousRequest"
	RejectSwapInvalidState RejectReason = "SwapInvalidState"
)

// CooperativeRedeemResponse is either Fulfilled (SA carries Alice's
// recoverable scalar share) or Rejected (Reason explains why).
type CooperativeRedeemResponse struct {
	SwapID     swapdb.SwapID `cbor:"swap_id"`
	Fulfilled  bool          `cbor:"fulfilled"`
	SA         [32]byte      `cbor:"s_a,omitempty"`
	Reason     RejectReason  `cbor:"reason,omitempty"`
}

func (CooperativeRedeemResponse) ProtocolID() string {
	return "/btcxmrswap/cooperative_xmr_redeem_after_punish/1.0.0"
}
