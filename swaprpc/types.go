// Package swaprpc is swapd's local control-plane service: a JSON-RPC-over-
// HTTP API a co-located swapcli process drives, covering the CLI surface
// spec.md §6 names (sell-xmr, buy-xmr, resume, cancel, refund, history).
// It is not the peer-to-peer wire transport for the four swap protocols —
// that remains net.Host/net.Handler's concern, injected into the two
// protocol executors this package wraps. Grounded on the sibling
// AthanorLabs/atomic-swap project's rpc package (gorilla/rpc JSON-RPC
// over a gorilla/mux router, CORS via gorilla/handlers), the closest
// same-domain reference in the retrieval pack to lnd's own (protobuf/gRPC,
// code-generated) rpcserver.go.
package swaprpc

import "time"

// SellXMRRequest has no fields: the daemon's Alice-side executor is
// already fully configured (payout script, pricing policy, timelocks) at
// startup from swapcfg, so "sell-xmr --listen" only confirms the daemon
// is up and ready to answer inbound swap_setup requests.
type SellXMRRequest struct{}

// SellXMRResponse reports whether Alice's executor is configured to answer
// inbound swap_setup requests. The server sets only Listening;
// PayoutScript is always returned empty.
type SellXMRResponse struct {
	Listening    bool   `json:"listening"`
	PayoutScript string `json:"payout_script_hex"`
}

// BuyXMRRequest initiates a fresh Bob-side swap against a known Alice peer.
type BuyXMRRequest struct {
	BtcAmount         uint64   `json:"btc_amount"`
	Peer              string   `json:"peer"`
	PeerAddrs         []string `json:"peer_addrs"`
	BuyerPayoutScript string   `json:"buyer_payout_script_hex"`
}

// BuyXMRResponse returns the freshly assigned identity plus wherever the
// swap's first synchronous drive stopped (typically BtcLocked, once the
// lock transaction is confirmed, or an earlier blocked stage if Alice's
// swap_setup reply is slow).
type BuyXMRResponse struct {
	SwapID string `json:"swap_id"`
	Stage  string `json:"stage"`
}

// ResumeRequest re-drives a previously persisted swap forward, the same
// operation swapd performs automatically for every non-terminal swap at
// startup (SPEC_FULL.md §6.4) but invocable manually after, e.g., a crash
// mid-swap left a stage un-advanced.
type ResumeRequest struct {
	Role   string `json:"role"` // "buy-xmr" or "sell-xmr"
	SwapID string `json:"swap_id"`
}

// ResumeResponse reports where the swap's state machine stopped: at a
// terminal stage, or blocked awaiting a counterparty action or timelock.
type ResumeResponse struct {
	Stage    string `json:"stage"`
	Terminal bool   `json:"terminal"`
}

// CancelRequest manually drives a buy-xmr swap toward cancellation per
// spec.md §4.3's cancellable-state-set. Force skips the client-side
// t_cancel maturity check (the broadcast itself may still be rejected by
// the network if the CSV path has not actually matured).
type CancelRequest struct {
	SwapID string `json:"swap_id"`
	Force  bool   `json:"force"`
}

// CancelResponse reports where Cancel left the swap.
type CancelResponse struct {
	Stage    string `json:"stage"`
	Terminal bool   `json:"terminal"`
}

// RefundRequest re-invokes Cancel and then resumes the swap again; once
// BtcCancelled is reached, xmrtaker.Executor.step's own
// BtcCancelled->doBroadcastRefund transition runs automatically, so a
// dedicated refund broadcast call is unnecessary — see swap_service.go's
// Refund method.
type RefundRequest struct {
	SwapID string `json:"swap_id"`
	Force  bool   `json:"force"`
}

// RefundResponse reports where Refund left the swap.
type RefundResponse struct {
	Stage    string `json:"stage"`
	Terminal bool   `json:"terminal"`
}

// HistoryRequest has no fields: History always lists every swap the store
// knows about, matching spec.md §6's "history" command taking no filter.
type HistoryRequest struct{}

// SwapSummary is one row of History's response.
type SwapSummary struct {
	SwapID    string    `json:"swap_id"`
	Stage     string    `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryResponse lists every swap known to the local store, regardless
// of role or whether it has reached a terminal stage.
type HistoryResponse struct {
	Swaps []SwapSummary `json:"swaps"`
}
