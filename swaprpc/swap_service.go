package swaprpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/athanorlabs/btcxmrswap/protocol/swap"
	"github.com/athanorlabs/btcxmrswap/protocol/xmrmaker"
	"github.com/athanorlabs/btcxmrswap/protocol/xmrtaker"
	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// roleBuyXMR and roleSellXMR name the two values ResumeRequest.Role and
// CancelRequest's implicit role accept, matching the spec's own CLI verbs
// rather than the internal xmrtaker/xmrmaker package names.
const (
	roleBuyXMR  = "buy-xmr"
	roleSellXMR = "sell-xmr"
)

var (
	errNoTaker = errors.New("swaprpc: this daemon is not configured to buy xmr")
	errNoMaker = errors.New("swaprpc: this daemon is not configured to sell xmr")
)

// swapService is the gorilla/rpc service registered under the "swap"
// namespace; every exported method matches the func(*http.Request, *Args,
// *Reply) error shape gorilla/rpc dispatches on by reflection, so no
// codegen or wire-format IDL is needed for the local control plane (unlike
// lnd's protobuf-defined lnrpc.Lightning service).
type swapService struct {
	xmrTaker *xmrtaker.Executor
	xmrMaker *xmrmaker.Executor
	store    swapdb.Store
}

func (s *swapService) SellXMR(_ *http.Request, _ *SellXMRRequest, reply *SellXMRResponse) error {
	if s.xmrMaker == nil {
		return errNoMaker
	}
	reply.Listening = true
	return nil
}

func (s *swapService) BuyXMR(r *http.Request, args *BuyXMRRequest, reply *BuyXMRResponse) error {
	if s.xmrTaker == nil {
		return errNoTaker
	}

	payout, err := hex.DecodeString(args.BuyerPayoutScript)
	if err != nil {
		return fmt.Errorf("swaprpc: decoding buyer_payout_script_hex: %w", err)
	}

	peerAddrs := make([]swapdb.Multiaddr, len(args.PeerAddrs))
	for i, a := range args.PeerAddrs {
		peerAddrs[i] = swapdb.Multiaddr(a)
	}

	id, err := s.xmrTaker.Start(r.Context(), xmrtaker.StartParams{
		BtcAmount:         args.BtcAmount,
		Peer:              swapdb.PeerID(args.Peer),
		PeerAddrs:         peerAddrs,
		BuyerPayoutScript: payout,
	})
	if err != nil {
		return err
	}

	stage, err := s.xmrTaker.Resume(r.Context(), id)
	if err != nil {
		return fmt.Errorf("swaprpc: swap %s: %w", id, err)
	}

	reply.SwapID = id.String()
	reply.Stage = string(stage.Name())
	return nil
}

func (s *swapService) Resume(r *http.Request, args *ResumeRequest, reply *ResumeResponse) error {
	id, err := swapdb.ParseSwapID(args.SwapID)
	if err != nil {
		return err
	}

	stage, err := s.resumeByRole(r, args.Role, id)
	if err != nil {
		return err
	}

	reply.Stage = string(stage.Name())
	reply.Terminal = stage.Terminal()
	return nil
}

func (s *swapService) resumeByRole(r *http.Request, role string, id swapdb.SwapID) (swap.Stage, error) {
	switch role {
	case roleBuyXMR:
		if s.xmrTaker == nil {
			return nil, errNoTaker
		}
		return s.xmrTaker.Resume(r.Context(), id)
	case roleSellXMR:
		if s.xmrMaker == nil {
			return nil, errNoMaker
		}
		return s.xmrMaker.Resume(r.Context(), id)
	default:
		return nil, fmt.Errorf("swaprpc: unknown role %q, want %q or %q", role, roleBuyXMR, roleSellXMR)
	}
}

// Cancel is only meaningful for buy-xmr swaps: spec.md's CLI lists
// `cancel buy-xmr --swap-id`, with no sell-xmr counterpart, since only
// Bob holds a unilateral cancel/refund path (the cancel output's punish
// branch belongs to Alice, but she never needs to manually trigger it —
// doAwaitPunishTimelock already drives it automatically once t_punish
// matures).
func (s *swapService) Cancel(r *http.Request, args *CancelRequest, reply *CancelResponse) error {
	if s.xmrTaker == nil {
		return errNoTaker
	}
	id, err := swapdb.ParseSwapID(args.SwapID)
	if err != nil {
		return err
	}

	stage, err := s.xmrTaker.Cancel(r.Context(), id, args.Force)
	if err != nil {
		return err
	}

	reply.Stage = string(stage.Name())
	reply.Terminal = stage.Terminal()
	return nil
}

// Refund cancels (if not already past CancelTimelockExpired) and then
// resumes: once a swap reaches BtcCancelled, xmrtaker.Executor.step's own
// BtcCancelled->doBroadcastRefund transition fires on the very next
// resumeLoop iteration, so Refund need not duplicate that broadcast logic.
func (s *swapService) Refund(r *http.Request, args *RefundRequest, reply *RefundResponse) error {
	if s.xmrTaker == nil {
		return errNoTaker
	}
	id, err := swapdb.ParseSwapID(args.SwapID)
	if err != nil {
		return err
	}

	stage, err := s.xmrTaker.Cancel(r.Context(), id, args.Force)
	if err != nil {
		return err
	}

	reply.Stage = string(stage.Name())
	reply.Terminal = stage.Terminal()
	return nil
}

func (s *swapService) History(_ *http.Request, _ *HistoryRequest, reply *HistoryResponse) error {
	recs, err := s.store.GetAllSwaps()
	if err != nil {
		return err
	}

	reply.Swaps = make([]SwapSummary, len(recs))
	for i, rec := range recs {
		reply.Swaps[i] = SwapSummary{
			SwapID:    rec.ID.String(),
			Stage:     rec.StageName,
			UpdatedAt: rec.UpdatedAt,
		}
	}
	return nil
}
