package main

import (
	"context"
	"errors"

	swapnet "github.com/athanorlabs/btcxmrswap/net"
	"github.com/athanorlabs/btcxmrswap/protocol/xmrmaker"
	"github.com/athanorlabs/btcxmrswap/protocol/xmrtaker"
)

var errRoleNotRunning = errors.New("swapd: this daemon does not run the role that protocol needs")

// roleHandler composes an optional xmrtaker and xmrmaker Executor into a
// single swapnet.Handler: neither Executor alone implements every method
// of that interface (xmrtaker only answers transfer_proof; xmrmaker
// answers the other three), since a single daemon process may run either
// role, or both roles at once, against the same inbound listener.
type roleHandler struct {
	xmrTaker *xmrtaker.Executor
	xmrMaker *xmrmaker.Executor
}

func (h *roleHandler) HandleSwapSetup(ctx context.Context, peer string, req swapnet.SwapSetupRequest) (*swapnet.SwapSetupResponse, error) {
	if h.xmrMaker == nil {
		return nil, errRoleNotRunning
	}
	return h.xmrMaker.HandleSwapSetup(ctx, peer, req)
}

func (h *roleHandler) HandleTransferProof(ctx context.Context, peer string, msg swapnet.TransferProofMessage) error {
	if h.xmrTaker == nil {
		return errRoleNotRunning
	}
	return h.xmrTaker.HandleTransferProof(ctx, peer, msg)
}

func (h *roleHandler) HandleEncryptedSignature(ctx context.Context, peer string, msg swapnet.EncryptedSignatureMessage) error {
	if h.xmrMaker == nil {
		return errRoleNotRunning
	}
	return h.xmrMaker.HandleEncryptedSignature(ctx, peer, msg)
}

func (h *roleHandler) HandleCooperativeRedeemRequest(ctx context.Context, peer string, req swapnet.CooperativeRedeemRequest) (*swapnet.CooperativeRedeemResponse, error) {
	if h.xmrMaker == nil {
		return nil, errRoleNotRunning
	}
	return h.xmrMaker.HandleCooperativeRedeemRequest(ctx, peer, req)
}
