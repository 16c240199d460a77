package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	swapnet "github.com/athanorlabs/btcxmrswap/net"
)

func TestRoleHandlerRejectsUnconfiguredRoles(t *testing.T) {
	h := &roleHandler{}

	_, err := h.HandleSwapSetup(context.Background(), "peer", swapnet.SwapSetupRequest{})
	require.ErrorIs(t, err, errRoleNotRunning)

	err = h.HandleTransferProof(context.Background(), "peer", swapnet.TransferProofMessage{})
	require.ErrorIs(t, err, errRoleNotRunning)

	err = h.HandleEncryptedSignature(context.Background(), "peer", swapnet.EncryptedSignatureMessage{})
	require.ErrorIs(t, err, errRoleNotRunning)

	_, err = h.HandleCooperativeRedeemRequest(context.Background(), "peer", swapnet.CooperativeRedeemRequest{})
	require.ErrorIs(t, err, errRoleNotRunning)
}
