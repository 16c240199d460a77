package net

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/athanorlabs/btcxmrswap/swapdb"
)

func TestSwapSetupRequestRoundTrip(t *testing.T) {
	req := SwapSetupRequest{
		SwapID:    swapdb.NewSwapID(),
		BtcAmount: 1_000_000,
	}
	req.BuyerBtcPub[0] = 0x02

	raw, err := Encode(req)
	require.NoError(t, err)

	var got SwapSetupRequest
	require.NoError(t, Decode(raw, &got))
	require.Equal(t, req, got)
}

func TestCooperativeRedeemResponseRoundTrip(t *testing.T) {
	resp := CooperativeRedeemResponse{
		SwapID:    swapdb.NewSwapID(),
		Fulfilled: false,
		Reason:    RejectSwapInvalidState,
	}

	raw, err := Encode(resp)
	require.NoError(t, err)

	var got CooperativeRedeemResponse
	require.NoError(t, Decode(raw, &got))
	require.Equal(t, resp, got)
}
