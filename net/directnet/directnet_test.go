package directnet

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	swapnet "github.com/athanorlabs/btcxmrswap/net"
	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// addrStore is a swapdb.Store stub exposing only the peer-address lookup
// Host.dialAddr needs, the same narrow-interface-over-a-store shape
// swapdb_test.go's memStore demonstrates for Migrate.
type addrStore struct {
	swapdb.Store
	addrs map[swapdb.PeerID][]swapdb.Multiaddr
}

func (s *addrStore) GetPeerAddrs(peer swapdb.PeerID) ([]swapdb.Multiaddr, error) {
	a, ok := s.addrs[peer]
	if !ok {
		return nil, swapdb.ErrNotFound
	}
	return a, nil
}

// stubHandler records whatever it receives and returns canned responses.
type stubHandler struct {
	gotSwapSetupPeer string
	gotTransferProof swapnet.TransferProofMessage
}

func (h *stubHandler) HandleSwapSetup(_ context.Context, peer string, req swapnet.SwapSetupRequest) (*swapnet.SwapSetupResponse, error) {
	h.gotSwapSetupPeer = peer
	return &swapnet.SwapSetupResponse{SwapID: req.SwapID, XMRAmount: 42}, nil
}

func (h *stubHandler) HandleTransferProof(_ context.Context, _ string, msg swapnet.TransferProofMessage) error {
	h.gotTransferProof = msg
	return nil
}

func (h *stubHandler) HandleEncryptedSignature(context.Context, string, swapnet.EncryptedSignatureMessage) error {
	return nil
}

func (h *stubHandler) HandleCooperativeRedeemRequest(_ context.Context, _ string, req swapnet.CooperativeRedeemRequest) (*swapnet.CooperativeRedeemResponse, error) {
	return &swapnet.CooperativeRedeemResponse{SwapID: req.SwapID, Fulfilled: true}, nil
}

func newTestHost(t *testing.T, self swapdb.PeerID, handler swapnet.Handler) (*Host, func()) {
	t.Helper()

	srv := httptest.NewServer(NewServer(handler))
	addr := strings.TrimPrefix(srv.URL, "http://")

	store := &addrStore{addrs: map[swapdb.PeerID][]swapdb.Multiaddr{
		"peer-a": {swapdb.Multiaddr(addr)},
	}}
	return NewHost(self, store), srv.Close
}

func TestHostSendSwapSetupRoundTrips(t *testing.T) {
	handler := &stubHandler{}
	host, closeSrv := newTestHost(t, "peer-b", handler)
	defer closeSrv()

	swapID := swapdb.NewSwapID()
	resp, err := host.SendSwapSetup(context.Background(), "peer-a", swapnet.SwapSetupRequest{SwapID: swapID})
	require.NoError(t, err)
	require.Equal(t, swapID, resp.SwapID)
	require.Equal(t, uint64(42), resp.XMRAmount)
	require.Equal(t, "peer-b", handler.gotSwapSetupPeer)
}

func TestHostSendTransferProofDelivers(t *testing.T) {
	handler := &stubHandler{}
	host, closeSrv := newTestHost(t, "peer-b", handler)
	defer closeSrv()

	swapID := swapdb.NewSwapID()
	err := host.SendTransferProof(context.Background(), "peer-a", swapnet.TransferProofMessage{
		SwapID:       swapID,
		MoneroTxHash: "deadbeef",
	})
	require.NoError(t, err)
	require.Equal(t, swapID, handler.gotTransferProof.SwapID)
	require.Equal(t, "deadbeef", handler.gotTransferProof.MoneroTxHash)
}

func TestHostSendCooperativeRedeemRequest(t *testing.T) {
	handler := &stubHandler{}
	host, closeSrv := newTestHost(t, "peer-b", handler)
	defer closeSrv()

	swapID := swapdb.NewSwapID()
	resp, err := host.SendCooperativeRedeemRequest(context.Background(), "peer-a", swapnet.CooperativeRedeemRequest{SwapID: swapID})
	require.NoError(t, err)
	require.True(t, resp.Fulfilled)
}

func TestHostDialUnknownPeerFails(t *testing.T) {
	handler := &stubHandler{}
	host, closeSrv := newTestHost(t, "peer-b", handler)
	defer closeSrv()

	_, err := host.SendSwapSetup(context.Background(), "peer-unknown", swapnet.SwapSetupRequest{})
	require.ErrorContains(t, err, "no known address")
}
