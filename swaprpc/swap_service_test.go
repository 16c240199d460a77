package swaprpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// fakeStore is a minimal in-memory swapdb.Store for exercising swapService
// without a real bolt/sql backend, mirroring swapdb's own in-package
// memStore helper.
type fakeStore struct {
	recs map[swapdb.SwapID]swapdb.SwapRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[swapdb.SwapID]swapdb.SwapRecord)}
}

func (s *fakeStore) PutSwapState(rec swapdb.SwapRecord) error { s.recs[rec.ID] = rec; return nil }
func (s *fakeStore) GetSwapState(id swapdb.SwapID) (swapdb.SwapRecord, error) {
	rec, ok := s.recs[id]
	if !ok {
		return rec, swapdb.ErrNotFound
	}
	return rec, nil
}
func (s *fakeStore) GetAllSwaps() ([]swapdb.SwapRecord, error) {
	out := make([]swapdb.SwapRecord, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, r)
	}
	return out, nil
}
func (s *fakeStore) PutMoneroAddress(swapdb.SwapID, string) error { return nil }
func (s *fakeStore) GetMoneroAddress(swapdb.SwapID) (string, error) {
	return "", swapdb.ErrNotFound
}
func (s *fakeStore) PutPeerID(swapdb.SwapID, swapdb.PeerID) error { return nil }
func (s *fakeStore) GetPeerID(swapdb.SwapID) (swapdb.PeerID, error) {
	return "", swapdb.ErrNotFound
}
func (s *fakeStore) PutPeerAddrs(swapdb.PeerID, []swapdb.Multiaddr) error { return nil }
func (s *fakeStore) GetPeerAddrs(swapdb.PeerID) ([]swapdb.Multiaddr, error) {
	return nil, swapdb.ErrNotFound
}
func (s *fakeStore) Close() error { return nil }

func TestSwapServiceSellXMRRequiresMaker(t *testing.T) {
	svc := &swapService{}
	err := svc.SellXMR(httptest.NewRequest(http.MethodPost, "/", nil), &SellXMRRequest{}, &SellXMRResponse{})
	require.ErrorIs(t, err, errNoMaker)
}

func TestSwapServiceBuyXMRRequiresTaker(t *testing.T) {
	svc := &swapService{}
	err := svc.BuyXMR(httptest.NewRequest(http.MethodPost, "/", nil), &BuyXMRRequest{}, &BuyXMRResponse{})
	require.ErrorIs(t, err, errNoTaker)
}

func TestSwapServiceResumeRejectsUnknownRole(t *testing.T) {
	svc := &swapService{}
	id := swapdb.NewSwapID()

	var reply ResumeResponse
	err := svc.Resume(httptest.NewRequest(http.MethodPost, "/", nil), &ResumeRequest{
		Role:   "launder-xmr",
		SwapID: id.String(),
	}, &reply)
	require.ErrorContains(t, err, "unknown role")
}

func TestSwapServiceResumeRejectsMalformedSwapID(t *testing.T) {
	svc := &swapService{}
	var reply ResumeResponse
	err := svc.Resume(httptest.NewRequest(http.MethodPost, "/", nil), &ResumeRequest{
		Role:   roleBuyXMR,
		SwapID: "not-a-uuid",
	}, &reply)
	require.Error(t, err)
}

func TestSwapServiceCancelRequiresTaker(t *testing.T) {
	svc := &swapService{}
	id := swapdb.NewSwapID()
	var reply CancelResponse
	err := svc.Cancel(httptest.NewRequest(http.MethodPost, "/", nil), &CancelRequest{SwapID: id.String()}, &reply)
	require.ErrorIs(t, err, errNoTaker)
}

func TestSwapServiceHistoryListsStoredSwaps(t *testing.T) {
	store := newFakeStore()
	id := swapdb.NewSwapID()
	now := time.Now()
	require.NoError(t, store.PutSwapState(swapdb.SwapRecord{
		ID:        id,
		StageName: "BtcLocked",
		UpdatedAt: now,
	}))

	svc := &swapService{store: store}
	var reply HistoryResponse
	require.NoError(t, svc.History(httptest.NewRequest(http.MethodPost, "/", nil), &HistoryRequest{}, &reply))

	require.Len(t, reply.Swaps, 1)
	require.Equal(t, id.String(), reply.Swaps[0].SwapID)
	require.Equal(t, "BtcLocked", reply.Swaps[0].Stage)
}
