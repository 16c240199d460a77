package swapdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory Store used to test Migrate without
// depending on either concrete backend package.
type memStore struct {
	recs      map[SwapID]SwapRecord
	moneroAdd map[SwapID]string
	peerIDs   map[SwapID]PeerID
	peerAddrs map[PeerID][]Multiaddr
}

func newMemStore() *memStore {
	return &memStore{
		recs:      make(map[SwapID]SwapRecord),
		moneroAdd: make(map[SwapID]string),
		peerIDs:   make(map[SwapID]PeerID),
		peerAddrs: make(map[PeerID][]Multiaddr),
	}
}

func (m *memStore) PutSwapState(rec SwapRecord) error   { m.recs[rec.ID] = rec; return nil }
func (m *memStore) GetSwapState(id SwapID) (SwapRecord, error) {
	rec, ok := m.recs[id]
	if !ok {
		return rec, ErrNotFound
	}
	return rec, nil
}
func (m *memStore) GetAllSwaps() ([]SwapRecord, error) {
	var out []SwapRecord
	for _, r := range m.recs {
		out = append(out, r)
	}
	return out, nil
}
func (m *memStore) PutMoneroAddress(id SwapID, addr string) error { m.moneroAdd[id] = addr; return nil }
func (m *memStore) GetMoneroAddress(id SwapID) (string, error) {
	a, ok := m.moneroAdd[id]
	if !ok {
		return "", ErrNotFound
	}
	return a, nil
}
func (m *memStore) PutPeerID(id SwapID, peer PeerID) error { m.peerIDs[id] = peer; return nil }
func (m *memStore) GetPeerID(id SwapID) (PeerID, error) {
	p, ok := m.peerIDs[id]
	if !ok {
		return "", ErrNotFound
	}
	return p, nil
}
func (m *memStore) PutPeerAddrs(peer PeerID, addrs []Multiaddr) error {
	m.peerAddrs[peer] = addrs
	return nil
}
func (m *memStore) GetPeerAddrs(peer PeerID) ([]Multiaddr, error) {
	a, ok := m.peerAddrs[peer]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}
func (m *memStore) Close() error { return nil }

// memLegacy adapts a memStore to the LegacyStore.AllRecords shape.
type memLegacy struct{ s *memStore }

func (l *memLegacy) AllRecords() ([]SwapRecord, map[SwapID]string, map[SwapID]PeerID, map[PeerID][]Multiaddr, error) {
	return l.s.GetAllSwapsSlice(), l.s.moneroAdd, l.s.peerIDs, l.s.peerAddrs, nil
}

func (m *memStore) GetAllSwapsSlice() []SwapRecord {
	recs, _ := m.GetAllSwaps()
	return recs
}

func TestMigrateCopiesRecordsAndIndices(t *testing.T) {
	legacy := newMemStore()
	id := NewSwapID()
	require.NoError(t, legacy.PutSwapState(SwapRecord{ID: id, StageName: "BtcLocked", UpdatedAt: time.Now()}))
	require.NoError(t, legacy.PutMoneroAddress(id, "4A..."))
	require.NoError(t, legacy.PutPeerID(id, "peer-1"))
	require.NoError(t, legacy.PutPeerAddrs("peer-1", []Multiaddr{"/ip4/127.0.0.1/tcp/1"}))

	dst := newMemStore()
	n, err := Migrate(&memLegacy{s: legacy}, dst)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := dst.GetSwapState(id)
	require.NoError(t, err)
	require.Equal(t, "BtcLocked", got.StageName)

	addr, err := dst.GetMoneroAddress(id)
	require.NoError(t, err)
	require.Equal(t, "4A...", addr)
}

func TestSwapIDStringIsCanonicalUUIDLength(t *testing.T) {
	id := NewSwapID()
	require.Len(t, id.String(), 36) // canonical UUID string form
}
