package bolt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/athanorlabs/btcxmrswap/swapdb"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetSwapState(t *testing.T) {
	db := openTestDB(t)

	id := swapdb.NewSwapID()
	rec := swapdb.SwapRecord{
		ID:        id,
		StageName: "BtcLocked",
		Payload:   []byte("opaque-stage-bytes"),
		UpdatedAt: time.Now(),
	}

	require.NoError(t, db.PutSwapState(rec))

	got, err := db.GetSwapState(id)
	require.NoError(t, err)
	require.Equal(t, rec.StageName, got.StageName)
	require.Equal(t, rec.Payload, got.Payload)
}

func TestGetSwapStateMissing(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetSwapState(swapdb.NewSwapID())
	require.ErrorIs(t, err, swapdb.ErrNotFound)
}

func TestGetAllSwapsReturnsEveryRecord(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.PutSwapState(swapdb.SwapRecord{
			ID:        swapdb.NewSwapID(),
			StageName: "Started",
			UpdatedAt: time.Now(),
		}))
	}

	all, err := db.GetAllSwaps()
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestAuxiliaryIndices(t *testing.T) {
	db := openTestDB(t)
	id := swapdb.NewSwapID()

	require.NoError(t, db.PutMoneroAddress(id, "4A..."))
	addr, err := db.GetMoneroAddress(id)
	require.NoError(t, err)
	require.Equal(t, "4A...", addr)

	require.NoError(t, db.PutPeerID(id, "peer-1"))
	peer, err := db.GetPeerID(id)
	require.NoError(t, err)
	require.Equal(t, swapdb.PeerID("peer-1"), peer)

	addrs := []swapdb.Multiaddr{"/ip4/127.0.0.1/tcp/9944", "/ip4/1.2.3.4/tcp/9944"}
	require.NoError(t, db.PutPeerAddrs("peer-1", addrs))
	got, err := db.GetPeerAddrs("peer-1")
	require.NoError(t, err)
	require.ElementsMatch(t, addrs, got)
}

func TestAllRecordsEnumeratesEverything(t *testing.T) {
	db := openTestDB(t)
	id := swapdb.NewSwapID()

	require.NoError(t, db.PutSwapState(swapdb.SwapRecord{ID: id, StageName: "Started", UpdatedAt: time.Now()}))
	require.NoError(t, db.PutMoneroAddress(id, "4A..."))
	require.NoError(t, db.PutPeerID(id, "peer-1"))
	require.NoError(t, db.PutPeerAddrs("peer-1", []swapdb.Multiaddr{"/ip4/127.0.0.1/tcp/1"}))

	recs, addrs, peers, peerAddrs, err := db.AllRecords()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "4A...", addrs[id])
	require.Equal(t, swapdb.PeerID("peer-1"), peers[id])
	require.Len(t, peerAddrs["peer-1"], 1)
}
