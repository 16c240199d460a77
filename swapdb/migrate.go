package swapdb

import (
	"fmt"
)

// LegacyStore is the subset of the bolt backend's surface Migrate needs to
// enumerate every row without importing swapdb/bolt here (which would
// create an import cycle, since swapdb/bolt imports this package for the
// Store/SwapRecord types).
type LegacyStore interface {
	AllRecords() (recs []SwapRecord, moneroAddrs map[SwapID]string,
		peerIDs map[SwapID]PeerID, peerAddrs map[PeerID][]Multiaddr, err error)
}

// Migrate copies every swap record and auxiliary index entry from the
// legacy bolt-backed store into dst, the new sql-backed store, following
// channeldb.Open's dbVersions walk in spirit: run once, on first startup
// where the legacy backend is found un-migrated, before the executor ever
// opens the new backend for business. Unlike channeldb's in-place bucket
// migration, this walks every row across backend types rather than
// mutating one database's schema.
func Migrate(legacy LegacyStore, dst Store) (int, error) {
	recs, moneroAddrs, peerIDs, peerAddrs, err := legacy.AllRecords()
	if err != nil {
		return 0, fmt.Errorf("swapdb: read legacy records: %w", err)
	}

	// The last legacy record is copied last; finding it in dst already
	// means an earlier Migrate completed, and copying again would
	// overwrite stages dst has advanced since.
	if n := len(recs); n > 0 {
		if _, err := dst.GetSwapState(recs[n-1].ID); err == nil {
			return 0, ErrAlreadyMigrated
		}
	}

	for _, rec := range recs {
		if err := dst.PutSwapState(rec); err != nil {
			return 0, fmt.Errorf("swapdb: migrate swap %s: %w", rec.ID, err)
		}
	}
	for id, addr := range moneroAddrs {
		if err := dst.PutMoneroAddress(id, addr); err != nil {
			return 0, fmt.Errorf("swapdb: migrate monero address for %s: %w", id, err)
		}
	}
	for id, peer := range peerIDs {
		if err := dst.PutPeerID(id, peer); err != nil {
			return 0, fmt.Errorf("swapdb: migrate peer id for %s: %w", id, err)
		}
	}
	for peer, addrs := range peerAddrs {
		if err := dst.PutPeerAddrs(peer, addrs); err != nil {
			return 0, fmt.Errorf("swapdb: migrate peer addrs for %s: %w", peer, err)
		}
	}

	return len(recs), nil
}
