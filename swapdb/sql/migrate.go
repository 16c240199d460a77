package sql

import (
	"context"
	"fmt"

	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// MigrateFromLegacy copies every row from legacy into d, using the fast
// COPY-based path for the swap records table when d targets Postgres, and
// the generic per-row swapdb.Store path for everything else (the three
// auxiliary indices always, and the records table too on sqlite).
func MigrateFromLegacy(ctx context.Context, legacy swapdb.LegacyStore, d *DB, postgresDSN string) (int, error) {
	recs, moneroAddrs, peerIDs, peerAddrs, err := legacy.AllRecords()
	if err != nil {
		return 0, fmt.Errorf("swapdb/sql: read legacy records: %w", err)
	}

	if d.driver == Postgres && len(recs) > 0 {
		if _, err := d.BulkCopyRecords(ctx, postgresDSN, recs); err != nil {
			return 0, fmt.Errorf("swapdb/sql: bulk copy records: %w", err)
		}
	} else {
		for _, rec := range recs {
			if err := d.PutSwapState(rec); err != nil {
				return 0, fmt.Errorf("swapdb/sql: migrate swap %s: %w", rec.ID, err)
			}
		}
	}

	for id, addr := range moneroAddrs {
		if err := d.PutMoneroAddress(id, addr); err != nil {
			return 0, err
		}
	}
	for id, peer := range peerIDs {
		if err := d.PutPeerID(id, peer); err != nil {
			return 0, err
		}
	}
	for peer, addrs := range peerAddrs {
		if err := d.PutPeerAddrs(peer, addrs); err != nil {
			return 0, err
		}
	}

	log.Infof("migrated %d swap records from legacy bolt backend", len(recs))
	return len(recs), nil
}
