package sql

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// BulkCopyRecords loads recs into the swaps table using PostgreSQL's COPY
// protocol via a native pgx connection, rather than one INSERT per row.
// This is the fast path swapdb.Migrate takes when the destination backend
// is Postgres and exposes this method; sqlite migrations fall back to the
// generic per-row PutSwapState path since COPY has no sqlite equivalent.
func (d *DB) BulkCopyRecords(ctx context.Context, dsn string, recs []swapdb.SwapRecord) (int64, error) {
	if d.driver != Postgres {
		return 0, nil
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer conn.Close(ctx)

	rows := make([][]interface{}, len(recs))
	for i, rec := range recs {
		rows[i] = []interface{}{rec.ID[:], rec.StageName, rec.Payload, rec.UpdatedAt.UnixNano()}
	}

	return conn.CopyFrom(
		ctx,
		pgx.Identifier{"swaps"},
		[]string{"id", "stage_name", "payload", "updated_at"},
		pgx.CopyFromRows(rows),
	)
}
