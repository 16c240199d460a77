package swaprpc

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/athanorlabs/btcxmrswap/swapdb"
)

const stagePollInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	// swapcli always runs on the same host as swapd; origin checking only
	// matters once a browser client is in scope, which SPEC_FULL.md does
	// not add.
	CheckOrigin: func(*http.Request) bool { return true },
}

// stageStreamHandler upgrades to a websocket and pushes a JSON-encoded
// SwapSummary every time the persisted stage for the swap_id query
// parameter changes, until a write to the client fails, the store lookup
// fails, or the request context ends; reaching a terminal stage does not
// close the stream — the same "subscribe and watch stage transitions" shape
// the sibling AthanorLabs/atomic-swap project's wsclient exposes over
// swapd's own websocket endpoint, adapted here to poll swapdb.Store
// directly instead of an internal pub/sub bus.
func stageStreamHandler(store swapdb.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := r.URL.Query().Get("swap_id")
		id, err := swapdb.ParseSwapID(idStr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("swaprpc: websocket upgrade failed: %s", err)
			return
		}
		defer conn.Close()

		ctx := r.Context()
		lastStage := ""
		t := ticker.New(stagePollInterval)
		t.Resume()
		defer t.Stop()

		for {
			rec, err := store.GetSwapState(id)
			if err != nil {
				_ = conn.WriteJSON(map[string]string{"error": err.Error()})
				return
			}

			if rec.StageName != lastStage {
				lastStage = rec.StageName
				summary := SwapSummary{SwapID: id.String(), Stage: rec.StageName, UpdatedAt: rec.UpdatedAt}
				if err := conn.WriteJSON(summary); err != nil {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-t.Ticks():
			}
		}
	}
}

