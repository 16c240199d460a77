// Package swapdb defines the persistent-store contract spec.md §6 and
// SPEC_FULL.md §6.1 describe: a mapping from swap identity to the latest
// serialized stage of its state machine, plus three auxiliary indices.
// Two concrete backends exist, `swapdb/bolt` (legacy) and `swapdb/sql`
// (current); Migrate copies one into the other the first time both are
// present, following channeldb.Open's version-walk idiom generalized to a
// cross-backend copy instead of an in-place bucket migration.
package swapdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SwapID is the 128-bit identifier spec.md §3 assigns to every swap.
type SwapID [16]byte

// String renders the identifier in its canonical UUID form.
func (id SwapID) String() string {
	return uuid.UUID(id).String()
}

// NewSwapID generates a fresh random identifier for a newly initiated
// swap, matching spec.md §3's "selected by the initiating party" wording.
func NewSwapID() SwapID {
	return SwapID(uuid.New())
}

// ParseSwapID parses the canonical UUID string form produced by
// SwapID.String back into a SwapID, the form swapcli/swaprpc callers pass
// a swap identity in as.
func ParseSwapID(s string) (SwapID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SwapID{}, fmt.Errorf("swapdb: parsing swap id %q: %w", s, err)
	}
	return SwapID(id), nil
}

// PeerID is an opaque, transport-defined identifier for the counterparty;
// the concrete encoding (libp2p peer ID, etc.) is the transport's concern,
// out of scope per spec.md §1 — this module only stores and looks it up.
type PeerID string

// Multiaddr is an opaque transport network address string.
type Multiaddr string

var (
	// ErrNotFound is returned when no record exists for the requested
	// swap-id or index key.
	ErrNotFound = errors.New("swapdb: no record found")

	// ErrAlreadyMigrated is returned by Migrate if called a second time
	// after migration has already completed and the legacy backend was
	// not removed, to avoid double-applying rows.
	ErrAlreadyMigrated = errors.New("swapdb: legacy backend already migrated")
)

// SwapRecord is the opaque persisted representation of a swap's current
// stage. Payload is produced by protocol/swap's EncodeStage and is
// treated as an opaque blob by the store itself, matching spec.md §6's
// "opaque state blob" wording.
type SwapRecord struct {
	ID         SwapID
	StageName  string
	Payload    []byte
	UpdatedAt  time.Time
}

// Store is the full persistence contract: the latest-state map plus the
// three auxiliary indices spec.md §6 names. Every concrete backend
// (bolt, sql) implements this same interface so the protocol executor
// never depends on which one is active.
type Store interface {
	// PutSwapState atomically overwrites the latest record for rec.ID.
	PutSwapState(rec SwapRecord) error
	// GetSwapState returns the latest record for id, or ErrNotFound.
	GetSwapState(id SwapID) (SwapRecord, error)
	// GetAllSwaps lists every swap-id with a stored record.
	GetAllSwaps() ([]SwapRecord, error)

	// PutMoneroAddress records the counterparty's Monero payout address
	// for id (auxiliary index 1).
	PutMoneroAddress(id SwapID, addr string) error
	GetMoneroAddress(id SwapID) (string, error)

	// PutPeerID records the counterparty's transport identity for id
	// (auxiliary index 2).
	PutPeerID(id SwapID, peer PeerID) error
	GetPeerID(id SwapID) (PeerID, error)

	// PutPeerAddrs records the set of known network addresses under
	// which peer can be dialed (auxiliary index 3).
	PutPeerAddrs(peer PeerID, addrs []Multiaddr) error
	GetPeerAddrs(peer PeerID) ([]Multiaddr, error)

	Close() error
}

// encodeUint64Key renders a big-endian sort-stable key, matching
// channeldb's byteOrder = binary.BigEndian convention for cursor scans
// that must iterate in numeric order.
func encodeUint64Key(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}
