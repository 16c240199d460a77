// Package swap holds the types shared by both per-role executors
// (protocol/xmrtaker, protocol/xmrmaker): the stage variant contract
// spec.md §4.3 describes as "heterogeneous per-role state modeled as a
// tagged variant with one payload type per stage", the shared swap
// parameters and key-share arithmetic, and the persistence glue that
// turns a Stage into a swapdb.SwapRecord.
//
// The Stage/StageName split mirrors contractcourt's ContractResolver:
// Resolve there becomes Advance here, ResolverKey becomes Name, and
// Encode/Decode are unchanged in spirit — only the wire format differs
// (CBOR instead of manual binary.Write, since this module already wires
// fxamacker/cbor for the peer-protocol messages and payload shapes here
// are no more special than those).
package swap

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// StageName identifies one of the tagged states spec.md §4.3 enumerates,
// used as the on-disk discriminator (swapdb.SwapRecord.StageName) and as
// the dispatch key the executor switches on when resuming.
type StageName string

// Stage is the payload of a single point in a swap's lifecycle. Exactly
// one concrete type per StageName exists in each of xmrtaker/xmrmaker;
// the executor never holds more than one live Stage for a given swap.
type Stage interface {
	// Name identifies which concrete stage this is, for persistence and
	// resume dispatch.
	Name() StageName

	// Terminal reports whether this stage is one of its role's terminal
	// states (xmrtaker: XmrRedeemed, BtcRefunded, BtcPunished,
	// SafelyAborted; xmrmaker: BtcRedeemed, BtcPunished, SafelyAborted) —
	// once true, the executor stops resuming this swap.
	Terminal() bool
}

// EncodeStage serializes a Stage's payload fields to the opaque blob
// swapdb.SwapRecord.Payload carries. CBOR is used rather than a manual
// binary.Write field list (contractcourt's Encode/Decode style) because
// this module already depends on fxamacker/cbor/v2 for the identically
// shaped peer-protocol payloads in package net, and reusing one
// serializer for both keeps this package free of hand-rolled framing.
func EncodeStage(s Stage) ([]byte, error) {
	raw, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("swap: encode %s: %w", s.Name(), err)
	}
	return raw, nil
}

// DecodeStage deserializes raw into out, a pointer to a concrete stage
// type matching the StageName the record was stored under.
func DecodeStage(raw []byte, out interface{}) error {
	if err := cbor.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("swap: decode: %w", err)
	}
	return nil
}
