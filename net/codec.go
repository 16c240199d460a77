package net

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Encode serializes msg per spec.md §6's "CBOR-over-libp2p request/response
// semantics" wording; the transport that frames and ships these bytes is
// out of scope here.
func Encode(msg Message) ([]byte, error) {
	raw, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("net: encode %T: %w", msg, err)
	}
	return raw, nil
}

// Decode deserializes raw into out, which must be a pointer to one of the
// message types in this package.
func Decode(raw []byte, out interface{}) error {
	if err := cbor.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("net: decode: %w", err)
	}
	return nil
}
