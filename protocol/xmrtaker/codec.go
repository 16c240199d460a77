package xmrtaker

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/athanorlabs/btcxmrswap/internal/adaptor"
)

// wirePreSignature is the CBOR-friendly encoding of an
// internal/adaptor.PreSignature, whose own fields (btcec.PublicKey,
// btcec.ModNScalar) carry unexported internal representations and cannot
// be marshaled directly.
type wirePreSignature struct {
	Rhat [33]byte `cbor:"rhat"`
	R    [33]byte `cbor:"r"`
	S    [32]byte `cbor:"s"`
}

func encodePreSignature(p *adaptor.PreSignature) ([]byte, error) {
	w := wirePreSignature{}
	copy(w.Rhat[:], p.Rhat.SerializeCompressed())
	copy(w.R[:], p.R.SerializeCompressed())
	sBytes := p.S.Bytes()
	copy(w.S[:], sBytes[:])

	raw, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("xmrtaker: encoding presignature: %w", err)
	}
	return raw, nil
}

func decodePreSignature(raw []byte) (*adaptor.PreSignature, error) {
	var w wirePreSignature
	if err := cbor.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("xmrtaker: decoding presignature: %w", err)
	}

	rhat, err := btcec.ParsePubKey(w.Rhat[:])
	if err != nil {
		return nil, fmt.Errorf("xmrtaker: parsing Rhat: %w", err)
	}
	r, err := btcec.ParsePubKey(w.R[:])
	if err != nil {
		return nil, fmt.Errorf("xmrtaker: parsing R: %w", err)
	}
	var s btcec.ModNScalar
	s.SetBytes(&w.S)

	return &adaptor.PreSignature{Rhat: rhat, R: r, S: &s}, nil
}
