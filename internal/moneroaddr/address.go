// Package moneroaddr encodes a standard Monero public address from a
// spend/view keypair. protocol/xmrtaker and protocol/xmrmaker both treat
// address encoding as an externally-injected MoneroAddressFromKeys
// collaborator (spec.md's "address derivation" non-goal keeps the
// base58/checksum format out of the swap core itself); this package is
// cmd/swapd's concrete implementation of that collaborator, reimplemented
// from the documented Monero "base58" block format and CryptoNote address
// layout rather than copied from any example repo, since none of the
// retrieval pack's example repos touch Monero at the address-encoding
// level.
package moneroaddr

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// encodedBlockSizes[n] is the number of base58 characters an n-byte block
// encodes to, the table Monero's base58.cpp hard-codes for its
// 8-byte-block variant of base58 (plain base58 has no fixed block width;
// Monero's encodes each 8-byte chunk to exactly 11 characters, and a
// shorter final chunk to the matching shorter count here).
var encodedBlockSizes = [9]int{0, 2, 3, 5, 6, 7, 9, 10, 11}

const fullBlockSize = 8

// NetworkByte selects which address-prefix byte encode uses.
type NetworkByte byte

const (
	MainnetStandard NetworkByte = 18
	TestnetStandard NetworkByte = 53
	StagenetStandard NetworkByte = 24
)

// Encode renders the standard (non-integrated, non-subaddress) public
// address for the given network from a 32-byte public spend key and
// 32-byte public view key, per the CryptoNote address layout:
// network_byte || spend_pub || view_pub || checksum, where checksum is
// the first 4 bytes of Keccak-256 (the original, pre-NIST-padding
// variant, matching Monero's crypto/hash.c and Ethereum's keccak256 —
// golang.org/x/crypto/sha3.NewLegacyKeccak256 implements this exact
// variant, distinct from the FIPS-202 SHA3-256 the rest of that package
// exposes).
func Encode(network NetworkByte, spendPub, viewPub [32]byte) string {
	payload := make([]byte, 0, 1+32+32+4)
	payload = append(payload, byte(network))
	payload = append(payload, spendPub[:]...)
	payload = append(payload, viewPub[:]...)

	h := sha3.NewLegacyKeccak256()
	h.Write(payload)
	checksum := h.Sum(nil)[:4]
	payload = append(payload, checksum...)

	return encodeBase58(payload)
}

// encodeBase58 encodes data in Monero's 8-byte-block base58 variant: full
// 8-byte blocks each become 11 characters, and a trailing short block
// becomes encodedBlockSizes[len(block)] characters, each block encoded
// independently (unlike Bitcoin-style base58, which treats the whole
// input as a single big-endian integer).
func encodeBase58(data []byte) string {
	var out []byte
	base := big.NewInt(58)

	for len(data) > 0 {
		blockLen := fullBlockSize
		if blockLen > len(data) {
			blockLen = len(data)
		}
		block := data[:blockLen]
		data = data[blockLen:]

		size := encodedBlockSizes[blockLen]
		enc := make([]byte, size)
		n := new(big.Int).SetBytes(block)
		mod := new(big.Int)
		for i := size - 1; i >= 0; i-- {
			n.DivMod(n, base, mod)
			enc[i] = alphabet[mod.Int64()]
		}
		out = append(out, enc...)
	}
	return string(out)
}
