package moneroaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func keypair(spendByte, viewByte byte) (spendPub, viewPub [32]byte) {
	for i := range spendPub {
		spendPub[i] = spendByte
	}
	for i := range viewPub {
		viewPub[i] = viewByte
	}
	return spendPub, viewPub
}

func TestEncodeDeterministic(t *testing.T) {
	spendPub, viewPub := keypair(0x01, 0x02)

	addr1 := Encode(MainnetStandard, spendPub, viewPub)
	addr2 := Encode(MainnetStandard, spendPub, viewPub)
	require.Equal(t, addr1, addr2)
}

func TestEncodeUsesOnlyBase58Alphabet(t *testing.T) {
	spendPub, viewPub := keypair(0xaa, 0xbb)
	addr := Encode(MainnetStandard, spendPub, viewPub)

	for _, c := range addr {
		require.Contains(t, alphabet, string(c))
	}
}

func TestEncodeLengthMatchesBlockTable(t *testing.T) {
	spendPub, viewPub := keypair(0x11, 0x22)
	addr := Encode(MainnetStandard, spendPub, viewPub)

	// 69-byte payload (1 network + 32 spend + 32 view + 4 checksum) splits
	// into eight full 8-byte blocks (11 chars each) plus one 5-byte block
	// (7 chars), per encodedBlockSizes.
	want := 8*encodedBlockSizes[fullBlockSize] + encodedBlockSizes[5]
	require.Len(t, addr, want)
}

func TestEncodeDiffersByNetwork(t *testing.T) {
	spendPub, viewPub := keypair(0x33, 0x44)

	mainnet := Encode(MainnetStandard, spendPub, viewPub)
	testnet := Encode(TestnetStandard, spendPub, viewPub)
	stagenet := Encode(StagenetStandard, spendPub, viewPub)

	require.NotEqual(t, mainnet, testnet)
	require.NotEqual(t, mainnet, stagenet)
	require.NotEqual(t, testnet, stagenet)
}

func TestEncodeDiffersByKey(t *testing.T) {
	spendPub, viewPub := keypair(0x55, 0x66)
	otherSpendPub, _ := keypair(0x77, 0x66)

	addr := Encode(MainnetStandard, spendPub, viewPub)
	otherAddr := Encode(MainnetStandard, otherSpendPub, viewPub)

	require.NotEqual(t, addr, otherAddr)
}
