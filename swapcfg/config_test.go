package swapcfg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.PeerID = "peer-1"
	cfg.BuyXMR = true
	return cfg
}

func TestDefaultProducesRunnableValues(t *testing.T) {
	cfg := Default()
	require.NotEmpty(t, cfg.RPCListen)
	require.NotEmpty(t, cfg.PeerListen)
	require.Equal(t, uint32(defaultMoneroConfs), cfg.MoneroConfirmations)
	require.Equal(t, uint32(defaultTCancelBlocks), cfg.TCancel)
	require.Equal(t, uint32(defaultTPunishBlocks), cfg.TPunish)
	require.Equal(t, int64(defaultFeeAmtSats), cfg.FeeAmtSats)
}

func TestValidateRequiresPeerID(t *testing.T) {
	cfg := validConfig()
	cfg.PeerID = ""

	err := cfg.validate()
	require.ErrorContains(t, err, "peerid is required")
}

func TestValidateRequiresOneRole(t *testing.T) {
	cfg := validConfig()
	cfg.BuyXMR = false

	err := cfg.validate()
	require.ErrorContains(t, err, "sell-xmr or buy-xmr")
}

func TestValidateSellXMRRequiresPayoutScript(t *testing.T) {
	cfg := validConfig()
	cfg.BuyXMR = false
	cfg.SellXMR = true

	err := cfg.validate()
	require.ErrorContains(t, err, "seller-payout-script")

	cfg.SellerPayoutScriptHex = "deadbeef"
	require.NoError(t, cfg.validate())
}

func TestValidateRejectsNegativeFee(t *testing.T) {
	cfg := validConfig()
	cfg.FeeAmtSats = -1

	err := cfg.validate()
	require.ErrorContains(t, err, "feeamt must not be negative")
}

func TestValidateRejectsZeroTPunish(t *testing.T) {
	cfg := validConfig()
	cfg.TPunish = 0

	err := cfg.validate()
	require.ErrorContains(t, err, "tpunish must be nonzero")
}

func TestValidateDefaultsChainBackends(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.validate())
	require.Equal(t, "btcwallet", cfg.Bitcoin.Backend)
	require.Equal(t, "moneroclient", cfg.Monero.Backend)
}
