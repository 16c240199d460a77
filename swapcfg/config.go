// Package swapcfg loads swapd's on-disk and command-line configuration,
// the way lnd's own config.go composes a defaulted struct with
// jessevdk/go-flags: flags override an INI file, which overrides the
// struct's own default tags.
package swapcfg

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "swapd.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultRPCPort        = 10013
	defaultMoneroConfs    = 10
	defaultTCancelBlocks  = 144  // ~1 day of Bitcoin blocks
	defaultTPunishBlocks  = 144  // ~1 day measured from the cancel output
	defaultFeeAmtSats     = 1000 // flat fee, spec.md leaves estimation out of scope
	defaultPeerPort       = 10014
	defaultExchangeRate   = 0.0067 // placeholder flat rate; spec.md leaves pricing policy to the implementation
)

var defaultAppDataDir = appDataDir("swapd", false)

// ChainConfig names the backend a chain adapter connects to, mirroring
// chainregistry.go's per-chain config block generalized to two chains
// instead of lnd's many.
type ChainConfig struct {
	Backend  string `long:"backend" description:"chain backend to use" choice:"btcwallet" choice:"moneroclient"`
	RPCHost  string `long:"rpchost" description:"RPC host:port of the backend node"`
	RPCUser  string `long:"rpcuser" description:"RPC username"`
	RPCPass  string `long:"rpcpass" description:"RPC password"`
	Wallet   string `long:"wallet" description:"wallet file or account name"`
	Testnet3 bool   `long:"testnet" description:"use testnet3 (Bitcoin) or stagenet addresses (Monero) instead of mainnet"`
}

// Config is swapd's full configuration, loaded by Load. Most fields have a
// default, matching lnd's "everything has a sane default" config
// philosophy; PeerID and at least one of SellXMR/BuyXMR have none and must
// be set, or validate rejects the configuration.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"path to configuration file"`
	DataDir    string `short:"d" long:"datadir" description:"directory to store swap state and logs"`
	LogDir     string `long:"logdir" description:"directory to store logs"`
	DebugLevel string `long:"debuglevel" description:"logging level for all subsystems"`

	RPCListen   string `long:"rpclisten" description:"host:port for the swaprpc control-plane service"`
	NoMacaroons bool   `long:"no-macaroons" description:"disable macaroon authentication on the control-plane service (testing only)"`

	// PeerID and PeerListen are this daemon's own identity and inbound
	// address on the directnet peer transport (net/directnet): the
	// identity it announces to counterparties in outbound requests, and
	// the address the counterparty's Host dials back for their own
	// outbound requests.
	PeerID     string `long:"peerid" description:"this daemon's peer identity, announced to counterparties"`
	PeerListen string `long:"peerlisten" description:"host:port the peer transport listens on for inbound swap_setup/transfer_proof/encrypted_signature/cooperative_xmr_redeem_after_punish requests"`

	Bitcoin ChainConfig `group:"Bitcoin" namespace:"bitcoin"`
	Monero  ChainConfig `group:"Monero" namespace:"monero"`

	MoneroConfirmations uint32 `long:"moneroconfirmations" description:"confirmations required before treating a Monero transfer as final"`
	TCancel             uint32 `long:"tcancel" description:"relative-locktime blocks before the seller may broadcast cancel_tx"`
	TPunish             uint32 `long:"tpunish" description:"relative-locktime blocks after cancel_tx before the seller may broadcast punish_tx"`
	FeeAmtSats          int64  `long:"feeamt" description:"flat fee in satoshis subtracted from redeem/cancel/punish outputs"`

	// SellXMR enables the xmrmaker (Alice) role: answering inbound
	// swap_setup requests and quoting xmr_amount at ExchangeRate.
	// SellerPayoutScriptHex is required when SellXMR is set.
	SellXMR               bool    `long:"sell-xmr" description:"run the xmrmaker (Alice) role, answering inbound swap offers"`
	SellerPayoutScriptHex string  `long:"seller-payout-script" description:"hex-encoded script xmrmaker's redeem_tx pays, required when sell-xmr is set"`
	ExchangeRateXMRPerBTC float64 `long:"exchange-rate" description:"flat XMR-per-BTC rate xmrmaker quotes in swap_setup responses"`

	// BuyXMR enables the xmrtaker (Bob) role: swapcli's buy-xmr/resume/
	// cancel/refund commands operate on this executor.
	BuyXMR bool `long:"buy-xmr" description:"run the xmrtaker (Bob) role, available to swapcli's buy-xmr/resume/cancel/refund commands"`

	// Funding names the single pre-selected, pre-signed-key UTXO
	// xmrtaker's FundLockOutput collaborator spends from to construct
	// each swap's lock_tx. General wallet coin selection (tracking a
	// full UTXO set, generating fresh change addresses from a keychain)
	// is out of scope for this exercise the same way spec.md keeps it
	// out of chain.BitcoinBackend's capability surface; operating a
	// single daemon off one pre-funded key is the minimal concrete
	// collaborator that still exercises btcwallet/wallet/txauthor for
	// real.
	Funding FundingConfig `group:"Funding" namespace:"funding"`
}

// FundingConfig is the one UTXO, in WIF-keyed form, that FundLockOutput
// spends from. ChangeScriptHex receives any leftover value; operators
// should rotate it to a fresh address themselves between swaps if they
// care about address reuse, since this module does not manage a keychain.
type FundingConfig struct {
	TxID            string `long:"txid" description:"txid of the UTXO to fund lock outputs from"`
	Vout            uint32 `long:"vout" description:"output index of the funding UTXO"`
	ValueSats       int64  `long:"value" description:"value in satoshis of the funding UTXO"`
	PrivKeyWIF      string `long:"privkey" description:"WIF-encoded private key controlling the funding UTXO (must be P2WPKH)"`
	ChangeScriptHex string `long:"change-script" description:"hex-encoded pkScript receiving leftover value, defaults to the funding UTXO's own script"`
}

// Default returns a Config populated with every field's default, the
// struct go-flags' own defaulting would produce from an empty argv and no
// config file — used by tests and by Load before flags/file are applied.
func Default() *Config {
	return &Config{
		DataDir:               filepath.Join(defaultAppDataDir, defaultDataDirname),
		LogDir:                filepath.Join(defaultAppDataDir, defaultLogDirname),
		DebugLevel:            "info",
		RPCListen:             fmt.Sprintf("localhost:%d", defaultRPCPort),
		PeerListen:            fmt.Sprintf("localhost:%d", defaultPeerPort),
		MoneroConfirmations:   defaultMoneroConfs,
		TCancel:               defaultTCancelBlocks,
		TPunish:               defaultTPunishBlocks,
		FeeAmtSats:            defaultFeeAmtSats,
		ExchangeRateXMRPerBTC: defaultExchangeRate,
	}
}

// Load parses args (normally os.Args[1:]) into a Config: defaults, then
// configfile, then flags, each layer overriding the last — the same
// three-layer precedence lnd's config.go documents for its own Load.
func Load(args []string) (*Config, error) {
	cfg := Default()

	preParser := flags.NewParser(cfg, flags.Default&^flags.PrintErrors&^flags.HelpFlag)
	if _, err := preParser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); !ok || flagsErr.Type != flags.ErrHelp {
			return nil, fmt.Errorf("swapcfg: pre-parsing flags: %w", err)
		}
	}

	configPath := cfg.ConfigFile
	if configPath == "" {
		configPath = filepath.Join(defaultAppDataDir, defaultConfigFilename)
	}
	if _, err := os.Stat(configPath); err == nil {
		fileParser := flags.NewParser(cfg, flags.Default)
		if err := flags.NewIniParser(fileParser).ParseFile(configPath); err != nil {
			return nil, fmt.Errorf("swapcfg: parsing %s: %w", configPath, err)
		}
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.FeeAmtSats < 0 {
		return fmt.Errorf("swapcfg: feeamt must not be negative")
	}
	if c.TPunish == 0 {
		return fmt.Errorf("swapcfg: tpunish must be nonzero")
	}
	if c.Bitcoin.Backend == "" {
		c.Bitcoin.Backend = "btcwallet"
	}
	if c.Monero.Backend == "" {
		c.Monero.Backend = "moneroclient"
	}
	if c.SellXMR && c.SellerPayoutScriptHex == "" {
		return fmt.Errorf("swapcfg: sell-xmr requires seller-payout-script")
	}
	if !c.SellXMR && !c.BuyXMR {
		return fmt.Errorf("swapcfg: at least one of sell-xmr or buy-xmr must be set")
	}
	if c.PeerID == "" {
		return fmt.Errorf("swapcfg: peerid is required")
	}
	return nil
}

// appDataDir mirrors btcutil.AppDataDir's default (non-roaming) resolution
// for a single application name, reimplemented locally rather than pulling
// in all of btcutil for one directory join.
func appDataDir(appName string, _ bool) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}
