// Command swapd is the daemon half of the control plane: it loads
// swapcfg.Config, opens the persistent store, wires the Bitcoin and
// Monero chain backends, runs the xmrtaker and/or xmrmaker executors
// behind both the peer transport (net/directnet) and the local
// swaprpc.Server, resumes every non-terminal swap left over from a prior
// run, and waits for a shutdown signal — the same "config, then backends,
// then subsystems, then signal wait" assembly order lnd.go used before it
// was trimmed down to the packages this module actually keeps.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	goerrors "github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/healthcheck"
	macaroon "gopkg.in/macaroon.v2"

	"github.com/athanorlabs/btcxmrswap/chain"
	"github.com/athanorlabs/btcxmrswap/chain/btcwallet"
	"github.com/athanorlabs/btcxmrswap/chain/moneroclient"
	"github.com/athanorlabs/btcxmrswap/internal/moneroaddr"
	swapnet "github.com/athanorlabs/btcxmrswap/net"
	"github.com/athanorlabs/btcxmrswap/net/directnet"
	"github.com/athanorlabs/btcxmrswap/protocol/xmrmaker"
	"github.com/athanorlabs/btcxmrswap/protocol/xmrtaker"
	"github.com/athanorlabs/btcxmrswap/swapcfg"
	"github.com/athanorlabs/btcxmrswap/swapdb"
	"github.com/athanorlabs/btcxmrswap/swapdb/bolt"
	"github.com/athanorlabs/btcxmrswap/swapdb/sql"
	"github.com/athanorlabs/btcxmrswap/swaplog"
	"github.com/athanorlabs/btcxmrswap/swaprpc"
)

// subsystems lists every swaplog.SubLogger tag in the tree, the same way
// lnd's own log.go enumerated each package logger it set levels on.
var subsystems = []string{"XTKR", "XMKR", "CHBW", "CHMN", "SDBQ", "SDBB", "SRPC", "PNET", "RECV"}

func main() {
	if err := run(); err != nil {
		// Wrapped for its stack trace rather than its message: run's own
		// errors are already descriptive, but a startup failure several
		// layers deep (chain backend, store, peer transport) is easier to
		// place with a trace attached, the same diagnostic peer.go reached
		// for go-errors/errors over a bare fmt.Errorf for.
		fmt.Fprintln(os.Stderr, "swapd:", err)
		fmt.Fprint(os.Stderr, goerrors.Wrap(err, 1).ErrorStack())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := swapcfg.Load(os.Args[1:])
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	if err := swaplog.InitLogRotator(filepath.Join(cfg.LogDir, "swapd.log"), 10); err != nil {
		return fmt.Errorf("starting log rotator: %w", err)
	}
	defer swaplog.Close()

	lvl, ok := btclog.LevelFromString(cfg.DebugLevel)
	if !ok {
		lvl = btclog.LevelInfo
	}
	for _, tag := range subsystems {
		swaplog.SetLevel(tag, lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	btcParams := &chaincfg.MainNetParams
	if cfg.Bitcoin.Testnet3 {
		btcParams = &chaincfg.TestNet3Params
	}

	var connectPeers []string
	if cfg.Bitcoin.RPCHost != "" {
		connectPeers = []string{cfg.Bitcoin.RPCHost}
	}
	btcBackend, err := btcwallet.New(btcwallet.Config{
		DataDir:      filepath.Join(cfg.DataDir, "btc"),
		ChainParams:  *btcParams,
		ConnectPeers: connectPeers,
	})
	if err != nil {
		return fmt.Errorf("starting bitcoin backend: %w", err)
	}
	defer btcBackend.Close()

	moneroEndpoint := cfg.Monero.RPCHost
	if moneroEndpoint == "" {
		moneroEndpoint = "http://127.0.0.1:18083/json_rpc"
	}
	xmrBackend := moneroclient.New(moneroEndpoint)

	chainMonitor := healthcheck.NewMonitor(&healthcheck.Config{
		Checks: []*healthcheck.Observation{
			healthcheck.NewObservation(
				"bitcoin backend",
				func() error {
					_, err := btcBackend.EstimateFee(ctx, 6)
					return err
				},
				2*time.Minute, 30*time.Second, 10*time.Second, 2,
			),
		},
		Shutdown: func(reason string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "swapd: health check: "+reason+"\n", args...)
		},
	})
	if merr := chainMonitor.Start(); merr != nil {
		return fmt.Errorf("starting chain health monitor: %w", merr)
	}
	defer chainMonitor.Stop() //nolint:errcheck

	network := moneroaddr.MainnetStandard
	if cfg.Monero.Testnet3 {
		network = moneroaddr.StagenetStandard
	}
	addressFromKeys := func(_ context.Context, spendPub, viewPub [32]byte) (string, error) {
		return moneroaddr.Encode(network, spendPub, viewPub), nil
	}

	host := directnet.NewHost(swapdb.PeerID(cfg.PeerID), store)

	var xmrTakerExec *xmrtaker.Executor
	if cfg.BuyXMR {
		funder, ferr := buildFunder(cfg, btcParams)
		if ferr != nil {
			return ferr
		}
		xmrTakerExec = xmrtaker.NewExecutor(xmrtaker.Config{
			Host:                  host,
			BtcBackend:            btcBackend,
			XmrBackend:            xmrBackend,
			Store:                 store,
			FundLockOutput:        funder.FundLockOutput,
			MoneroAddressFromKeys: addressFromKeys,
			FeeAmt:                cfg.FeeAmtSats,
		})
	}

	var xmrMakerExec *xmrmaker.Executor
	if cfg.SellXMR {
		payoutScript, perr := hex.DecodeString(cfg.SellerPayoutScriptHex)
		if perr != nil {
			return fmt.Errorf("decoding seller-payout-script: %w", perr)
		}
		rate := cfg.ExchangeRateXMRPerBTC
		xmrMakerExec = xmrmaker.NewExecutor(xmrmaker.Config{
			Host:                  host,
			BtcBackend:            btcBackend,
			XmrBackend:            xmrBackend,
			Store:                 store,
			PayoutScript:          payoutScript,
			MoneroAddressFromKeys: addressFromKeys,
			QuoteXMRAmount: func(_ context.Context, btcAmount uint64) (uint64, error) {
				return uint64(float64(btcAmount) * rate), nil
			},
			TCancel:             cfg.TCancel,
			TPunish:             cfg.TPunish,
			MoneroConfirmations: cfg.MoneroConfirmations,
			FeeAmt:              cfg.FeeAmtSats,
		})
	}

	peerServer := directnet.NewServer(&roleHandler{xmrTaker: xmrTakerExec, xmrMaker: xmrMakerExec})
	peerHTTP := &http.Server{Addr: cfg.PeerListen, Handler: peerServer}
	go func() {
		if serveErr := peerHTTP.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			fmt.Fprintln(os.Stderr, "swapd: peer transport:", serveErr)
		}
	}()
	defer peerHTTP.Shutdown(context.Background()) //nolint:errcheck

	if err := resumeAll(ctx, store, xmrTakerExec, xmrMakerExec); err != nil {
		return err
	}

	var rootMacaroon *macaroon.Macaroon
	if !cfg.NoMacaroons {
		rootMacaroon, err = loadOrCreateMacaroon(cfg)
		if err != nil {
			return err
		}
	}

	rpcServer, err := swaprpc.NewServer(ctx, swaprpc.Config{
		Address:  cfg.RPCListen,
		XMRTaker: xmrTakerExec,
		XMRMaker: xmrMakerExec,
		Store:    store,
		Macaroon: rootMacaroon,
	})
	if err != nil {
		return err
	}

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- rpcServer.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
		return rpcServer.Stop()
	case err := <-serveErrCh:
		return err
	}
}

func openStore(cfg *swapcfg.Config) (swapdb.Store, error) {
	dsn := filepath.Join(cfg.DataDir, "swapd.sqlite")
	store, err := sql.Open(sql.SQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	legacyPath := filepath.Join(cfg.DataDir, "swaps.db")
	if _, statErr := os.Stat(legacyPath); statErr == nil {
		legacy, lerr := bolt.Open(cfg.DataDir)
		if lerr != nil {
			return nil, fmt.Errorf("opening legacy store for migration: %w", lerr)
		}
		n, merr := swapdb.Migrate(legacy, store)
		legacy.Close()
		if merr != nil && !errors.Is(merr, swapdb.ErrAlreadyMigrated) {
			return nil, fmt.Errorf("migrating legacy store: %w", merr)
		}
		if merr == nil {
			fmt.Fprintf(os.Stderr, "swapd: migrated %d swap records from legacy store\n", n)
		}
	}

	return store, nil
}

// resumeAll drives every persisted swap forward once at startup,
// matching spec.md §4.3's "resumable after a restart" requirement: a
// swap left mid-flight when the daemon last exited keeps moving as soon
// as it is running again, without the operator needing to call resume
// themselves for each one.
func resumeAll(ctx context.Context, store swapdb.Store, xmrTaker *xmrtaker.Executor, xmrMaker *xmrmaker.Executor) error {
	recs, err := store.GetAllSwaps()
	if err != nil {
		return fmt.Errorf("listing swaps to resume: %w", err)
	}
	for _, rec := range recs {
		switch {
		case xmrTaker != nil && hasPrefix(rec.StageName, "xmrtaker/"):
			if _, rerr := xmrTaker.Resume(ctx, rec.ID); rerr != nil {
				fmt.Fprintf(os.Stderr, "swapd: resuming %s: %s\n", rec.ID, rerr)
			}
		case xmrMaker != nil && hasPrefix(rec.StageName, "xmrmaker/"):
			if _, rerr := xmrMaker.Resume(ctx, rec.ID); rerr != nil {
				fmt.Fprintf(os.Stderr, "swapd: resuming %s: %s\n", rec.ID, rerr)
			}
		}
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func buildFunder(cfg *swapcfg.Config, btcParams *chaincfg.Params) (*btcwallet.Funder, error) {
	if cfg.Funding.PrivKeyWIF == "" {
		return nil, fmt.Errorf("buy-xmr requires funding.privkey (and the matching funding.txid/vout/value)")
	}
	wif, err := btcutil.DecodeWIF(cfg.Funding.PrivKeyWIF)
	if err != nil {
		return nil, fmt.Errorf("decoding funding.privkey: %w", err)
	}
	txid, err := chainhash.NewHashFromStr(cfg.Funding.TxID)
	if err != nil {
		return nil, fmt.Errorf("decoding funding.txid: %w", err)
	}

	pubKey := wif.PrivKey.PubKey()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), btcParams)
	if err != nil {
		return nil, fmt.Errorf("deriving funding address: %w", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("building funding pkScript: %w", err)
	}

	changeScript := pkScript
	if cfg.Funding.ChangeScriptHex != "" {
		changeScript, err = hex.DecodeString(cfg.Funding.ChangeScriptHex)
		if err != nil {
			return nil, fmt.Errorf("decoding funding.change-script: %w", err)
		}
	}

	utxo := btcwallet.FundingUTXO{
		Outpoint:     wire.OutPoint{Hash: *txid, Index: cfg.Funding.Vout},
		Value:        btcutil.Amount(cfg.Funding.ValueSats),
		PrivKey:      (*btcec.PrivateKey)(wif.PrivKey),
		PkScript:     pkScript,
		ChangeScript: changeScript,
	}
	return btcwallet.NewFunder(utxo, btcParams, 0), nil
}

func loadOrCreateMacaroon(cfg *swapcfg.Config) (*macaroon.Macaroon, error) {
	keyPath := filepath.Join(cfg.DataDir, "macaroon.key")
	key, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		key = make([]byte, 32)
		if _, rerr := rand.Read(key); rerr != nil {
			return nil, fmt.Errorf("generating macaroon root key: %w", rerr)
		}
		if werr := os.WriteFile(keyPath, key, 0600); werr != nil {
			return nil, fmt.Errorf("persisting macaroon root key: %w", werr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("reading macaroon root key: %w", err)
	}

	m, err := swaprpc.NewRootMacaroon(key)
	if err != nil {
		return nil, err
	}

	encoded, err := swaprpc.EncodeMacaroon(m)
	if err != nil {
		return nil, err
	}
	macaroonPath := filepath.Join(cfg.DataDir, "swapd.macaroon")
	if werr := os.WriteFile(macaroonPath, []byte(encoded), 0600); werr != nil {
		return nil, fmt.Errorf("persisting hex macaroon: %w", werr)
	}

	return m, nil
}

var _ swapnet.Host = (*directnet.Host)(nil)
var _ chain.BitcoinBackend = (*btcwallet.Backend)(nil)
var _ chain.MoneroBackend = (*moneroclient.Client)(nil)
