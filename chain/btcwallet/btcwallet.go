// Package btcwallet adapts the teacher's real Bitcoin stack — btcwallet's
// chain.Interface backed by a neutrino light client — to the chain.BitcoinBackend
// capability interface, grounded on chainregistry.go's neutrino branch
// (neutrino.Config/NewChainService/svc.Start, chain.NewNeutrinoClient).
package btcwallet

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/chain"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightninglabs/neutrino"

	swapchain "github.com/athanorlabs/btcxmrswap/chain"
	"github.com/athanorlabs/btcxmrswap/swaplog"
)

var log = swaplog.SubLogger("CHBW")

// Config mirrors the subset of chainregistry.go's walletConfig/neutrino.Config
// fields the swap core actually needs: a data directory, network
// parameters, and optional seed peers for the light client.
type Config struct {
	DataDir      string
	ChainParams  chaincfg.Params
	ConnectPeers []string
	FeeRateConf  btcutil.Amount // static feerate fallback, sat/vbyte
}

// Backend implements chain.BitcoinBackend over a neutrino light client,
// following chainregistry.go's NeutrinoMode branch exactly: open the
// neutrino wallet database, start the ChainService, then wrap it with
// btcwallet/chain.NewNeutrinoClient for the higher-level Interface methods
// (SendRawTransaction, Notifications, GetBlock, ...).
type Backend struct {
	cfg    Config
	svc    *neutrino.ChainService
	client *chain.NeutrinoClient
}

// New opens (or creates) the neutrino database under cfg.DataDir, starts
// the chain service, and begins syncing.
func New(cfg Config) (*Backend, error) {
	dbName := filepath.Join(cfg.DataDir, "neutrino.db")
	nodeDB, err := walletdb.Create("bdb", dbName)
	if err != nil {
		return nil, fmt.Errorf("chain/btcwallet: open neutrino db: %w", err)
	}

	neutrino.WaitForMoreCFHeaders = time.Second
	neutrino.MaxPeers = 8
	neutrino.BanDuration = 5 * time.Second

	svc, err := neutrino.NewChainService(neutrino.Config{
		DataDir:      cfg.DataDir,
		Database:     nodeDB,
		ChainParams:  cfg.ChainParams,
		ConnectPeers: cfg.ConnectPeers,
	})
	if err != nil {
		return nil, fmt.Errorf("chain/btcwallet: create neutrino service: %w", err)
	}
	if err := svc.Start(); err != nil {
		return nil, fmt.Errorf("chain/btcwallet: start neutrino service: %w", err)
	}

	client := chain.NewNeutrinoClient(&cfg.ChainParams, svc)
	if err := client.Start(); err != nil {
		return nil, fmt.Errorf("chain/btcwallet: start neutrino client: %w", err)
	}

	return &Backend{cfg: cfg, svc: svc, client: client}, nil
}

// Close stops the underlying chain service and client.
func (b *Backend) Close() {
	b.client.Stop()
	b.client.WaitForShutdown()
	b.svc.Stop()
}

func (b *Backend) Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error) {
	hash, err := b.client.SendRawTransaction(tx, false)
	if err != nil {
		if isAlreadyInChain(err) {
			return &hash, swapchain.ErrAlreadyInChain
		}
		if isNonFinal(err) {
			return nil, swapchain.ErrTimelockNotExpired
		}
		return nil, fmt.Errorf("chain/btcwallet: broadcast: %w", err)
	}
	return &hash, nil
}

func (b *Backend) WatchForTx(ctx context.Context, txid *chainhash.Hash, confirmations uint32) (*swapchain.TxStatus, error) {
	if err := b.client.NotifyReceived(nil); err != nil {
		return nil, fmt.Errorf("chain/btcwallet: subscribe: %w", err)
	}

	for {
		select {
		case n, ok := <-b.client.Notifications():
			if !ok {
				return nil, fmt.Errorf("chain/btcwallet: notification channel closed")
			}
			if status := matchRelevantTx(n, txid, confirmations); status != nil {
				return status, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Backend) GetRawTx(ctx context.Context, txid *chainhash.Hash) (*wire.MsgTx, error) {
	details, err := b.client.GetTransaction(txid)
	if err != nil {
		return nil, fmt.Errorf("chain/btcwallet: get raw tx: %w", err)
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytesReader(details.Hex)); err != nil {
		return nil, fmt.Errorf("chain/btcwallet: decode raw tx: %w", err)
	}
	return &tx, nil
}

func (b *Backend) EstimateFee(ctx context.Context, confTarget uint32) (btcutil.Amount, error) {
	if b.cfg.FeeRateConf > 0 {
		return b.cfg.FeeRateConf, nil
	}
	return 10, nil // conservative default sat/vbyte, matching lnwallet.StaticFeeEstimator's shape
}

// StatusOfScript reports whether pkScript has a confirmed output and, when
// the notification stream has already surfaced one, which outpoint it is.
// It never blocks: the recovery subsystem and the swap executors both call
// it as a poll (spec.md's status_of_script is a query, not a subscribe), so
// a caller that needs the outpoint the moment it appears — e.g. Alice
// discovering Bob's lock transaction with no txid ever sent over the wire —
// polls this on an interval rather than waiting on a single call.
func (b *Backend) StatusOfScript(ctx context.Context, pkScript []byte) (*swapchain.TxStatus, error) {
	_, bestHeight, err := b.client.GetBestBlock()
	if err != nil {
		return nil, fmt.Errorf("chain/btcwallet: get best block: %w", err)
	}
	if err := b.client.NotifyReceived(nil); err != nil {
		return nil, fmt.Errorf("chain/btcwallet: subscribe: %w", err)
	}

	for {
		select {
		case n, ok := <-b.client.Notifications():
			if !ok {
				return &swapchain.TxStatus{Confirmed: false, BlockHeight: bestHeight}, nil
			}
			if status := matchScriptTx(n, pkScript); status != nil {
				return status, nil
			}
		default:
			return &swapchain.TxStatus{Confirmed: false, BlockHeight: bestHeight}, nil
		}
	}
}
