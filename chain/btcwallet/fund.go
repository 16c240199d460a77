package btcwallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txauthor"
	"github.com/btcsuite/btcwallet/wallet/txrules"
)

// FundingUTXO is the single P2WPKH output a Funder spends from to build
// each swap's lock_tx — see swapcfg.FundingConfig for why a full wallet
// UTXO set is out of scope here.
type FundingUTXO struct {
	Outpoint   wire.OutPoint
	Value      btcutil.Amount
	PrivKey    *btcec.PrivateKey
	PkScript   []byte
	ChangeScript []byte
}

// Funder implements the FundLockOutput collaborator protocol/xmrtaker.Config
// needs, spending a single configured UTXO via
// github.com/btcsuite/btcwallet/wallet/txauthor — the same coin-selection
// and fee-accounting package lnd's own sweep package builds transactions
// with, here driven with exactly one candidate input instead of a wallet's
// full UTXO set.
type Funder struct {
	utxo        FundingUTXO
	chainParams *chaincfg.Params
	feeRate     btcutil.Amount // sat/vbyte
}

// NewFunder builds a Funder spending utxo at feeRate (sat/vbyte).
func NewFunder(utxo FundingUTXO, chainParams *chaincfg.Params, feeRate btcutil.Amount) *Funder {
	return &Funder{utxo: utxo, chainParams: chainParams, feeRate: feeRate}
}

// FundLockOutput builds, signs, and returns a transaction paying amt to
// pkScript from the configured funding UTXO, matching the
// protocol/xmrtaker.Config.FundLockOutput signature.
func (f *Funder) FundLockOutput(_ context.Context, pkScript []byte, amt int64) (*wire.MsgTx, error) {
	target := wire.NewTxOut(amt, pkScript)

	fetchInputs := func(btcutil.Amount) (btcutil.Amount, []*wire.TxIn, []btcutil.Amount, [][]byte, error) {
		if f.utxo.Value < btcutil.Amount(amt) {
			return 0, nil, nil, nil, fmt.Errorf("btcwallet: funding utxo holds %s, need at least %s",
				f.utxo.Value, btcutil.Amount(amt))
		}
		in := wire.NewTxIn(&f.utxo.Outpoint, nil, nil)
		return f.utxo.Value, []*wire.TxIn{in}, []btcutil.Amount{f.utxo.Value}, [][]byte{f.utxo.PkScript}, nil
	}

	changeSource := txauthor.ChangeSource{
		NewScript: func() ([]byte, error) {
			return f.utxo.ChangeScript, nil
		},
		ScriptSize: len(f.utxo.ChangeScript),
	}

	relayFeePerKb := txrules.DefaultRelayFeePerKb
	if f.feeRate > 0 {
		relayFeePerKb = f.feeRate * 1000
	}

	authored, err := txauthor.NewUnsignedTransaction(
		[]*wire.TxOut{target}, relayFeePerKb, fetchInputs, changeSource,
	)
	if err != nil {
		return nil, fmt.Errorf("btcwallet: building lock tx: %w", err)
	}

	if err := authored.AddAllInputScripts(&secretSource{priv: f.utxo.PrivKey, chainParams: f.chainParams}); err != nil {
		return nil, fmt.Errorf("btcwallet: signing lock tx: %w", err)
	}

	return authored.Tx, nil
}

// secretSource implements txauthor.SecretsSource over the single
// configured private key; every lookup is expected to resolve to that one
// key since fetchInputs above never offers more than one prevout.
type secretSource struct {
	priv        *btcec.PrivateKey
	chainParams *chaincfg.Params
}

func (s *secretSource) GetKey(btcutil.Address) (*btcec.PrivateKey, bool, error) {
	return s.priv, true, nil
}

func (s *secretSource) GetScript(btcutil.Address) ([]byte, error) {
	return nil, fmt.Errorf("btcwallet: funding utxo is P2WPKH, no redeem script")
}

func (s *secretSource) ChainParams() *chaincfg.Params {
	return s.chainParams
}
