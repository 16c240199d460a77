package xmrmaker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/clock"

	"github.com/athanorlabs/btcxmrswap/chain"
	"github.com/athanorlabs/btcxmrswap/internal/adaptor"
	"github.com/athanorlabs/btcxmrswap/internal/xcurve"
	swapnet "github.com/athanorlabs/btcxmrswap/net"
	"github.com/athanorlabs/btcxmrswap/protocol/swap"
	"github.com/athanorlabs/btcxmrswap/recovery"
	"github.com/athanorlabs/btcxmrswap/swaplog"
	"github.com/athanorlabs/btcxmrswap/swapdb"
	"github.com/athanorlabs/btcxmrswap/txbuilder"
)

var log = swaplog.SubLogger("XMKR")

// Config bundles the collaborators an Executor needs. Mirrors
// protocol/xmrtaker's Config, minus FundLockOutput (Alice never funds the
// lock output — Bob does) and plus the pricing/timelock policy Alice
// decides unilaterally when answering swap_setup (spec.md leaves exchange
// rate and timelock lengths to each implementation).
type Config struct {
	Host       swapnet.Host
	BtcBackend chain.BitcoinBackend
	XmrBackend chain.MoneroBackend
	Store      swapdb.Store

	// PayoutScript is where Alice's redeem transaction delivers the
	// Bitcoin it claims (spec.md §4.2: "Alice publishes redeem_tx").
	PayoutScript []byte

	// MoneroAddressFromKeys is the external wallet collaborator that
	// encodes a standard Monero address from a public spend/view keypair;
	// see protocol/xmrtaker.Config's field of the same name.
	MoneroAddressFromKeys func(ctx context.Context, spendPub, viewPub [32]byte) (string, error)

	// QuoteXMRAmount converts the btc_amount Bob offers into the
	// xmr_amount Alice asks for in her swap_setup response. spec.md names
	// the field but leaves the pricing policy itself to the
	// implementation.
	QuoteXMRAmount func(ctx context.Context, btcAmount uint64) (uint64, error)

	TCancel             uint32
	TPunish             uint32
	MoneroConfirmations uint32

	// FeeAmt is the flat fee, in satoshis, subtracted from the redeem/
	// cancel/punish transactions' swept output; see protocol/xmrtaker's
	// field of the same name for why it is flat rather than estimated.
	FeeAmt int64

	MoneroRestoreHeight uint64

	// Clock timestamps persisted stage records; see protocol/xmrtaker's
	// field of the same name.
	Clock clock.Clock
}

// Executor drives a single Alice-side swap through its 9 stages.
type Executor struct {
	cfg Config

	mu             sync.Mutex
	pendingEncSigs map[swapdb.SwapID]swapnet.EncryptedSignatureMessage
}

// NewExecutor constructs an Executor bound to cfg.
func NewExecutor(cfg Config) *Executor {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	return &Executor{
		cfg:            cfg,
		pendingEncSigs: make(map[swapdb.SwapID]swapnet.EncryptedSignatureMessage),
	}
}

// HandleEncryptedSignature implements the inbound half of net.Handler this
// role receives: Bob's encrypted_signature push.
func (e *Executor) HandleEncryptedSignature(ctx context.Context, peer string, msg swapnet.EncryptedSignatureMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingEncSigs[msg.SwapID] = msg
	return nil
}

func (e *Executor) takeEncSig(id swapdb.SwapID) (swapnet.EncryptedSignatureMessage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg, ok := e.pendingEncSigs[id]
	return msg, ok
}

// HandleSwapSetup implements the other inbound message this role receives:
// Bob's swap_setup request. Unlike protocol/xmrtaker's Start, this both
// creates and completes the first persisted stage synchronously, since
// spec.md §6's swap_setup is a single request/response round trip.
func (e *Executor) HandleSwapSetup(ctx context.Context, peer string, req swapnet.SwapSetupRequest) (*swapnet.SwapSetupResponse, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("xmrmaker: generating bitcoin keypair: %w", err)
	}
	ownShare, err := swap.NewMoneroKeyShare()
	if err != nil {
		return nil, err
	}

	spendScalar, err := ownShare.SpendScalar()
	if err != nil {
		return nil, err
	}
	ta, err := xcurve.StatementPoint(spendScalar)
	if err != nil {
		return nil, fmt.Errorf("xmrmaker: computing adaptor statement point: %w", err)
	}

	ownSpendPoint, err := ownShare.SpendPoint()
	if err != nil {
		return nil, err
	}
	ownViewPoint, err := ownShare.ViewPoint()
	if err != nil {
		return nil, err
	}

	buyerPub, err := btcec.ParsePubKey(req.BuyerBtcPub[:])
	if err != nil {
		return nil, fmt.Errorf("xmrmaker: parsing buyer btc pubkey: %w", err)
	}
	sellerPub := priv.PubKey()

	redeemScript, lockOut, err := txbuilder.LockPkScript(buyerPub, sellerPub, e.cfg.TCancel, int64(req.BtcAmount))
	if err != nil {
		return nil, err
	}

	xmrAmount, err := e.cfg.QuoteXMRAmount(ctx, req.BtcAmount)
	if err != nil {
		return nil, fmt.Errorf("xmrmaker: quoting xmr amount: %w", err)
	}

	// Bob's spend share arrives only as a commitment point (his scalar
	// never needs recovering — only Bob redeems Bitcoin, so only Alice's
	// spend share goes through the adaptor-signature recovery path); his
	// view share arrives as a cleartext scalar, same as net.SwapSetupResponse.VA.
	bobViewPoint, err := (swap.MoneroKeyShare{View: req.VB}).ViewPoint()
	if err != nil {
		return nil, fmt.Errorf("xmrmaker: projecting bob's view scalar: %w", err)
	}
	sharedSpendPoint, err := swap.CombinePoints(ownSpendPoint, req.SB)
	if err != nil {
		return nil, err
	}
	sharedViewPoint, err := swap.CombinePoints(ownViewPoint, bobViewPoint)
	if err != nil {
		return nil, err
	}
	sharedAddr, err := e.cfg.MoneroAddressFromKeys(ctx, sharedSpendPoint, sharedViewPoint)
	if err != nil {
		return nil, fmt.Errorf("xmrmaker: deriving shared monero address: %w", err)
	}

	st := &SwapSetupCompleted{
		Common: Common{
			Params: swap.Params{
				SwapID:              req.SwapID,
				BtcAmount:           req.BtcAmount,
				XMRAmount:           xmrAmount,
				TCancel:             e.cfg.TCancel,
				TPunish:             e.cfg.TPunish,
				MoneroConfirmations: e.cfg.MoneroConfirmations,
			},
			Peer:               swapdb.PeerID(peer),
			BuyerBtcPub:        req.BuyerBtcPub,
			SellerPayoutScript: e.cfg.PayoutScript,
			OwnKeyShare:        ownShare,
			RedeemScript:       redeemScript,
			LockPkScript:       lockOut.PkScript,
			LockAmt:            int64(req.BtcAmount),
			SharedAddr:         sharedAddr,
		},
	}
	copy(st.SellerBtcPriv[:], priv.Serialize())
	copy(st.SellerBtcPub[:], sellerPub.SerializeCompressed())

	if err := e.cfg.Store.PutPeerID(req.SwapID, st.Peer); err != nil {
		return nil, fmt.Errorf("xmrmaker: persisting peer id: %w", err)
	}
	if err := e.persist(req.SwapID, st); err != nil {
		return nil, err
	}

	var taArr [33]byte
	copy(taArr[:], ta.SerializeCompressed())

	return &swapnet.SwapSetupResponse{
		SwapID:             req.SwapID,
		XMRAmount:          xmrAmount,
		SellerBtcPub:       st.SellerBtcPub,
		SA:                 ownSpendPoint,
		VA:                 ownShare.View,
		TA:                 taArr,
		TCancel:            e.cfg.TCancel,
		TPunish:            e.cfg.TPunish,
		SellerPayoutScript: e.cfg.PayoutScript,
	}, nil
}

// HandleCooperativeRedeemRequest answers Bob's post-punish request for
// Alice's Monero spend scalar (spec.md §6). Fulfilled only from the
// BtcPunished state: any earlier state means the swap never reached the
// point where Alice is safely guaranteed the Bitcoin, so handing over her
// scalar would let Bob claim the Monero while the Bitcoin outcome is still
// undecided.
func (e *Executor) HandleCooperativeRedeemRequest(ctx context.Context, peer string, req swapnet.CooperativeRedeemRequest) (*swapnet.CooperativeRedeemResponse, error) {
	rec, err := e.cfg.Store.GetSwapState(req.SwapID)
	if err != nil {
		return &swapnet.CooperativeRedeemResponse{
			SwapID: req.SwapID, Fulfilled: false, Reason: swapnet.RejectUnknownSwap,
		}, nil
	}

	stage, err := decodeStage(swap.StageName(rec.StageName), rec.Payload)
	if err != nil {
		return &swapnet.CooperativeRedeemResponse{
			SwapID: req.SwapID, Fulfilled: false, Reason: swapnet.RejectUnknownSwap,
		}, nil
	}

	punished, ok := stage.(*BtcPunished)
	if !ok {
		return &swapnet.CooperativeRedeemResponse{
			SwapID: req.SwapID, Fulfilled: false, Reason: swapnet.RejectSwapInvalidState,
		}, nil
	}

	return &swapnet.CooperativeRedeemResponse{
		SwapID: req.SwapID, Fulfilled: true, SA: punished.OwnKeyShare.Spend,
	}, nil
}

// Resume loads the persisted stage for id and drives it forward, the same
// discipline as protocol/xmrtaker's Resume: stop at a terminal stage or a
// suspension point whose event has not yet occurred, never re-deciding an
// already-persisted transition.
func (e *Executor) Resume(ctx context.Context, id swapdb.SwapID) (swap.Stage, error) {
	rec, err := e.cfg.Store.GetSwapState(id)
	if err != nil {
		return nil, fmt.Errorf("xmrmaker: loading swap %s: %w", id, err)
	}

	stage, err := decodeStage(stageNameOf(rec), rec.Payload)
	if err != nil {
		return nil, err
	}

	for {
		if stage.Terminal() {
			return stage, nil
		}

		next, blocked, err := e.step(ctx, stage)
		if err != nil {
			return stage, err
		}
		if blocked {
			return stage, nil
		}
		if err := e.persist(id, next); err != nil {
			return stage, err
		}
		stage = next
	}
}

// rolePrefix distinguishes this package's stage records from
// protocol/xmrtaker's; see protocol/xmrtaker.rolePrefix for why a bare
// stage name can't disambiguate on its own.
const rolePrefix = "xmrmaker/"

func stageNameOf(rec swapdb.SwapRecord) swap.StageName {
	return swap.StageName(strings.TrimPrefix(rec.StageName, rolePrefix))
}

func (e *Executor) persist(id swapdb.SwapID, s swap.Stage) error {
	payload, err := swap.EncodeStage(s)
	if err != nil {
		return err
	}
	log.Debugf("swap %s: persisting stage %s", id, s.Name())
	return e.cfg.Store.PutSwapState(swapdb.SwapRecord{
		ID:        id,
		StageName: rolePrefix + string(s.Name()),
		Payload:   payload,
		UpdatedAt: e.cfg.Clock.Now(),
	})
}

func (e *Executor) step(ctx context.Context, s swap.Stage) (next swap.Stage, blocked bool, err error) {
	switch cur := s.(type) {
	case *SwapSetupCompleted:
		return e.doAwaitBtcLock(ctx, cur)
	case *BtcLocked:
		return e.doTransferXmr(ctx, cur)
	case *XmrLockSent:
		return e.doAwaitEncSigOrCancelTimelock(ctx, cur)
	case *EncSigReceived:
		return e.doDecryptAndBroadcastRedeem(ctx, cur)
	case *CancelTimelockExpired:
		return e.doBroadcastCancel(ctx, cur)
	case *BtcCancelled:
		return e.doAwaitPunishTimelock(ctx, cur)
	default:
		return nil, false, fmt.Errorf("xmrmaker: no transition defined for stage %s", s.Name())
	}
}

// doAwaitBtcLock polls status_of_script for Bob's lock output — the only
// way Alice learns its outpoint, since no wire message carries Bob's lock
// txid — SwapSetupCompleted -> BtcLocked.
func (e *Executor) doAwaitBtcLock(ctx context.Context, cur *SwapSetupCompleted) (swap.Stage, bool, error) {
	status, err := e.cfg.BtcBackend.StatusOfScript(ctx, cur.LockPkScript)
	if err != nil {
		return nil, false, err
	}
	if !status.Confirmed || status.Outpoint == nil {
		return nil, true, nil
	}

	return &BtcLocked{SwapSetupCompleted: *cur, LockOutpoint: *status.Outpoint}, false, nil
}

// doTransferXmr sends the agreed xmr_amount to the shared address and
// delivers transfer_proof — BtcLocked -> XmrLockSent.
func (e *Executor) doTransferXmr(ctx context.Context, cur *BtcLocked) (swap.Stage, bool, error) {
	txHash, txKey, err := e.cfg.XmrBackend.Transfer(ctx, cur.SharedAddr, cur.Params.XMRAmount, 0)
	if err != nil {
		return nil, false, fmt.Errorf("xmrmaker: transferring monero: %w", err)
	}

	if err := e.cfg.Host.SendTransferProof(ctx, string(cur.Peer), swapnet.TransferProofMessage{
		SwapID:       cur.Params.SwapID,
		MoneroTxHash: txHash,
		TxKey:        txKey,
	}); err != nil {
		return nil, false, fmt.Errorf("xmrmaker: sending transfer_proof: %w", err)
	}

	return &XmrLockSent{BtcLocked: *cur, MoneroTxHash: txHash, MoneroTxKey: txKey}, false, nil
}

// doAwaitEncSigOrCancelTimelock races Bob's encrypted_signature delivery
// against t_cancel — the event race symmetric to protocol/xmrtaker's
// doAwaitXmrProofOrCancelTimelock.
func (e *Executor) doAwaitEncSigOrCancelTimelock(ctx context.Context, cur *XmrLockSent) (swap.Stage, bool, error) {
	msg, ok := e.takeEncSig(cur.Params.SwapID)
	if !ok {
		expired, err := e.cancelTimelockExpired(ctx, cur)
		if err != nil {
			return nil, false, err
		}
		if expired {
			return &CancelTimelockExpired{XmrLockSent: *cur}, false, nil
		}
		return nil, true, nil
	}

	presig, err := decodePreSignature(msg.PreSignature)
	if err != nil {
		return nil, false, err
	}

	redeemTx, err := txbuilder.BuildRedeemTx(cur.LockOutpoint, cur.LockAmt, e.cfg.FeeAmt, cur.SellerPayoutScript)
	if err != nil {
		return nil, false, err
	}
	sigHash, err := txbuilder.SigHash(redeemTx, cur.LockPkScript, cur.LockAmt, cur.RedeemScript)
	if err != nil {
		return nil, false, err
	}
	var hashArr [32]byte
	copy(hashArr[:], sigHash)

	buyerPub, err := btcec.ParsePubKey(cur.BuyerBtcPub[:])
	if err != nil {
		return nil, false, err
	}
	spendScalar, err := cur.OwnKeyShare.SpendScalar()
	if err != nil {
		return nil, false, err
	}
	statement, err := xcurve.StatementPoint(spendScalar)
	if err != nil {
		return nil, false, err
	}
	if err := adaptor.EncVerify(buyerPub, statement, hashArr, presig); err != nil {
		return nil, false, fmt.Errorf("xmrmaker: bob's presignature failed verification: %w", err)
	}

	return &EncSigReceived{XmrLockSent: *cur, PreSignature: msg.PreSignature}, false, nil
}

// doDecryptAndBroadcastRedeem completes Bob's presignature with Alice's
// own spend scalar (the statement's discrete log) and broadcasts the
// redeem transaction, revealing s_a on-chain by construction — EncSigReceived
// -> BtcRedeemed (spec.md §4.2/§4.4).
func (e *Executor) doDecryptAndBroadcastRedeem(ctx context.Context, cur *EncSigReceived) (swap.Stage, bool, error) {
	presig, err := decodePreSignature(cur.PreSignature)
	if err != nil {
		return nil, false, err
	}

	spendScalar, err := cur.OwnKeyShare.SpendScalar()
	if err != nil {
		return nil, false, err
	}
	t, err := xcurve.ToModNScalar(spendScalar)
	if err != nil {
		return nil, false, err
	}

	buyerSig, err := adaptor.Decrypt(presig, t)
	if err != nil {
		return nil, false, fmt.Errorf("xmrmaker: decrypting bob's presignature: %w", err)
	}

	redeemTx, err := txbuilder.BuildRedeemTx(cur.LockOutpoint, cur.LockAmt, e.cfg.FeeAmt, cur.SellerPayoutScript)
	if err != nil {
		return nil, false, err
	}
	sigHash, err := txbuilder.SigHash(redeemTx, cur.LockPkScript, cur.LockAmt, cur.RedeemScript)
	if err != nil {
		return nil, false, err
	}
	var hashArr [32]byte
	copy(hashArr[:], sigHash)

	sellerPriv, _ := btcec.PrivKeyFromBytes(cur.SellerBtcPriv[:])
	sellerSig := ecdsa.Sign(sellerPriv, hashArr[:])

	buyerPub, err := btcec.ParsePubKey(cur.BuyerBtcPub[:])
	if err != nil {
		return nil, false, err
	}
	sellerPub, err := btcec.ParsePubKey(cur.SellerBtcPub[:])
	if err != nil {
		return nil, false, err
	}
	redeemTx.TxIn[0].Witness = txbuilder.RedeemWitness(buyerPub, sellerPub, buyerSig, sellerSig, cur.RedeemScript)

	if _, err := recovery.BroadcastTx(ctx, e.cfg.BtcBackend, "redeem", redeemTx); err != nil {
		return nil, false, err
	}

	return &BtcRedeemed{EncSigReceived: *cur, RedeemTxHash: redeemTx.TxHash().String()}, false, nil
}

// doBroadcastCancel broadcasts the cancel transaction using Alice's own
// lone signature over the lock output's CSV(t_cancel) branch —
// CancelTimelockExpired -> BtcCancelled.
func (e *Executor) doBroadcastCancel(ctx context.Context, cur *CancelTimelockExpired) (swap.Stage, bool, error) {
	buyerPub, err := btcec.ParsePubKey(cur.BuyerBtcPub[:])
	if err != nil {
		return nil, false, err
	}
	sellerPub, err := btcec.ParsePubKey(cur.SellerBtcPub[:])
	if err != nil {
		return nil, false, err
	}

	skel, err := txbuilder.BuildCancelTx(cur.LockOutpoint, cur.LockAmt, e.cfg.FeeAmt, txbuilder.LockTxParams{
		BuyerPub:  buyerPub,
		SellerPub: sellerPub,
		TCancel:   cur.Params.TCancel,
	}, cur.Params.TPunish)
	if err != nil {
		return nil, false, err
	}

	sellerPriv, _ := btcec.PrivKeyFromBytes(cur.SellerBtcPriv[:])
	sigHash, err := txbuilder.SigHash(skel.Tx, cur.LockPkScript, cur.LockAmt, cur.RedeemScript)
	if err != nil {
		return nil, false, err
	}
	var hashArr [32]byte
	copy(hashArr[:], sigHash)
	sig := ecdsa.Sign(sellerPriv, hashArr[:])
	skel.Tx.TxIn[0].Witness = txbuilder.CancelWitness(sig, false /* signerIsBuyer */, cur.RedeemScript)

	if _, err := recovery.BroadcastTx(ctx, e.cfg.BtcBackend, "cancel", skel.Tx); err != nil {
		return nil, false, err
	}

	return &BtcCancelled{
		CancelTimelockExpired: *cur,
		CancelOutpoint:        wire.OutPoint{Hash: skel.Tx.TxHash(), Index: 0},
		CancelAmt:             skel.PrevOutValue,
		CancelRedeem:          skel.RedeemScript,
		CancelPkScript:        skel.PrevOutPk,
	}, false, nil
}

// doAwaitPunishTimelock races Bob's refund broadcast against t_punish: once
// t_punish has elapsed with the cancel output still unspent, Alice is
// entitled to the punish branch (spec.md §4.3 scenario 4) —
// BtcCancelled -> BtcPunished.
func (e *Executor) doAwaitPunishTimelock(ctx context.Context, cur *BtcCancelled) (swap.Stage, bool, error) {
	status, err := e.cfg.BtcBackend.StatusOfScript(ctx, cur.CancelPkScript)
	if err != nil {
		return nil, false, err
	}
	if !status.Confirmed || status.Confirmations < cur.Params.TPunish {
		return nil, true, nil
	}

	punishTx, err := txbuilder.BuildPunishTx(cur.CancelOutpoint, cur.CancelAmt, e.cfg.FeeAmt, cur.Params.TPunish, e.cfg.PayoutScript)
	if err != nil {
		return nil, false, err
	}
	sigHash, err := txbuilder.SigHash(punishTx, cur.CancelPkScript, cur.CancelAmt, cur.CancelRedeem)
	if err != nil {
		return nil, false, err
	}
	var hashArr [32]byte
	copy(hashArr[:], sigHash)

	sellerPriv, _ := btcec.PrivKeyFromBytes(cur.SellerBtcPriv[:])
	sig := ecdsa.Sign(sellerPriv, hashArr[:])
	punishTx.TxIn[0].Witness = txbuilder.PunishWitness(sig, cur.CancelRedeem)

	if _, err := recovery.BroadcastTx(ctx, e.cfg.BtcBackend, "punish", punishTx); err != nil {
		return nil, false, err
	}

	return &BtcPunished{BtcCancelled: *cur}, false, nil
}

// cancelTimelockExpired reports whether the lock output's CSV(t_cancel)
// branch has matured.
func (e *Executor) cancelTimelockExpired(ctx context.Context, cur *XmrLockSent) (bool, error) {
	status, err := e.cfg.BtcBackend.StatusOfScript(ctx, cur.LockPkScript)
	if err != nil {
		return false, err
	}
	return status.Confirmed && status.Confirmations >= cur.Params.TCancel, nil
}
