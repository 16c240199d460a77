package xmrtaker

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
	swapnet "github.com/athanorlabs/btcxmrswap/net"
	"github.com/athanorlabs/btcxmrswap/protocol/swap"
	"github.com/athanorlabs/btcxmrswap/recovery"
	"github.com/athanorlabs/btcxmrswap/swaplog"
	"github.com/athanorlabs/btcxmrswap/swapdb"
	"github.com/athanorlabs/btcxmrswap/txbuilder"
)

var log = swaplog.SubLogger("XTKR")

// Config bundles the collaborators an Executor needs: the peer transport,
// both chain backends, the persistent store, and a wallet hook for
// funding the very first lock output (the only step that spends
// arbitrary, externally-selected UTXOs rather than the 2-of-2 script
// itself — everything downstream is signed directly by this package with
// the parties' own swap keys).
type Config struct {
	Host       swapnet.Host
	BtcBackend chain.BitcoinBackend
	XmrBackend chain.MoneroBackend
	Store      swapdb.Store

	// FundLockOutput is the external wallet collaborator: given the lock
	// script's pkScript and amount, it selects inputs, adds a change
	// output if needed, signs everything, and returns the fully signed
	// transaction, ready to broadcast.
	FundLockOutput func(ctx context.Context, pkScript []byte, amt int64) (*wire.MsgTx, error)

	// MoneroAddressFromKeys is the external wallet collaborator that
	// encodes a standard Monero address from a public spend/view keypair.
	// Address encoding (network byte, base58 block format, checksum) is
	// out of scope for the core per spec.md's "address derivation"
	// non-goal; only the public-key arithmetic combining both parties'
	// shares happens inside this package (protocol/swap.CombinePoints).
	MoneroAddressFromKeys func(ctx context.Context, spendPub, viewPub [32]byte) (string, error)

	// FeeAmt is the flat fee, in satoshis, subtracted from a swept
	// output for the redeem/cancel/refund/punish transactions. A
	// production daemon would instead call
	// chain.BitcoinBackend.EstimateFee per transaction; a flat fee keeps
	// this core free of fee-market policy, matching spec.md §1's "fee
	// optimization" non-goal.
	FeeAmt int64

	MoneroRestoreHeight uint64

	// Clock timestamps persisted stage records. Defaults to the real wall
	// clock in NewExecutor; a caller can inject clock.NewTestClock to control
	// SwapRecord.UpdatedAt without sleeping.
	Clock clock.Clock
}

// Executor drives a single Bob-side swap through its 13 stages.
type Executor struct {
	cfg Config

	mu            sync.Mutex
	pendingProofs map[swapdb.SwapID]swapnet.TransferProofMessage
}

// NewExecutor constructs an Executor bound to cfg.
func NewExecutor(cfg Config) *Executor {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	return &Executor{
		cfg:           cfg,
		pendingProofs: make(map[swapdb.SwapID]swapnet.TransferProofMessage),
	}
}

// HandleTransferProof implements the inbound half of net.Handler this
// role actually receives: Alice's transfer_proof push. The other three
// Handler methods are Alice-side inbound messages and are never routed
// to a Bob executor by a correctly configured daemon.
func (e *Executor) HandleTransferProof(ctx context.Context, peer string, msg swapnet.TransferProofMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingProofs[msg.SwapID] = msg
	return nil
}

func (e *Executor) takeTransferProof(id swapdb.SwapID) (swapnet.TransferProofMessage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg, ok := e.pendingProofs[id]
	return msg, ok
}

// StartParams are the caller-supplied inputs to initiate a new swap as
// xmrtaker (Bob): the negotiated XMR amount and timelocks are not yet
// known (Alice's SwapSetupResponse supplies them); only the BTC amount
// Bob offers, the peer to contact, and his payout script are fixed up
// front.
type StartParams struct {
	BtcAmount         uint64
	Peer              swapdb.PeerID
	PeerAddrs         []swapdb.Multiaddr
	BuyerPayoutScript []byte
}

// Start creates a fresh swap identity, persists the Started stage, and
// returns its id. Call Resume to drive it forward.
func (e *Executor) Start(ctx context.Context, sp StartParams) (swapdb.SwapID, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return swapdb.SwapID{}, fmt.Errorf("xmrtaker: generating bitcoin keypair: %w", err)
	}
	ownShare, err := swap.NewMoneroKeyShare()
	if err != nil {
		return swapdb.SwapID{}, err
	}

	id := swapdb.NewSwapID()
	st := &Started{
		Common: Common{
			Params:            swap.Params{SwapID: id, BtcAmount: sp.BtcAmount},
			Peer:              sp.Peer,
			BuyerPayoutScript: sp.BuyerPayoutScript,
			OwnKeyShare:       ownShare,
		},
	}
	copy(st.BuyerBtcPriv[:], priv.Serialize())
	copy(st.BuyerBtcPub[:], priv.PubKey().SerializeCompressed())

	if err := e.cfg.Store.PutPeerID(id, sp.Peer); err != nil {
		return swapdb.SwapID{}, fmt.Errorf("xmrtaker: persisting peer id: %w", err)
	}
	if err := e.cfg.Store.PutPeerAddrs(sp.Peer, sp.PeerAddrs); err != nil {
		return swapdb.SwapID{}, fmt.Errorf("xmrtaker: persisting peer addrs: %w", err)
	}
	if err := e.persist(id, st); err != nil {
		return swapdb.SwapID{}, err
	}

	return id, nil
}

// Resume loads the persisted stage for id and drives it forward,
// stopping when it reaches a terminal stage or a suspension point whose
// event has not yet occurred. Invoking Resume twice in a row from the
// same persisted stage reaches the same successor both times, satisfying
// spec.md §4.3's idempotent-resume requirement: every step only reads
// already-persisted fields plus current chain/network state before
// writing the next stage, and persists before any irreversible effect.
func (e *Executor) Resume(ctx context.Context, id swapdb.SwapID) (swap.Stage, error) {
	rec, err := e.cfg.Store.GetSwapState(id)
	if err != nil {
		return nil, fmt.Errorf("xmrtaker: loading swap %s: %w", id, err)
	}

	stage, err := decodeStage(stageNameOf(rec), rec.Payload)
	if err != nil {
		return nil, err
	}

	return e.resumeLoop(ctx, id, stage)
}

// Cancel manually drives swap id toward cancellation, implementing
// spec.md §4.3's cancellable-state-set: BtcLocked, XmrLockProofReceived,
// XmrLocked, and EncSigSent require t_cancel to have matured unless
// force is set, and otherwise fail with swap.ErrTimelockNotYet;
// CancelTimelockExpired, BtcCancelled, and BtcRefunded are already past
// the point of no return, so Cancel just resumes them forward
// idempotently. Every other stage (Started, SwapSetupCompleted,
// BtcRedeemed, XmrRedeemed, BtcPunished, SafelyAborted) returns
// swap.ErrNotCancellable.
func (e *Executor) Cancel(ctx context.Context, id swapdb.SwapID, force bool) (swap.Stage, error) {
	rec, err := e.cfg.Store.GetSwapState(id)
	if err != nil {
		return nil, fmt.Errorf("xmrtaker: loading swap %s: %w", id, err)
	}
	stage, err := decodeStage(stageNameOf(rec), rec.Payload)
	if err != nil {
		return nil, err
	}

	lockedView := cancelEligibleLockedView(stage)
	switch stage.(type) {
	case *BtcLocked, *XmrLockProofReceived, *XmrLocked, *EncSigSent:
		expired, err := e.cancelTimelockExpired(ctx, lockedView)
		if err != nil {
			return nil, err
		}
		if !expired && !force {
			return nil, swap.ErrTimelockNotYet
		}
		if !expired {
			log.Warnf("swap %s: forcing cancel before t_cancel has matured", id)
		}

		next := cancelStageFrom(stage)
		if err := e.persist(id, next); err != nil {
			return nil, err
		}
		stage = next
	case *CancelTimelockExpired, *BtcCancelled, *BtcRefunded:
		// already cancelling or cancelled; just drive the existing
		// persisted stage forward.
	default:
		return nil, swap.ErrNotCancellable
	}

	return e.resumeLoop(ctx, id, stage)
}

// cancelEligibleLockedView returns the embedded *BtcLocked view of s if s
// is one of the pre-cancel stages Cancel may act on, else nil.
func cancelEligibleLockedView(s swap.Stage) *BtcLocked {
	switch cur := s.(type) {
	case *BtcLocked:
		return cur
	case *XmrLockProofReceived:
		return &cur.BtcLocked
	case *XmrLocked:
		return &cur.BtcLocked
	case *EncSigSent:
		return &cur.BtcLocked
	default:
		return nil
	}
}

// cancelStageFrom rebuilds s as a *CancelTimelockExpired, the same
// embedding chain doAwaitXmrProofOrCancelTimelock and
// doAwaitRedeemOrCancelTimelock construct when t_cancel matures on its
// own.
func cancelStageFrom(s swap.Stage) *CancelTimelockExpired {
	switch cur := s.(type) {
	case *BtcLocked:
		return &CancelTimelockExpired{XmrLocked: XmrLocked{XmrLockProofReceived: XmrLockProofReceived{BtcLocked: *cur}}}
	case *XmrLockProofReceived:
		return &CancelTimelockExpired{XmrLocked: XmrLocked{XmrLockProofReceived: *cur}}
	case *XmrLocked:
		return &CancelTimelockExpired{XmrLocked: *cur}
	case *EncSigSent:
		return &CancelTimelockExpired{XmrLocked: cur.XmrLocked}
	default:
		return nil
	}
}

func (e *Executor) resumeLoop(ctx context.Context, id swapdb.SwapID, stage swap.Stage) (swap.Stage, error) {
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
// protocol/xmrmaker's in swapdb.Store: several stage names (BtcLocked,
// CancelTimelockExpired, BtcCancelled, BtcRedeemed, BtcPunished,
// SafelyAborted, SwapSetupCompleted) are shared between the two state
// machines, so a bare name alone isn't enough for cmd/swapd to know which
// decoder to resume a persisted record with at startup.
const rolePrefix = "xmrtaker/"

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

// step executes exactly one transition, returning the next stage. If
// blocked is true, the awaited event (counterparty action, confirmation,
// timelock) has not yet happened and the caller should return to its own
// suspension point (spec.md §5) rather than busy-loop.
func (e *Executor) step(ctx context.Context, s swap.Stage) (next swap.Stage, blocked bool, err error) {
	switch cur := s.(type) {
	case *Started:
		return e.doSwapSetup(ctx, cur)
	case *SwapSetupCompleted:
		return e.doBroadcastLock(ctx, cur)
	case *BtcLocked:
		return e.doAwaitXmrProofOrCancelTimelock(ctx, cur)
	case *XmrLockProofReceived:
		return e.doAwaitXmrConfirmed(ctx, cur)
	case *XmrLocked:
		return e.doSendEncSig(ctx, cur)
	case *EncSigSent:
		return e.doAwaitRedeemOrCancelTimelock(ctx, cur)
	case *BtcRedeemed:
		return e.doClaimXmr(ctx, cur)
	case *CancelTimelockExpired:
		return e.doBroadcastCancel(ctx, cur)
	case *BtcCancelled:
		return e.doBroadcastRefund(ctx, cur)
	default:
		return nil, false, fmt.Errorf("xmrtaker: no transition defined for stage %s", s.Name())
	}
}

// doSwapSetup sends the swap_setup request and, on a valid response,
// assembles the lock output script — Started -> SwapSetupCompleted.
func (e *Executor) doSwapSetup(ctx context.Context, cur *Started) (swap.Stage, bool, error) {
	ownSpendPoint, err := cur.OwnKeyShare.SpendPoint()
	if err != nil {
		return nil, false, err
	}

	req := swapnet.SwapSetupRequest{
		SwapID:      cur.Params.SwapID,
		BtcAmount:   cur.Params.BtcAmount,
		BuyerBtcPub: cur.BuyerBtcPub,
		SB:          ownSpendPoint,
		VB:          cur.OwnKeyShare.View,
	}

	resp, err := e.cfg.Host.SendSwapSetup(ctx, string(cur.Peer), req)
	if err != nil {
		return nil, false, fmt.Errorf("xmrtaker: swap_setup: %w", err)
	}

	buyerPub, err := btcec.ParsePubKey(cur.BuyerBtcPub[:])
	if err != nil {
		return nil, false, err
	}
	sellerPub, err := btcec.ParsePubKey(resp.SellerBtcPub[:])
	if err != nil {
		return nil, false, fmt.Errorf("xmrtaker: parsing seller btc pubkey: %w", err)
	}

	redeemScript, lockOut, err := txbuilder.LockPkScript(buyerPub, sellerPub, resp.TCancel, int64(cur.Params.BtcAmount))
	if err != nil {
		return nil, false, err
	}

	ownViewPoint, err := cur.OwnKeyShare.ViewPoint()
	if err != nil {
		return nil, false, err
	}
	// Alice's spend share arrives only as a commitment point (her scalar
	// stays secret until redeem), her view share arrives as a cleartext
	// scalar (see net.SwapSetupResponse.VA) — project it to a point the
	// same way before combining, since the shared address only needs the
	// public keys.
	aliceViewPoint, err := (swap.MoneroKeyShare{View: resp.VA}).ViewPoint()
	if err != nil {
		return nil, false, fmt.Errorf("xmrtaker: projecting alice's view scalar: %w", err)
	}
	sharedSpendPoint, err := swap.CombinePoints(resp.SA, ownSpendPoint)
	if err != nil {
		return nil, false, err
	}
	sharedViewPoint, err := swap.CombinePoints(aliceViewPoint, ownViewPoint)
	if err != nil {
		return nil, false, err
	}
	sharedAddr, err := e.cfg.MoneroAddressFromKeys(ctx, sharedSpendPoint, sharedViewPoint)
	if err != nil {
		return nil, false, fmt.Errorf("xmrtaker: deriving shared monero address: %w", err)
	}

	next := &SwapSetupCompleted{
		Common:             cur.Common,
		SellerBtcPub:       resp.SellerBtcPub,
		SA:                 resp.SA,
		VA:                 resp.VA,
		TA:                 resp.TA,
		RedeemScript:       redeemScript,
		LockPkScript:       lockOut.PkScript,
		SellerPayoutScript: resp.SellerPayoutScript,
		SharedAddr:         sharedAddr,
		LockAmt:            int64(cur.Params.BtcAmount),
	}
	next.Params.XMRAmount = resp.XMRAmount
	next.Params.TCancel = resp.TCancel
	next.Params.TPunish = resp.TPunish

	return next, false, nil
}

// doBroadcastLock hands the lock output to the wallet for funding and
// signing, then broadcasts it and waits for confirmation —
// SwapSetupCompleted -> BtcLocked.
func (e *Executor) doBroadcastLock(ctx context.Context, cur *SwapSetupCompleted) (swap.Stage, bool, error) {
	funded, err := e.cfg.FundLockOutput(ctx, cur.LockPkScript, cur.LockAmt)
	if err != nil {
		return nil, false, fmt.Errorf("xmrtaker: funding lock output: %w", err)
	}

	res, err := recovery.BroadcastTx(ctx, e.cfg.BtcBackend, "lock", funded)
	if err != nil {
		return nil, false, err
	}

	lockHash := funded.TxHash()
	if res.TxHash != nil {
		lockHash = *res.TxHash
	}

	lockVout := lockOutputIndex(funded, cur.LockPkScript)

	status, err := e.cfg.BtcBackend.WatchForTx(ctx, &lockHash, 1)
	if err != nil {
		return nil, false, err
	}
	if !status.Confirmed {
		return nil, true, nil
	}

	next := &BtcLocked{
		SwapSetupCompleted: *cur,
		LockOutpoint:       wire.OutPoint{Hash: lockHash, Index: lockVout},
	}
	return next, false, nil
}

func lockOutputIndex(tx *wire.MsgTx, pkScript []byte) uint32 {
	for i, out := range tx.TxOut {
		if string(out.PkScript) == string(pkScript) {
			return uint32(i)
		}
	}
	return 0
}

// doAwaitXmrProofOrCancelTimelock races Alice's transfer_proof delivery
// against t_cancel — state 3's event race. transfer_proof arrives as an
// inbound push recorded by HandleTransferProof, so this step polls for
// it alongside checking the lock output's cancel-branch eligibility.
func (e *Executor) doAwaitXmrProofOrCancelTimelock(ctx context.Context, cur *BtcLocked) (swap.Stage, bool, error) {
	proof, ok := e.takeTransferProof(cur.Params.SwapID)
	if !ok {
		expired, err := e.cancelTimelockExpired(ctx, cur)
		if err != nil {
			return nil, false, err
		}
		if expired {
			return &CancelTimelockExpired{XmrLocked: XmrLocked{XmrLockProofReceived: XmrLockProofReceived{BtcLocked: *cur}}}, false, nil
		}
		return nil, true, nil
	}

	next := &XmrLockProofReceived{
		BtcLocked:    *cur,
		MoneroTxHash: proof.MoneroTxHash,
		MoneroTxKey:  proof.TxKey,
	}
	return next, false, nil
}

// doAwaitXmrConfirmed verifies and waits for the Monero lock to reach
// the configured confirmation depth — XmrLockProofReceived -> XmrLocked.
func (e *Executor) doAwaitXmrConfirmed(ctx context.Context, cur *XmrLockProofReceived) (swap.Stage, bool, error) {
	ok, err := e.cfg.XmrBackend.CheckTx(
		ctx, cur.MoneroTxHash, cur.MoneroTxKey, cur.SharedAddr,
		cur.Params.XMRAmount, cur.Params.MoneroConfirmations,
	)
	if err != nil {
		return nil, false, fmt.Errorf("xmrtaker: checking monero lock tx: %w", err)
	}
	if !ok {
		return nil, true, nil
	}

	return &XmrLocked{XmrLockProofReceived: *cur}, false, nil
}

// doSendEncSig signs the redeem sighash with Bob's own key, encrypts it
// against Alice's published adaptor statement T_a, and delivers it —
// XmrLocked -> EncSigSent.
func (e *Executor) doSendEncSig(ctx context.Context, cur *XmrLocked) (swap.Stage, bool, error) {
	buyerPriv, _ := btcec.PrivKeyFromBytes(cur.BuyerBtcPriv[:])

	// The redeem transaction pays Alice, not Bob (spec.md §4.2: "Alice
	// publishes redeem_tx"); Bob only cosigns it in encrypted form so she
	// can complete it with her spend scalar.
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

	statement, err := btcec.ParsePubKey(cur.TA[:])
	if err != nil {
		return nil, false, fmt.Errorf("xmrtaker: parsing Alice's adaptor statement: %w", err)
	}

	presig, err := adaptor.EncSign(buyerPriv, statement, hashArr)
	if err != nil {
		return nil, false, err
	}

	raw, err := encodePreSignature(presig)
	if err != nil {
		return nil, false, err
	}

	if err := e.cfg.Host.SendEncryptedSignature(ctx, string(cur.Peer), swapnet.EncryptedSignatureMessage{
		SwapID:       cur.Params.SwapID,
		PreSignature: raw,
	}); err != nil {
		return nil, false, fmt.Errorf("xmrtaker: sending encrypted signature: %w", err)
	}

	return &EncSigSent{XmrLocked: *cur, PreSignature: raw}, false, nil
}

// doAwaitRedeemOrCancelTimelock races Alice's redeem broadcast against
// t_cancel — state 6's event race (EncSigSent -> BtcRedeemed or
// CancelTimelockExpired). The redeem transaction's txid is deterministic
// from its non-witness fields, so it can be looked up before Bob has
// seen the witness that completes it.
func (e *Executor) doAwaitRedeemOrCancelTimelock(ctx context.Context, cur *EncSigSent) (swap.Stage, bool, error) {
	redeemTx, err := txbuilder.BuildRedeemTx(cur.LockOutpoint, cur.LockAmt, e.cfg.FeeAmt, cur.SellerPayoutScript)
	if err != nil {
		return nil, false, err
	}
	redeemTxid := redeemTx.TxHash()

	onChain, getErr := e.cfg.BtcBackend.GetRawTx(ctx, &redeemTxid)
	if getErr == nil && onChain != nil && len(onChain.TxIn) > 0 && len(onChain.TxIn[0].Witness) == 5 {
		presig, err := decodePreSignature(cur.PreSignature)
		if err != nil {
			return nil, false, err
		}
		buyerPub, err := btcec.ParsePubKey(cur.BuyerBtcPub[:])
		if err != nil {
			return nil, false, err
		}
		sellerPub, err := btcec.ParsePubKey(cur.SellerBtcPub[:])
		if err != nil {
			return nil, false, err
		}
		buyerSig, _, err := txbuilder.ParseMultiSigWitness(buyerPub, sellerPub, onChain.TxIn[0].Witness)
		if err != nil {
			return nil, false, err
		}
		statement, err := btcec.ParsePubKey(cur.TA[:])
		if err != nil {
			return nil, false, err
		}
		sa, err := recovery.ExtractMoneroScalar(presig, buyerSig, statement)
		if err != nil {
			return nil, false, err
		}
		var recoveredSA [32]byte
		copy(recoveredSA[:], sa.Bytes())
		return &BtcRedeemed{EncSigSent: *cur, RecoveredSA: recoveredSA}, false, nil
	}

	expired, err := e.cancelTimelockExpired(ctx, &cur.BtcLocked)
	if err != nil {
		return nil, false, err
	}
	if expired {
		return &CancelTimelockExpired{XmrLocked: cur.XmrLocked}, false, nil
	}

	return nil, true, nil
}

// doClaimXmr combines both Monero key shares and opens the shared
// wallet, completing the swap — BtcRedeemed -> XmrRedeemed (spec.md
// §4.4).
func (e *Executor) doClaimXmr(ctx context.Context, cur *BtcRedeemed) (swap.Stage, bool, error) {
	spend, err := swap.CombineSpend(cur.OwnKeyShare.Spend, cur.RecoveredSA)
	if err != nil {
		return nil, false, err
	}
	view, err := swap.CombineView(cur.OwnKeyShare.View, cur.VA)
	if err != nil {
		return nil, false, err
	}

	var spendB, viewB [32]byte
	copy(spendB[:], spend.Bytes())
	copy(viewB[:], view.Bytes())

	if err := e.cfg.XmrBackend.CreateFromKeys(ctx, spendB, viewB, e.cfg.MoneroRestoreHeight); err != nil {
		return nil, false, fmt.Errorf("xmrtaker: opening claimed monero wallet: %w", err)
	}

	return &XmrRedeemed{BtcRedeemed: *cur}, false, nil
}

// doBroadcastCancel broadcasts the cancel transaction spending the lock
// output's t_cancel branch using Bob's own lone signature (see
// txbuilder.LockRedeemScript) — CancelTimelockExpired -> BtcCancelled.
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

	buyerPriv, _ := btcec.PrivKeyFromBytes(cur.BuyerBtcPriv[:])
	sigHash, err := txbuilder.SigHash(skel.Tx, cur.LockPkScript, cur.LockAmt, cur.RedeemScript)
	if err != nil {
		return nil, false, err
	}
	var hashArr [32]byte
	copy(hashArr[:], sigHash)
	sig := ecdsa.Sign(buyerPriv, hashArr[:])
	skel.Tx.TxIn[0].Witness = txbuilder.CancelWitness(sig, true /* signerIsBuyer */, cur.RedeemScript)

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

// doBroadcastRefund broadcasts the refund transaction spending the
// cancel output's immediate buyer-only branch — BtcCancelled ->
// BtcRefunded. This is Bob's guaranteed unilateral recovery path
// (spec.md I3): it never waits on Alice.
func (e *Executor) doBroadcastRefund(ctx context.Context, cur *BtcCancelled) (swap.Stage, bool, error) {
	buyerPriv, _ := btcec.PrivKeyFromBytes(cur.BuyerBtcPriv[:])

	refundTx, err := txbuilder.BuildRefundTx(cur.CancelOutpoint, cur.CancelAmt, e.cfg.FeeAmt, cur.BuyerPayoutScript)
	if err != nil {
		return nil, false, err
	}

	sigHash, err := txbuilder.SigHash(refundTx, cur.CancelPkScript, cur.CancelAmt, cur.CancelRedeem)
	if err != nil {
		return nil, false, err
	}
	var hashArr [32]byte
	copy(hashArr[:], sigHash)
	sig := ecdsa.Sign(buyerPriv, hashArr[:])
	refundTx.TxIn[0].Witness = txbuilder.RefundWitness(sig, cur.CancelRedeem)

	if _, err := recovery.BroadcastTx(ctx, e.cfg.BtcBackend, "refund", refundTx); err != nil {
		return nil, false, err
	}

	return &BtcRefunded{BtcCancelled: *cur, RefundTxHash: refundTx.TxHash().String()}, false, nil
}

// cancelTimelockExpired reports whether the lock output's CSV(t_cancel)
// branch has matured, by checking the lock script's observed
// confirmation depth against t_cancel.
func (e *Executor) cancelTimelockExpired(ctx context.Context, cur *BtcLocked) (bool, error) {
	status, err := e.cfg.BtcBackend.StatusOfScript(ctx, cur.LockPkScript)
	if err != nil {
		return false, err
	}
	return status.Confirmed && status.Confirmations >= cur.Params.TCancel, nil
}
