package swap

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/athanorlabs/btcxmrswap/internal/clsag"
	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// Params are the swap-wide parameters fixed during setup (spec.md §3) and
// carried unchanged through every stage on both sides.
type Params struct {
	SwapID swapdb.SwapID

	BtcAmount uint64
	XMRAmount uint64

	TCancel             uint32
	TPunish             uint32
	MoneroConfirmations uint32
}

// Role identifies which of the two swap participants a given executor
// instance plays.
type Role string

const (
	RoleXMRTaker Role = "xmrtaker" // Bob: pays BTC, receives XMR
	RoleXMRMaker Role = "xmrmaker" // Alice: pays XMR, receives BTC
)

var (
	// ErrWrongStage is returned when the executor is asked to advance a
	// swap whose persisted stage does not match what the caller expected,
	// guarding against double-advancing a swap from two goroutines.
	ErrWrongStage = errors.New("swap: unexpected current stage")

	// ErrNotCancellable is returned by Cancel when the swap's persisted
	// state is one of the non-refundable states spec.md §4.3 lists
	// (Started, SwapSetupCompleted, BtcRedeemed, XmrRedeemed, BtcPunished,
	// SafelyAborted).
	ErrNotCancellable = errors.New("swap: not cancellable from current state")

	// ErrTimelockNotYet is the user-visible "please try again later"
	// failure spec.md §7 requires when cancel is attempted before
	// t_cancel has elapsed.
	ErrTimelockNotYet = errors.New("swap: cancel timelock has not expired yet")
)

// MoneroKeyShare is one party's half of the shared Monero spend/view
// keypair: scalars s_x (spend share) and v_x (view share), spec.md §3.
// Stored as raw canonical scalar bytes since that is all the wire/stage
// encodings need; helpers below convert to/from edwards25519.Scalar for
// arithmetic.
type MoneroKeyShare struct {
	Spend [32]byte // s_x, canonical little-endian Ed25519 scalar
	View  [32]byte // v_x
}

// SpendScalar decodes Spend into an Ed25519 scalar.
func (k MoneroKeyShare) SpendScalar() (*edwards25519.Scalar, error) {
	return clsag.DecodeScalar(k.Spend[:])
}

// ViewScalar decodes View into an Ed25519 scalar.
func (k MoneroKeyShare) ViewScalar() (*edwards25519.Scalar, error) {
	return clsag.DecodeScalar(k.View[:])
}

// SpendPoint returns S_x = s_x·G, the public commitment to this party's
// spend-key share exchanged during swap setup.
func (k MoneroKeyShare) SpendPoint() ([32]byte, error) {
	s, err := k.SpendScalar()
	if err != nil {
		return [32]byte{}, err
	}
	return pointBytes(clsag.ScalarBasePoint(s)), nil
}

// ViewPoint returns V_x = v_x·G, the public commitment to this party's
// view-key share exchanged during swap setup.
func (k MoneroKeyShare) ViewPoint() ([32]byte, error) {
	v, err := k.ViewScalar()
	if err != nil {
		return [32]byte{}, err
	}
	return pointBytes(clsag.ScalarBasePoint(v)), nil
}

// NewMoneroKeyShare samples a fresh uniform (s_x, v_x) pair, matching
// spec.md §3's "Ed25519 scalars (Monero view/spend shares)".
func NewMoneroKeyShare() (MoneroKeyShare, error) {
	s, err := clsag.RandomScalar()
	if err != nil {
		return MoneroKeyShare{}, fmt.Errorf("swap: sampling spend share: %w", err)
	}
	v, err := clsag.RandomScalar()
	if err != nil {
		return MoneroKeyShare{}, fmt.Errorf("swap: sampling view share: %w", err)
	}

	var ks MoneroKeyShare
	copy(ks.Spend[:], s.Bytes())
	copy(ks.View[:], v.Bytes())
	return ks, nil
}

// CombineSpend computes the full Monero spend scalar s = s_a + s_b from
// both parties' shares, once both are known (spec.md §4.4 — only
// reachable after the counterparty's share has been extracted via
// recovery.ExtractMoneroScalar or exchanged cooperatively).
func CombineSpend(mine, theirs [32]byte) (*edwards25519.Scalar, error) {
	a, err := clsag.DecodeScalar(mine[:])
	if err != nil {
		return nil, fmt.Errorf("swap: decoding own spend share: %w", err)
	}
	b, err := clsag.DecodeScalar(theirs[:])
	if err != nil {
		return nil, fmt.Errorf("swap: decoding counterparty spend share: %w", err)
	}
	return new(edwards25519.Scalar).Add(a, b), nil
}

// CombineView computes the shared view scalar v = v_a + v_b.
func CombineView(mine, theirs [32]byte) (*edwards25519.Scalar, error) {
	return CombineSpend(mine, theirs)
}

// CombinePoints adds two Ed25519 public commitment points, used to derive
// the shared Monero spend/view public keys (S = S_a+S_b, V = V_a+V_b) from
// each side's published share — the step that lets both parties agree on
// the same destination address without either learning the other's
// secret scalar. Monero address encoding itself (network byte, base58
// block format, checksum) is left to the external wallet collaborator
// (spec.md's "address derivation" non-goal).
func CombinePoints(a, b [32]byte) ([32]byte, error) {
	pa, err := clsag.DecodePoint(a[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("swap: decoding first point: %w", err)
	}
	pb, err := clsag.DecodePoint(b[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("swap: decoding second point: %w", err)
	}
	return pointBytes(new(edwards25519.Point).Add(pa, pb)), nil
}

func pointBytes(p *edwards25519.Point) [32]byte {
	var out [32]byte
	copy(out[:], p.Bytes())
	return out
}
