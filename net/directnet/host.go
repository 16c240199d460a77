// Package directnet is a minimal, same-LAN implementation of net.Host and
// net.Handler: a plain HTTP server and client exchanging the CBOR-encoded
// messages net.Encode/net.Decode already define, dispatched through a
// gorilla/mux router the way swaprpc's control plane is. It exists so
// cmd/swapd has something concrete to run; spec.md §1's explicit
// non-goal ("who dials whom, NAT traversal, multiplexing") still applies
// to the parts this package does not attempt — peer discovery, relaying,
// hole punching, and transport security beyond whatever the operator's
// network provides. A production deployment swaps this out for a real
// libp2p host by implementing the same two interfaces; nothing in
// protocol/xmrtaker or protocol/xmrmaker depends on this package.
package directnet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	swapnet "github.com/athanorlabs/btcxmrswap/net"
	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// postMaxElapsedTime bounds how long post retries a request that fails
// for a reason that might clear up on its own (the counterparty daemon
// restarting, a blip in the operator's network) before giving up and
// returning the error to the caller.
const postMaxElapsedTime = 30 * time.Second

// peerIDHeader carries the sender's own PeerID so the receiving Handler
// can identify its caller; directnet has no cryptographic peer identity
// of its own (see the package doc's scope note), so this is advisory, not
// authenticated.
const peerIDHeader = "X-Swap-Peer-Id"

// Host dials peers by resolving their swapdb.PeerID to a Multiaddr via
// store and POSTing a CBOR-encoded message to the matching path on the
// resulting address.
type Host struct {
	self   swapdb.PeerID
	store  swapdb.Store
	client *http.Client
}

// NewHost builds a Host that announces self as the sender identity on
// every outbound request and resolves peer addresses through store.
func NewHost(self swapdb.PeerID, store swapdb.Store) *Host {
	return &Host{self: self, store: store, client: &http.Client{}}
}

func (h *Host) dialAddr(peer swapdb.PeerID) (string, error) {
	addrs, err := h.store.GetPeerAddrs(peer)
	if errors.Is(err, swapdb.ErrNotFound) {
		return "", fmt.Errorf("directnet: no known address for peer %s: %w", peer, err)
	}
	if err != nil {
		return "", fmt.Errorf("directnet: resolving peer %s: %w", peer, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("directnet: no known address for peer %s", peer)
	}
	return string(addrs[0]), nil
}

func post(ctx context.Context, h *Host, peer swapdb.PeerID, path string, msg swapnet.Message) ([]byte, error) {
	addr, err := h.dialAddr(peer)
	if err != nil {
		return nil, err
	}
	body, err := swapnet.Encode(msg)
	if err != nil {
		return nil, err
	}

	var raw []byte
	sendOnce := func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+path, bytes.NewReader(body))
		if rerr != nil {
			return backoff.Permanent(rerr)
		}
		req.Header.Set("Content-Type", "application/cbor")
		req.Header.Set(peerIDHeader, string(h.self))

		resp, derr := h.client.Do(req)
		if derr != nil {
			// Dial/transport failures are the ones worth retrying: the
			// counterparty daemon may simply not be listening yet.
			return fmt.Errorf("directnet: dialing %s: %w", addr, derr)
		}
		defer resp.Body.Close()

		respBody, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return fmt.Errorf("directnet: reading response from %s: %w", addr, rerr)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("directnet: %s replied %s: %s", addr, resp.Status, respBody))
		}
		raw = respBody
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = postMaxElapsedTime
	policy := backoff.WithContext(expBackoff, ctx)
	if err := backoff.Retry(sendOnce, policy); err != nil {
		return nil, err
	}
	return raw, nil
}

func (h *Host) SendSwapSetup(ctx context.Context, peer string, req swapnet.SwapSetupRequest) (*swapnet.SwapSetupResponse, error) {
	raw, err := post(ctx, h, swapdb.PeerID(peer), pathSwapSetup, req)
	if err != nil {
		return nil, err
	}
	var resp swapnet.SwapSetupResponse
	if err := swapnet.Decode(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *Host) SendTransferProof(ctx context.Context, peer string, msg swapnet.TransferProofMessage) error {
	_, err := post(ctx, h, swapdb.PeerID(peer), pathTransferProof, msg)
	return err
}

func (h *Host) SendEncryptedSignature(ctx context.Context, peer string, msg swapnet.EncryptedSignatureMessage) error {
	_, err := post(ctx, h, swapdb.PeerID(peer), pathEncryptedSignature, msg)
	return err
}

func (h *Host) SendCooperativeRedeemRequest(ctx context.Context, peer string, req swapnet.CooperativeRedeemRequest) (*swapnet.CooperativeRedeemResponse, error) {
	raw, err := post(ctx, h, swapdb.PeerID(peer), pathCooperativeRedeem, req)
	if err != nil {
		return nil, err
	}
	var resp swapnet.CooperativeRedeemResponse
	if err := swapnet.Decode(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
