package net

import "context"

// Host is the transport collaborator the protocol executor sends outbound
// peer messages through. Concrete implementations (libp2p, a test double,
// a direct-dial TCP transport) are injected; this module defines no
// transport of its own, per spec.md §1's explicit out-of-scope listing.
// The method set mirrors the four protocols of spec.md §6 one-for-one.
type Host interface {
	SendSwapSetup(ctx context.Context, peer string, req SwapSetupRequest) (*SwapSetupResponse, error)
	SendTransferProof(ctx context.Context, peer string, msg TransferProofMessage) error
	SendEncryptedSignature(ctx context.Context, peer string, msg EncryptedSignatureMessage) error
	SendCooperativeRedeemRequest(ctx context.Context, peer string, req CooperativeRedeemRequest) (*CooperativeRedeemResponse, error)
}

// Handler is implemented by whichever side of the swap is receiving
// inbound requests (Alice receives SwapSetup and CooperativeRedeemRequest;
// Bob receives TransferProof and, implicitly, nothing else needs a
// response). Mirrors the Handler-returns-(response,error) shape
// mewmix-atomic-swap's mockMakerHandler/mockTakerHandler use for inbound
// dispatch.
type Handler interface {
	HandleSwapSetup(ctx context.Context, peer string, req SwapSetupRequest) (*SwapSetupResponse, error)
	HandleTransferProof(ctx context.Context, peer string, msg TransferProofMessage) error
	HandleEncryptedSignature(ctx context.Context, peer string, msg EncryptedSignatureMessage) error
	HandleCooperativeRedeemRequest(ctx context.Context, peer string, req CooperativeRedeemRequest) (*CooperativeRedeemResponse, error)
}
