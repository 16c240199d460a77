package directnet

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	swapnet "github.com/athanorlabs/btcxmrswap/net"
	"github.com/athanorlabs/btcxmrswap/swaplog"
)

var log = swaplog.SubLogger("PNET")

const (
	pathSwapSetup           = "/swap_setup"
	pathTransferProof       = "/transfer_proof"
	pathEncryptedSignature  = "/encrypted_signature"
	pathCooperativeRedeem   = "/cooperative_xmr_redeem_after_punish"
)

// Server dispatches inbound CBOR requests to a swapnet.Handler, one
// gorilla/mux route per protocol of spec.md §6 — the inbound half of
// Host, run by cmd/swapd alongside (but independent from) swaprpc's
// control-plane server.
type Server struct {
	router  *mux.Router
	handler swapnet.Handler
}

// NewServer builds a Server routing requests to handler. handler is
// typically a small dispatcher composing the xmrtaker and xmrmaker
// Executors this daemon runs, since neither alone implements every
// net.Handler method.
func NewServer(handler swapnet.Handler) *Server {
	s := &Server{router: mux.NewRouter(), handler: handler}
	s.router.HandleFunc(pathSwapSetup, s.handleSwapSetup).Methods(http.MethodPost)
	s.router.HandleFunc(pathTransferProof, s.handleTransferProof).Methods(http.MethodPost)
	s.router.HandleFunc(pathEncryptedSignature, s.handleEncryptedSignature).Methods(http.MethodPost)
	s.router.HandleFunc(pathCooperativeRedeem, s.handleCooperativeRedeem).Methods(http.MethodPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func peerOf(r *http.Request) string {
	return r.Header.Get(peerIDHeader)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func writeCBOR(w http.ResponseWriter, msg swapnet.Message) {
	raw, err := swapnet.Encode(msg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	_, _ = w.Write(raw)
}

func (s *Server) handleSwapSetup(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req swapnet.SwapSetupRequest
	if err := swapnet.Decode(raw, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := s.handler.HandleSwapSetup(r.Context(), peerOf(r), req)
	if err != nil {
		log.Warnf("swap_setup from %s: %s", peerOf(r), err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeCBOR(w, *resp)
}

func (s *Server) handleTransferProof(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var msg swapnet.TransferProofMessage
	if err := swapnet.Decode(raw, &msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.handler.HandleTransferProof(r.Context(), peerOf(r), msg); err != nil {
		log.Warnf("transfer_proof from %s: %s", peerOf(r), err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleEncryptedSignature(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var msg swapnet.EncryptedSignatureMessage
	if err := swapnet.Decode(raw, &msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.handler.HandleEncryptedSignature(r.Context(), peerOf(r), msg); err != nil {
		log.Warnf("encrypted_signature from %s: %s", peerOf(r), err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCooperativeRedeem(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req swapnet.CooperativeRedeemRequest
	if err := swapnet.Decode(raw, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := s.handler.HandleCooperativeRedeemRequest(r.Context(), peerOf(r), req)
	if err != nil {
		log.Warnf("cooperative_xmr_redeem_after_punish from %s: %s", peerOf(r), err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeCBOR(w, *resp)
}
