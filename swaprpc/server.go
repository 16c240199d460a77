package swaprpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	macaroon "gopkg.in/macaroon.v2"

	"github.com/athanorlabs/btcxmrswap/protocol/xmrmaker"
	"github.com/athanorlabs/btcxmrswap/protocol/xmrtaker"
	"github.com/athanorlabs/btcxmrswap/swapdb"
	"github.com/athanorlabs/btcxmrswap/swaplog"
)

var log = swaplog.SubLogger("SRPC")

// Config bundles a Server's collaborators. Either XMRTaker or XMRMaker (or
// both) may be nil: a daemon instance plays one or both roles depending on
// which executors swapcfg wired it with, mirroring how a single lnd
// instance may or may not run particular subsystems depending on its
// config.
type Config struct {
	Address  string
	XMRTaker *xmrtaker.Executor
	XMRMaker *xmrmaker.Executor
	Store    swapdb.Store

	// Macaroon authenticates every request when non-nil. Leaving it nil
	// disables auth entirely, matching swapcfg.Config.NoMacaroons.
	Macaroon *macaroon.Macaroon
}

// Server is the control-plane HTTP listener: a single gorilla/mux router
// serving gorilla/rpc's JSON-RPC 2.0 codec at "/", CORS-wrapped via
// gorilla/handlers, optionally macaroon-gated.
type Server struct {
	ctx        context.Context
	cancel     context.CancelFunc
	listener   net.Listener
	httpServer *http.Server
}

// NewServer builds and binds a Server without yet accepting connections;
// call Serve to run it.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	rpcServer := gorillarpc.NewServer()
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json")

	svc := &swapService{
		xmrTaker: cfg.XMRTaker,
		xmrMaker: cfg.XMRMaker,
		store:    cfg.Store,
	}
	if err := rpcServer.RegisterService(svc, "swap"); err != nil {
		return nil, fmt.Errorf("swaprpc: registering service: %w", err)
	}

	router := mux.NewRouter()
	router.Handle("/", rpcServer)
	router.HandleFunc("/ws", stageStreamHandler(cfg.Store))

	var handler http.Handler = router
	if cfg.Macaroon != nil {
		handler = macaroonMiddleware(cfg.Macaroon, router)
	}

	headersOK := handlers.AllowedHeaders([]string{"content-type", macaroonHeader})
	methodsOK := handlers.AllowedMethods([]string{http.MethodPost, http.MethodOptions})
	originsOK := handlers.AllowedOrigins([]string{"*"})

	serverCtx, cancel := context.WithCancel(ctx)

	lc := net.ListenConfig{}
	ln, err := lc.Listen(serverCtx, "tcp", cfg.Address)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("swaprpc: listening on %s: %w", cfg.Address, err)
	}

	httpServer := &http.Server{
		Addr:              ln.Addr().String(),
		ReadHeaderTimeout: time.Second,
		Handler:           handlers.CORS(headersOK, methodsOK, originsOK)(handler),
		BaseContext: func(net.Listener) context.Context {
			return serverCtx
		},
	}

	return &Server{
		ctx:        serverCtx,
		cancel:     cancel,
		listener:   ln,
		httpServer: httpServer,
	}, nil
}

// Addr returns the bound listen address, resolved from any ":0" the
// caller configured.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks accepting connections until Stop is called or the
// context passed to NewServer is cancelled.
func (s *Server) Serve() error {
	log.Infof("swaprpc listening on %s", s.Addr())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-s.ctx.Done():
		shutdownErr := s.httpServer.Shutdown(context.Background())
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
			log.Warnf("swaprpc: shutdown error: %s", shutdownErr)
		}
		return s.ctx.Err()
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("swaprpc: server shut down")
			return nil
		}
		return err
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.cancel()
	return s.httpServer.Shutdown(context.Background())
}
