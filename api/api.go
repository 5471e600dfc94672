package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/ledger"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/oracle"
	"github.com/vocdoni/fhe-ballot/types"
)

// maxBodySize bounds the size of the request bodies.
const maxBodySize = 1 << 20

// InputEncrypter encrypts inputs on behalf of a sender. It is only exposed
// when test inputs are enabled.
type InputEncrypter interface {
	EncryptInput(contract, sender common.Address, values ...uint32) ([]types.Handle, fhe.InputProof, error)
}

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the components served by the API.
type APIConfig struct {
	Host   string
	Port   int
	Ledger *ledger.Ledger
	Oracle *oracle.Oracle
	// Inputs enables the test inputs endpoint when set.
	Inputs InputEncrypter
}

// API type represents the API HTTP server.
type API struct {
	router *chi.Mux
	server *http.Server
	addr   net.Addr
	ledger *ledger.Ledger
	oracle *oracle.Oracle
	inputs InputEncrypter
}

// New creates a new API instance with the given configuration and starts
// the HTTP server in background.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Ledger == nil || conf.Oracle == nil {
		return nil, fmt.Errorf("missing ledger or oracle instance")
	}
	a := &API{
		ledger: conf.Ledger,
		oracle: conf.Oracle,
		inputs: conf.Inputs,
	}

	// Initialize router
	a.initRouter()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	a.addr = ln.Addr()
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "address", a.addr.String())
		if err := a.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorw(err, "API server failed")
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on.
func (a *API) Addr() net.Addr {
	return a.addr
}

// Shutdown gracefully stops the HTTP server.
func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Withf("%s %s", r.Method, r.URL.Path).Write(w)
	})
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", LedgerEndpoint, "method", "GET")
	a.router.Get(LedgerEndpoint, a.ledgerInfo)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", CandidateTotalEndpoint, "method", "GET")
	a.router.Get(CandidateTotalEndpoint, a.candidateTotal)
	log.Infow("register handler", "endpoint", VoterChoiceEndpoint, "method", "GET")
	a.router.Get(VoterChoiceEndpoint, a.voterChoice)
	log.Infow("register handler", "endpoint", DecryptEndpoint, "method", "POST")
	a.router.Post(DecryptEndpoint, a.userDecrypt)
	if a.inputs != nil {
		log.Warnw("test inputs endpoint enabled, never use it in production", "endpoint", InputsEndpoint)
		a.router.Post(InputsEndpoint, a.encryptInputs)
	}
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.Use(middleware.RequestSize(maxBodySize))

	// Register the API handlers
	a.registerHandlers()
}
