package rpc

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendledger/core"
	"lendledger/observability/metrics"
	"lendledger/rpc/middleware"
)

// GovSecretHeader carries the shared secret authenticating governance
// requests.
const GovSecretHeader = "X-Lendledger-Gov-Secret"

// Server exposes the ledger's public operations over HTTP.
type Server struct {
	node         *core.Node
	logger       *slog.Logger
	metrics      *metrics.LendingMetrics
	govSecret    string
	flashClient  *http.Client
	requestLimit int64
}

// ServerConfig carries the optional server knobs.
type ServerConfig struct {
	Logger      *slog.Logger
	GovSecret   string
	FlashClient *http.Client
}

const defaultRequestLimit = 1 << 20 // 1 MiB

// NewServer wires the HTTP surface for a node.
func NewServer(node *core.Node, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	flashClient := cfg.FlashClient
	if flashClient == nil {
		flashClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Server{
		node:         node,
		logger:       logger,
		metrics:      metrics.Lending(),
		govSecret:    cfg.GovSecret,
		flashClient:  flashClient,
		requestLimit: defaultRequestLimit,
	}
}

// Router builds the chi route tree.
func (s *Server) Router(limit middleware.RateLimit) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRateLimiter(limit).Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/lending", func(r chi.Router) {
		r.Post("/deposit", s.deposit)
		r.Post("/withdraw", s.withdraw)
		r.Post("/borrow", s.borrow)
		r.Post("/repay", s.repay)
		r.Post("/liquidate", s.liquidate)
		r.Post("/flash", s.flashBorrow)
		r.Get("/positions/{account}/{asset}", s.getPosition)
		r.Get("/liquidity/{asset}", s.getLiquidity)
		r.Get("/available/{account}/{asset}", s.getAvailable)
		r.Get("/liquidation/{account}/{asset}", s.getLiquidationInfo)
		r.Get("/params", s.getParams)
		r.Get("/events", s.getEvents)
	})

	r.Route("/v1/gov", func(r chi.Router) {
		r.Use(s.requireGovSecret)
		r.Post("/params", s.setParams)
		r.Post("/pause", s.setPaused)
		r.Post("/assets", s.addAsset)
		r.Post("/fund", s.fundAccount)
	})

	return r
}

// requireGovSecret gates the governance surface behind the shared secret.
// The per-principal authorization decision stays with the node's gate.
func (s *Server) requireGovSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.TrimSpace(s.govSecret) == "" {
			http.Error(w, "governance surface disabled", http.StatusForbidden)
			return
		}
		provided := req.Header.Get(GovSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.govSecret)) != 1 {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, req)
	})
}
