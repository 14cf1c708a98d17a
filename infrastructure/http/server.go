package http

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

//go:embed assets/*
var assets embed.FS

var ShutdownTimeout = 2 * time.Second

// OperatorHeader names the operator acting on an API request.
const OperatorHeader = "X-Operator-ID"

// DeskOptions are the request-independent settings of the desk and API.
type DeskOptions struct {
	DefaultOperatorID int64
	PageSize          int
	AssetBaseURL      string
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	DB          *sqlite.DB
	QueryCache  *cache.QueryCache
	ColumnPrefs *cache.ColumnPrefsCache
	Audit       *audit.Service
	Options     DeskOptions
}

// NewServer creates a new http server.
func NewServer(addr string, db *sqlite.DB, qc *cache.QueryCache, prefs *cache.ColumnPrefsCache, auditSvc *audit.Service, opts DeskOptions) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = sharedcontext.DefaultPageSize
	}
	s := &Server{
		Addr:        addr,
		router:      chi.NewRouter(),
		DB:          db,
		QueryCache:  qc,
		ColumnPrefs: prefs,
		Audit:       auditSvc,
		Options:     opts,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.OperatorMiddleware)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/desk/documents", http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Serve assets from embedded FS.
	var assetsFS fs.FS = assets
	if sub, err := fs.Sub(assets, "assets"); err == nil {
		assetsFS = sub
	} else {
		slog.Error("assets subfs init failed; serving fallback fs", slog.Any("err", err))
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	s.router.Route("/api", func(r chi.Router) {
		s.RegisterAPIRoutes(r)
	})
	s.router.Route("/desk", func(r chi.Router) {
		r.Use(s.CSRFMiddleware)
		s.RegisterDeskRoutes(r)
	})

	s.server.Handler = s.router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// OperatorMiddleware puts the acting operator and the asset base URL into the request
// context. API callers name themselves with X-Operator-ID; everyone else acts as the
// configured default operator.
func (s *Server) OperatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := sharedcontext.Operator{ID: s.Options.DefaultOperatorID}
		if raw := strings.TrimSpace(r.Header.Get(OperatorHeader)); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "invalid operator id", http.StatusBadRequest)
				return
			}
			op.ID = id
		}
		ctx := sharedcontext.NewContextWithOperator(r.Context(), op)
		ctx = sharedcontext.NewContextWithAssetBaseURL(ctx, s.Options.AssetBaseURL)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

// ListenAddr returns the bound address once started.
func (s *Server) ListenAddr() string {
	if s.ln == nil {
		return s.Addr
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
