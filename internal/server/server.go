// Package server exposes the flows JSON API and the htmx admin page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/carmatch/flowadmin/internal/flowview"
)

const (
	DefaultAPIPath = "/api/n8n/flows/"

	shutdownTimeout = 10 * time.Second
)

// FlowService is the backend the handlers call. backend.Service implements it.
type FlowService interface {
	flowview.Backend
	LastExecutionStatus(ctx context.Context, id flows.ID) (flows.ExecutionStatus, error)
}

type Options struct {
	APIPath   string
	AdminPath string
	Title     string
	Logger    *slog.Logger
	Location  *time.Location
	// ViewOptions are passed to the admin page view.
	ViewOptions []flowview.Option
}

type Server struct {
	service  FlowService
	view     *flowview.View
	renderer flowview.Renderer
	router   *mux.Router
	log      *slog.Logger
	title    string
	apiPath  string
}

func New(service FlowService, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	viewOpts := append([]flowview.Option{flowview.WithLogger(log), flowview.WithLocation(loc)}, opts.ViewOptions...)

	s := &Server{
		service:  service,
		view:     flowview.New(service, viewOpts...),
		renderer: flowview.Renderer{AdminPath: opts.AdminPath},
		router:   mux.NewRouter(),
		log:      log,
		title:    opts.Title,
		apiPath:  withSlashes(opts.APIPath, DefaultAPIPath),
	}
	s.setupRoutes()
	return s
}

func withSlashes(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (s *Server) Handler() http.Handler { return s.router }

// View is the admin page state shared by every request.
func (s *Server) View() *flowview.View { return s.view }

func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests, csrfProtect)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix(strings.TrimSuffix(s.apiPath, "/")).Subrouter()
	api.HandleFunc("/", s.handleListFlows).Methods(http.MethodGet)
	api.HandleFunc("/{id}/toggle/", s.handleToggleFlow).Methods(http.MethodPost)
	api.HandleFunc("/{id}/run-now/", s.handleRunNow).Methods(http.MethodPost)
	api.HandleFunc("/{id}/last-execution/", s.handleLastExecution).Methods(http.MethodGet)

	adminPath := withSlashes(s.renderer.AdminPath, flowview.DefaultAdminPath)
	admin := s.router.PathPrefix(strings.TrimSuffix(adminPath, "/")).Subrouter()
	admin.HandleFunc("/", s.handleAdminPage).Methods(http.MethodGet)
	admin.HandleFunc("/status/", s.handleAdminStatus).Methods(http.MethodGet)
	admin.HandleFunc("/reload/", s.handleAdminReload).Methods(http.MethodPost)
	admin.HandleFunc("/{id}/toggle/", s.handleAdminToggle).Methods(http.MethodPost)
	admin.HandleFunc("/{id}/run-now/", s.handleAdminRunNow).Methods(http.MethodPost)
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Run-now waits for the webhook, which may take up to 90s.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func flowID(r *http.Request) flows.ID {
	return flows.ID(mux.Vars(r)["id"])
}
