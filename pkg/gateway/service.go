package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/config"
	"chanfinder/pkg/moderation"
)

const (
	defaultHealthHost = "0.0.0.0"
	defaultHealthPort = 18790

	catalogCheckInterval = 30 * time.Second
)

// CatalogChecker reads the catalog strictly so readiness reflects storage
// health. *catalog.Store satisfies it.
type CatalogChecker interface {
	Load(ctx context.Context) (catalog.Catalog, error)
}

// Deps are the components the gateway runs and reports on.
type Deps struct {
	Handler    channel.Handler
	Catalog    CatalogChecker
	Events     *bus.MessageBus
	Moderation *moderation.State
	Adapters   []channel.Adapter
}

type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	deps     Deps
	stats    *stats
	listener net.Listener

	mu              sync.RWMutex
	startedAt       time.Time
	catalogLastOKAt time.Time
	catalogLastErr  string
	catalogEntries  int
	channelStates   map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status          string                  `json:"status"`
	UptimeSeconds   int64                   `json:"uptime_seconds"`
	CatalogLastOKAt string                  `json:"catalog_last_ok_at,omitempty"`
	CatalogLastErr  string                  `json:"catalog_last_error,omitempty"`
	CatalogEntries  int                     `json:"catalog_entries"`
	Channels        map[string]channelState `json:"channels"`
}

type detailedStatus struct {
	statusResponse
	ModeratedChats []string `json:"moderated_chats"`
	statsSnapshot
}

func NewService(cfg *config.Config, deps Deps, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if len(deps.Adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(deps.Adapters))
	for _, adapter := range deps.Adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		deps:          deps,
		stats:         newStats(),
		channelStates: channelStates,
	}, nil
}

// Run serves the status endpoints and every adapter until ctx ends or one of
// them fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkCatalog(ctx); err != nil {
		// Routing still works on an empty catalog; readiness reports it.
		s.log.Warn("Catalog check failed at startup", "error", err)
	}

	listener, err := s.listen()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.serveStatus(ctx, listener)
	})

	g.Go(func() error {
		ticker := time.NewTicker(catalogCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				_ = s.checkCatalog(ctx)
			}
		}
	})

	if s.deps.Events != nil {
		events, unsubscribe := s.deps.Events.SubscribeEvents(ctx, 0)
		g.Go(func() error {
			defer unsubscribe()
			s.stats.collect(ctx, events)
			return nil
		})
	}

	for _, adapter := range s.deps.Adapters {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		g.Go(func() error {
			err := adapter.Run(ctx, s.deps.Handler)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Service) listen() (net.Listener, error) {
	if s.listener != nil {
		return s.listener, nil
	}

	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultHealthPort
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("start status server: %w", err)
	}
	return listener, nil
}

func (s *Service) serveStatus(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	s.log.Info("Gateway status server started", "address", listener.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve status: %w", err)
	}
}

// Handler returns the status routes.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/statusz", s.handleStatus)

	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.currentStatus("ok"))
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respond(w, statusCode, s.currentStatus(status))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "ready"
	if !s.isReady() {
		status = "not_ready"
	}

	moderated := []string{}
	if s.deps.Moderation != nil {
		moderated = s.deps.Moderation.Snapshot()
		slices.Sort(moderated)
	}

	s.respond(w, http.StatusOK, detailedStatus{
		statusResponse: s.currentStatus(status),
		ModeratedChats: moderated,
		statsSnapshot:  s.stats.snapshot(),
	})
}

func (s *Service) respond(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	catalogLastOK := ""
	if !s.catalogLastOKAt.IsZero() {
		catalogLastOK = s.catalogLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:          status,
		UptimeSeconds:   uptime,
		CatalogLastOKAt: catalogLastOK,
		CatalogLastErr:  s.catalogLastErr,
		CatalogEntries:  s.catalogEntries,
		Channels:        channels,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anyRunning := false
	for _, state := range s.channelStates {
		if state.Running {
			anyRunning = true
			break
		}
	}

	if !anyRunning {
		return false
	}

	if s.catalogLastOKAt.IsZero() {
		return false
	}

	return s.catalogLastErr == ""
}

func (s *Service) checkCatalog(ctx context.Context) error {
	cat, err := s.deps.Catalog.Load(ctx)
	if err != nil {
		s.mu.Lock()
		s.catalogLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("catalog check failed: %w", err)
	}

	s.mu.Lock()
	s.catalogLastErr = ""
	s.catalogLastOKAt = time.Now().UTC()
	s.catalogEntries = len(cat)
	s.mu.Unlock()

	return nil
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
