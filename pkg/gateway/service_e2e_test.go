package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/config"
	"chanfinder/pkg/match"
	"chanfinder/pkg/moderation"
	"chanfinder/pkg/router"
)

func echoHandler(_ context.Context, _ channel.RoleChecker, msg bus.InboundMessage) (bus.OutboundMessage, error) {
	return bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: "echo:" + msg.Content}, nil
}

type scriptedAdapter struct {
	name    string
	roles   channel.RoleChecker
	inbound []bus.InboundMessage

	mu       sync.Mutex
	outbound []bus.OutboundMessage
	done     chan struct{}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, inbound := range a.inbound {
		outbound, err := handler(ctx, a.roles, inbound)
		if err != nil {
			return err
		}

		a.mu.Lock()
		a.outbound = append(a.outbound, outbound)
		a.mu.Unlock()
	}

	close(a.done)

	<-ctx.Done()
	return nil
}

func (a *scriptedAdapter) outbounds() []bus.OutboundMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	outbound := make([]bus.OutboundMessage, len(a.outbound))
	copy(outbound, a.outbound)
	return outbound
}

type failingAdapter struct{}

func (failingAdapter) Name() string { return "broken" }

func (failingAdapter) Run(context.Context, channel.Handler) error {
	return fmt.Errorf("token rejected")
}

type toggledCatalog struct {
	mu  sync.Mutex
	err error
}

func (c *toggledCatalog) Load(context.Context) (catalog.Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return catalog.Catalog{}, nil
}

func (c *toggledCatalog) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Gateway = config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)}
	return &cfg
}

func TestGatewayServiceRunE2ERoutesThroughRouter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := slog.New(slog.DiscardHandler)
	store, err := catalog.Open(catalog.BackendFile, filepath.Join(t.TempDir(), "filters.json"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Upsert(ctx, "one piece", catalog.NewDefinition("https://t.me/onepiece", nil)))

	mb := bus.NewMessageBus()
	t.Cleanup(mb.Close)
	mod := moderation.New()
	r := router.New(store, match.New(), mod, mb, router.Options{}, log)

	elevated := channel.RoleCheckerFunc(func(context.Context, string, string) (bool, error) {
		return true, nil
	})
	adapter := &scriptedAdapter{
		name:  "telegram",
		roles: elevated,
		inbound: []bus.InboundMessage{
			{Channel: "telegram", ChatID: "-100", ConversationKind: bus.ConversationGroup, MessageID: 1, Content: "one piece"},
			{Channel: "telegram", ChatID: "-100", ConversationKind: bus.ConversationGroup, MessageID: 2, Content: "/ad on"},
			{Channel: "telegram", ChatID: "-100", ConversationKind: bus.ConversationGroup, MessageID: 3, Content: "promo", IsAutomated: true},
		},
		done: make(chan struct{}),
	}

	cfg := testConfig(t)
	svc, err := NewService(cfg, Deps{Handler: r.Handle, Catalog: store, Events: mb, Moderation: mod, Adapters: []channel.Adapter{adapter}}, log)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	readyURL := fmt.Sprintf("http://127.0.0.1:%d/readyz", cfg.Gateway.Port)
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, readyURL, 2*time.Second))

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}

	outbounds := adapter.outbounds()
	require.Len(t, outbounds, 3)
	require.Equal(t, "https://t.me/onepiece", outbounds[0].Content)
	require.Equal(t, 1, outbounds[0].ReplyTo)
	require.Contains(t, outbounds[1].Content, "Ad deletion has been enabled")
	require.True(t, outbounds[2].Delete)
	require.Equal(t, 3, outbounds[2].ReplyTo)
}

func TestGatewayServiceRunReturnsAdapterFailure(t *testing.T) {
	cfg := testConfig(t)
	svc, err := NewService(cfg, Deps{
		Handler:  echoHandler,
		Catalog:  &toggledCatalog{},
		Adapters: []channel.Adapter{failingAdapter{}},
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(context.Background())
	}()

	select {
	case err := <-errCh:
		require.ErrorContains(t, err, "run broken channel: token rejected")
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}

	status := svc.currentStatus("x")
	require.False(t, status.Channels["broken"].Running)
	require.Equal(t, "token rejected", status.Channels["broken"].Error)
}

func TestGatewayServiceReadyzTransitionsOnCatalogHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := &toggledCatalog{}
	adapter := &scriptedAdapter{name: "telegram", done: make(chan struct{})}

	cfg := testConfig(t)
	svc, err := NewService(cfg, Deps{Handler: echoHandler, Catalog: checker, Adapters: []channel.Adapter{adapter}}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	readyURL := fmt.Sprintf("http://127.0.0.1:%d/readyz", cfg.Gateway.Port)
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, readyURL, 2*time.Second))

	checker.setErr(fmt.Errorf("temporary storage outage"))
	require.Error(t, svc.checkCatalog(context.Background()))
	require.Equal(t, http.StatusServiceUnavailable, waitHTTPStatus(t, readyURL, 2*time.Second))

	checker.setErr(nil)
	require.NoError(t, svc.checkCatalog(context.Background()))
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, readyURL, 2*time.Second))

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func waitHTTPStatus(t *testing.T, url string, timeout time.Duration) int {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		response, err := http.Get(url)
		if err == nil {
			statusCode := response.StatusCode
			require.NoError(t, response.Body.Close())
			return statusCode
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: %v", url, err)
		}

		time.Sleep(25 * time.Millisecond)
	}
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}
