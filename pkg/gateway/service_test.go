package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/config"
	"chanfinder/pkg/moderation"
)

type staticCatalog struct {
	cat catalog.Catalog
	err error
}

func (c staticCatalog) Load(context.Context) (catalog.Catalog, error) {
	return c.cat, c.err
}

func TestIsReady(t *testing.T) {
	t.Parallel()

	svc := &Service{channelStates: map[string]channelState{"telegram": {Running: true}}}
	require.False(t, svc.isReady(), "not ready before the first catalog check")

	svc.catalogLastOKAt = time.Now().UTC()
	require.True(t, svc.isReady())

	svc.catalogLastErr = "boom"
	require.False(t, svc.isReady())

	svc.catalogLastErr = ""
	svc.channelStates["telegram"] = channelState{Running: false, Error: "stopped"}
	require.False(t, svc.isReady())
}

func TestNewServiceValidatesDeps(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	_, err := NewService(&cfg, Deps{}, nil)
	require.Error(t, err)

	_, err = NewService(&cfg, Deps{Handler: echoHandler, Catalog: staticCatalog{}}, nil)
	require.ErrorContains(t, err, "adapter")
}

func TestCheckCatalogRecordsHealth(t *testing.T) {
	t.Parallel()

	svc := &Service{deps: Deps{Catalog: staticCatalog{err: catalog.NewError(catalog.ErrorStorageUnavailable, "disk gone")}}}
	require.Error(t, svc.checkCatalog(context.Background()))
	require.Contains(t, svc.catalogLastErr, "disk gone")

	svc.deps.Catalog = staticCatalog{cat: catalog.Catalog{"one piece": catalog.NewDefinition("x", nil)}}
	require.NoError(t, svc.checkCatalog(context.Background()))
	require.Empty(t, svc.catalogLastErr)
	require.Equal(t, 1, svc.catalogEntries)
}

func TestStatsRecord(t *testing.T) {
	t.Parallel()

	s := newStats()
	s.record(bus.Event{Type: bus.EventRouteMatched, Payload: map[string]string{bus.PayloadStrategy: "keyword"}})
	s.record(bus.Event{Type: bus.EventRouteMatched, Payload: map[string]string{bus.PayloadStrategy: "keyword"}})
	s.record(bus.Event{Type: bus.EventRouteMissed})
	s.record(bus.Event{Type: bus.EventDeliveryFailed, Error: "blocked", At: time.Now()})

	snap := s.snapshot()
	require.Equal(t, int64(2), snap.Events[bus.EventRouteMatched])
	require.Equal(t, int64(1), snap.Events[bus.EventRouteMissed])
	require.Equal(t, int64(2), snap.Strategies["keyword"])
	require.Equal(t, "blocked", snap.LastError)
	require.NotEmpty(t, snap.LastEventAt)
}

func TestStatusEndpoints(t *testing.T) {
	t.Parallel()

	mod := moderation.New()
	mod.Set("-100", true)

	svc := &Service{
		deps:          Deps{Moderation: mod},
		stats:         newStats(),
		channelStates: map[string]channelState{"telegram": {Running: true}},
	}
	svc.stats.record(bus.Event{Type: bus.EventMessageSuppressed})

	server := httptest.NewServer(svc.Handler())
	t.Cleanup(server.Close)

	response, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.NoError(t, response.Body.Close())

	response, err = http.Get(server.URL + "/readyz")
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, response.StatusCode)
	require.NoError(t, response.Body.Close())

	response, err = http.Get(server.URL + "/statusz")
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)

	var body struct {
		Status         string           `json:"status"`
		ModeratedChats []string         `json:"moderated_chats"`
		Events         map[string]int64 `json:"events"`
		Channels       map[string]channelState
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	require.Equal(t, "not_ready", body.Status)
	require.Equal(t, []string{"-100"}, body.ModeratedChats)
	require.Equal(t, int64(1), body.Events[string(bus.EventMessageSuppressed)])
	require.True(t, body.Channels["telegram"].Running)
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	require.Empty(t, errorString(nil))
	require.Equal(t, "x", errorString(errors.New("x")))
}
