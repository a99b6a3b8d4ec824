package gateway

import (
	"context"
	"sync"
	"time"

	"chanfinder/pkg/bus"
)

// stats counts routing events for /statusz.
type stats struct {
	mu          sync.Mutex
	events      map[bus.EventType]int64
	strategies  map[string]int64
	lastEventAt time.Time
	lastError   string
}

type statsSnapshot struct {
	Events      map[bus.EventType]int64 `json:"events"`
	Strategies  map[string]int64        `json:"strategies"`
	LastEventAt string                  `json:"last_event_at,omitempty"`
	LastError   string                  `json:"last_delivery_error,omitempty"`
}

func newStats() *stats {
	return &stats{
		events:     make(map[bus.EventType]int64),
		strategies: make(map[string]int64),
	}
}

// collect records events until ctx ends or the subscription closes.
func (s *stats) collect(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.record(event)
		}
	}
}

func (s *stats) record(event bus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.Type]++
	if event.Type == bus.EventRouteMatched {
		if strategy := event.Payload[bus.PayloadStrategy]; strategy != "" {
			s.strategies[strategy]++
		}
	}
	if event.Type == bus.EventDeliveryFailed {
		s.lastError = event.Error
	}
	s.lastEventAt = event.At
}

func (s *stats) snapshot() statsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := statsSnapshot{
		Events:     make(map[bus.EventType]int64, len(s.events)),
		Strategies: make(map[string]int64, len(s.strategies)),
		LastError:  s.lastError,
	}
	for k, v := range s.events {
		out.Events[k] = v
	}
	for k, v := range s.strategies {
		out.Strategies[k] = v
	}
	if !s.lastEventAt.IsZero() {
		out.LastEventAt = s.lastEventAt.Format(time.RFC3339)
	}
	return out
}
