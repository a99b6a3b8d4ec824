// Package moderation tracks which conversations delete messages posted by
// other bots.
package moderation

import (
	"sync"

	"chanfinder/pkg/bus"
)

// State maps conversation ids to their moderation flag. Unknown
// conversations are disabled. Nothing is persisted.
type State struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

func New() *State {
	return &State{enabled: make(map[string]bool)}
}

// Set records the flag for a conversation. Callers must have already checked
// that the acting user may change it.
func (s *State) Set(conversationID string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[conversationID] = enabled
}

// Enabled reports the flag for a conversation.
func (s *State) Enabled(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[conversationID]
}

// ShouldSuppress reports whether msg comes from another automated account in
// a conversation with moderation turned on.
func (s *State) ShouldSuppress(msg bus.InboundMessage) bool {
	if !msg.IsAutomated || msg.FromSelf {
		return false
	}
	return s.Enabled(msg.ChatID)
}

// Snapshot returns the conversations that currently have moderation enabled.
func (s *State) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.enabled))
	for id, on := range s.enabled {
		if on {
			out = append(out, id)
		}
	}
	return out
}
