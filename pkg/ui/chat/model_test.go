package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/render"
)

func TestRecordReplyClassifiesOutcomes(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, modeInteractive, "", RuntimeInfo{})

	m.recordReply(bus.OutboundMessage{
		Content:  "https://t.me/onepiece",
		Metadata: map[string]string{bus.PayloadStrategy: "keyword", bus.PayloadName: "one piece"},
	}, nil)
	m.recordReply(bus.OutboundMessage{}, nil)
	m.recordReply(bus.OutboundMessage{Delete: true, ReplyTo: 3}, nil)
	m.recordReply(bus.OutboundMessage{Notice: "You selected option 2"}, nil)
	m.recordReply(bus.OutboundMessage{}, errors.New("catalog unavailable"))

	require.Len(t, m.messages, 5)
	assert.Equal(t, "bot", m.messages[0].role)
	assert.Equal(t, "keyword", m.messages[0].strategy)
	assert.Equal(t, "one piece", m.messages[0].name)
	assert.Equal(t, "no response", m.messages[1].content)
	assert.Equal(t, "message deleted by moderation", m.messages[2].content)
	assert.Equal(t, "notice: You selected option 2", m.messages[3].content)
	assert.Equal(t, "error", m.messages[4].role)

	assert.Equal(t, 1, m.matched)
	assert.Equal(t, 1, m.missed)
	assert.Equal(t, "catalog unavailable", m.lastErr)
}

func TestUpdateRoutesEnteredText(t *testing.T) {
	t.Parallel()

	var got string
	route := func(_ context.Context, text string) (bus.OutboundMessage, error) {
		got = text
		return bus.OutboundMessage{Content: "pong"}, nil
	}

	m := newModel(context.Background(), route, modeInteractive, "", RuntimeInfo{})
	m.booting = false
	m.input.SetValue("  naruto  ")

	_, cmd := m.Update(keyEnter())
	require.NotNil(t, cmd)
	require.True(t, m.isLoading)
	require.Equal(t, "naruto", m.messages[0].content)

	msg := sendRouteCmd(context.Background(), route, "naruto")()
	m.Update(msg)

	assert.Equal(t, "naruto", got)
	assert.False(t, m.isLoading)
	require.Len(t, m.messages, 2)
	assert.Equal(t, "pong", m.messages[1].content)
	assert.Equal(t, 1, conversationTurns(m.messages))
}

func TestFormatButtons(t *testing.T) {
	t.Parallel()

	rows := [][]render.Button{
		{{Label: "Watch", URL: "https://t.me/a"}, {Label: "Option 1", Token: "option_0"}},
		{{Label: "More", URL: "https://t.me/b"}},
	}

	assert.Equal(t, "[Watch → https://t.me/a]  [Option 1 · option_0]\n[More → https://t.me/b]", formatButtons(rows))
	assert.Empty(t, formatButtons(nil))
}

func TestIsExitCommand(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"exit", "/exit", " QUIT ", ":q"} {
		assert.True(t, isExitCommand(input), input)
	}
	assert.False(t, isExitCommand("/start"))
}

func TestDisplayOrNA(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "n/a", displayOrNA("  "))
	assert.Equal(t, "filters.json", displayOrNA(" filters.json "))
}

func keyEnter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}
