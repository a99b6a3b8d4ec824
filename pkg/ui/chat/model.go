package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/render"
)

type mode int

const (
	modeInteractive mode = iota
	modeOneShot
)

const mouseWheelLines = 3

type chatMessage struct {
	role     string
	content  string
	buttons  [][]render.Button
	strategy string
	name     string
}

type routeResultMsg struct {
	reply bus.OutboundMessage
	err   error
}

type bootTickMsg struct{}

type model struct {
	ctx          context.Context
	routeFn      RouteFunc
	mode         mode
	oneShotInput string

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	messages  []chatMessage
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	booting   bool
	bootStep  int
	followLog bool
	runtime   RuntimeInfo
	matched   int
	missed    int
}

func newModel(ctx context.Context, routeFn RouteFunc, runMode mode, text string, info RuntimeInfo) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Type an anime name or a /command..."
	in.Focus()
	in.CharLimit = 0

	vp := viewport.New(80, 12)

	return &model{
		ctx:          ctx,
		routeFn:      routeFn,
		mode:         runMode,
		oneShotInput: strings.TrimSpace(text),
		theme:        defaultTheme(),
		spinner:      spin,
		input:        in,
		viewport:     vp,
		width:        100,
		height:       28,
		booting:      runMode == modeInteractive,
		followLog:    true,
		runtime:      info,
	}
}

func (m *model) Init() tea.Cmd {
	if m.mode == modeOneShot && m.oneShotInput != "" {
		m.messages = append(m.messages, chatMessage{role: "user", content: m.oneShotInput})
		m.isLoading = true
		m.refreshViewport(false)
		return tea.Batch(m.spinner.Tick, sendRouteCmd(m.ctx, m.routeFn, m.oneShotInput))
	}

	return bootTickCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case bootTickMsg:
		if !m.booting {
			return m, nil
		}

		m.bootStep++
		if m.bootStep < len(bootScriptLines())+1 {
			return m, bootTickCmd()
		}

		m.booting = false
		return m, textinput.Blink
	case tea.MouseMsg:
		if m.mode == modeInteractive && !m.booting {
			m.handleViewportMouse(typed)
		}
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if m.booting {
			return m, nil
		}

		if m.mode == modeInteractive {
			if handled := m.handleViewportKey(typed); handled {
				return m, nil
			}
		}

		if m.mode == modeOneShot {
			return m, nil
		}

		if typed.String() == "enter" {
			if m.isLoading {
				return m, nil
			}

			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if isExitCommand(text) {
				return m, tea.Quit
			}

			m.lastErr = ""
			m.messages = append(m.messages, chatMessage{role: "user", content: text})
			m.input.SetValue("")
			m.isLoading = true
			m.followLog = true
			m.refreshViewport(true)
			return m, tea.Batch(m.spinner.Tick, sendRouteCmd(m.ctx, m.routeFn, text))
		}
	}

	if m.mode == modeInteractive {
		m.input, cmd = m.input.Update(msg)
	}

	switch typed := msg.(type) {
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case routeResultMsg:
		m.isLoading = false
		m.recordReply(typed.reply, typed.err)
		m.refreshViewport(false)
		if m.mode == modeOneShot {
			return m, tea.Quit
		}
	}

	return m, cmd
}

// recordReply appends the bot's answer, or a note saying why there is none.
func (m *model) recordReply(reply bus.OutboundMessage, err error) {
	if err != nil {
		m.lastErr = err.Error()
		m.messages = append(m.messages, chatMessage{role: "error", content: err.Error()})
		return
	}

	m.lastErr = ""
	switch {
	case reply.Delete:
		m.messages = append(m.messages, chatMessage{role: "silent", content: "message deleted by moderation"})
	case reply.Content == "" && reply.Notice != "":
		m.messages = append(m.messages, chatMessage{role: "silent", content: "notice: " + reply.Notice})
	case reply.Empty():
		m.missed++
		m.messages = append(m.messages, chatMessage{role: "silent", content: "no response"})
	default:
		if reply.Metadata[bus.PayloadStrategy] != "" {
			m.matched++
		}
		m.messages = append(m.messages, chatMessage{
			role:     "bot",
			content:  reply.Content,
			buttons:  reply.Buttons,
			strategy: reply.Metadata[bus.PayloadStrategy],
			name:     reply.Metadata[bus.PayloadName],
		})
	}
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}
	if m.mode == modeOneShot {
		return m.oneShotView()
	}
	if m.booting {
		return m.bootView()
	}

	header := m.theme.header.Width(m.width - 2).Render("📟 ChanFinder Console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"catalog:%s · backend:%s · entries:%d · turns:%d · matched/missed:%d/%d",
		displayOrNA(m.runtime.CatalogPath),
		displayOrNA(m.runtime.Backend),
		m.runtime.Entries,
		conversationTurns(m.messages),
		m.matched,
		m.missed,
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("💡 Enter send  ·  PgUp/PgDn/wheel scroll  ·  End jump latest  ·  🛑 Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ routing...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 last message failed - try again")
	}

	parts := []string{header, meta, line, m.theme.viewport.Width(m.width - 2).Render(m.viewport.View()), status}

	if m.mode == modeInteractive {
		parts = append(parts,
			m.theme.inputLabel.Render("👤 "+displayOrNA(m.runtime.Sender))+" "+m.theme.hint.Render("(type /exit, quit, or :q)"),
			m.theme.input.Width(m.width-2).Render(m.input.View()),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) resizeComponents() {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	h := m.height - 10
	if m.mode == modeOneShot {
		h = m.height - 6
	}
	if h < 8 {
		h = 8
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	var sections []string
	for _, item := range m.messages {
		sections = append(sections, m.renderMessage(item, m.viewport.Width))
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	m.viewport.SetYOffset(previousOffset)
}

func (m *model) renderMessage(item chatMessage, width int) string {
	switch item.role {
	case "user":
		return m.renderCard(
			m.theme.userTitle.Render("▛▚ [ 👤 ] ▞▜"),
			m.theme.userBox.Width(width).Render(strings.TrimSpace(item.content)),
		)
	case "bot":
		body := strings.TrimSpace(item.content)
		if buttons := formatButtons(item.buttons); buttons != "" {
			body += "\n\n" + m.theme.buttons.Render(buttons)
		}
		if item.strategy != "" {
			body += "\n\n" + m.theme.hint.Render(fmt.Sprintf("matched %q via %s", item.name, item.strategy))
		}
		return m.renderCard(
			m.theme.botTitle.Render("▛▚ [ 🤖 ] ▞▜"),
			m.theme.botBox.Width(width).Render(body),
		)
	case "silent":
		return m.renderCard(
			m.theme.silentTitle.Render("▛▚ [ -- ] ▞▜"),
			m.theme.silentBox.Width(width).Render(item.content),
		)
	default:
		return m.renderCard(
			m.theme.errorTitle.Render("▛▚ [ERROR] ▞▜"),
			m.theme.errorBox.Width(width).Render(strings.TrimSpace(item.content)),
		)
	}
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) oneShotView() string {
	contentWidth := max(40, m.width-6)
	parts := []string{m.renderCard(
		m.theme.userTitle.Render("▛▚ [SENT] ▞▜"),
		m.theme.userBox.Width(contentWidth).Render(strings.TrimSpace(m.oneShotInput)),
	)}

	if m.isLoading {
		parts = append(parts, m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ routing message...", m.spinner.View())))
		return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
	}

	if len(m.messages) > 1 {
		parts = append(parts, m.renderMessage(m.messages[len(m.messages)-1], contentWidth))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n\n"
}

func (m *model) bootView() string {
	header := m.theme.header.Width(m.width - 2).Render("📟 ChanFinder Console")
	meta := m.theme.headerMeta.Render("boot sequence")
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	script := bootScriptLines()
	count := min(m.bootStep, len(script))
	visible := make([]string, 0, count+1)
	for i := 0; i < count; i++ {
		visible = append(visible, m.theme.bootLine.Render(script[i]))
	}
	if m.bootStep > len(script) {
		visible = append(visible, m.theme.bootDone.Render("✅ router online"))
	}

	body := m.theme.viewport.Width(m.width - 2).Render(strings.Join(visible, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, meta, line, body)
}

func bootTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(_ time.Time) tea.Msg {
		return bootTickMsg{}
	})
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

// handleViewportMouse scrolls on wheel events. Scrolling up stops following
// new messages until the view is back at the bottom.
func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.ScrollUp(mouseWheelLines)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.ScrollDown(mouseWheelLines)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func bootScriptLines() []string {
	return []string{
		"[BOOT] opening response catalog",
		"[BOOT] loading keyword tables",
		"[BOOT] wiring matching cascade",
		"[BOOT] warming up the renderer",
	}
}

func sendRouteCmd(ctx context.Context, routeFn RouteFunc, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := routeFn(ctx, text)
		return routeResultMsg{reply: reply, err: err}
	}
}

// formatButtons draws keyboard rows as text: links show their URL,
// placeholders their callback token.
func formatButtons(rows [][]render.Button) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, b := range row {
			if b.IsLink() {
				cells = append(cells, fmt.Sprintf("[%s → %s]", b.Label, b.URL))
			} else {
				cells = append(cells, fmt.Sprintf("[%s · %s]", b.Label, b.Token))
			}
		}
		lines = append(lines, strings.Join(cells, "  "))
	}
	return strings.Join(lines, "\n")
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func conversationTurns(messages []chatMessage) int {
	count := 0
	for _, message := range messages {
		if message.role == "user" {
			count++
		}
	}

	return count
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
