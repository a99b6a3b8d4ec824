package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chanfinder/pkg/bus"
)

// RouteFunc sends one line of text through the router as if it had been
// posted in a chat and returns what the bot would do.
type RouteFunc func(ctx context.Context, text string) (bus.OutboundMessage, error)

// RuntimeInfo is shown in the console header.
type RuntimeInfo struct {
	CatalogPath string
	Backend     string
	Entries     int
	Sender      string
}

func RunInteractive(ctx context.Context, routeFn RouteFunc, info RuntimeInfo) error {
	model := newModel(ctx, routeFn, modeInteractive, "", info)
	program := tea.NewProgram(model, tea.WithMouseCellMotion())
	_, err := program.Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(renderGoodbyeBanner())
	return nil
}

func RunOneShot(ctx context.Context, routeFn RouteFunc, text string, info RuntimeInfo) error {
	model := newModel(ctx, routeFn, modeOneShot, text, info)
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("24")).
		Padding(1, 2)

	return style.Render("📺 ChanFinder console closed")
}
