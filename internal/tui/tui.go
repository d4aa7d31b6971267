// Package tui provides the interactive terminal UI for shinkei.
package tui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/shinkei/internal/audio"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/tui/views"
)

// Options configures the TUI.
type Options struct {
	Backend views.Backend
	// Player plays generated pronunciation audio; nil disables playback.
	Player       audio.Player
	PollInterval time.Duration
	StudyLimit   int
	StudyAll     bool
	// StudyDeck opens the study view for this deck on start.
	StudyDeck *shinkei.Deck
	Logger    *slog.Logger
}

// Run starts the TUI and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
