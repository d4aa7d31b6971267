// Package views contains the screens of the shinkei terminal UI.
package views

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
)

// requestTimeout bounds every backend call started from a view.
const requestTimeout = 60 * time.Second

// Backend is the part of the API client the views use.
type Backend interface {
	ListDecks(ctx context.Context) ([]shinkei.Deck, error)
	ListDeckCards(ctx context.Context, deckID int64) ([]shinkei.Card, error)
	CreateDeck(ctx context.Context, draft shinkei.DeckDraft) (int64, error)
	AddCard(ctx context.Context, deckID int64, draft shinkei.CardDraft) (int64, error)
	DeleteCard(ctx context.Context, cardID int64) error
	RateCard(ctx context.Context, cardID int64, rating int) error
	GenerateVoice(ctx context.Context, text string) (string, error)
	EnhanceFlashcard(ctx context.Context, fields map[string]string) (map[string]string, error)
}

// StatusMsg is a notification to show in the status line.
type StatusMsg struct {
	Level notify.Level
	Text  string
}

// StartStudyMsg asks the app to open the study view for a deck.
type StartStudyMsg struct {
	Deck shinkei.Deck
}

// AddCardMsg asks the app to open the card editor for a deck.
type AddCardMsg struct {
	Deck shinkei.Deck
}

// BackMsg asks the app to return to the deck list.
type BackMsg struct {
	Refresh bool
}

// Events carries messages produced outside the bubbletea loop, such as
// notifications from a rating request or audio progress ticks.
type Events struct {
	ch chan tea.Msg
}

// NewEvents creates an event queue holding up to size pending messages.
func NewEvents(size int) *Events {
	return &Events{ch: make(chan tea.Msg, size)}
}

// Send queues msg. It never blocks; messages are dropped while the queue is full.
func (e *Events) Send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
	}
}

// Wait returns a command that delivers the next queued message. The receiver
// must call Wait again after each delivery.
func (e *Events) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-e.ch
	}
}

// Notifier returns a Notifier that queues StatusMsg values.
func (e *Events) Notifier() notify.Notifier {
	return notify.Func(func(level notify.Level, msg string) {
		e.Send(StatusMsg{Level: level, Text: msg})
	})
}

func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
