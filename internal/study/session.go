// Package study drives a study session over a fixed queue of cards.
package study

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
)

// SavedMessage is the notification sent after each successful rating.
const SavedMessage = "Progress saved!"

// Rater submits ratings to the backend.
type Rater interface {
	RateCard(ctx context.Context, cardID int64, rating int) error
}

// State is the lifecycle stage of a session.
type State int

const (
	StateIdle State = iota
	StateActive
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateTerminal:
		return "terminal"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Progress is how far through its queue a session is.
type Progress struct {
	Studied   int
	Total     int
	Remaining int
	Percent   float64
}

// String renders progress as "studied/total".
func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Studied, p.Total)
}

// Fraction returns Percent as a value between 0 and 1.
func (p Progress) Fraction() float64 {
	return p.Percent / 100
}

// Summary is reported when a session completes.
type Summary struct {
	Studied int
	Minutes int
}

// Duration renders the session length, e.g. "1 minute" or "12 minutes".
func (s Summary) Duration() string {
	if s.Minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", s.Minutes)
}

// Snapshot is a copy of the session state for renderers that pull.
type Snapshot struct {
	State         State
	Card          *shinkei.Card
	Index         int
	Revealed      bool
	Progress      Progress
	FinishVisible bool
	Submitting    bool
	Summary       Summary
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for session duration.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session owns a study queue and its counters. It is safe for concurrent
// use; at most one rating is submitted at a time.
type Session struct {
	rater    Rater
	notifier notify.Notifier
	view     View
	now      func() time.Time
	logger   *slog.Logger

	mu         sync.Mutex
	cards      []shinkei.Card
	index      int
	studied    int
	start      time.Time
	state      State
	revealed   bool
	submitting bool
	summary    Summary
	// generation changes on every Initialize so late responses for an
	// earlier queue are dropped.
	generation uint64
}

// NewSession creates an idle session. A nil notifier or view discards output.
func NewSession(rater Rater, notifier notify.Notifier, view View, opts ...Option) *Session {
	if notifier == nil {
		notifier = notify.Nop
	}
	if view == nil {
		view = NopView{}
	}
	s := &Session{
		rater:    rater,
		notifier: notifier,
		view:     view,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.With(slog.String("component", "study"))
	return s
}

// Initialize starts a session over cards, which may be empty. The queue is
// fixed until the next Initialize.
func (s *Session) Initialize(cards []shinkei.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cards = append([]shinkei.Card(nil), cards...)
	s.index = 0
	s.studied = 0
	s.start = s.now()
	s.state = StateActive
	s.revealed = false
	s.submitting = false
	s.summary = Summary{}
	s.generation++

	s.logger.Debug("session started", slog.Int("cards", len(s.cards)))

	if len(s.cards) > 0 {
		s.view.ShowCard(s.cards[0])
		s.view.SetRevealed(false)
	}
	s.view.ShowProgress(s.progressLocked())
	s.view.SetFinishVisible(len(s.cards) > 0)
}

// Flip toggles whether the back of the current card is shown and returns the
// new value. It does nothing when no card is loaded.
func (s *Session) Flip() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.index >= len(s.cards) {
		return s.revealed
	}
	s.revealed = !s.revealed
	s.view.SetRevealed(s.revealed)
	return s.revealed
}

// Rate submits rating for the current card. On success the session advances
// to the next card or completes; on failure nothing changes and the same card
// can be rated again. Ratings are not accepted while one is in flight.
func (s *Session) Rate(ctx context.Context, rating Rating) error {
	if !rating.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}

	s.mu.Lock()
	switch {
	case s.state == StateTerminal:
		s.mu.Unlock()
		return ErrSessionFinished
	case s.state != StateActive || s.index >= len(s.cards):
		s.mu.Unlock()
		return ErrNoCurrentCard
	case s.submitting:
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	card := s.cards[s.index]
	gen := s.generation
	s.submitting = true
	s.mu.Unlock()

	err := s.rater.RateCard(ctx, card.ID, int(rating))

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("dropping rating for replaced session", slog.Int64("card", card.ID))
		return err
	}
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("rating failed", slog.Int64("card", card.ID), slog.Any("error", err))
		notify.Report(s.notifier, err)
		return fmt.Errorf("rating card %d: %w", card.ID, err)
	}
	if s.state != StateActive {
		// Finished early while the rating was being saved.
		s.mu.Unlock()
		return nil
	}

	s.studied++
	s.index++
	s.revealed = false
	s.view.ShowProgress(s.progressLocked())
	if s.index < len(s.cards) {
		s.view.ShowCard(s.cards[s.index])
		s.view.SetRevealed(false)
	} else {
		s.completeLocked()
	}
	s.mu.Unlock()

	s.logger.Debug("card rated", slog.Int64("card", card.ID), slog.String("rating", rating.String()))
	notify.Success(s.notifier, SavedMessage)
	return nil
}

// Progress returns the current progress. Percent is 0 for an empty queue.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() Progress {
	p := Progress{
		Studied:   s.studied,
		Total:     len(s.cards),
		Remaining: len(s.cards) - s.studied,
	}
	if p.Total > 0 {
		p.Percent = float64(p.Studied) / float64(p.Total) * 100
	}
	return p
}

// Finish ends the session early and returns its summary. Calling it on a
// completed session returns the existing summary.
func (s *Session) Finish() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTerminal {
		return s.summary
	}
	if s.state == StateIdle {
		s.start = s.now()
	}
	s.completeLocked()
	return s.summary
}

func (s *Session) completeLocked() {
	minutes := int(math.Round(s.now().Sub(s.start).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	s.summary = Summary{Studied: s.studied, Minutes: minutes}
	s.state = StateTerminal
	s.revealed = false

	s.logger.Info("session complete", slog.Int("studied", s.studied), slog.Int("minutes", minutes))

	s.view.SetFinishVisible(false)
	s.view.ShowCompletion(s.summary)
}

// State returns the session's lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		Index:         s.index,
		Revealed:      s.revealed,
		Progress:      s.progressLocked(),
		FinishVisible: s.state == StateActive && len(s.cards) > 0,
		Submitting:    s.submitting,
		Summary:       s.summary,
	}
	if s.state == StateActive && s.index < len(s.cards) {
		card := s.cards[s.index]
		snap.Card = &card
	}
	return snap
}
