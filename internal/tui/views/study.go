package views

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/study"
	"github.com/f3rmion/shinkei/internal/tui/bigchar"
)

// Study view styles
var (
	studyBigCharStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffe66d")).
				Background(lipgloss.Color("#1a1a2e")).
				Padding(1, 6).
				Align(lipgloss.Center)

	studyBlockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffe66d")).
			Align(lipgloss.Center)

	studyMeaningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f1faee")).
				Bold(true).
				Align(lipgloss.Center)

	studyFlipHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4ecdc4")).
				Bold(true).
				Align(lipgloss.Center)

	studyCompleteStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#a8e6cf")).
				Padding(2, 4).
				Align(lipgloss.Center)
)

type studyCardsMsg struct {
	deckID int64
	cards  []shinkei.Card
	err    error
}

type ratedMsg struct {
	err error
}

// StudyOptions configures the study view.
type StudyOptions struct {
	// Limit caps the number of due cards per session; 0 studies all due cards.
	Limit int
	// All studies every card in the deck, due or not.
	All    bool
	Logger *slog.Logger
}

// StudyModel runs a study session for one deck.
type StudyModel struct {
	backend  Backend
	notifier notify.Notifier
	session  *study.Session
	opts     StudyOptions
	now      func() time.Time

	deck    shinkei.Deck
	loading bool
	spinner spinner.Model
	bar     progress.Model

	width  int
	height int
}

// NewStudyModel creates the study view. Ratings are sent through backend.
func NewStudyModel(backend Backend, notifier notify.Notifier, opts StudyOptions) StudyModel {
	if notifier == nil {
		notifier = notify.Nop
	}
	var sessionOpts []study.Option
	if opts.Logger != nil {
		sessionOpts = append(sessionOpts, study.WithLogger(opts.Logger))
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	return StudyModel{
		backend:  backend,
		notifier: notifier,
		session:  study.NewSession(backend, notifier, study.NopView{}, sessionOpts...),
		opts:     opts,
		now:      time.Now,
		spinner:  sp,
		bar:      progress.New(progress.WithDefaultGradient()),
	}
}

// SetSize updates the view dimensions.
func (m *StudyModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.bar.Width = min(max(width-20, 10), 60)
}

// Session returns the underlying study session.
func (m StudyModel) Session() *study.Session {
	return m.session
}

// Deck returns the deck being studied.
func (m StudyModel) Deck() shinkei.Deck {
	return m.deck
}

// Start loads the cards of deck and begins a new session.
func (m *StudyModel) Start(deck shinkei.Deck) tea.Cmd {
	m.deck = deck
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.loadCards(deck.ID))
}

func (m StudyModel) loadCards(deckID int64) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		cards, err := backend.ListDeckCards(ctx, deckID)
		return studyCardsMsg{deckID: deckID, cards: cards, err: err}
	}
}

func (m StudyModel) rate(r study.Rating) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		return ratedMsg{err: session.Rate(ctx, r)}
	}
}

// queue selects the cards to study from a deck's cards.
func (m StudyModel) queue(cards []shinkei.Card) []shinkei.Card {
	if m.opts.All {
		return cards
	}
	return study.DueCards(cards, m.now(), m.opts.Limit)
}

// Update handles messages.
func (m StudyModel) Update(msg tea.Msg) (StudyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case studyCardsMsg:
		if msg.deckID != m.deck.ID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			notify.Error(m.notifier, "Failed to load cards")
			return m, nil
		}
		m.session.Initialize(m.queue(msg.cards))
		return m, nil

	case ratedMsg:
		// The session has already advanced or reported the failure.
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		snap := m.session.Snapshot()
		key := msg.String()

		if snap.State == study.StateTerminal {
			switch key {
			case "enter", "esc", "b":
				return m, func() tea.Msg { return BackMsg{Refresh: true} }
			case "r":
				return m, m.Start(m.deck)
			}
			return m, nil
		}

		switch key {
		case " ", "enter":
			m.session.Flip()
		case "1", "2", "3", "4":
			if snap.Card == nil || snap.Submitting {
				return m, nil
			}
			r, err := study.ParseRating(key)
			if err != nil {
				notify.Report(m.notifier, err)
				return m, nil
			}
			return m, m.rate(r)
		case "f":
			if snap.State == study.StateActive {
				m.session.Finish()
			}
		case "esc", "b":
			return m, func() tea.Msg { return BackMsg{Refresh: true} }
		}
	}
	return m, nil
}

// View renders the study view.
func (m StudyModel) View() string {
	if m.deck.ID == 0 && !m.loading {
		return m.renderNoDeck()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.deck.Name))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(m.spinner.View() + loadingStyle.Render(" Loading cards..."))
		return b.String()
	}

	snap := m.session.Snapshot()
	contentWidth := max(m.width-4, 40)

	if snap.State == study.StateTerminal {
		b.WriteString(m.renderComplete(snap.Summary, contentWidth))
		return b.String()
	}

	b.WriteString(m.bar.ViewAs(snap.Progress.Fraction()))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s • %d remaining", snap.Progress, snap.Progress.Remaining)))
	b.WriteString("\n\n")

	if snap.Card == nil {
		b.WriteString(mutedStyle.Render("No cards are due in this deck."))
		b.WriteString(helpStyle.Render("f: finish • esc: back"))
		return b.String()
	}

	b.WriteString(m.renderFront(*snap.Card, contentWidth))
	if snap.Revealed {
		b.WriteString("\n\n")
		b.WriteString(m.renderBack(*snap.Card, contentWidth))
	} else {
		b.WriteString("\n\n")
		b.WriteString(studyFlipHintStyle.Width(contentWidth).Render("Press SPACE to reveal"))
	}

	b.WriteString("\n")
	switch {
	case snap.Submitting:
		b.WriteString(loadingStyle.Render("Saving..."))
	default:
		b.WriteString(helpStyle.Render("space: flip • 1: again • 2: hard • 3: good • 4: easy • f: finish"))
	}
	return b.String()
}

func (m StudyModel) renderFront(card shinkei.Card, width int) string {
	var front string
	cols := min(len([]rune(card.Hanzi))*16, width-4)
	if block := bigchar.Render(card.Hanzi, cols, 8); block != "" {
		front = studyBlockStyle.Render(block)
	} else {
		front = studyBigCharStyle.Render(card.Hanzi)
	}
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(front)
}

func (m StudyModel) renderBack(card shinkei.Card, width int) string {
	var lines []string
	lines = append(lines, lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(renderPinyin(card.Pinyin)))
	lines = append(lines, studyMeaningStyle.Width(width).Render(wordWrap(card.English, width-8)))

	var details []string
	add := func(label, value string) {
		if value != "" {
			details = append(details, labelStyle.Render(label)+valueStyle.Render(wordWrap(value, width-26)))
		}
	}
	add("Traditional", card.Traditional)
	add("Part of speech", card.PartOfSpeech)
	add("Measure word", card.MeasureWord)
	add("Example", card.ExampleSentence)
	add("Notes", card.Notes)
	if len(details) > 0 {
		lines = append(lines, "", boxStyle.Render(strings.Join(details, "\n")))
	}
	return strings.Join(lines, "\n")
}

func (m StudyModel) renderComplete(s study.Summary, width int) string {
	content := subtitleStyle.Bold(true).Render("Session complete!") + "\n\n" +
		valueStyle.Render(fmt.Sprintf("You studied %d cards in %s.", s.Studied, s.Duration())) + "\n\n" +
		mutedStyle.Render("enter: back to decks • r: study again")
	return lipgloss.Place(width, max(m.height-6, 10), lipgloss.Center, lipgloss.Center, studyCompleteStyle.Render(content))
}

func (m StudyModel) renderNoDeck() string {
	content := titleStyle.Render("No deck selected") + "\n\n" +
		mutedStyle.Render("Pick a deck in the Decks view and press enter")
	return "\n\n" + boxStyle.Render(content)
}
