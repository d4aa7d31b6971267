package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/shinkei/internal/clipboard"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/study"
)

type decksMode int

const (
	modeDeckList decksMode = iota
	modeDeckCards
	modeNewDeck
)

// Deck form fields, in tab order.
const (
	deckFieldName = iota
	deckFieldDescription
	deckFieldCategory
	deckFieldLevel
)

type decksLoadedMsg struct {
	decks []shinkei.Deck
	err   error
}

type deckCardsMsg struct {
	deckID int64
	cards  []shinkei.Card
	err    error
}

type deckCreatedMsg struct {
	id  int64
	err error
}

type cardDeletedMsg struct {
	cardID int64
	err    error
}

// DecksModel lists decks and the cards of the selected deck.
type DecksModel struct {
	backend  Backend
	notifier notify.Notifier
	now      func() time.Time
	copy     func(text string) error

	mode    decksMode
	loading bool
	spinner spinner.Model

	decks  []shinkei.Deck
	cursor int

	// Card list of the opened deck
	cards      []shinkei.Card
	cardCursor int
	stats      study.DeckStats
	confirm    *shinkei.Card

	// New deck form
	inputs []textinput.Model
	focus  int

	width  int
	height int
}

// NewDecksModel creates the deck list view. Decks are loaded by Init.
func NewDecksModel(backend Backend, notifier notify.Notifier) DecksModel {
	if notifier == nil {
		notifier = notify.Nop
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	return DecksModel{
		backend:  backend,
		notifier: notifier,
		now:      time.Now,
		copy:     clipboard.Write,
		loading:  true,
		spinner:  sp,
		inputs:   newDeckInputs(),
	}
}

func newDeckInputs() []textinput.Model {
	placeholders := []string{"Deck name", "Description", "Category (default Custom)", "HSK level"}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Placeholder = p
		ti.CharLimit = 120
		ti.Width = 40
		inputs[i] = ti
	}
	return inputs
}

// Init starts loading the deck list.
func (m DecksModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadDecks())
}

// SetSize updates the view dimensions.
func (m *DecksModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Decks returns the loaded decks.
func (m DecksModel) Decks() []shinkei.Deck {
	return m.decks
}

// Selected returns the deck under the cursor.
func (m DecksModel) Selected() (shinkei.Deck, bool) {
	if m.cursor < 0 || m.cursor >= len(m.decks) {
		return shinkei.Deck{}, false
	}
	return m.decks[m.cursor], true
}

// Editing reports whether a text field has focus.
func (m DecksModel) Editing() bool {
	return m.mode == modeNewDeck
}

// Refresh reloads the deck list.
func (m *DecksModel) Refresh() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.loadDecks())
}

func (m DecksModel) loadDecks() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		decks, err := backend.ListDecks(ctx)
		return decksLoadedMsg{decks: decks, err: err}
	}
}

func (m DecksModel) loadCards(deckID int64) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		cards, err := backend.ListDeckCards(ctx, deckID)
		return deckCardsMsg{deckID: deckID, cards: cards, err: err}
	}
}

func (m DecksModel) createDeck(draft shinkei.DeckDraft) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		id, err := backend.CreateDeck(ctx, draft)
		return deckCreatedMsg{id: id, err: err}
	}
}

func (m DecksModel) deleteCard(cardID int64) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		return cardDeletedMsg{cardID: cardID, err: backend.DeleteCard(ctx, cardID)}
	}
}

// Update handles messages.
func (m DecksModel) Update(msg tea.Msg) (DecksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case decksLoadedMsg:
		m.loading = false
		if msg.err != nil {
			notify.Error(m.notifier, "Failed to load decks")
			return m, nil
		}
		m.decks = msg.decks
		if m.cursor >= len(m.decks) {
			m.cursor = max(len(m.decks)-1, 0)
		}
		return m, nil

	case deckCardsMsg:
		m.loading = false
		sel, ok := m.Selected()
		if !ok || sel.ID != msg.deckID {
			return m, nil
		}
		if msg.err != nil {
			notify.Error(m.notifier, "Failed to load cards")
			m.mode = modeDeckList
			return m, nil
		}
		m.cards = msg.cards
		m.stats = study.Stats(msg.cards, m.now())
		if m.cardCursor >= len(m.cards) {
			m.cardCursor = max(len(m.cards)-1, 0)
		}
		return m, nil

	case deckCreatedMsg:
		m.loading = false
		if msg.err != nil {
			notify.Report(m.notifier, msg.err)
			return m, nil
		}
		notify.Success(m.notifier, "Deck created successfully!")
		m.mode = modeDeckList
		m.inputs = newDeckInputs()
		return m, m.Refresh()

	case cardDeletedMsg:
		m.loading = false
		if msg.err != nil {
			notify.Report(m.notifier, msg.err)
			return m, nil
		}
		notify.Success(m.notifier, "Card deleted successfully!")
		if sel, ok := m.Selected(); ok {
			m.loading = true
			return m, tea.Batch(m.loadCards(sel.ID), m.loadDecks())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeNewDeck:
			return m.updateForm(msg)
		case modeDeckCards:
			return m.updateCards(msg)
		default:
			return m.updateList(msg)
		}
	}

	if m.mode == modeNewDeck {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m DecksModel) updateList(msg tea.KeyMsg) (DecksModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.decks)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		return m, m.Refresh()
	case "n":
		m.mode = modeNewDeck
		m.focus = deckFieldName
		return m, m.focusInput()
	case "enter", "s":
		if deck, ok := m.Selected(); ok {
			return m, func() tea.Msg { return StartStudyMsg{Deck: deck} }
		}
	case "a":
		if deck, ok := m.Selected(); ok {
			return m, func() tea.Msg { return AddCardMsg{Deck: deck} }
		}
	case "c", "l", "right":
		if deck, ok := m.Selected(); ok {
			m.mode = modeDeckCards
			m.cards = nil
			m.cardCursor = 0
			m.confirm = nil
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadCards(deck.ID))
		}
	}
	return m, nil
}

func (m DecksModel) updateCards(msg tea.KeyMsg) (DecksModel, tea.Cmd) {
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y":
			card := m.confirm
			m.confirm = nil
			m.loading = true
			return m, m.deleteCard(card.ID)
		case "n", "N", "esc":
			m.confirm = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		if m.cardCursor < len(m.cards)-1 {
			m.cardCursor++
		}
	case "k", "up":
		if m.cardCursor > 0 {
			m.cardCursor--
		}
	case "d", "x":
		if m.cardCursor < len(m.cards) {
			card := m.cards[m.cardCursor]
			m.confirm = &card
		}
	case "c":
		if m.cardCursor < len(m.cards) {
			if err := m.copy(clipboard.FormatCard(m.cards[m.cardCursor])); err != nil {
				notify.Warn(m.notifier, "Clipboard not available")
			} else {
				notify.Success(m.notifier, "Copied to clipboard")
			}
		}
	case "enter", "s":
		if deck, ok := m.Selected(); ok {
			return m, func() tea.Msg { return StartStudyMsg{Deck: deck} }
		}
	case "a":
		if deck, ok := m.Selected(); ok {
			return m, func() tea.Msg { return AddCardMsg{Deck: deck} }
		}
	case "esc", "h", "left", "backspace":
		m.mode = modeDeckList
	}
	return m, nil
}

func (m DecksModel) updateForm(msg tea.KeyMsg) (DecksModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeDeckList
		m.inputs = newDeckInputs()
		return m, nil
	case "tab", "down":
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.focusInput()
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + len(m.inputs)) % len(m.inputs)
		return m, m.focusInput()
	case "enter":
		draft := shinkei.NewDeckDraft(
			m.inputs[deckFieldName].Value(),
			m.inputs[deckFieldDescription].Value(),
			m.inputs[deckFieldCategory].Value(),
			m.inputs[deckFieldLevel].Value(),
		)
		if draft.Name == "" {
			notify.Warn(m.notifier, "Please enter a deck name")
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.createDeck(draft))
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *DecksModel) focusInput() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

// View renders the deck view.
func (m DecksModel) View() string {
	switch m.mode {
	case modeNewDeck:
		return m.renderForm()
	case modeDeckCards:
		return m.renderCards()
	}
	return m.renderList()
}

func (m DecksModel) renderList() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Decks"))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.decks) == 0:
		b.WriteString(m.spinner.View() + loadingStyle.Render(" Loading decks..."))
		return b.String()
	case len(m.decks) == 0:
		b.WriteString(mutedStyle.Render("No decks yet. Press n to create one."))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("n: new deck • r: refresh"))
		return b.String()
	}

	nameWidth := max(m.width-40, 20)
	header := fmt.Sprintf("  %s %6s  %-10s %s", pad("Name", nameWidth), "Cards", "Level", "Created")
	b.WriteString(mutedStyle.Render(header))
	b.WriteString("\n")

	start, end := window(m.cursor, len(m.decks), m.height-10)
	for i := start; i < end; i++ {
		d := m.decks[i]
		level := string(d.Level)
		if level == "" {
			level = "-"
		}
		line := fmt.Sprintf("%s %6d  %-10s %s", pad(d.Name, nameWidth), d.CardCount, truncate(level, 10), d.Created())
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(rowStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if deck, ok := m.Selected(); ok && deck.Description != "" {
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render(wordWrap(deck.Description, max(m.width-4, 20))))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter: study • c: cards • a: add card • n: new deck • r: refresh"))
	return b.String()
}

func (m DecksModel) renderCards() string {
	var b strings.Builder
	deck, _ := m.Selected()

	b.WriteString(titleStyle.Render(deck.Name))
	b.WriteString("\n\n")

	if m.loading && m.cards == nil {
		b.WriteString(m.spinner.View() + loadingStyle.Render(" Loading cards..."))
		return b.String()
	}

	stats := fmt.Sprintf("%d cards • %d due • %d mastered (%.1f%%)",
		m.stats.CardCount, m.stats.DueCount, m.stats.Mastered, m.stats.MasteryRate)
	b.WriteString(subtitleStyle.Render(stats))
	b.WriteString("\n\n")

	if len(m.cards) == 0 {
		b.WriteString(mutedStyle.Render("No cards in this deck. Press a to add one."))
		b.WriteString("\n")
	}

	englishWidth := max(m.width-44, 16)
	start, end := window(m.cardCursor, len(m.cards), m.height-12)
	for i := start; i < end; i++ {
		c := m.cards[i]
		line := fmt.Sprintf("%s %s %s L%d",
			pad(c.Hanzi, 10), pad(c.Pinyin, 18), pad(c.English, englishWidth), c.Level())
		if i == m.cardCursor {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(rowStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if m.confirm != nil {
		prompt := fmt.Sprintf("Delete %s (%s)?\n\n", m.confirm.Hanzi, m.confirm.English) +
			"This cannot be undone.  y: delete • n: cancel"
		b.WriteString("\n")
		b.WriteString(confirmStyle.Render(prompt))
		return b.String()
	}

	b.WriteString(helpStyle.Render("enter: study • a: add card • c: copy • d: delete card • esc: back"))
	return b.String()
}

func (m DecksModel) renderForm() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("New Deck"))
	b.WriteString("\n\n")

	labels := []string{"Name", "Description", "Category", "Level"}
	for i, in := range m.inputs {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if m.loading {
		b.WriteString("\n" + m.spinner.View() + loadingStyle.Render(" Creating deck..."))
	}
	b.WriteString(helpStyle.Render("tab: next field • enter: create • esc: cancel"))
	return b.String()
}

// window returns the visible range of a list of n rows around cursor.
func window(cursor, n, height int) (int, int) {
	if height < 5 {
		height = 5
	}
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, n)
	return start, end
}
