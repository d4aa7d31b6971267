package views

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/shinkei/internal/audio"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/pinyin"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/suggest"
)

// editorFields are the card fields in form order.
var editorFields = []string{
	shinkei.FieldHanzi,
	shinkei.FieldPinyin,
	shinkei.FieldEnglish,
	shinkei.FieldTraditional,
	shinkei.FieldPartOfSpeech,
	shinkei.FieldMeasureWord,
	shinkei.FieldExampleSentence,
	shinkei.FieldNotes,
}

var editorLabels = map[string]string{
	shinkei.FieldHanzi:           "Hanzi *",
	shinkei.FieldPinyin:          "Pinyin",
	shinkei.FieldEnglish:         "English *",
	shinkei.FieldTraditional:     "Traditional",
	shinkei.FieldPartOfSpeech:    "Part of speech",
	shinkei.FieldMeasureWord:     "Measure word",
	shinkei.FieldExampleSentence: "Example",
	shinkei.FieldNotes:           "Notes",
}

// AudioMsg carries a playback update from the editor's audio controller.
type AudioMsg struct {
	src      *audio.Controller
	Snapshot audio.Snapshot
}

// PayloadMsg carries a newly generated audio payload for the card draft.
type PayloadMsg struct {
	src     *audio.Controller
	Payload string
}

type suggestedMsg struct {
	draft   shinkei.CardDraft
	applied []string
	err     error
}

// audioDoneMsg carries the controller state after a synthesis so the stored
// payload does not depend on queued events arriving.
type audioDoneMsg struct {
	src  *audio.Controller
	snap audio.Snapshot
	err  error
}

type cardAddedMsg struct {
	id  int64
	err error
}

// EditorOptions configures the card editor.
type EditorOptions struct {
	// Player plays generated audio; nil disables playback.
	Player       audio.Player
	PollInterval time.Duration
	Logger       *slog.Logger
}

// EditorModel is the add-card form with AI suggestions and pronunciation audio.
type EditorModel struct {
	backend  Backend
	notifier notify.Notifier
	events   *Events
	parser   *pinyin.Parser
	opts     EditorOptions

	deck   shinkei.Deck
	inputs []textinput.Model
	focus  int

	audio     *audio.Controller
	audioSnap audio.Snapshot
	payload   string

	suggesting bool
	generating bool
	submitting bool
	added      int

	spinner spinner.Model
	bar     progress.Model

	width  int
	height int
}

// NewEditorModel creates the card editor. Notifications and audio updates
// are delivered through events.
func NewEditorModel(backend Backend, events *Events, opts EditorOptions) EditorModel {
	if events == nil {
		events = NewEvents(64)
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	m := EditorModel{
		backend:  backend,
		notifier: events.Notifier(),
		events:   events,
		parser:   pinyin.NewParser(),
		opts:     opts,
		spinner:  sp,
		bar:      progress.New(progress.WithSolidFill("#4ecdc4"), progress.WithoutPercentage()),
	}
	m.reset()
	return m
}

// Open starts a new card for deck.
func (m *EditorModel) Open(deck shinkei.Deck) tea.Cmd {
	m.deck = deck
	m.added = 0
	m.reset()
	return m.focusInput()
}

// reset clears the form and replaces the audio controller.
func (m *EditorModel) reset() {
	if m.audio != nil {
		m.audio.Close()
	}
	m.inputs = make([]textinput.Model, len(editorFields))
	for i, f := range editorFields {
		ti := textinput.New()
		ti.Placeholder = editorLabels[f]
		ti.CharLimit = 500
		ti.Width = 48
		m.inputs[i] = ti
	}
	m.inputs[slices.Index(editorFields, shinkei.FieldPartOfSpeech)].Placeholder = strings.Join(shinkei.PartsOfSpeech, ", ")
	m.focus = 0
	m.payload = ""
	m.suggesting = false
	m.generating = false
	m.submitting = false
	m.audio = m.newController()
	m.audioSnap = m.audio.Snapshot()
}

func (m *EditorModel) newController() *audio.Controller {
	events := m.events
	var c *audio.Controller
	opts := []audio.Option{
		audio.WithUpdates(func(s audio.Snapshot) { events.Send(AudioMsg{src: c, Snapshot: s}) }),
	}
	if m.opts.PollInterval > 0 {
		opts = append(opts, audio.WithPollInterval(m.opts.PollInterval))
	}
	if m.opts.Logger != nil {
		opts = append(opts, audio.WithLogger(m.opts.Logger))
	}
	sink := func(payload string) { events.Send(PayloadMsg{src: c, Payload: payload}) }
	c = audio.NewController(m.backend, m.opts.Player, m.notifier, sink, opts...)
	return c
}

// SetSize updates the view dimensions.
func (m *EditorModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.bar.Width = min(max(width-30, 10), 40)
}

// Close stops any playback.
func (m *EditorModel) Close() error {
	if m.audio == nil {
		return nil
	}
	return m.audio.Close()
}

// Deck returns the deck cards are added to.
func (m EditorModel) Deck() shinkei.Deck {
	return m.deck
}

// Editing reports whether the form has keyboard focus.
func (m EditorModel) Editing() bool {
	return m.deck.ID != 0
}

// Draft returns the card as currently entered, including the audio payload.
func (m EditorModel) Draft() shinkei.CardDraft {
	var d shinkei.CardDraft
	for i, f := range editorFields {
		d.SetField(f, strings.TrimSpace(m.inputs[i].Value()))
	}
	d.AudioBase64 = m.payload
	return d
}

func (m *EditorModel) setField(field, value string) {
	if i := slices.Index(editorFields, field); i >= 0 {
		m.inputs[i].SetValue(value)
	}
}

func (m EditorModel) focusedField() string {
	return editorFields[m.focus]
}

// prefillPinyin derives pinyin from the hanzi when the field is empty.
func (m *EditorModel) prefillPinyin() {
	d := m.Draft()
	if d.Pinyin != "" || d.Hanzi == "" {
		return
	}
	if p := m.parser.Pinyin(d.Hanzi); p != "" {
		m.setField(shinkei.FieldPinyin, p)
	}
}

func (m EditorModel) suggest(fields ...string) tea.Cmd {
	draft := m.Draft()
	backend, notifier := m.backend, m.notifier
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		applied, err := suggest.Fill(ctx, backend, &draft, notifier, fields...)
		return suggestedMsg{draft: draft, applied: applied, err: err}
	}
}

func (m EditorModel) generate(regenerate bool) tea.Cmd {
	c := m.audio
	text := m.Draft().English
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		var err error
		if regenerate {
			err = c.Regenerate(ctx, text)
		} else {
			err = c.Generate(ctx, text)
		}
		return audioDoneMsg{src: c, snap: c.Snapshot(), err: err}
	}
}

func (m EditorModel) submit(draft shinkei.CardDraft) tea.Cmd {
	backend, deckID := m.backend, m.deck.ID
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()
		id, err := backend.AddCard(ctx, deckID, draft)
		return cardAddedMsg{id: id, err: err}
	}
}

// Update handles messages.
func (m EditorModel) Update(msg tea.Msg) (EditorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case AudioMsg:
		if msg.src == m.audio {
			m.audioSnap = msg.Snapshot
			if msg.Snapshot.Payload != "" {
				m.payload = msg.Snapshot.Payload
			}
		}
		return m, nil

	case PayloadMsg:
		if msg.src == m.audio {
			m.payload = msg.Payload
		}
		return m, nil

	case suggestedMsg:
		m.suggesting = false
		for _, f := range msg.applied {
			m.setField(f, msg.draft.Field(f))
		}
		return m, nil

	case audioDoneMsg:
		if msg.src != m.audio {
			return m, nil
		}
		m.generating = false
		m.audioSnap = msg.snap
		if msg.snap.Payload != "" {
			m.payload = msg.snap.Payload
		}
		return m, nil

	case cardAddedMsg:
		m.submitting = false
		if msg.err != nil {
			notify.Report(m.notifier, msg.err)
			return m, nil
		}
		notify.Success(m.notifier, "Card added successfully!")
		m.added++
		m.reset()
		return m, m.focusInput()

	case tea.KeyMsg:
		if m.deck.ID == 0 {
			return m, nil
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m EditorModel) updateKeys(msg tea.KeyMsg) (EditorModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		added := m.added > 0
		return m, func() tea.Msg { return BackMsg{Refresh: added} }

	case "tab", "down", "enter":
		if m.focusedField() == shinkei.FieldHanzi {
			m.prefillPinyin()
		}
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.focusInput()

	case "shift+tab", "up":
		m.focus = (m.focus - 1 + len(m.inputs)) % len(m.inputs)
		return m, m.focusInput()

	case "ctrl+g":
		if m.suggesting {
			return m, nil
		}
		field := m.focusedField()
		if !slices.Contains(shinkei.SuggestableFields, field) {
			notify.Info(m.notifier, "Move to a field other than English to request a suggestion")
			return m, nil
		}
		m.suggesting = true
		return m, tea.Batch(m.spinner.Tick, m.suggest(field))

	case "ctrl+e":
		if m.suggesting {
			return m, nil
		}
		m.suggesting = true
		return m, tea.Batch(m.spinner.Tick, m.suggest())

	case "ctrl+v", "ctrl+r":
		if m.generating {
			notify.Report(m.notifier, audio.ErrBusy)
			return m, nil
		}
		regenerate := msg.String() == "ctrl+r"
		if regenerate && m.payload == "" {
			notify.Info(m.notifier, "Generate audio first")
			return m, nil
		}
		m.generating = true
		return m, tea.Batch(m.spinner.Tick, m.generate(regenerate))

	case "ctrl+p":
		if err := m.audio.Toggle(); err != nil {
			if errors.Is(err, audio.ErrNoPlayer) {
				notify.Info(m.notifier, "No audio to play")
			} else {
				notify.Report(m.notifier, err)
			}
		}
		m.audioSnap = m.audio.Snapshot()
		return m, nil

	case "ctrl+s":
		if m.submitting {
			return m, nil
		}
		m.prefillPinyin()
		draft := m.Draft()
		if missing := draft.Missing(); len(missing) > 0 {
			notify.Warn(m.notifier, "Please fill in: %s", strings.Join(missing, ", "))
			return m, nil
		}
		m.submitting = true
		return m, tea.Batch(m.spinner.Tick, m.submit(draft))
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m EditorModel) busy() bool {
	return m.suggesting || m.generating || m.submitting
}

func (m *EditorModel) focusInput() tea.Cmd {
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

// View renders the editor.
func (m EditorModel) View() string {
	if m.deck.ID == 0 {
		content := titleStyle.Render("No deck selected") + "\n\n" +
			mutedStyle.Render("Select a deck in the Decks view and press a")
		return "\n\n" + boxStyle.Render(content)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Add Card"))
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("→ " + m.deck.Name))
	b.WriteString("\n\n")

	for i, f := range editorFields {
		b.WriteString(labelStyle.Render(editorLabels[f]))
		b.WriteString(m.inputs[i].View())
		if f == shinkei.FieldPinyin && m.inputs[i].Value() != "" {
			b.WriteString("  " + renderPinyin(m.inputs[i].Value()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderAudio())
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(m.spinner.View() + loadingStyle.Render(" Adding card..."))
	case m.suggesting:
		b.WriteString(m.spinner.View() + loadingStyle.Render(" Asking for suggestions..."))
	case m.generating:
		b.WriteString(m.spinner.View() + loadingStyle.Render(" Generating audio..."))
	}

	b.WriteString(helpStyle.Render(
		"tab: next • ctrl+g: suggest field • ctrl+e: suggest all • ctrl+s: save • esc: back\n" +
			"ctrl+v: generate audio • ctrl+r: regenerate • ctrl+p: play/pause"))
	return b.String()
}

func (m EditorModel) renderAudio() string {
	s := m.audioSnap
	label := labelStyle.Render("Audio")
	if s.SynthesisVisible && m.payload == "" {
		return label + mutedStyle.Render("none • ctrl+v to generate")
	}
	if !s.Ready {
		return label + valueStyle.Render("generated (no player)")
	}
	state := "▶"
	if s.Playing {
		state = "⏸"
	}
	return fmt.Sprintf("%s%s %s %s / %s", label, state, m.bar.ViewAs(s.Fraction),
		s.Elapsed, audio.FormatTime(s.Duration))
}
