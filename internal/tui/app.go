package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/tui/views"
)

// statusTimeout is how long a notification stays in the status line.
const statusTimeout = 4 * time.Second

// ViewType represents the current active view
type ViewType int

const (
	ViewDecks ViewType = iota
	ViewStudy
	ViewEditor
)

// MenuItem represents a sidebar menu entry
type MenuItem struct {
	Label    string
	View     ViewType
	Shortcut string
}

type clearStatusMsg struct {
	seq int
}

// AppModel is the main TUI model
type AppModel struct {
	events *views.Events

	// Layout state
	width        int
	height       int
	sidebarWidth int
	ready        bool

	// Navigation
	currentView   ViewType
	menuItems     []MenuItem
	selectedMenu  int
	sidebarActive bool

	// Sub-models (views)
	decksView  views.DecksModel
	studyView  views.StudyModel
	editorView views.EditorModel

	// Status line
	status    views.StatusMsg
	statusSeq int

	// Deck to study on start
	startDeck *shinkei.Deck

	showHelp bool
}

// NewApp creates the application model.
func NewApp(opts Options) AppModel {
	events := views.NewEvents(64)
	notifier := events.Notifier()

	menuItems := []MenuItem{
		{Label: "Decks", View: ViewDecks, Shortcut: "1"},
		{Label: "Study", View: ViewStudy, Shortcut: "2"},
		{Label: "Add Card", View: ViewEditor, Shortcut: "3"},
	}

	return AppModel{
		events:       events,
		sidebarWidth: 18,
		currentView:  ViewDecks,
		menuItems:    menuItems,
		startDeck:    opts.StudyDeck,

		decksView: views.NewDecksModel(opts.Backend, notifier),
		studyView: views.NewStudyModel(opts.Backend, notifier, views.StudyOptions{
			Limit:  opts.StudyLimit,
			All:    opts.StudyAll,
			Logger: opts.Logger,
		}),
		editorView: views.NewEditorModel(opts.Backend, events, views.EditorOptions{
			Player:       opts.Player,
			PollInterval: opts.PollInterval,
			Logger:       opts.Logger,
		}),
	}
}

// Init loads the deck list and starts listening for background events.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.decksView.Init(), m.events.Wait()}
	if m.startDeck != nil {
		deck := *m.startDeck
		cmds = append(cmds, func() tea.Msg { return views.StartStudyMsg{Deck: deck} })
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Help overlay - any key closes it
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			return m.quit()
		case "tab":
			if !m.editing() {
				m.sidebarActive = !m.sidebarActive
				return m, nil
			}
		}

		if !m.editing() {
			switch msg.String() {
			case "q":
				return m.quit()
			case "?":
				m.showHelp = true
				return m, nil
			}
		}

		// Sidebar navigation when active
		if m.sidebarActive {
			switch msg.String() {
			case "j", "down":
				if m.selectedMenu < len(m.menuItems)-1 {
					m.selectedMenu++
				}
			case "k", "up":
				if m.selectedMenu > 0 {
					m.selectedMenu--
				}
			case "enter", "l", "right":
				m.switchTo(m.menuItems[m.selectedMenu].View)
			case "esc":
				m.sidebarActive = false
			default:
				for _, item := range m.menuItems {
					if msg.String() == item.Shortcut {
						m.switchTo(item.View)
					}
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		contentWidth := m.width - m.sidebarWidth - 4
		contentHeight := m.height - 3

		m.decksView.SetSize(contentWidth, contentHeight)
		m.studyView.SetSize(contentWidth, contentHeight)
		m.editorView.SetSize(contentWidth, contentHeight)
		return m, nil

	case views.StatusMsg:
		m.status = msg
		m.statusSeq++
		seq := m.statusSeq
		return m, tea.Batch(m.events.Wait(), tea.Tick(statusTimeout, func(time.Time) tea.Msg {
			return clearStatusMsg{seq: seq}
		}))

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = views.StatusMsg{}
		}
		return m, nil

	case views.AudioMsg, views.PayloadMsg:
		var cmd tea.Cmd
		m.editorView, cmd = m.editorView.Update(msg)
		return m, tea.Batch(cmd, m.events.Wait())

	case views.StartStudyMsg:
		m.switchTo(ViewStudy)
		return m, m.studyView.Start(msg.Deck)

	case views.AddCardMsg:
		m.switchTo(ViewEditor)
		return m, m.editorView.Open(msg.Deck)

	case views.BackMsg:
		m.switchTo(ViewDecks)
		if msg.Refresh {
			return m, m.decksView.Refresh()
		}
		return m, nil
	}

	// Results of background commands go to the view that issued them,
	// whichever view is showing.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if _, ok := msg.(tea.KeyMsg); ok {
		switch m.currentView {
		case ViewDecks:
			m.decksView, cmd = m.decksView.Update(msg)
		case ViewStudy:
			m.studyView, cmd = m.studyView.Update(msg)
		case ViewEditor:
			m.editorView, cmd = m.editorView.Update(msg)
		}
		return m, cmd
	}

	m.decksView, cmd = m.decksView.Update(msg)
	cmds = append(cmds, cmd)
	m.studyView, cmd = m.studyView.Update(msg)
	cmds = append(cmds, cmd)
	m.editorView, cmd = m.editorView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *AppModel) switchTo(v ViewType) {
	m.currentView = v
	m.sidebarActive = false
	for i, item := range m.menuItems {
		if item.View == v {
			m.selectedMenu = i
		}
	}
}

// editing reports whether the current view is capturing text input.
func (m AppModel) editing() bool {
	if m.sidebarActive {
		return false
	}
	switch m.currentView {
	case ViewDecks:
		return m.decksView.Editing()
	case ViewEditor:
		return m.editorView.Editing()
	}
	return false
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	m.editorView.Close()
	return m, tea.Quit
}

// Status returns the notification currently shown.
func (m AppModel) Status() views.StatusMsg {
	return m.status
}

// CurrentView returns the active view.
func (m AppModel) CurrentView() ViewType {
	return m.currentView
}

// View renders the UI
func (m AppModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	sidebar := m.renderSidebar()

	var content string
	switch m.currentView {
	case ViewDecks:
		content = m.decksView.View()
	case ViewStudy:
		content = m.studyView.View()
	case ViewEditor:
		content = m.editorView.View()
	}

	contentWidth := m.width - m.sidebarWidth - 4
	mainContent := ContentStyle.
		Width(contentWidth).
		Height(m.height - 3).
		Render(content)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, mainContent)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatus())
}

func (m AppModel) renderStatus() string {
	if m.status.Text == "" {
		return ""
	}
	style, ok := StatusStyles[m.status.Level]
	if !ok {
		style = StatusStyles[notify.LevelInfo]
	}
	return style.Render(m.status.Text)
}

// renderSidebar renders the sidebar navigation
func (m AppModel) renderSidebar() string {
	var items []string

	items = append(items, SidebarTitleStyle.Render("  神経 shinkei  "))
	items = append(items, "")

	for i, item := range m.menuItems {
		label := item.Shortcut + ". " + item.Label

		var style lipgloss.Style
		switch {
		case i == m.selectedMenu && m.sidebarActive:
			style = SidebarItemActiveStyle
		case i == m.selectedMenu:
			// Current view, not focused
			style = SidebarItemStyle.Bold(true).Foreground(ColorSecondary)
		default:
			style = SidebarItemStyle
		}
		items = append(items, style.Render(label))
	}

	usedHeight := len(items) + 5
	for i := 0; i < m.height-usedHeight-2; i++ {
		items = append(items, "")
	}

	items = append(items, SidebarHelpStyle.Render("tab Menu  ? Help\nq Quit"))

	content := lipgloss.JoinVertical(lipgloss.Left, items...)
	return SidebarStyle.
		Width(m.sidebarWidth).
		Height(m.height - 3).
		Render(content)
}

// renderHelp renders the help overlay
func (m AppModel) renderHelp() string {
	help := HelpTitleStyle.Render("神経 shinkei") + "\n\n"

	section := func(name string, keys ...string) {
		help += HelpSectionStyle.Render(name) + "\n"
		for i := 0; i+1 < len(keys); i += 2 {
			help += HelpKeyStyle.Render(keys[i]) + HelpDescStyle.Render(keys[i+1]) + "\n"
		}
	}

	section("Global",
		"tab", "Toggle menu focus (then 1-3 to switch)",
		"?", "Show this help",
		"q", "Quit",
	)
	section("Decks",
		"enter", "Study deck",
		"c", "Show cards and stats",
		"a", "Add card",
		"n", "New deck",
		"d", "Delete card (card list)",
		"c", "Copy card (card list)",
	)
	section("Study",
		"space", "Flip card",
		"1-4", "Again / Hard / Good / Easy",
		"f", "Finish session",
	)
	section("Add Card",
		"ctrl+g", "Suggest focused field",
		"ctrl+e", "Suggest all fields",
		"ctrl+v", "Generate audio",
		"ctrl+r", "Regenerate audio",
		"ctrl+p", "Play / pause",
		"ctrl+s", "Save card",
	)

	help += "\n" + HelpFooterStyle.Render("Press any key to close")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, HelpBoxStyle.Render(help))
}
