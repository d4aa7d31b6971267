package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/shinkei/internal/pinyin"
	"github.com/mattn/go-runewidth"
)

// Shared view styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			Background(lipgloss.Color("#1a1a2e")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ecdc4"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a8dadc")).
			Bold(true).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f1faee"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffe66d")).
			Bold(true).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffe66d")).
			Background(lipgloss.Color("#2d3436"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f1faee"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3d5a80")).
			Padding(1, 2)

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(1, 2)
)

// Tone colors, indexed by pinyin.Tone.
var toneColors = map[pinyin.Tone]lipgloss.Color{
	pinyin.Tone1: lipgloss.Color("#FF6B6B"),
	pinyin.Tone2: lipgloss.Color("#a8e6cf"),
	pinyin.Tone3: lipgloss.Color("#4ecdc4"),
	pinyin.Tone4: lipgloss.Color("#b388eb"),
	pinyin.Tone5: lipgloss.Color("#888888"),
}

// renderPinyin colors each syllable by its tone.
func renderPinyin(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		tone, _ := pinyin.SplitTone(f)
		fields[i] = lipgloss.NewStyle().Bold(true).Foreground(toneColors[tone]).Render(f)
	}
	return strings.Join(fields, " ")
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// pad truncates or right-pads s to exactly width cells.
func pad(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

func wordWrap(s string, width int) string {
	if width <= 0 {
		width = 60
	}
	var lines []string
	var currentLine strings.Builder
	currentWidth := 0

	for _, word := range strings.Fields(s) {
		wordWidth := runewidth.StringWidth(word)
		if currentWidth+wordWidth+1 > width && currentWidth > 0 {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentWidth = 0
		}
		if currentWidth > 0 {
			currentLine.WriteString(" ")
			currentWidth++
		}
		currentLine.WriteString(word)
		currentWidth += wordWidth
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return strings.Join(lines, "\n")
}
