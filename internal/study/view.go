package study

import (
	"fmt"
	"io"
	"strings"

	"github.com/f3rmion/shinkei/internal/shinkei"
)

// View is the render target of a session. The session only ever writes to it.
// Implementations must not call back into the Session.
type View interface {
	ShowCard(card shinkei.Card)
	SetRevealed(revealed bool)
	ShowProgress(p Progress)
	SetFinishVisible(visible bool)
	ShowCompletion(s Summary)
}

// NopView ignores every update. Renderers that pull state through
// Session.Snapshot use it.
type NopView struct{}

func (NopView) ShowCard(shinkei.Card)  {}
func (NopView) SetRevealed(bool)       {}
func (NopView) ShowProgress(Progress)  {}
func (NopView) SetFinishVisible(bool)  {}
func (NopView) ShowCompletion(Summary) {}

// TextView renders a session as plain lines, for terminals without the TUI.
type TextView struct {
	w    io.Writer
	card shinkei.Card
}

// NewTextView creates a TextView writing to w.
func NewTextView(w io.Writer) *TextView {
	return &TextView{w: w}
}

func (v *TextView) ShowCard(card shinkei.Card) {
	v.card = card
	if card.Pinyin != "" {
		fmt.Fprintf(v.w, "\n  %s  (%s)\n", card.Hanzi, card.Pinyin)
		return
	}
	fmt.Fprintf(v.w, "\n  %s\n", card.Hanzi)
}

func (v *TextView) SetRevealed(revealed bool) {
	if !revealed {
		return
	}
	fmt.Fprintf(v.w, "  = %s\n", v.card.English)
	for _, line := range backLines(v.card) {
		fmt.Fprintf(v.w, "    %s\n", line)
	}
}

func (v *TextView) ShowProgress(p Progress) {
	fmt.Fprintf(v.w, "[%s] %d remaining\n", p, p.Remaining)
}

func (v *TextView) SetFinishVisible(visible bool) {
	if visible {
		fmt.Fprintln(v.w, "space: flip  1-4: again/hard/good/easy  q: finish")
	}
}

func (v *TextView) ShowCompletion(s Summary) {
	fmt.Fprintf(v.w, "\nSession complete: %d cards studied in %s\n", s.Studied, s.Duration())
}

// backLines returns the optional details shown on the back of a card.
func backLines(c shinkei.Card) []string {
	var lines []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("traditional", c.Traditional)
	add("part of speech", c.PartOfSpeech)
	add("measure word", c.MeasureWord)
	add("example", c.ExampleSentence)
	add("notes", c.Notes)
	return lines
}
