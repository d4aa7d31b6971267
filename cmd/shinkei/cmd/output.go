package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/mattn/go-runewidth"
)

// deckLister is the part of the backend used to resolve deck arguments.
type deckLister interface {
	ListDecks(ctx context.Context) ([]shinkei.Deck, error)
}

// findDeck resolves a deck by numeric ID or by case-insensitive name.
func findDeck(ctx context.Context, backend deckLister, arg string) (shinkei.Deck, error) {
	decks, err := backend.ListDecks(ctx)
	if err != nil {
		return shinkei.Deck{}, err
	}

	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		for _, d := range decks {
			if d.ID == id {
				return d, nil
			}
		}
		return shinkei.Deck{}, fmt.Errorf("no deck with ID %d", id)
	}

	var matches []shinkei.Deck
	for _, d := range decks {
		if strings.EqualFold(d.Name, arg) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return shinkei.Deck{}, fmt.Errorf("no deck named %q", arg)
	case 1:
		return matches[0], nil
	}
	return shinkei.Deck{}, fmt.Errorf("%d decks are named %q, use the deck ID", len(matches), arg)
}

// printTable writes rows as aligned columns. Widths are measured in terminal
// cells so Chinese text lines up.
func printTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); i < len(widths) && cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string) {
		var sb strings.Builder
		for i, cell := range cells {
			if i == len(cells)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}

	line(header)
	for _, row := range rows {
		line(row)
	}
}

// clip shortens s to width cells.
func clip(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "…")
}

// confirm asks a yes/no question on w and reads the answer from r.
func confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
