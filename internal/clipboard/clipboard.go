// Package clipboard copies flashcards to the system clipboard.
package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/f3rmion/shinkei/internal/shinkei"
)

// ErrUnavailable is returned when no clipboard utility is installed.
var ErrUnavailable = errors.New("clipboard: not available")

// Write copies text to the system clipboard.
func Write(text string) error {
	if !Available() {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}

// Available checks if clipboard functionality is available.
func Available() bool {
	return !clipboard.Unsupported
}

// FormatCard renders a card as one line: hanzi, pinyin in brackets, then the
// meaning. Empty fields are left out.
func FormatCard(c shinkei.Card) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.Hanzi))
	if trad := strings.TrimSpace(c.Traditional); trad != "" && trad != c.Hanzi {
		b.WriteString(" (" + trad + ")")
	}
	if p := strings.TrimSpace(c.Pinyin); p != "" {
		b.WriteString(" [" + p + "]")
	}
	if e := strings.TrimSpace(c.English); e != "" {
		b.WriteString(" - " + e)
	}
	return b.String()
}
