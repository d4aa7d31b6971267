package study

import (
	"fmt"
	"strconv"
	"strings"
)

// Rating is the user's assessment of recall for a card. The engine forwards
// it to the backend without interpreting it.
type Rating int

const (
	Again Rating = iota + 1
	Hard
	Good
	Easy
)

var ratingNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}

// Ratings lists every valid rating in key order.
var Ratings = []Rating{Again, Hard, Good, Easy}

// String returns the rating's name, or "Rating(n)" for invalid values.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// IsValid reports whether r is between Again and Easy.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// ParseRating accepts a key ("1" to "4") or a name such as "good".
func ParseRating(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if r := Rating(n); r.IsValid() {
			return r, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrInvalidRating, n)
	}
	for _, r := range Ratings {
		if strings.EqualFold(s, ratingNames[r]) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}
