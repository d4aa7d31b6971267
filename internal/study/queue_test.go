package study

import (
	"errors"
	"testing"
	"time"

	"github.com/f3rmion/shinkei/internal/shinkei"
)

func card(id int64, level *int, review string) shinkei.Card {
	c := shinkei.Card{ID: id, SRSLevel: level}
	if review != "" {
		c.NextReview = &review
	}
	return c
}

func lvl(n int) *int { return &n }

func ids(cards []shinkei.Card) []int64 {
	out := make([]int64, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestDueCards(t *testing.T) {
	cards := []shinkei.Card{
		card(1, lvl(5), "2025-04-01 00:00:00"), // mastered, not due
		card(2, lvl(4), "2025-03-01 00:00:00"), // mastered, overdue
		card(3, lvl(1), "2025-05-01 00:00:00"), // learning, scheduled later
		card(4, nil, ""),                       // never scheduled
		card(5, lvl(1), "2025-03-05 08:00:00"), // learning, overdue
		card(6, lvl(0), "garbage"),             // unreadable date
		card(7, nil, "2025-06-01 00:00:00"),    // no level, future date
	}

	got := ids(DueCards(cards, now, 0))
	want := []int64{4, 6, 5, 3, 2}
	if !equalIDs(got, want) {
		t.Errorf("DueCards = %v, want %v", got, want)
	}

	if got := ids(DueCards(cards, now, 2)); !equalIDs(got, []int64{4, 6}) {
		t.Errorf("limited DueCards = %v", got)
	}
	if got := DueCards(nil, now, 20); len(got) != 0 {
		t.Errorf("DueCards(nil) = %v", got)
	}
}

func TestStats(t *testing.T) {
	cards := []shinkei.Card{
		card(1, lvl(3), "2025-03-10 23:00:00"), // due today
		card(2, lvl(4), "2025-03-11 00:00:00"),
		card(3, lvl(1), "nope"),
		card(4, nil, ""),
	}
	st := Stats(cards, now)
	if st.CardCount != 4 || st.DueCount != 2 || st.Mastered != 2 || st.MasteryRate != 50 {
		t.Errorf("Stats = %+v", st)
	}

	third := Stats(cards[1:], now)
	if third.MasteryRate != 33.3 {
		t.Errorf("MasteryRate = %v, want 33.3", third.MasteryRate)
	}

	if empty := Stats(nil, now); empty.MasteryRate != 0 || empty.CardCount != 0 {
		t.Errorf("empty Stats = %+v", empty)
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want Rating
	}{
		{"1", Again},
		{" 4 ", Easy},
		{"good", Good},
		{"HARD", Hard},
	}
	for _, tt := range tests {
		got, err := ParseRating(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseRating(%q) = %v, %v", tt.in, got, err)
		}
	}
	for _, in := range []string{"0", "5", "meh", ""} {
		if _, err := ParseRating(in); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("ParseRating(%q) err = %v", in, err)
		}
	}
}

func TestRatingString(t *testing.T) {
	if Good.String() != "Good" || Rating(7).String() != "Rating(7)" {
		t.Errorf("unexpected names %q %q", Good, Rating(7))
	}
}
