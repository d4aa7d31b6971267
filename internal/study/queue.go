package study

import (
	"math"
	"sort"
	"time"

	"github.com/f3rmion/shinkei/internal/shinkei"
)

// MasteredLevel is the SRS level from which a card counts as mastered.
const MasteredLevel = 3

// DueCards picks the cards to study from a deck: cards never scheduled, cards
// whose review date has passed, and cards not yet mastered. They are ordered
// by SRS level, then by review date, unscheduled first. A limit of 0 or less
// returns every due card.
func DueCards(cards []shinkei.Card, now time.Time, limit int) []shinkei.Card {
	type entry struct {
		card     shinkei.Card
		review   time.Time
		hasDate  bool
		hasLevel bool
	}

	var due []entry
	for _, c := range cards {
		review, ok, err := c.NextReviewTime()
		learning := c.SRSLevel != nil && *c.SRSLevel < MasteredLevel
		isDue := !ok || err != nil || !review.After(now) || learning
		if !isDue {
			continue
		}
		due = append(due, entry{card: c, review: review, hasDate: ok && err == nil, hasLevel: c.SRSLevel != nil})
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.hasLevel != b.hasLevel {
			return !a.hasLevel
		}
		if a.card.Level() != b.card.Level() {
			return a.card.Level() < b.card.Level()
		}
		if a.hasDate != b.hasDate {
			return !a.hasDate
		}
		return a.review.Before(b.review)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]shinkei.Card, len(due))
	for i, e := range due {
		out[i] = e.card
	}
	return out
}

// DeckStats summarizes review progress for a deck.
type DeckStats struct {
	CardCount   int
	DueCount    int
	Mastered    int
	MasteryRate float64
}

// Stats computes deck statistics. A card is due when its review date is today
// or earlier; unreadable dates count as due.
func Stats(cards []shinkei.Card, now time.Time) DeckStats {
	today := now.UTC().Format(time.DateOnly)

	st := DeckStats{CardCount: len(cards)}
	for _, c := range cards {
		review, ok, err := c.NextReviewTime()
		switch {
		case err != nil:
			st.DueCount++
		case ok && review.Format(time.DateOnly) <= today:
			st.DueCount++
		}
		if c.Level() >= MasteredLevel {
			st.Mastered++
		}
	}
	if st.CardCount > 0 {
		rate := float64(st.Mastered) / float64(st.CardCount) * 100
		st.MasteryRate = math.Round(rate*10) / 10
	}
	return st
}
