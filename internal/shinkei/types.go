// Package shinkei provides the core types shared by the flashcard client.
package shinkei

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Card field names as they appear in backend requests and responses.
const (
	FieldHanzi           = "hanzi"
	FieldPinyin          = "pinyin"
	FieldEnglish         = "english"
	FieldTraditional     = "traditional"
	FieldPartOfSpeech    = "part_of_speech"
	FieldMeasureWord     = "measure_word"
	FieldExampleSentence = "example_sentence"
	FieldNotes           = "notes"
)

// SuggestableFields lists the card fields the backend can fill in, in form order.
var SuggestableFields = []string{
	FieldHanzi,
	FieldPinyin,
	FieldTraditional,
	FieldPartOfSpeech,
	FieldMeasureWord,
	FieldExampleSentence,
	FieldNotes,
}

// PartsOfSpeech are the accepted values for a card's part of speech.
var PartsOfSpeech = []string{
	"noun",
	"verb",
	"adjective",
	"adverb",
	"pronoun",
	"preposition",
	"conjunction",
	"interjection",
}

// IsPartOfSpeech reports whether s is one of PartsOfSpeech.
func IsPartOfSpeech(s string) bool {
	for _, p := range PartsOfSpeech {
		if p == s {
			return true
		}
	}
	return false
}

// Level is a deck's HSK level. The backend stores it as free text, so it may
// arrive as a string, a number or null.
type Level string

// UnmarshalJSON accepts a JSON string, number or null.
func (l *Level) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Level(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Level(n.String())
	return nil
}

// Deck is a named collection of cards.
type Deck struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Level       Level  `json:"level"`
	Color       string `json:"color"`
	CardCount   int    `json:"card_count"`
	CreatedAt   string `json:"created_at"`
}

// Created returns the creation date (YYYY-MM-DD) or "N/A".
func (d Deck) Created() string {
	if len(d.CreatedAt) >= 10 {
		return d.CreatedAt[:10]
	}
	return "N/A"
}

// Card is a single flashcard. Cards are never modified once loaded into a study session.
type Card struct {
	ID              int64  `json:"id"`
	DeckID          int64  `json:"deck_id"`
	Hanzi           string `json:"hanzi"`
	Pinyin          string `json:"pinyin"`
	English         string `json:"english"`
	Traditional     string `json:"traditional"`
	MeasureWord     string `json:"measure_word"`
	PartOfSpeech    string `json:"part_of_speech"`
	ExampleSentence string `json:"example_sentence"`
	Notes           string `json:"notes"`
	AudioBase64     string `json:"base64_audio"`
	CreatedAt       string `json:"created_at"`

	// Review progress as reported by the backend; nil when the card was never scheduled.
	SRSLevel   *int    `json:"srs_level"`
	NextReview *string `json:"next_review"`
}

// reviewLayouts are the timestamp formats the backend emits for next_review.
var reviewLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Level returns the card's SRS level, 0 if unknown.
func (c Card) Level() int {
	if c.SRSLevel == nil {
		return 0
	}
	return *c.SRSLevel
}

// NextReviewTime parses next_review. ok is false when the card has no review
// date; err is set when the date is present but unreadable.
func (c Card) NextReviewTime() (t time.Time, ok bool, err error) {
	if c.NextReview == nil || strings.TrimSpace(*c.NextReview) == "" {
		return time.Time{}, false, nil
	}
	raw := strings.TrimSpace(*c.NextReview)
	for _, layout := range reviewLayouts {
		if t, err = time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, true, err
}

// DeckDraft holds the fields of a deck that is about to be created.
type DeckDraft struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Level       *string `json:"level"`
}

// NewDeckDraft builds a draft; an empty level is sent as null.
func NewDeckDraft(name, description, category, level string) DeckDraft {
	d := DeckDraft{
		Name:        strings.TrimSpace(name),
		Description: description,
		Category:    category,
	}
	if d.Category == "" {
		d.Category = "Custom"
	}
	if level = strings.TrimSpace(level); level != "" {
		d.Level = &level
	}
	return d
}

// CardDraft holds the fields of a card being edited before it is added to a deck.
// AudioBase64 carries the synthesized pronunciation submitted with the card.
type CardDraft struct {
	Hanzi           string `json:"hanzi"`
	Pinyin          string `json:"pinyin"`
	English         string `json:"english"`
	Traditional     string `json:"traditional"`
	PartOfSpeech    string `json:"part_of_speech"`
	MeasureWord     string `json:"measure_word"`
	ExampleSentence string `json:"example_sentence"`
	Notes           string `json:"notes"`
	AudioBase64     string `json:"base64_audio"`
}

// Field returns the value of a named field.
func (d *CardDraft) Field(name string) string {
	if p := d.fieldPtr(name); p != nil {
		return *p
	}
	return ""
}

// SetField sets a named field. It reports false for unknown names.
func (d *CardDraft) SetField(name, value string) bool {
	p := d.fieldPtr(name)
	if p == nil {
		return false
	}
	*p = value
	return true
}

func (d *CardDraft) fieldPtr(name string) *string {
	switch name {
	case FieldHanzi:
		return &d.Hanzi
	case FieldPinyin:
		return &d.Pinyin
	case FieldEnglish:
		return &d.English
	case FieldTraditional:
		return &d.Traditional
	case FieldPartOfSpeech:
		return &d.PartOfSpeech
	case FieldMeasureWord:
		return &d.MeasureWord
	case FieldExampleSentence:
		return &d.ExampleSentence
	case FieldNotes:
		return &d.Notes
	}
	return nil
}

// Missing returns the names of required fields that are empty.
func (d CardDraft) Missing() []string {
	var missing []string
	if strings.TrimSpace(d.Hanzi) == "" {
		missing = append(missing, FieldHanzi)
	}
	if strings.TrimSpace(d.English) == "" {
		missing = append(missing, FieldEnglish)
	}
	return missing
}

// FormatID renders an ID for use in request paths.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
