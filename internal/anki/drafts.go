package anki

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/f3rmion/shinkei/internal/shinkei"
)

// fieldAliases maps lower-cased Anki field names to card fields.
var fieldAliases = map[string]string{
	"hanzi":          shinkei.FieldHanzi,
	"chinese":        shinkei.FieldHanzi,
	"simplified":     shinkei.FieldHanzi,
	"character":      shinkei.FieldHanzi,
	"characters":     shinkei.FieldHanzi,
	"word":           shinkei.FieldHanzi,
	"traditional":    shinkei.FieldTraditional,
	"pinyin":         shinkei.FieldPinyin,
	"reading":        shinkei.FieldPinyin,
	"english":        shinkei.FieldEnglish,
	"meaning":        shinkei.FieldEnglish,
	"definition":     shinkei.FieldEnglish,
	"translation":    shinkei.FieldEnglish,
	"part of speech": shinkei.FieldPartOfSpeech,
	"pos":            shinkei.FieldPartOfSpeech,
	"measure word":   shinkei.FieldMeasureWord,
	"classifier":     shinkei.FieldMeasureWord,
	"example":        shinkei.FieldExampleSentence,
	"sentence":       shinkei.FieldExampleSentence,
	"notes":          shinkei.FieldNotes,
}

var (
	soundTag = regexp.MustCompile(`\[sound:([^\]]+)\]`)
	htmlTag  = regexp.MustCompile(`<[^>]*>`)
	lineTag  = regexp.MustCompile(`(?i)<br\s*/?>|</div>|</p>`)
)

// Skipped describes a note that could not be turned into a card.
type Skipped struct {
	NoteID int64
	Reason string
}

// Drafts converts the package's notes to card drafts. Fields are matched by
// name; notes without Han characters or without a meaning are skipped.
// Audio referenced with [sound:...] is attached when the file is present.
func (p *Package) Drafts() ([]shinkei.CardDraft, []Skipped) {
	var drafts []shinkei.CardDraft
	var skipped []Skipped

	for _, note := range p.Notes {
		draft, audio := p.draft(note)
		switch {
		case !hasHan(draft.Hanzi):
			skipped = append(skipped, Skipped{note.ID, "no Chinese characters"})
			continue
		case draft.English == "":
			skipped = append(skipped, Skipped{note.ID, "no meaning"})
			continue
		}
		if audio != "" {
			if data, err := p.Media(audio); err == nil {
				draft.AudioBase64 = base64.StdEncoding.EncodeToString(data)
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts, skipped
}

func (p *Package) draft(note *Note) (shinkei.CardDraft, string) {
	var d shinkei.CardDraft
	var audio string
	names := p.FieldNames(note)
	used := make([]bool, len(note.Fields))

	for i, raw := range note.Fields {
		if audio == "" {
			if m := soundTag.FindStringSubmatch(raw); m != nil {
				audio = m[1]
			}
		}
		if i >= len(names) {
			continue
		}
		field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(names[i]))]
		if !ok || d.Field(field) != "" {
			continue
		}
		if value := CleanField(raw); value != "" {
			d.SetField(field, value)
			used[i] = true
		}
	}

	// Fall back to field content for decks with generic names like Front/Back.
	for i, raw := range note.Fields {
		if used[i] {
			continue
		}
		value := CleanField(raw)
		switch {
		case value == "":
		case d.Hanzi == "" && hasHan(value):
			d.Hanzi = value
		case d.English == "" && !hasHan(value) && !looksLikePinyin(value):
			d.English = value
		}
	}
	return d, audio
}

// CleanField strips HTML and sound tags from a field value.
func CleanField(s string) string {
	s = soundTag.ReplaceAllString(s, "")
	s = lineTag.ReplaceAllString(s, " ")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// looksLikePinyin reports whether s contains a tone-marked vowel.
func looksLikePinyin(s string) bool {
	return strings.ContainsAny(s, "āáǎàēéěèīíǐìōóǒòūúǔùǖǘǚǜ")
}
