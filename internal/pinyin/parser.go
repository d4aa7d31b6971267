// Package pinyin derives tone-marked pinyin for hanzi.
package pinyin

import (
	"strings"
	"unicode"

	gopinyin "github.com/mozillazg/go-pinyin"
)

// Tone is a Mandarin tone number, 1 to 4, with 5 for the neutral tone.
type Tone int

const (
	ToneUnknown Tone = iota
	Tone1
	Tone2
	Tone3
	Tone4
	Tone5
)

// Parser converts hanzi to pinyin.
type Parser struct {
	args gopinyin.Args
}

// NewParser creates a new pinyin parser.
func NewParser() *Parser {
	args := gopinyin.NewArgs()
	args.Style = gopinyin.Tone // Returns tone marks: zhōng
	args.Heteronym = true
	return &Parser{args: args}
}

// Readings returns all pinyin readings for a single character.
func (p *Parser) Readings(char string) []string {
	result := gopinyin.Pinyin(char, p.args)
	if len(result) == 0 {
		return nil
	}
	return result[0]
}

// Pinyin returns space-separated pinyin for hanzi using the first reading of
// each character. Runes that are not Han characters are skipped.
func (p *Parser) Pinyin(hanzi string) string {
	var parts []string
	for _, s := range p.Syllables(hanzi) {
		if s.Reading != "" {
			parts = append(parts, s.Reading)
		}
	}
	return strings.Join(parts, " ")
}

// Syllable pairs a character with its first reading and tone.
type Syllable struct {
	Char    string
	Reading string
	Tone    Tone
}

// Syllables splits hanzi into characters with their readings. Non-Han runes
// are returned with an empty reading.
func (p *Parser) Syllables(hanzi string) []Syllable {
	var out []Syllable
	for _, r := range hanzi {
		s := Syllable{Char: string(r)}
		if unicode.Is(unicode.Han, r) {
			if readings := p.Readings(s.Char); len(readings) > 0 {
				s.Reading = readings[0]
				s.Tone, _ = SplitTone(s.Reading)
			}
		}
		out = append(out, s)
	}
	return out
}

var toneMarks = map[rune]struct {
	base rune
	tone Tone
}{
	'ā': {'a', Tone1}, 'á': {'a', Tone2}, 'ǎ': {'a', Tone3}, 'à': {'a', Tone4},
	'ē': {'e', Tone1}, 'é': {'e', Tone2}, 'ě': {'e', Tone3}, 'è': {'e', Tone4},
	'ī': {'i', Tone1}, 'í': {'i', Tone2}, 'ǐ': {'i', Tone3}, 'ì': {'i', Tone4},
	'ō': {'o', Tone1}, 'ó': {'o', Tone2}, 'ǒ': {'o', Tone3}, 'ò': {'o', Tone4},
	'ū': {'u', Tone1}, 'ú': {'u', Tone2}, 'ǔ': {'u', Tone3}, 'ù': {'u', Tone4},
	'ǖ': {'ü', Tone1}, 'ǘ': {'ü', Tone2}, 'ǚ': {'ü', Tone3}, 'ǜ': {'ü', Tone4},
}

// SplitTone returns the tone of a syllable and the syllable without tone
// marks. Syllables without a mark have the neutral tone.
func SplitTone(syllable string) (Tone, string) {
	tone := ToneUnknown
	var result strings.Builder

	for _, r := range syllable {
		if mark, ok := toneMarks[r]; ok {
			result.WriteRune(mark.base)
			tone = mark.tone
		} else {
			result.WriteRune(r)
		}
	}
	if tone == ToneUnknown {
		tone = Tone5
	}
	return tone, result.String()
}

// Numbered converts tone-marked pinyin to tone numbers, e.g. "nǐ hǎo" to
// "ni3 hao3".
func Numbered(pinyin string) string {
	fields := strings.Fields(pinyin)
	for i, f := range fields {
		tone, base := SplitTone(f)
		fields[i] = base + string(rune('0'+tone))
	}
	return strings.Join(fields, " ")
}
