// Package suggest requests AI field suggestions for a card draft and applies
// them through per-field normalization rules.
package suggest

import (
	"context"
	"errors"
	"strings"

	"github.com/f3rmion/shinkei/internal/api"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
)

// ErrMissingEnglish is returned when no English term was entered.
var ErrMissingEnglish = notify.NewError(notify.LevelWarning, "Please enter the English term first")

// Enhancer asks the backend to fill the empty entries of a field map.
type Enhancer interface {
	EnhanceFlashcard(ctx context.Context, fields map[string]string) (map[string]string, error)
}

// Normalizer cleans up a suggestion for one field. It reports false when the
// suggestion must not be applied.
type Normalizer func(value string) (string, bool)

// Normalizers holds the rules for fields that need more than trimming.
var Normalizers = map[string]Normalizer{
	shinkei.FieldPartOfSpeech: func(v string) (string, bool) {
		v = strings.TrimSpace(v)
		return v, shinkei.IsPartOfSpeech(v)
	},
	shinkei.FieldMeasureWord: func(v string) (string, bool) {
		v, _, _ = strings.Cut(v, ",")
		v = strings.TrimSpace(v)
		return v, v != ""
	},
	shinkei.FieldExampleSentence: func(v string) (string, bool) {
		v, _, _ = strings.Cut(v, ". ")
		v = strings.TrimSpace(v)
		return v, v != ""
	},
}

// Normalize applies the rule for field, or plain trimming when it has none.
// Empty suggestions are never applied.
func Normalize(field, value string) (string, bool) {
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	if n, ok := Normalizers[field]; ok {
		return n(value)
	}
	return strings.TrimSpace(value), true
}

// Apply normalizes value and stores it in the draft's field.
func Apply(draft *shinkei.CardDraft, field, value string) bool {
	v, ok := Normalize(field, value)
	if !ok {
		return false
	}
	return draft.SetField(field, v)
}

// ApplyAll applies every suggestion and returns the fields that changed, in
// form order.
func ApplyAll(draft *shinkei.CardDraft, suggestions map[string]string) []string {
	var applied []string
	for _, field := range append([]string{shinkei.FieldEnglish}, shinkei.SuggestableFields...) {
		value, ok := suggestions[field]
		if !ok {
			continue
		}
		if Apply(draft, field, value) {
			applied = append(applied, field)
		}
	}
	return applied
}

// RequestForField builds the request asking for a single field.
func RequestForField(english, field string) map[string]string {
	return map[string]string{
		shinkei.FieldEnglish: english,
		field:                "",
	}
}

// RequestForAll builds the request asking for every suggestable field.
func RequestForAll(english string) map[string]string {
	req := map[string]string{shinkei.FieldEnglish: english}
	for _, f := range shinkei.SuggestableFields {
		req[f] = ""
	}
	return req
}

// Fetch asks for suggestions for fields, or for every field when none are
// given. The English term is required.
func Fetch(ctx context.Context, e Enhancer, english string, fields ...string) (map[string]string, error) {
	english = strings.TrimSpace(english)
	if english == "" {
		return nil, ErrMissingEnglish
	}

	req := RequestForAll(english)
	if len(fields) > 0 {
		req = map[string]string{shinkei.FieldEnglish: english}
		for _, f := range fields {
			req[f] = ""
		}
	}
	return e.EnhanceFlashcard(ctx, req)
}

// Fill fetches suggestions for the draft and applies them, reporting the
// outcome to n. With a single field only that field is applied.
func Fill(ctx context.Context, e Enhancer, draft *shinkei.CardDraft, n notify.Notifier, fields ...string) ([]string, error) {
	single := len(fields) == 1
	suggestions, err := Fetch(ctx, e, draft.English, fields...)
	switch {
	case errors.Is(err, api.ErrNoSuggestions):
		if single {
			notify.Info(n, "No AI suggestion available")
		} else {
			notify.Info(n, "No AI suggestions available")
		}
		return nil, err
	case err != nil:
		notify.Report(n, err)
		return nil, err
	}

	var applied []string
	if single {
		if Apply(draft, fields[0], suggestions[fields[0]]) {
			applied = []string{fields[0]}
		}
		notify.Success(n, "AI suggestion applied")
		return applied, nil
	}
	applied = ApplyAll(draft, suggestions)
	notify.Success(n, "AI suggestions applied")
	return applied, nil
}
