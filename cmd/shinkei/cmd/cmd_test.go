package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/f3rmion/shinkei/internal/audio"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/study"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

type fakeDecks []shinkei.Deck

func (f fakeDecks) ListDecks(ctx context.Context) ([]shinkei.Deck, error) {
	return f, nil
}

func TestFindDeck(t *testing.T) {
	decks := fakeDecks{
		{ID: 1, Name: "HSK 1"},
		{ID: 2, Name: "Food"},
		{ID: 3, Name: "food"},
	}

	tests := []struct {
		arg     string
		wantID  int64
		wantErr string
	}{
		{arg: "1", wantID: 1},
		{arg: "hsk 1", wantID: 1},
		{arg: "9", wantErr: "no deck with ID 9"},
		{arg: "Travel", wantErr: "no deck named"},
		{arg: "FOOD", wantErr: "2 decks are named"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			deck, err := findDeck(context.Background(), decks, tt.arg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("findDeck(%q) error = %v, want %q", tt.arg, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("findDeck(%q): %v", tt.arg, err)
			}
			if deck.ID != tt.wantID {
				t.Errorf("findDeck(%q) = %d, want %d", tt.arg, deck.ID, tt.wantID)
			}
		})
	}
}

func TestPrintTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"HANZI", "ENGLISH"}, [][]string{
		{"你好", "hello"},
		{"图书馆", "library"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	col := -1
	for i, second := range []string{"ENGLISH", "hello", "library"} {
		line := lines[i]
		idx := strings.Index(line, second)
		if idx < 0 {
			t.Fatalf("%q missing from %q", second, line)
		}
		w := runewidth.StringWidth(line[:idx])
		if col == -1 {
			col = w
		}
		if w != col {
			t.Errorf("second column starts at %d, want %d in %q", w, col, line)
		}
	}
}

func TestClip(t *testing.T) {
	if got := clip("to  study\nhard", 40); got != "to study hard" {
		t.Errorf("clip() = %q", got)
	}
	if got := clip("图书馆图书馆", 7); runewidth.StringWidth(got) > 7 || !strings.HasSuffix(got, "…") {
		t.Errorf("clip() = %q", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(tt.input), &out, "Delete?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Delete? [y/N] " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

type fakeRater struct {
	ratings map[int64]int
}

func (f *fakeRater) RateCard(ctx context.Context, cardID int64, rating int) error {
	f.ratings[cardID] = rating
	return nil
}

func TestStudyLoop(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &cobra.Command{}
	c.SetContext(context.Background())
	c.SetErr(&errOut)

	rater := &fakeRater{ratings: map[int64]int{}}
	session := study.NewSession(rater, consoleNotifier(&errOut), study.NewTextView(&out))
	session.Initialize([]shinkei.Card{
		{ID: 1, Hanzi: "你好", English: "hello"},
		{ID: 2, Hanzi: "猫", English: "cat"},
	})

	input := "\n3\nbogus\neasy\n"
	if err := studyLoop(c, session, strings.NewReader(input)); err != nil {
		t.Fatalf("studyLoop: %v", err)
	}

	if session.State() != study.StateTerminal {
		t.Errorf("state = %v, want terminal", session.State())
	}
	if rater.ratings[1] != int(study.Good) || rater.ratings[2] != int(study.Easy) {
		t.Errorf("ratings = %v", rater.ratings)
	}
	if !strings.Contains(out.String(), "= hello") {
		t.Errorf("card was not flipped:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), `Unknown command "bogus"`) {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestStudyLoopFinishes(t *testing.T) {
	for name, input := range map[string]string{"quit": "q\n", "end of input": ""} {
		t.Run(name, func(t *testing.T) {
			c := &cobra.Command{}
			c.SetContext(context.Background())
			c.SetErr(&bytes.Buffer{})

			rater := &fakeRater{ratings: map[int64]int{}}
			session := study.NewSession(rater, consoleNotifier(&bytes.Buffer{}), study.NopView{})
			session.Initialize([]shinkei.Card{{ID: 1, Hanzi: "水", English: "water"}})

			if err := studyLoop(c, session, strings.NewReader(input)); err != nil {
				t.Fatalf("studyLoop: %v", err)
			}
			if session.State() != study.StateTerminal {
				t.Errorf("state = %v, want terminal", session.State())
			}
			if len(rater.ratings) != 0 {
				t.Errorf("ratings = %v, want none", rater.ratings)
			}
		})
	}
}

func TestVoiceRejectsBlankText(t *testing.T) {
	var errOut bytes.Buffer
	c := &cobra.Command{}
	c.SetContext(context.Background())
	c.SetErr(&errOut)

	for _, args := range [][]string{{"  "}, {"", "\t"}} {
		errOut.Reset()
		if err := runVoice(c, args); !errors.Is(err, audio.ErrEmptyText) {
			t.Errorf("runVoice(%q) = %v, want ErrEmptyText", args, err)
		}
		if !strings.HasPrefix(errOut.String(), "! ") {
			t.Errorf("warning = %q", errOut.String())
		}
	}
}
