package notify

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		l    Level
		want string
	}{
		{LevelInfo, "info"},
		{LevelSuccess, "success"},
		{LevelWarning, "warning"},
		{LevelError, "error"},
		{Level(9), "Level(9)"},
	}
	for _, tt := range tests {
		if got := tt.l.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", int(tt.l), got, tt.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	if _, ok := r.Last(); ok {
		t.Fatal("empty recorder returned a message")
	}

	Info(&r, "loaded %d decks", 3)
	Warn(&r, "Please enter the English term first")
	Error(&r, "boom")
	Success(&r, "Progress saved!")

	if got := len(r.Messages()); got != 4 {
		t.Fatalf("recorded %d messages, want 4", got)
	}
	last, _ := r.Last()
	if last.Level != LevelSuccess || last.Text != "Progress saved!" {
		t.Errorf("Last() = %+v", last)
	}
	if r.Count(LevelWarning) != 1 || r.Count(LevelError) != 1 {
		t.Errorf("unexpected counts: %+v", r.Messages())
	}
	if got := r.Messages()[0].Text; got != "loaded 3 decks" {
		t.Errorf("formatted text = %q", got)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Notify(LevelInfo, "x")
		}()
	}
	wg.Wait()
	if r.Count(LevelInfo) != 50 {
		t.Errorf("Count = %d, want 50", r.Count(LevelInfo))
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	n := NewLog(logger)

	n.Notify(LevelError, "rate failed")
	n.Notify(LevelSuccess, "saved")

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "rate failed") {
		t.Errorf("missing error line: %s", out)
	}
	if !strings.Contains(out, "kind=success") || !strings.Contains(out, "component=notify") {
		t.Errorf("missing success attributes: %s", out)
	}
}

func TestFuncAndNop(t *testing.T) {
	var got []Level
	f := Func(func(l Level, _ string) { got = append(got, l) })
	Warn(f, "w")
	Nop.Notify(LevelError, "ignored")
	if len(got) != 1 || got[0] != LevelWarning {
		t.Errorf("Func received %v", got)
	}
}

func TestLevelOfAndReport(t *testing.T) {
	errEmpty := NewError(LevelWarning, "Please enter the English term first")
	wrapped := fmt.Errorf("generating voice: %w", errEmpty)

	if got := LevelOf(wrapped); got != LevelWarning {
		t.Errorf("LevelOf(wrapped) = %v, want warning", got)
	}
	if got := LevelOf(errors.New("plain")); got != LevelError {
		t.Errorf("LevelOf(plain) = %v, want error", got)
	}
	if !errors.Is(wrapped, errEmpty) {
		t.Error("wrapped error lost its sentinel")
	}

	var r Recorder
	Report(&r, nil)
	Report(&r, wrapped)
	msgs := r.Messages()
	if len(msgs) != 1 || msgs[0].Level != LevelWarning {
		t.Fatalf("Report recorded %+v", msgs)
	}
	if msgs[0].Text != "generating voice: Please enter the English term first" {
		t.Errorf("text = %q", msgs[0].Text)
	}
}
