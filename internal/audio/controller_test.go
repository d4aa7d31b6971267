package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/f3rmion/shinkei/internal/notify"
)

// fakeSynth returns queued payloads and records the texts it was asked for.
type fakeSynth struct {
	mu       sync.Mutex
	payloads []string
	errs     []error
	texts    []string
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeSynth) GenerateVoice(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	var payload string
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	if err == nil && len(f.payloads) > 0 {
		payload, f.payloads = f.payloads[0], f.payloads[1:]
	}
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return payload, err
}

func (f *fakeSynth) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type fakeUnit struct {
	mu       sync.Mutex
	data     []byte
	position time.Duration
	duration time.Duration
	playing  bool
	closed   bool
	plays    int
	done     chan struct{}
}

func (u *fakeUnit) Play() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return errors.New("closed")
	}
	if u.done == nil {
		u.done = make(chan struct{})
	}
	u.playing = true
	u.plays++
	return nil
}

func (u *fakeUnit) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.playing = false
	return nil
}

func (u *fakeUnit) Position() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.position
}

func (u *fakeUnit) Duration() time.Duration { return u.duration }

func (u *fakeUnit) Done() <-chan struct{} {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.done
}

func (u *fakeUnit) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	u.playing = false
	return nil
}

// finish simulates the end of playback.
func (u *fakeUnit) finish() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.playing = false
	close(u.done)
	u.done = nil
}

func (u *fakeUnit) setPosition(d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.position = d
}

func (u *fakeUnit) state() (playing, closed bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.playing, u.closed
}

type fakePlayer struct {
	mu    sync.Mutex
	units []*fakeUnit
}

func (p *fakePlayer) Open(data []byte) (Unit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := &fakeUnit{data: data, duration: time.Minute}
	p.units = append(p.units, u)
	return u, nil
}

func (p *fakePlayer) openUnits() []*fakeUnit {
	p.mu.Lock()
	defer p.mu.Unlock()
	var open []*fakeUnit
	for _, u := range p.units {
		if _, closed := u.state(); !closed {
			open = append(open, u)
		}
	}
	return open
}

func (p *fakePlayer) last() *fakeUnit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.units[len(p.units)-1]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func decoded(t *testing.T, payload string) string {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

type testRig struct {
	synth  *fakeSynth
	player *fakePlayer
	rec    *notify.Recorder
	hidden *string
	ctrl   *Controller
}

func newRig(payloads ...string) testRig {
	r := testRig{
		synth:  &fakeSynth{payloads: payloads},
		player: &fakePlayer{},
		rec:    &notify.Recorder{},
		hidden: new(string),
	}
	var mu sync.Mutex
	sink := func(p string) {
		mu.Lock()
		defer mu.Unlock()
		*r.hidden = p
	}
	r.ctrl = NewController(r.synth, r.player, r.rec, sink, WithPollInterval(time.Millisecond))
	return r
}

func TestGenerateAndRegenerate(t *testing.T) {
	r := newRig("AAAA", "BBBB")
	defer r.ctrl.Close()

	if !r.ctrl.Snapshot().SynthesisVisible {
		t.Fatal("synthesis section hidden before generating")
	}
	if err := r.ctrl.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	snap := r.ctrl.Snapshot()
	first := r.player.last()
	if string(first.data) != decoded(t, "AAAA") {
		t.Errorf("unit bound to %q", first.data)
	}
	if *r.hidden != "AAAA" || snap.Payload != "AAAA" {
		t.Errorf("hidden = %q, payload = %q", *r.hidden, snap.Payload)
	}
	if snap.SynthesisVisible {
		t.Error("synthesis section still visible")
	}
	if playing, _ := first.state(); !playing || !snap.Playing {
		t.Error("playback did not start")
	}
	if r.ctrl.ActivePollers() != 1 {
		t.Errorf("pollers = %d", r.ctrl.ActivePollers())
	}

	first.setPosition(30 * time.Second)
	waitFor(t, "progress tick", func() bool { return r.ctrl.Snapshot().Fraction == 0.5 })
	if got := r.ctrl.Snapshot().Elapsed; got != "0:30" {
		t.Errorf("elapsed = %q", got)
	}

	if err := r.ctrl.Regenerate(context.Background(), "hello"); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	snap = r.ctrl.Snapshot()
	second := r.player.last()
	if string(second.data) != decoded(t, "BBBB") {
		t.Errorf("unit bound to %q", second.data)
	}
	if *r.hidden != "BBBB" || snap.Payload != "BBBB" {
		t.Errorf("hidden = %q, payload = %q", *r.hidden, snap.Payload)
	}
	if snap.Fraction != 0 || snap.Elapsed != "0:00" || snap.Playing {
		t.Errorf("regenerated snapshot = %+v", snap)
	}
	if open := r.player.openUnits(); len(open) != 1 || open[0] != second {
		t.Errorf("open units = %d", len(open))
	}
	if r.ctrl.ActivePollers() != 0 {
		t.Errorf("pollers after regenerate = %d", r.ctrl.ActivePollers())
	}
	if msg, _ := r.rec.Last(); msg.Level != notify.LevelSuccess {
		t.Errorf("last notification = %+v", msg)
	}
}

func TestGenerateEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		r := newRig("AAAA")
		err := r.ctrl.Generate(context.Background(), text)
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("Generate(%q) = %v", text, err)
		}
		if r.synth.Calls() != 0 {
			t.Errorf("Generate(%q) called the backend", text)
		}
		msgs := r.rec.Messages()
		if len(msgs) != 1 || msgs[0].Level != notify.LevelWarning {
			t.Errorf("notifications = %+v", msgs)
		}
	}
}

func TestGenerateFailureKeepsPlayer(t *testing.T) {
	r := newRig("AAAA")
	defer r.ctrl.Close()
	if err := r.ctrl.Generate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	first := r.player.last()

	r.synth.errs = []error{errors.New("Error generating audio")}
	if err := r.ctrl.Generate(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if len(r.player.units) != 1 {
		t.Errorf("a unit was created on failure")
	}
	if _, closed := first.state(); closed {
		t.Error("existing unit torn down on failure")
	}
	if *r.hidden != "AAAA" {
		t.Errorf("hidden = %q", *r.hidden)
	}
	if msg, _ := r.rec.Last(); msg.Level != notify.LevelError || msg.Text != "Error generating audio" {
		t.Errorf("notification = %+v", msg)
	}
	if r.ctrl.Snapshot().Busy {
		t.Error("still busy after failure")
	}
}

func TestGenerateBadPayload(t *testing.T) {
	r := newRig("not base64!")
	if err := r.ctrl.Generate(context.Background(), "hello"); err == nil {
		t.Fatal("expected decode error")
	}
	if len(r.player.units) != 0 || *r.hidden != "" {
		t.Error("state changed for an undecodable payload")
	}
}

func TestRegenerateRequiresPlayer(t *testing.T) {
	r := newRig("AAAA")
	if err := r.ctrl.Regenerate(context.Background(), "hello"); !errors.Is(err, ErrNoPlayer) {
		t.Fatalf("err = %v", err)
	}
	if r.synth.Calls() != 0 {
		t.Error("backend called without a player")
	}
	if err := r.ctrl.Toggle(); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Toggle err = %v", err)
	}
}

func TestToggleSinglePoller(t *testing.T) {
	r := newRig("AAAA", "BBBB", "CCCC")
	defer r.ctrl.Close()
	if err := r.ctrl.Generate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		if err := r.ctrl.Toggle(); err != nil {
			t.Fatal(err)
		}
		want := 0
		if r.ctrl.Snapshot().Playing {
			want = 1
		}
		if got := r.ctrl.ActivePollers(); got != want {
			t.Fatalf("toggle %d: pollers = %d, want %d", i, got, want)
		}
	}

	// Regenerate while playing, then play again.
	if !r.ctrl.Snapshot().Playing {
		if err := r.ctrl.Toggle(); err != nil {
			t.Fatal(err)
		}
	}
	for _, text := range []string{"again", "and again"} {
		if err := r.ctrl.Regenerate(context.Background(), text); err != nil {
			t.Fatal(err)
		}
		if err := r.ctrl.Toggle(); err != nil {
			t.Fatal(err)
		}
		if r.ctrl.ActivePollers() != 1 || len(r.player.openUnits()) != 1 {
			t.Fatalf("pollers = %d, open units = %d", r.ctrl.ActivePollers(), len(r.player.openUnits()))
		}
	}
}

func TestGenerateWhilePlaying(t *testing.T) {
	r := newRig("AAAA", "BBBB")
	defer r.ctrl.Close()

	if err := r.ctrl.Generate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	first := r.player.last()
	if playing, _ := first.state(); !playing || r.ctrl.ActivePollers() != 1 {
		t.Fatal("first unit is not playing")
	}

	if err := r.ctrl.Generate(context.Background(), "goodbye"); err != nil {
		t.Fatal(err)
	}
	second := r.player.last()
	if second == first {
		t.Fatal("no new unit opened")
	}
	if _, closed := first.state(); !closed {
		t.Error("old unit left open")
	}
	if open := r.player.openUnits(); len(open) != 1 || open[0] != second {
		t.Errorf("open units = %d", len(open))
	}
	if got := r.ctrl.ActivePollers(); got != 1 {
		t.Errorf("pollers = %d, want 1", got)
	}
	if *r.hidden != "BBBB" || r.ctrl.Snapshot().Payload != "BBBB" {
		t.Errorf("hidden = %q, payload = %q", *r.hidden, r.ctrl.Snapshot().Payload)
	}
	if playing, _ := second.state(); !playing {
		t.Error("new unit is not playing")
	}
}

func TestStalePollerDoesNotUpdate(t *testing.T) {
	r := newRig("AAAA", "BBBB")
	defer r.ctrl.Close()
	if err := r.ctrl.Generate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	first := r.player.last()
	if err := r.ctrl.Regenerate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	first.setPosition(45 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if snap := r.ctrl.Snapshot(); snap.Fraction != 0 || snap.Elapsed != "0:00" {
		t.Errorf("stale unit updated progress: %+v", snap)
	}
}

func TestNaturalEnd(t *testing.T) {
	var mu sync.Mutex
	var updates []Snapshot
	r := newRig("AAAA")
	r.ctrl = NewController(r.synth, r.player, r.rec, nil,
		WithPollInterval(time.Millisecond),
		WithUpdates(func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			updates = append(updates, s)
		}))
	defer r.ctrl.Close()

	if err := r.ctrl.Generate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	unit := r.player.last()
	unit.setPosition(59 * time.Second)
	waitFor(t, "tick", func() bool { return r.ctrl.Snapshot().Elapsed == "0:59" })

	unit.finish()
	waitFor(t, "reset", func() bool { return !r.ctrl.Snapshot().Playing })

	snap := r.ctrl.Snapshot()
	if snap.Fraction != 0 || snap.Elapsed != "0:00" {
		t.Errorf("after end = %+v", snap)
	}
	if r.ctrl.ActivePollers() != 0 {
		t.Errorf("poller survived the end of playback")
	}
	mu.Lock()
	last := updates[len(updates)-1]
	mu.Unlock()
	if last.Playing || last.Fraction != 0 {
		t.Errorf("last update = %+v", last)
	}

	// Playing again starts from the beginning with a fresh poller.
	if err := r.ctrl.Toggle(); err != nil {
		t.Fatal(err)
	}
	if unit.plays != 2 || r.ctrl.ActivePollers() != 1 {
		t.Errorf("plays = %d, pollers = %d", unit.plays, r.ctrl.ActivePollers())
	}
}

func TestGenerateBusy(t *testing.T) {
	r := newRig("AAAA")
	r.synth.block = make(chan struct{})
	r.synth.started = make(chan struct{}, 1)
	defer r.ctrl.Close()

	done := make(chan error, 1)
	go func() { done <- r.ctrl.Generate(context.Background(), "hello") }()
	<-r.synth.started

	if !r.ctrl.Snapshot().Busy {
		t.Error("snapshot not busy during synthesis")
	}
	if err := r.ctrl.Generate(context.Background(), "hello"); !errors.Is(err, ErrBusy) {
		t.Fatalf("overlapping Generate = %v", err)
	}
	close(r.synth.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if len(r.player.units) != 1 {
		t.Errorf("units = %d", len(r.player.units))
	}
}

func TestGenerateAfterClose(t *testing.T) {
	r := newRig("AAAA")
	r.synth.block = make(chan struct{})
	r.synth.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- r.ctrl.Generate(context.Background(), "hello") }()
	<-r.synth.started
	r.ctrl.Close()
	close(r.synth.block)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("Generate after Close = %v", err)
	}
	if open := r.player.openUnits(); len(open) != 0 {
		t.Errorf("%d units left open", len(open))
	}
	if *r.hidden != "" || r.ctrl.ActivePollers() != 0 {
		t.Errorf("hidden = %q, pollers = %d", *r.hidden, r.ctrl.ActivePollers())
	}
}

func TestGenerateWithoutPlayer(t *testing.T) {
	var hidden string
	rec := &notify.Recorder{}
	ctrl := NewController(&fakeSynth{payloads: []string{"AAAA"}}, nil, rec, func(p string) { hidden = p })
	if err := ctrl.Generate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if hidden != "AAAA" || ctrl.Snapshot().Ready {
		t.Errorf("hidden = %q, snapshot = %+v", hidden, ctrl.Snapshot())
	}
	if msg, _ := rec.Last(); msg.Level != notify.LevelInfo {
		t.Errorf("notification = %+v", msg)
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-time.Second, "0:00"},
		{5*time.Second + 900*time.Millisecond, "0:05"},
		{65 * time.Second, "1:05"},
		{10*time.Minute + 59*time.Second, "10:59"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.d); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
