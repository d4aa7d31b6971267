// Package audio generates, plays and regenerates the pronunciation attached
// to a card being edited.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/f3rmion/shinkei/internal/notify"
)

// DefaultPollInterval is how often playback progress is refreshed.
const DefaultPollInterval = 100 * time.Millisecond

var (
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = notify.NewError(notify.LevelWarning, "Please enter the English term first")

	// ErrNoPlayer is returned when playback is requested before any audio exists.
	ErrNoPlayer = errors.New("audio: no player")

	// ErrBusy is returned while a synthesis request is already running.
	ErrBusy = notify.NewError(notify.LevelInfo, "Audio is still being generated")

	// ErrClosed is returned when a synthesis finishes after Close.
	ErrClosed = errors.New("audio: controller closed")
)

// Synthesizer turns text into a base64 audio payload.
type Synthesizer interface {
	GenerateVoice(ctx context.Context, text string) (string, error)
}

// Player creates playback units for decoded audio.
type Player interface {
	Open(data []byte) (Unit, error)
}

// Unit plays a single audio payload. After playback ends Done is closed and a
// later Play starts again from the beginning with a new Done channel.
type Unit interface {
	Play() error
	Pause() error
	Position() time.Duration
	Duration() time.Duration
	Done() <-chan struct{}
	Close() error
}

// PayloadSink receives the payload that will be submitted with the card.
type PayloadSink func(payload string)

// Snapshot is the player state shown to the user.
type Snapshot struct {
	Payload  string
	Ready    bool // a unit is loaded
	Playing  bool
	Fraction float64
	Elapsed  string
	Duration time.Duration
	// SynthesisVisible is true until the first payload has been generated.
	SynthesisVisible bool
	Busy             bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval sets how often progress is refreshed while playing.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithUpdates registers fn to receive a snapshot after every state change,
// including progress ticks. fn is called without internal locks held.
func WithUpdates(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onUpdate = fn }
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

type poller struct {
	stop chan struct{}
}

// Controller owns the single active playback unit and its progress poller.
type Controller struct {
	synth    Synthesizer
	player   Player
	notifier notify.Notifier
	sink     PayloadSink
	interval time.Duration
	onUpdate func(Snapshot)
	logger   *slog.Logger

	mu           sync.Mutex
	payload      string
	unit         Unit
	playing      bool
	fraction     float64
	elapsed      string
	synthVisible bool
	busy         bool
	closed       bool
	poll         *poller
}

// NewController creates a controller. player may be nil when no audio output
// is available; payloads are then still generated and handed to sink.
func NewController(synth Synthesizer, player Player, notifier notify.Notifier, sink PayloadSink, opts ...Option) *Controller {
	if notifier == nil {
		notifier = notify.Nop
	}
	if sink == nil {
		sink = func(string) {}
	}
	c := &Controller{
		synth:        synth,
		player:       player,
		notifier:     notifier,
		sink:         sink,
		interval:     DefaultPollInterval,
		elapsed:      FormatTime(0),
		synthVisible: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.logger = c.logger.With(slog.String("component", "audio"))
	return c
}

// Generate synthesizes text, replaces any existing unit with one bound to the
// new payload and starts playing it.
func (c *Controller) Generate(ctx context.Context, text string) error {
	payload, unit, err := c.synthesize(ctx, text, false)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		discard(unit)
		return ErrClosed
	}
	c.replaceLocked(payload, unit)
	c.synthVisible = false
	var playErr error
	if unit != nil {
		if playErr = unit.Play(); playErr == nil {
			c.playing = true
			c.startPollLocked(unit)
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.sink(payload)
	c.emit(snap)

	switch {
	case unit == nil:
		notify.Info(c.notifier, "Audio generated (no audio player available)")
	case playErr != nil:
		c.logger.Warn("playback failed", slog.Any("error", playErr))
		notify.Error(c.notifier, "Audio generated but could not be played: %v", playErr)
	default:
		notify.Success(c.notifier, "Audio generated and playing")
	}
	return nil
}

// Regenerate synthesizes text again for an existing player. Playback stops,
// progress resets and the unit and payload are swapped together.
func (c *Controller) Regenerate(ctx context.Context, text string) error {
	payload, unit, err := c.synthesize(ctx, text, true)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		discard(unit)
		return ErrClosed
	}
	c.replaceLocked(payload, unit)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.sink(payload)
	c.emit(snap)
	notify.Success(c.notifier, "Audio regenerated successfully")
	return nil
}

// synthesize runs one synthesis request and opens a unit for the result. Only
// one request runs at a time. Failures are reported to the notifier and leave
// the current state untouched.
func (c *Controller) synthesize(ctx context.Context, text string, regenerate bool) (string, Unit, error) {
	if strings.TrimSpace(text) == "" {
		notify.Report(c.notifier, ErrEmptyText)
		return "", nil, ErrEmptyText
	}

	c.mu.Lock()
	switch {
	case regenerate && c.payload == "":
		c.mu.Unlock()
		return "", nil, ErrNoPlayer
	case c.busy:
		c.mu.Unlock()
		return "", nil, ErrBusy
	}
	c.busy = true
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	payload, unit, err := c.fetch(ctx, text)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if err != nil {
		c.emit(snap)
		c.logger.Warn("synthesis failed", slog.Bool("regenerate", regenerate), slog.Any("error", err))
		notify.Report(c.notifier, err)
		return "", nil, err
	}
	return payload, unit, nil
}

func (c *Controller) fetch(ctx context.Context, text string) (string, Unit, error) {
	payload, err := c.synth.GenerateVoice(ctx, text)
	if err != nil {
		return "", nil, err
	}
	if c.player == nil {
		return payload, nil, nil
	}
	data, err := DecodePayload(payload)
	if err != nil {
		return "", nil, err
	}
	unit, err := c.player.Open(data)
	if err != nil {
		return "", nil, fmt.Errorf("opening audio: %w", err)
	}
	return payload, unit, nil
}

// replaceLocked tears down the current unit and poller and installs unit.
func (c *Controller) replaceLocked(payload string, unit Unit) {
	c.stopPollLocked()
	if c.unit != nil {
		if err := c.unit.Close(); err != nil {
			c.logger.Debug("closing previous unit", slog.Any("error", err))
		}
	}
	c.unit = unit
	c.payload = payload
	c.playing = false
	c.fraction = 0
	c.elapsed = FormatTime(0)
}

// Toggle starts or pauses playback.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	if c.unit == nil {
		c.mu.Unlock()
		return ErrNoPlayer
	}

	if c.playing {
		if err := c.unit.Pause(); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("pausing: %w", err)
		}
		c.stopPollLocked()
		c.playing = false
	} else {
		if err := c.unit.Play(); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("playing: %w", err)
		}
		c.playing = true
		c.startPollLocked(c.unit)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// startPollLocked replaces the poller with one watching unit.
func (c *Controller) startPollLocked(unit Unit) {
	c.stopPollLocked()
	p := &poller{stop: make(chan struct{})}
	c.poll = p
	go c.runPoll(p, unit, unit.Done())
}

func (c *Controller) stopPollLocked() {
	if c.poll == nil {
		return
	}
	close(c.poll.stop)
	c.poll = nil
}

func (c *Controller) runPoll(p *poller, unit Unit, done <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-done:
			c.finished(p)
			return
		case <-ticker.C:
			c.tick(p, unit)
		}
	}
}

func (c *Controller) tick(p *poller, unit Unit) {
	c.mu.Lock()
	if c.poll != p {
		c.mu.Unlock()
		return
	}
	pos, dur := unit.Position(), unit.Duration()
	c.fraction = 0
	if dur > 0 {
		c.fraction = min(float64(pos)/float64(dur), 1)
	}
	c.elapsed = FormatTime(pos)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// finished resets the player after playback reached the end.
func (c *Controller) finished(p *poller) {
	c.mu.Lock()
	if c.poll != p {
		c.mu.Unlock()
		return
	}
	c.poll = nil
	c.playing = false
	c.fraction = 0
	c.elapsed = FormatTime(0)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("playback finished")
	c.emit(snap)
}

// Snapshot returns the current player state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Payload:          c.payload,
		Ready:            c.unit != nil,
		Playing:          c.playing,
		Fraction:         c.fraction,
		Elapsed:          c.elapsed,
		SynthesisVisible: c.synthVisible,
		Busy:             c.busy,
	}
	if c.unit != nil {
		s.Duration = c.unit.Duration()
	}
	return s
}

// ActivePollers reports how many progress pollers are running: 0 or 1.
func (c *Controller) ActivePollers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poll != nil {
		return 1
	}
	return 0
}

// Close stops playback and releases the unit. The payload is kept; audio
// that finishes synthesizing afterwards is discarded.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.stopPollLocked()
	c.playing = false
	if c.unit == nil {
		return nil
	}
	err := c.unit.Close()
	c.unit = nil
	return err
}

func discard(unit Unit) {
	if unit != nil {
		unit.Close()
	}
}

func (c *Controller) emit(s Snapshot) {
	if c.onUpdate != nil {
		c.onUpdate(s)
	}
}

// FormatTime renders d as minutes:seconds with zero-padded seconds.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
