// Package notify delivers short user-facing status messages.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

var levelNames = [...]string{
	LevelInfo:    "info",
	LevelSuccess: "success",
	LevelWarning: "warning",
	LevelError:   "error",
}

func (l Level) String() string {
	if l >= LevelInfo && l <= LevelError {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Notifier displays transient status messages.
type Notifier interface {
	Notify(level Level, msg string)
}

// Info sends an informational message.
func Info(n Notifier, format string, args ...any) { n.Notify(LevelInfo, fmt.Sprintf(format, args...)) }

// Success sends a success message.
func Success(n Notifier, format string, args ...any) {
	n.Notify(LevelSuccess, fmt.Sprintf(format, args...))
}

// Warn sends a warning.
func Warn(n Notifier, format string, args ...any) { n.Notify(LevelWarning, fmt.Sprintf(format, args...)) }

// Error sends an error message.
func Error(n Notifier, format string, args ...any) { n.Notify(LevelError, fmt.Sprintf(format, args...)) }

// leveledError is an error that knows how it should be surfaced to the user.
type leveledError struct {
	level Level
	msg   string
}

func (e *leveledError) Error() string      { return e.msg }
func (e *leveledError) NotifyLevel() Level { return e.level }

// NewError returns an error reported at level instead of LevelError.
// It is meant for package sentinels such as validation failures.
func NewError(level Level, msg string) error {
	return &leveledError{level: level, msg: msg}
}

// LevelOf returns the level err should be reported at. Errors that carry no
// level are reported as LevelError.
func LevelOf(err error) Level {
	var le interface{ NotifyLevel() Level }
	if errors.As(err, &le) {
		return le.NotifyLevel()
	}
	return LevelError
}

// Report notifies n about err at the level err carries. Nil errors are ignored.
func Report(n Notifier, err error) {
	if err == nil {
		return
	}
	n.Notify(LevelOf(err), err.Error())
}

// Func adapts a function to the Notifier interface.
type Func func(level Level, msg string)

func (f Func) Notify(level Level, msg string) { f(level, msg) }

// Nop discards every notification.
var Nop Notifier = Func(func(Level, string) {})

// Log writes notifications to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Notifier that logs through logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With(slog.String("component", "notify"))}
}

func (l *Log) Notify(level Level, msg string) {
	switch level {
	case LevelError:
		l.logger.Error(msg)
	case LevelWarning:
		l.logger.Warn(msg)
	default:
		l.logger.Info(msg, slog.String("kind", level.String()))
	}
}

// Message is a single recorded notification.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: msg})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Count returns how many notifications of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}
