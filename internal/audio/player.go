package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

// linuxPlayers are tried in order; mpg123 handles MP3 best.
var linuxPlayers = [][]string{
	{"mpg123", "-q"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"play", "-q"},
	{"paplay"},
	{"aplay", "-q"},
}

// ExecPlayer plays audio by running an external command on a temporary file.
type ExecPlayer struct {
	args   []string
	dir    string
	logger *slog.Logger
}

// NewExecPlayer creates a player. An empty command picks a player installed
// on the system.
func NewExecPlayer(command string, logger *slog.Logger) (*ExecPlayer, error) {
	var args []string
	if command != "" {
		parsed, err := shellwords.NewParser().Parse(command)
		if err != nil {
			return nil, fmt.Errorf("parse player command: %w", err)
		}
		args = parsed
	} else {
		detected, err := detectPlayer()
		if err != nil {
			return nil, err
		}
		args = detected
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("player command is empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrNoPlayer, args[0])
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecPlayer{
		args:   args,
		dir:    os.TempDir(),
		logger: logger.With(slog.String("component", "player")),
	}, nil
}

func detectPlayer() ([]string, error) {
	switch runtime.GOOS {
	case "darwin":
		return []string{"afplay"}, nil
	case "windows":
		return nil, fmt.Errorf("%w: set audio.player in the config file", ErrNoPlayer)
	}
	for _, candidate := range linuxPlayers {
		if _, err := exec.LookPath(candidate[0]); err == nil {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: install mpg123, ffplay, sox, paplay or aplay", ErrNoPlayer)
}

// Command returns the player command line without the file argument.
func (p *ExecPlayer) Command() []string {
	return append([]string(nil), p.args...)
}

// Open writes data to a temporary file and returns a unit that plays it.
func (p *ExecPlayer) Open(data []byte) (Unit, error) {
	format := SniffFormat(data)
	f, err := os.CreateTemp(p.dir, "shinkei_voice_*"+format.Ext())
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close audio file: %w", err)
	}

	duration, err := ProbeDuration(data)
	if err != nil {
		// Progress stays at zero but playback still works.
		p.logger.Debug("unknown duration", slog.String("format", string(format)), slog.Any("error", err))
	}

	return &execUnit{
		args:     p.args,
		path:     f.Name(),
		duration: duration,
		logger:   p.logger,
	}, nil
}

// execUnit tracks one playback process. Position is measured on the wall
// clock while the process runs.
type execUnit struct {
	args     []string
	path     string
	duration time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	paused  bool
	offset  time.Duration
	started time.Time
	closed  bool
}

func (u *execUnit) Play() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return fmt.Errorf("unit closed")
	}
	if u.cmd != nil {
		if !u.paused {
			return nil
		}
		if err := resume(u.cmd.Process); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		u.paused = false
		u.started = time.Now()
		return nil
	}

	args := append(append([]string(nil), u.args[1:]...), u.path)
	cmd := exec.Command(u.args[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", u.args[0], err)
	}
	done := make(chan struct{})
	u.cmd = cmd
	u.done = done
	u.offset = 0
	u.started = time.Now()

	go func() {
		err := cmd.Wait()
		u.mu.Lock()
		if u.cmd == cmd {
			u.cmd = nil
			u.paused = false
			u.offset = 0
			u.started = time.Time{}
		}
		u.mu.Unlock()
		if err != nil {
			u.logger.Debug("player exited", slog.Any("error", err))
		}
		close(done)
	}()
	return nil
}

func (u *execUnit) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cmd == nil || u.paused {
		return nil
	}
	if err := suspend(u.cmd.Process); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	u.offset += time.Since(u.started)
	u.started = time.Time{}
	u.paused = true
	return nil
}

func (u *execUnit) Position() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()

	pos := u.offset
	if !u.started.IsZero() {
		pos += time.Since(u.started)
	}
	if u.duration > 0 && pos > u.duration {
		pos = u.duration
	}
	return pos
}

func (u *execUnit) Duration() time.Duration { return u.duration }

func (u *execUnit) Done() <-chan struct{} {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.done
}

func (u *execUnit) Close() error {
	u.mu.Lock()
	cmd := u.cmd
	u.cmd = nil
	u.closed = true
	u.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			u.logger.Debug("kill player", slog.Any("error", err))
		}
	}
	if err := os.Remove(u.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", u.path, err)
	}
	return nil
}
