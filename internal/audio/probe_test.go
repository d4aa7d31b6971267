package audio

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// makeWAV encodes a silent 16-bit mono clip.
func makeWAV(t *testing.T, rate int, seconds int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:   make([]int, rate*seconds),
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestProbeWAV(t *testing.T) {
	data := makeWAV(t, 8000, 2)
	if got := SniffFormat(data); got != FormatWAV {
		t.Fatalf("SniffFormat = %q", got)
	}
	d, err := ProbeDuration(data)
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	if d != 2*time.Second {
		t.Errorf("duration = %v, want 2s", d)
	}
}

func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"id3 tag", []byte("ID3\x04\x00\x00"), FormatMP3},
		{"frame sync", []byte{0xFF, 0xFB, 0x90, 0x64}, FormatMP3},
		{"riff without wave", []byte("RIFF\x00\x00\x00\x00AVI "), FormatUnknown},
		{"empty", nil, FormatUnknown},
		{"text", []byte("hello"), FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffFormat(tt.data); got != tt.want {
				t.Errorf("SniffFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbeUnknown(t *testing.T) {
	if _, err := ProbeDuration([]byte("hello")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v", err)
	}
	if _, err := ProbeDuration([]byte("ID3\x04\x00\x00garbage")); err == nil {
		t.Error("expected error for truncated mp3")
	}
}

func TestDecodePayload(t *testing.T) {
	want := "RIFF"
	enc := base64.StdEncoding.EncodeToString([]byte(want))
	for _, in := range []string{enc, " " + enc + "\n", "data:audio/wav;base64," + enc} {
		got, err := DecodePayload(in)
		if err != nil || string(got) != want {
			t.Errorf("DecodePayload(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := DecodePayload("%%%"); err == nil {
		t.Error("expected error")
	}
}

func TestFormatExt(t *testing.T) {
	if FormatMP3.Ext() != ".mp3" || FormatWAV.Ext() != ".wav" || FormatUnknown.Ext() != ".bin" {
		t.Error("unexpected extensions")
	}
}

func TestExecPlayerOpen(t *testing.T) {
	p := &ExecPlayer{
		args:   []string{"true"},
		dir:    t.TempDir(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	data := makeWAV(t, 8000, 1)
	u, err := p.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if u.Duration() != time.Second {
		t.Errorf("duration = %v", u.Duration())
	}
	if u.Position() != 0 {
		t.Errorf("position before play = %v", u.Position())
	}
	eu := u.(*execUnit)
	if filepath.Ext(eu.path) != ".wav" {
		t.Errorf("temp file %s", eu.path)
	}
	if err := u.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(eu.path); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	if err := u.Play(); err == nil {
		t.Error("Play after Close should fail")
	}
}
