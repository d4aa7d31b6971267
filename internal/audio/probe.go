package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Format is an audio container format.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
)

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatUnknown {
		return ".bin"
	}
	return "." + string(f)
}

// ErrUnknownFormat is returned when a payload is neither WAV nor MP3.
var ErrUnknownFormat = errors.New("audio: unknown format")

// DecodePayload decodes a base64 payload. A data URL prefix is accepted.
func DecodePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding audio payload: %w", err)
	}
	return data, nil
}

// SniffFormat detects the container format from the first bytes of data.
func SniffFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

// ProbeDuration returns the playing time of a WAV or MP3 payload.
func ProbeDuration(data []byte) (time.Duration, error) {
	switch SniffFormat(data) {
	case FormatWAV:
		dec := wav.NewDecoder(bytes.NewReader(data))
		if !dec.IsValidFile() {
			return 0, fmt.Errorf("probing wav: invalid file")
		}
		if err := dec.FwdToPCM(); err != nil {
			return 0, fmt.Errorf("probing wav: %w", err)
		}
		bytesPerSec := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth) / 8
		if bytesPerSec <= 0 {
			return 0, fmt.Errorf("probing wav: bad format")
		}
		return time.Duration(dec.PCMLen()) * time.Second / time.Duration(bytesPerSec), nil

	case FormatMP3:
		dec, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("probing mp3: %w", err)
		}
		// Decoded output is 16-bit stereo, 4 bytes per sample frame.
		frames := dec.Length() / 4
		if frames <= 0 || dec.SampleRate() <= 0 {
			return 0, fmt.Errorf("probing mp3: unknown length")
		}
		return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()), nil
	}
	return 0, ErrUnknownFormat
}
