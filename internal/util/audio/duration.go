// Package audio holds small helpers for inspecting synthesized audio payloads.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// ErrUnknownDuration is returned when the container cannot be measured.
var ErrUnknownDuration = errors.New("audio duration unknown")

// BytesPerSecondEstimate approximates a 128 kbps compressed stream. It is only
// used when neither the provider nor the decoder can report a duration.
const BytesPerSecondEstimate = 16000

// Duration returns the playback length of data in seconds. format is a hint
// ("mp3", "wav"); when empty the payload is sniffed.
func Duration(data []byte, format string) (float64, error) {
	if len(data) == 0 {
		return 0, ErrUnknownDuration
	}
	switch normalizeFormat(format, data) {
	case "wav":
		return wavDuration(data)
	case "mp3":
		return mp3Duration(data)
	default:
		return 0, ErrUnknownDuration
	}
}

// Estimate returns Duration when measurable and a size based estimate otherwise.
func Estimate(data []byte, format string) float64 {
	if d, err := Duration(data, format); err == nil && d > 0 {
		return d
	}
	return float64(len(data)) / BytesPerSecondEstimate
}

// Sniff guesses the container from magic bytes.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return "ogg"
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return "flac"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	default:
		return ""
	}
}

func normalizeFormat(format string, data []byte) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch f {
	case "mpeg", "mp3":
		return "mp3"
	case "wav", "wave", "x-wav":
		return "wav"
	case "":
		return Sniff(data)
	default:
		return f
	}
}

func mp3Duration(data []byte) (float64, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownDuration, err)
	}
	rate := dec.SampleRate()
	length := dec.Length()
	if rate <= 0 || length <= 0 {
		return 0, ErrUnknownDuration
	}
	// go-mp3 always decodes to 16-bit stereo.
	return float64(length) / 4 / float64(rate), nil
}

func wavDuration(data []byte) (float64, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, ErrUnknownDuration
	}
	var byteRate uint32
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, ErrUnknownDuration
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, ErrUnknownDuration
			}
			// Streaming writers leave the size at 0 or 0xFFFFFFFF.
			avail := uint32(len(data) - body)
			if size == 0 || size > avail {
				size = avail
			}
			return float64(size) / float64(byteRate), nil
		}
		next := body + int(size)
		if size%2 == 1 {
			next++
		}
		if next <= pos {
			break
		}
		pos = next
	}
	return 0, ErrUnknownDuration
}
