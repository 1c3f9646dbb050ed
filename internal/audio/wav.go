package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Clip is a decoded mono recording.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Decode parses a WAV payload into a mono float32 clip. Multi-channel
// input is mixed down by averaging. Anything that is not a decodable WAV
// file fails loudly; there is no degraded mode for unsupported formats.
func Decode(data []byte) (*Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decode: not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("decode: missing format header")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	scale := float64(int(1) << (dec.BitDepth - 1))
	if scale <= 0 {
		return nil, fmt.Errorf("decode: unsupported bit depth %d", dec.BitDepth)
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = float32(sum / float64(channels))
	}

	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// WriteWAV encodes mono float32 samples as 16-bit PCM WAV to w.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		clamped := max(-1.0, min(1.0, float64(s)))
		buf.Data[i] = int(clamped * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav close: %w", err)
	}
	return nil
}

// WriteTempWAV renders samples to a temp WAV file and returns its path.
// Callers own the file and must remove it on every exit path.
func WriteTempWAV(samples []float32, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "vjwindow-*.wav")
	if err != nil {
		return "", fmt.Errorf("temp wav: %w", err)
	}
	if err = WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err = f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("temp wav close: %w", err)
	}
	return f.Name(), nil
}
