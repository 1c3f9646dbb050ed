package audio

import (
	"math"
	"os"
	"testing"
)

func TestWriteAndDecodeRoundTrip(t *testing.T) {
	rate := 16000
	samples := make([]float32, rate*2)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}

	path, err := WriteTempWAV(samples, rate)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	clip, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if clip.SampleRate != rate {
		t.Errorf("sample rate = %d, want %d", clip.SampleRate, rate)
	}
	if got := clip.Duration(); math.Abs(got-2.0) > 0.01 {
		t.Errorf("duration = %v, want 2.0", got)
	}
	// 16-bit quantization keeps the waveform within one LSB.
	for i := 0; i < len(samples); i += 1000 {
		if diff := math.Abs(float64(clip.Samples[i] - samples[i])); diff > 1.0/32768*2 {
			t.Fatalf("sample %d drifted by %v", i, diff)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("definitely not a wav")); err == nil {
		t.Fatal("expected decode error")
	}
}
