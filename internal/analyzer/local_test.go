package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/calmloop/voicejournal/internal/audio"
)

type fakeTranscriber struct {
	texts []string
	errAt int
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	i := f.calls
	f.calls++
	if f.errAt > 0 && i == f.errAt-1 {
		return "", errors.New("transcription backend down")
	}
	if i < len(f.texts) {
		return f.texts[i], nil
	}
	return "", nil
}

type fakeScorer struct {
	emotions map[string]float64
	err      error
}

func (f *fakeScorer) Score(_ context.Context, text string) (*TextScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &TextScore{
		Emotions:       f.emotions,
		SentimentScore: 0.2,
		SentimentLabel: "positive",
		Themes:         []string{"work"},
	}, nil
}

func testClip(seconds float64) *audio.Clip {
	return &audio.Clip{Samples: make([]float32, int(seconds*16000)), SampleRate: 16000}
}

func TestLocalAnalyzeProducesOrderedEntries(t *testing.T) {
	asr := &fakeTranscriber{texts: []string{"first window", "second window", "third"}}
	a := NewLocalAnalyzer(asr, &fakeScorer{emotions: map[string]float64{"joy": 0.5}})

	// 10 seconds: windows at 0, 4, and a trailing one at 8.
	entries, err := a.Analyze(context.Background(), "s1", testClip(10), "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, wantOffset := range []float64{0, 4, 8} {
		if entries[i].StartTime != wantOffset {
			t.Errorf("entry %d start = %v, want %v", i, entries[i].StartTime, wantOffset)
		}
		if entries[i].SessionID != "s1" {
			t.Errorf("entry %d session = %q", i, entries[i].SessionID)
		}
	}
	if entries[0].Transcript != "first window" {
		t.Errorf("transcript = %q", entries[0].Transcript)
	}
	if entries[0].Themes[0] != "work" {
		t.Errorf("themes = %v", entries[0].Themes)
	}
}

func TestLocalAnalyzeSkipsEmptyTranscripts(t *testing.T) {
	asr := &fakeTranscriber{texts: []string{"spoken", "   ", "more speech"}}
	a := NewLocalAnalyzer(asr, &fakeScorer{emotions: map[string]float64{"joy": 0.3}})

	entries, err := a.Analyze(context.Background(), "s1", testClip(10), "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (silent window skipped)", len(entries))
	}
	if entries[1].StartTime != 8 {
		t.Errorf("second entry start = %v, want 8", entries[1].StartTime)
	}
}

func TestLocalAnalyzeSurvivesWindowFailure(t *testing.T) {
	asr := &fakeTranscriber{texts: []string{"one", "two", "three"}, errAt: 2}
	a := NewLocalAnalyzer(asr, &fakeScorer{emotions: map[string]float64{"joy": 0.3}})

	entries, err := a.Analyze(context.Background(), "s1", testClip(10), "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (failed window skipped)", len(entries))
	}
}

func TestLocalAnalyzeShortClipYieldsNothing(t *testing.T) {
	a := NewLocalAnalyzer(&fakeTranscriber{}, &fakeScorer{})
	entries, err := a.Analyze(context.Background(), "s1", testClip(0.5), "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}

func TestLocalAnalyzeMarksSpikes(t *testing.T) {
	asr := &fakeTranscriber{texts: []string{"I was so angry"}}
	a := NewLocalAnalyzer(asr, &fakeScorer{emotions: map[string]float64{"anger": 0.85}})

	entries, err := a.Analyze(context.Background(), "s1", testClip(5), "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if !e.IsSpike || e.SpikeType != "negative" {
		t.Errorf("spike = (%v, %q), want (true, negative)", e.IsSpike, e.SpikeType)
	}
	if fmt.Sprintf("%.2f", e.Intensity) != "1.00" {
		t.Errorf("intensity = %v, want clamped 1.0", e.Intensity)
	}
}
