package audio

// Default windowing parameters, in seconds. Windows overlap so phrase
// boundaries are unlikely to be fully excluded from every window; the
// duplicated coverage is accepted because downstream aggregation is a
// plain mean over independent entries.
const (
	WindowLength  = 5.0
	WindowOverlap = 1.0
	WindowStride  = WindowLength - WindowOverlap

	// minWindow drops trailing remainders too short to transcribe.
	minWindow = 1.0
)

// Window is one fixed-length slice of a clip.
type Window struct {
	Offset   float64
	Duration float64
	Samples  []float32
}

// Segment splits a clip into overlapping windows at offsets 0, stride,
// 2·stride… while offset+WindowLength fits, plus one trailing window if
// the remainder is at least one second. Clips shorter than one second
// produce no windows.
func Segment(clip *Clip) []Window {
	d := clip.Duration()
	var out []Window

	offset := 0.0
	for offset+WindowLength <= d {
		out = append(out, slice(clip, offset, WindowLength))
		offset += WindowStride
	}
	if rem := d - offset; rem >= minWindow {
		out = append(out, slice(clip, offset, rem))
	}
	return out
}

// WindowCount returns how many windows Segment produces for a clip of
// duration d seconds.
func WindowCount(d float64) int {
	n := 0
	offset := 0.0
	for offset+WindowLength <= d {
		n++
		offset += WindowStride
	}
	if d-offset >= minWindow {
		n++
	}
	return n
}

func slice(clip *Clip, offset, dur float64) Window {
	start := int(offset * float64(clip.SampleRate))
	end := start + int(dur*float64(clip.SampleRate))
	if end > len(clip.Samples) {
		end = len(clip.Samples)
	}
	if start > end {
		start = end
	}
	return Window{Offset: offset, Duration: dur, Samples: clip.Samples[start:end]}
}
