package dsp

import "adsbcore/internal/intake"

// maxSpan is the largest number of magnitude samples one candidate can
// touch: the 16-sample preamble plus the 112-bit (224-sample) data
// region.
const maxSpan = PreambleSamples + 2*MaxFrameBits

// Pipeline runs the magnitude/preamble/demod stages (§4.2-§4.4) over a
// continuous stream of sample windows, carrying a small tail buffer
// across Feed calls so a preamble or frame that straddles a window
// boundary is never missed or double-counted. It has exactly one
// caller: the DSP thread.
type Pipeline struct {
	detector *Detector
	buf      []uint16
	scanFrom int
	noise    float64
}

// NewPipeline creates a Pipeline driven by detector.
func NewPipeline(detector *Detector) *Pipeline {
	return &Pipeline{detector: detector}
}

// SetNoiseFloor updates the noise-floor estimate used for preamble
// acceptance (§4.3), refreshed by the metrics aggregator.
func (p *Pipeline) SetNoiseFloor(n float64) { p.noise = n }

// Feed appends one window of IQ samples and returns every frame fully
// decoded so far, the magnitude values computed for this window (for
// the metrics aggregator, §4.9), and a same-length mask marking which
// of those magnitude samples fell inside a preamble or frame capture.
func (p *Pipeline) Feed(samples []intake.Sample) (frames []RawFrame, newMag []uint16, inFrame []bool) {
	windowStart := len(p.buf)
	newMag = MagnitudeWindow(samples, nil)
	p.buf = append(p.buf, newMag...)
	inFrame = make([]bool, len(newMag))

	candidates := p.detector.Scan(p.buf, p.noise, p.scanFrom)
	nextScanFrom := p.scanFrom

	for _, cand := range candidates {
		needEnd := cand.Start + 2*MaxFrameBits
		if needEnd > len(p.buf) {
			// Not enough samples yet to demodulate a full candidate;
			// rescan from its preamble start once more data arrives.
			nextScanFrom = cand.Start - PreambleSamples
			break
		}

		f, ok := Demodulate(p.buf, cand.Start)
		nextScanFrom = cand.Start
		if !ok {
			continue
		}
		f.Peak = cand.Peak
		f.NoiseFloor = cand.Noise
		frames = append(frames, f)

		markInFrame(inFrame, windowStart, cand.Start-PreambleSamples, cand.Start+2*f.Len())
	}

	p.scanFrom = nextScanFrom
	p.trim(windowStart)
	return frames, newMag, inFrame
}

// markInFrame flags the portion of inFrame (which covers
// buf[windowStart:]) that overlaps [lo, hi) in buf coordinates.
func markInFrame(inFrame []bool, windowStart, lo, hi int) {
	if lo < windowStart {
		lo = windowStart
	}
	for i := lo; i < hi && i-windowStart < len(inFrame); i++ {
		inFrame[i-windowStart] = true
	}
}

// trim drops processed samples once the buffer grows well beyond the
// largest span any future candidate could need, keeping scanFrom valid
// relative to the shrunk buffer.
func (p *Pipeline) trim(windowStart int) {
	const keep = maxSpan
	if len(p.buf) <= keep*2 {
		return
	}
	drop := len(p.buf) - keep
	if drop > windowStart {
		drop = windowStart // never drop samples from the window just appended
	}
	if drop <= 0 {
		return
	}
	p.buf = p.buf[drop:]
	p.scanFrom -= drop
	if p.scanFrom < 0 {
		p.scanFrom = 0
	}
}
