package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticPreamble builds a magnitude window containing one clean
// preamble starting at offset 0, followed by padNoise low samples.
func syntheticPreamble(high, low uint16, padNoise int) []uint16 {
	mag := make([]uint16, PreambleSamples+padNoise)
	for i := range mag {
		mag[i] = low
	}
	for _, off := range preambleHighs {
		mag[off] = high
	}
	return mag
}

func TestDetectorScanAcceptsCleanPreamble(t *testing.T) {
	mag := syntheticPreamble(200, 10, 32)
	d := NewDetector(DefaultPreambleGate)
	candidates := d.Scan(mag, 10, 0)
	require.Len(t, candidates, 1)
	assert.Equal(t, PreambleSamples, candidates[0].Start)
	assert.Equal(t, uint16(200), candidates[0].Peak)
}

func TestDetectorScanRejectsWhenHighNotDominant(t *testing.T) {
	// high only marginally above low: high <= 2*lowMax must reject.
	mag := syntheticPreamble(20, 15, 32)
	d := NewDetector(DefaultPreambleGate)
	candidates := d.Scan(mag, 5, 0)
	assert.Empty(t, candidates)
}

func TestDetectorScanRejectsBelowNoiseGate(t *testing.T) {
	// high/low ratio is fine, but mean high doesn't clear noise*gate.
	mag := syntheticPreamble(100, 1, 32)
	d := NewDetector(DefaultPreambleGate)
	candidates := d.Scan(mag, 1000, 0)
	assert.Empty(t, candidates)
}

func TestDetectorScanEmitsOneCandidatePerIsolatedPreamble(t *testing.T) {
	mag := syntheticPreamble(200, 10, 32)
	d := NewDetector(DefaultPreambleGate)
	candidates := d.Scan(mag, 10, 0)
	require.Len(t, candidates, 1, "a single isolated preamble must not emit duplicate overlapping candidates")
	assert.Equal(t, uint16(200), candidates[0].Peak)
}

func TestDetectorScanRespectsFromOffset(t *testing.T) {
	mag := syntheticPreamble(200, 10, 32)
	d := NewDetector(DefaultPreambleGate)
	candidates := d.Scan(mag, 10, PreambleSamples)
	assert.Empty(t, candidates, "scanning from past the only preamble must find nothing")
}
