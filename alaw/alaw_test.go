package alaw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSilenceRoundTrips(t *testing.T) {
	a := ToALaw(0)
	assert.InDelta(t, 0, ToLinear(a), 16)
}

func TestRoundTripStaysClose(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := int16(rapid.IntRange(-32000, 32000).Draw(t, "sample"))
		got := ToLinear(ToALaw(s))
		// A-law is lossy (8-bit companded); the largest segment's
		// quantization step is 1<<7 in G.711's 13-bit domain (1024 in
		// 16-bit samples) and decoding returns the middle of the step, so
		// round-trip error stays within half a step.
		assert.InDelta(t, s, got, 512)
	})
}

func TestCodecAdapterMatchesPackageFuncs(t *testing.T) {
	var c Codec
	assert.Equal(t, ToALaw(1234), c.ToALaw(1234))
	assert.Equal(t, ToLinear(0x55), c.ToLinear(0x55))
}
