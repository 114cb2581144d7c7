package tone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDigitToneRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digit := byte(rapid.IntRange(0, 9).Draw(t, "digit")) + '0'

		tn, ok := DigitTone(digit)
		require.True(t, ok)

		got, ok := tn.Digit()
		require.True(t, ok)
		assert.Equal(t, digit, got)
	})
}

func TestDigitToneRejectsNonDigits(t *testing.T) {
	_, ok := DigitTone('x')
	assert.False(t, ok)

	_, ok = Tone(0).Digit()
	assert.False(t, ok, "silence is not a digit tone")
}

func TestCategoryParseRoundTrip(t *testing.T) {
	for c := NationalSubscriber; c <= InternationalPrioritySubscriber; c++ {
		name := c.String()
		got, ok := ParseCategory(name)
		require.True(t, ok)
		assert.Equal(t, c, got)

		// case-insensitive prefix
		got, ok = ParseCategory("national")
		if c == NationalSubscriber {
			require.True(t, ok)
			assert.Equal(t, NationalSubscriber, got)
		}
	}
}

func TestToneStringUnknown(t *testing.T) {
	assert.Equal(t, "INVALID", Invalid.String())
	assert.Equal(t, "SILENCE", Silence.String())
	assert.Equal(t, "UNKNOWN_TONE", Tone(99).String())
}
