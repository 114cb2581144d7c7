package variant

import (
	"testing"

	"github.com/rob-gra/mfr2/tone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var allVariants = []Variant{ITU, Argentina, Brazil, China, Czech, Ecuador, Mexico, Philippines}

func TestParseVariantRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.SampledFrom(allVariants).Draw(t, "variant")
		name := v.String()

		got, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, v, got)

		lower, err := Parse(string([]byte{name[0] + 32}) + name[1:])
		require.NoError(t, err)
		assert.Equal(t, v, lower)
	})
}

func TestParseUnknownVariant(t *testing.T) {
	_, err := Parse("ZZ")
	assert.Error(t, err)
}

func TestNewProfileAllVariantsValid(t *testing.T) {
	for _, v := range allVariants {
		p, err := NewProfile(v)
		require.NoError(t, err, v)
		assert.Equal(t, v, p.Variant)
		assert.NotZero(t, p.Timers.MFBackCycle)
	}
}

func TestNewProfileUnknownVariant(t *testing.T) {
	_, err := NewProfile(Variant(99))
	assert.Error(t, err)
}

func TestGroupIICategoryToneRoundTrip(t *testing.T) {
	categories := []tone.Category{
		tone.NationalSubscriber,
		tone.NationalPrioritySubscriber,
		tone.InternationalSubscriber,
		tone.InternationalPrioritySubscriber,
	}
	for _, v := range allVariants {
		p, err := NewProfile(v)
		require.NoError(t, err)
		for _, c := range categories {
			tn := p.GII.CategoryToTone(c)
			got, ok := p.GII.ToneToCategory(tn)
			require.True(t, ok, "%s/%s", v, c)
			assert.Equal(t, c, got)
		}
	}
}

func TestArgentinaHasMeteringPulse(t *testing.T) {
	p, err := NewProfile(Argentina)
	require.NoError(t, err)
	assert.True(t, p.HasMeteringPulse())

	bz, err := NewProfile(Brazil)
	require.NoError(t, err)
	assert.True(t, bz.HasMeteringPulse(), "Brazil layers Argentina's overrides")

	itu, err := NewProfile(ITU)
	require.NoError(t, err)
	assert.False(t, itu.HasMeteringPulse())
}

func TestMexicoUsesGroupCAndDeferredANI(t *testing.T) {
	p, err := NewProfile(Mexico)
	require.NoError(t, err)
	assert.False(t, p.GetAniFirst)
	assert.Equal(t, tone.Tone6, p.GA.RequestCategoryAndChangeToGC)
	assert.Equal(t, tone.Invalid, p.GA.RequestCategory)
	assert.Equal(t, tone.Tone1, p.GC.RequestNextANI)
	assert.Equal(t, tone.Tone5, p.GC.RequestNextDNISAndChangeToGA)
}

func TestChinaNonRBitMask(t *testing.T) {
	p, err := NewProfile(China)
	require.NoError(t, err)
	assert.EqualValues(t, 0x3, p.NonRBitMask)
}

func TestVariantsWithoutNoMoreDNISSignal(t *testing.T) {
	for _, v := range []Variant{Argentina, Brazil, China, Mexico} {
		p, err := NewProfile(v)
		require.NoError(t, err)
		assert.Equal(t, tone.Invalid, p.GI.NoMoreDNIS, v)
	}
	itu, err := NewProfile(ITU)
	require.NoError(t, err)
	assert.NotEqual(t, tone.Invalid, itu.GI.NoMoreDNIS)
}
