package mfr2

import (
	"testing"
	"time"

	"github.com/rob-gra/mfr2/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContextAppliesDefaults(t *testing.T) {
	ctx, err := NewContext(Config{Variant: variant.ITU})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxANI, ctx.MaxANI())
	assert.Equal(t, DefaultMFThreshold, ctx.MFThreshold())
	assert.Equal(t, 0, ctx.MaxDNIS(), "zero MaxDNIS is a legal boundary value, not defaulted")
	assert.Equal(t, variant.ITU, ctx.Profile().Variant)
}

func TestNewContextHonorsExplicitValues(t *testing.T) {
	ctx, err := NewContext(Config{
		Variant:     variant.Mexico,
		MaxANI:      8,
		MaxDNIS:     6,
		MFThreshold: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, ctx.MaxANI())
	assert.Equal(t, 6, ctx.MaxDNIS())
	assert.Equal(t, 20*time.Millisecond, ctx.MFThreshold())
}

func TestNewContextRejectsNegativeBounds(t *testing.T) {
	_, err := NewContext(Config{MaxANI: -1})
	assert.Error(t, err)

	_, err = NewContext(Config{MaxDNIS: -1})
	assert.Error(t, err)
}

func TestNewContextRejectsUnknownVariant(t *testing.T) {
	_, err := NewContext(Config{Variant: variant.Variant(99)})
	assert.Error(t, err)
}
