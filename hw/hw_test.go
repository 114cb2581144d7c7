package hw

import "testing"

func TestIdentityGains(t *testing.T) {
	g := IdentityGains()
	for i := range g {
		if g[i] != byte(i) {
			t.Fatalf("gains[%d] = %d, want %d", i, g[i], i)
		}
	}
}

func TestDefaultBufferInfo(t *testing.T) {
	b := DefaultBufferInfo(64)
	if b.Policy != BufferImmediate {
		t.Errorf("Policy = %v, want BufferImmediate", b.Policy)
	}
	if b.NumBuffers != 4 {
		t.Errorf("NumBuffers = %d, want 4", b.NumBuffers)
	}
	if b.BufferSize != 64 {
		t.Errorf("BufferSize = %d, want 64", b.BufferSize)
	}
}
