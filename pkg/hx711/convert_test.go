package hx711

import (
	"math"
	"testing"
)

func TestConvert24To32(t *testing.T) {
	t.Run("PositiveValue", func(t *testing.T) {
		result := Convert24To32(0x7FFFFF)
		if result != int32(8388607) {
			t.Errorf("expected 8388607, got %d", result)
		}
	})

	t.Run("NegativeValue", func(t *testing.T) {
		result := Convert24To32(0x800000)
		if result != int32(-8388608) {
			t.Errorf("expected -8388608, got %d", result)
		}
	})

	t.Run("ZeroValue", func(t *testing.T) {
		result := Convert24To32(0x000000)
		if result != int32(0) {
			t.Errorf("expected 0, got %d", result)
		}
	})

	t.Run("MinusOne", func(t *testing.T) {
		result := Convert24To32(0xFFFFFF)
		if result != int32(-1) {
			t.Errorf("expected -1, got %d", result)
		}
	})

	t.Run("UpperBitsIgnored", func(t *testing.T) {
		result := Convert24To32(0xAB123456)
		if result != int32(0x123456) {
			t.Errorf("expected %d, got %d", 0x123456, result)
		}
	})

	t.Run("AllPatterns", func(t *testing.T) {
		for b := uint32(0); b <= 0xFFFFFF; b += 0x1F3 {
			want := int32(b)
			if b&0x800000 != 0 {
				want = int32(b | 0xFF000000)
			}
			if got := Convert24To32(b); got != want {
				t.Fatalf("0x%06X: expected %d, got %d", b, want, got)
			}
		}
	})
}

func TestClampSamples(t *testing.T) {
	cases := map[int]int{
		math.MinInt: 1,
		-5:          1,
		0:           1,
		1:           1,
		25:          25,
		50:          50,
		51:          50,
		math.MaxInt: 50,
	}
	for in, want := range cases {
		if got := ClampSamples(in); got != want {
			t.Errorf("ClampSamples(%d): expected %d, got %d", in, want, got)
		}
	}
}

func TestElapsedMsWraps(t *testing.T) {
	if got := elapsedMs(math.MaxUint32-4, 5); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
	if got := elapsedMs(100, 250); got != 150 {
		t.Errorf("expected 150, got %d", got)
	}
}

func TestGain(t *testing.T) {
	for _, tc := range []struct {
		factor int
		gain   Gain
		pulses uint8
	}{
		{128, Gain128, 1},
		{32, Gain32, 2},
		{64, Gain64, 3},
	} {
		g, err := ParseGain(tc.factor)
		if err != nil {
			t.Fatalf("ParseGain(%d): unexpected error: %v", tc.factor, err)
		}
		if g != tc.gain {
			t.Errorf("ParseGain(%d): expected %s, got %s", tc.factor, tc.gain, g)
		}
		if g.Pulses() != tc.pulses {
			t.Errorf("%s: expected %d pulses, got %d", g, tc.pulses, g.Pulses())
		}
		if g.Factor() != tc.factor {
			t.Errorf("%s: expected factor %d, got %d", g, tc.factor, g.Factor())
		}
	}

	if _, err := ParseGain(16); err == nil {
		t.Error("expected error for gain 16")
	}
}
