package mode_test

import (
	"testing"

	"github.com/gabi-250/ras/internal/mode"
)

func TestParseRoundTrip(t *testing.T) {
	for _, m := range []mode.Mode{mode.Real, mode.Protected, mode.Long} {
		parsed, ok := mode.Parse(m.String())
		if !ok || parsed != m {
			t.Errorf("Parse(%q) = (%v, %v), want (%v, true)", m.String(), parsed, ok, m)
		}
	}
	if _, ok := mode.Parse("unreal"); ok {
		t.Error("expected Parse to reject an unknown mode name")
	}
}

func TestDefaultOperandSize(t *testing.T) {
	cases := map[mode.Mode]int{
		mode.Real:      16,
		mode.Protected: 32,
		mode.Long:      32,
	}
	for m, want := range cases {
		if got := m.DefaultOperandSize(); got != want {
			t.Errorf("%s.DefaultOperandSize() = %d, want %d", m, got, want)
		}
	}
}
