package register_test

import (
	"testing"

	"github.com/gabi-250/ras/internal/register"
)

func TestNeedsRexExtension(t *testing.T) {
	cases := []struct {
		reg  register.Register
		want bool
	}{
		{register.RAX, false},
		{register.RDI, false},
		{register.R8, true},
		{register.R15B, true},
	}
	for _, c := range cases {
		if got := c.reg.NeedsRexExtension(); got != c.want {
			t.Errorf("%s.NeedsRexExtension() = %v, want %v", c.reg.Name, got, c.want)
		}
	}
}

func TestLow3MasksToThreeBits(t *testing.T) {
	if got := register.R15.Low3(); got != 7 {
		t.Errorf("R15.Low3() = %d, want 7", got)
	}
	if got := register.R8.Low3(); got != 0 {
		t.Errorf("R8.Low3() = %d, want 0", got)
	}
	if got := register.RDI.Low3(); got != 7 {
		t.Errorf("RDI.Low3() = %d, want 7", got)
	}
}

func TestByNameRoundTrip(t *testing.T) {
	for name, reg := range register.ByName {
		if reg.Name != name {
			t.Errorf("ByName[%q].Name = %q, want %q", name, reg.Name, name)
		}
	}
}

func TestHighByteRegistersSharePhysicalWithSpl(t *testing.T) {
	if register.AH.Physical != register.SPL.Physical {
		t.Errorf("AH.Physical = %d, SPL.Physical = %d, want equal", register.AH.Physical, register.SPL.Physical)
	}
	if !register.AH.High || register.SPL.High {
		t.Error("expected AH.High=true and SPL.High=false")
	}
}
