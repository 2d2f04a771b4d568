package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Fatalf("Clamp(5,0,10) = %d", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Fatalf("Clamp(-1,0,10) = %d", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Fatalf("Clamp(11,0,10) = %d", got)
	}
	// Swapped bounds behave the same.
	if got := Clamp(11, 10, 0); got != 10 {
		t.Fatalf("Clamp(11,10,0) = %d", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(uint16(2700), uint16(2700), uint16(5500)) {
		t.Fatal("lower bound is inclusive")
	}
	if !Between(uint16(5500), uint16(2700), uint16(5500)) {
		t.Fatal("upper bound is inclusive")
	}
	if Between(uint16(5501), uint16(2700), uint16(5500)) {
		t.Fatal("5501 is out of range")
	}
}

func TestRoundDiv(t *testing.T) {
	cases := []struct{ a, b, want uint32 }{
		{10, 4, 3},  // 2.5 rounds up
		{9, 4, 2},   // 2.25 rounds down
		{2054, 4, 514},
		{0, 4, 0},
		{7, 0, 0}, // guarded
	}
	for _, c := range cases {
		if got := RoundDiv(c.a, c.b); got != c.want {
			t.Fatalf("RoundDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	if got := CeilDiv(uint32(9000), uint32(16)); got != 563 {
		t.Fatalf("CeilDiv(9000,16) = %d", got)
	}
	if got := CeilDiv(uint32(16), uint32(16)); got != 1 {
		t.Fatalf("CeilDiv(16,16) = %d", got)
	}
	if got := CeilDiv(uint32(5), uint32(0)); got != 0 {
		t.Fatalf("CeilDiv by zero = %d", got)
	}
}
