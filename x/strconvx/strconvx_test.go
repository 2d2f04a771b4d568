package strconvx

import "testing"

func TestItoa(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-42, "-42"},
		{9999, "9999"},
	}
	for _, c := range cases {
		if got := Itoa(c.in); got != c.want {
			t.Fatalf("Itoa(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatUintBases(t *testing.T) {
	if got := FormatUint(255, 16); got != "ff" {
		t.Fatalf("255 base 16 = %q", got)
	}
	if got := FormatUint(5, 2); got != "101" {
		t.Fatalf("5 base 2 = %q", got)
	}
	if got := FormatInt(-255, 16); got != "-ff" {
		t.Fatalf("-255 base 16 = %q", got)
	}
}

func TestParseUint(t *testing.T) {
	v, err := ParseUint("1234", 10, 16)
	if err != nil || v != 1234 {
		t.Fatalf("ParseUint = %d, %v", v, err)
	}
	if _, err := ParseUint("12z4", 10, 16); err == nil {
		t.Fatal("bad digit should fail")
	}
	if _, err := ParseUint("", 10, 16); err == nil {
		t.Fatal("empty string should fail")
	}
}
