package hamming

import "testing"

func TestDistanceIdentityAndSymmetry(t *testing.T) {
	samples := []Fingerprint{
		MustParseHex(""),
		MustParseHex("00"),
		MustParseHex("ff00ff00"),
		MustParseHex("0123456789abcdef0123456789abcdef"),
		MustParseHex("fedcba98765432100123456789abcdefaa"),
	}
	for _, x := range samples {
		if d := Distance(x, x); d != 0 {
			t.Fatalf("Distance(%s, %s) = %d, want 0", x, x, d)
		}
		for _, y := range samples {
			if len(x) != len(y) {
				continue
			}
			if Distance(x, y) != Distance(y, x) {
				t.Fatalf("Distance not symmetric for %s / %s", x, y)
			}
		}
	}
}

func TestDistanceCountsDifferingBits(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"00", "ff", 8},
		{"0f", "f0", 8},
		{"01", "03", 1},
		{"ffffffffffffffffff", "ffffffffffffffff00", 8},
		{"0000000000000000ff", "ffffffffffffffffff", 64},
		{"aaaa", "5555", 16},
	}
	for _, tc := range cases {
		got := Distance(MustParseHex(tc.a), MustParseHex(tc.b))
		if got != tc.want {
			t.Fatalf("Distance(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDistanceUnequalLengthUsesCommonPrefix(t *testing.T) {
	got := Distance(MustParseHex("ff00"), MustParseHex("ff"))
	if got != 0 {
		t.Fatalf("expected common prefix comparison, got %d", got)
	}
}

func TestParseHexRejectsInvalidInput(t *testing.T) {
	for _, value := range []string{"abc", "zz"} {
		if _, err := ParseHex(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
	fp, err := ParseHex(" 0A0b ")
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if fp.String() != "0a0b" {
		t.Fatalf("unexpected round trip: %s", fp)
	}
}

func TestLeadingWithin(t *testing.T) {
	if got := LeadingWithin([]int{0, 3, 5, 6, 1}, 5); got != 3 {
		t.Fatalf("LeadingWithin = %d, want 3", got)
	}
	if got := LeadingWithin([]int{1, 2}, 5); got != 2 {
		t.Fatalf("LeadingWithin = %d, want 2", got)
	}
	if got := LeadingWithin(nil, 5); got != 0 {
		t.Fatalf("LeadingWithin(nil) = %d, want 0", got)
	}
}

func TestMaxDistance(t *testing.T) {
	ref := MustParseHex("00")
	got := MaxDistance(ref, []Fingerprint{MustParseHex("01"), MustParseHex("07"), MustParseHex("03")})
	if got != 3 {
		t.Fatalf("MaxDistance = %d, want 3", got)
	}
	if MaxDistance(ref, nil) != 0 {
		t.Fatal("expected 0 for no candidates")
	}
}
