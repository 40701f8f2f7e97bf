package stamp

import "testing"

func TestCompareNumericSegments(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2.9.0", "2.10.0", -1},
		{"2.10.0", "2.9.0", 1},
		{"1.0.0", "1.0.0", 0},
		{"2.0", "2.0.0", 0},
		{"2", "2.0.1", -1},
		{"10.0.0", "9.99.99", 1},
		{"2.1.0-beta", "2.1.0", 0},
		{"2.1.0+sha.abc", "2.1.1", -1},
		{"", "0.0.0", 0},
		{"", "0.0.1", -1},
		{"x.y.z", "0", 0},
		{" 3.0.0 ", "3.0.0", 0},
		{"99999999999999999999999.0", "1.0", 1},
	}
	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestIsLowerAgreesWithCompare(t *testing.T) {
	versions := []string{"0.9", "1.0.0", "1.0.1", "1.9.9", "1.10.0", "2.0.0", "2.0.5", "2.1.0", "2.9.0", "2.10.0", "10.0.0"}
	for i, a := range versions {
		for j, b := range versions {
			want := i < j
			if got := IsLower(a, b); got != want {
				t.Fatalf("IsLower(%q, %q) = %v, want %v", a, b, got, want)
			}
		}
	}
	if !IsLower("2.9.0", "2.10.0") {
		t.Fatalf("comparison must not be lexical")
	}
}

func TestMajor(t *testing.T) {
	cases := map[string]int{
		"2.1.0":      2,
		"10":         10,
		"":           0,
		"3-rc1.0":    3,
		"beta.1.0":   0,
		"  7.0.0   ": 7,
	}
	for input, want := range cases {
		if got := Major(input); got != want {
			t.Errorf("Major(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestValid(t *testing.T) {
	valid := []string{"1", "1.0", "2.10.3", " 3.0.0 "}
	invalid := []string{"", "1..0", "1.0.", "v1.0.0", "2.1.0-beta", "1.0.0+build"}
	for _, v := range valid {
		if !Valid(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}
	for _, v := range invalid {
		if Valid(v) {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}
