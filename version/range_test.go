package version

import "testing"

func TestParseRange(t *testing.T) {
	tests := []struct {
		input     string
		satisfied []string
		rejected  []string
		wantErr   bool
	}{
		{input: "1.0", satisfied: []string{"1.0.0", "5.0.0"}, rejected: []string{"0.9.0"}},
		{input: "[1.0]", satisfied: []string{"1.0.0"}, rejected: []string{"1.0.1", "0.9.0"}},
		{input: "[1.0, 2.0)", satisfied: []string{"1.0.0", "1.9.9"}, rejected: []string{"2.0.0", "0.1.0"}},
		{input: "(1.0, 2.0]", satisfied: []string{"1.0.1", "2.0.0"}, rejected: []string{"1.0.0", "2.0.1"}},
		{input: "(, 2.0]", satisfied: []string{"0.0.1", "2.0.0"}, rejected: []string{"2.1.0"}},
		{input: "", satisfied: []string{"0.0.1", "99.0.0"}},
		{input: "(1.0)", wantErr: true},
		{input: "[2.0, 1.0]", wantErr: true},
		{input: "[1.0, 2.0", wantErr: true},
		{input: "[1.0, 2.0, 3.0]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseRange(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRange(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange(%q) error = %v", tt.input, err)
			}
			for _, v := range tt.satisfied {
				if !r.Satisfies(MustParse(v)) {
					t.Errorf("%s should satisfy %s", v, tt.input)
				}
			}
			for _, v := range tt.rejected {
				if r.Satisfies(MustParse(v)) {
					t.Errorf("%s should not satisfy %s", v, tt.input)
				}
			}
		})
	}
}

func TestRange_FindMatches(t *testing.T) {
	versions := []*NuGetVersion{
		MustParse("1.0.0"),
		MustParse("1.5.0"),
		MustParse("2.0.0"),
		MustParse("3.0.0"),
	}
	r := MustParseRange("[1.1, 3.0)")

	if best := r.FindBestMatch(versions); best == nil || best.ToNormalizedString() != "2.0.0" {
		t.Errorf("FindBestMatch() = %v, want 2.0.0", best)
	}
	if lowest := r.FindLowestMatch(versions); lowest == nil || lowest.ToNormalizedString() != "1.5.0" {
		t.Errorf("FindLowestMatch() = %v, want 1.5.0", lowest)
	}
	if none := MustParseRange("[4.0, )").FindBestMatch(versions); none != nil {
		t.Errorf("FindBestMatch() = %v, want nil", none)
	}
}

func TestSafeRange(t *testing.T) {
	r := SafeRange(MustParse("1.2.3"))

	if !r.Satisfies(MustParse("1.2.9")) {
		t.Error("1.2.9 should be a safe update of 1.2.3")
	}
	if r.Satisfies(MustParse("1.3.0")) {
		t.Error("1.3.0 should not be a safe update of 1.2.3")
	}
}

func TestRange_String(t *testing.T) {
	tests := map[string]string{
		"1.0":        "1.0.0",
		"[1.0]":      "[1.0.0]",
		"[1.0, 2.0)": "[1.0.0, 2.0.0)",
		"(, 2.0]":    "(, 2.0.0]",
		"":           "(, )",
	}
	for input, want := range tests {
		if got := MustParseRange(input).String(); got != want {
			t.Errorf("String(%q) = %q, want %q", input, got, want)
		}
	}
}
