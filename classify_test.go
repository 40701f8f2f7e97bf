package stamp

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		stored    string
		hasStored bool
		current   string
		want      Outcome
	}{
		{"no tag", "", false, "3.0.0", OutcomeFirstRun},
		{"empty tag counts as stored", "", true, "0.0.0", OutcomeUnchanged},
		{"same", "2.1.0", true, "2.1.0", OutcomeUnchanged},
		{"numerically same", "2.0", true, "2.0.0", OutcomeUnchanged},
		{"patch bump", "2.0.5", true, "2.0.6", OutcomeMinorUpgrade},
		{"minor bump", "2.0.5", true, "2.1.0", OutcomeMinorUpgrade},
		{"double digit minor", "2.9.0", true, "2.10.0", OutcomeMinorUpgrade},
		{"major bump", "1.5.0", true, "2.0.0", OutcomeMajorUpgrade},
		{"skip majors", "1.5.0", true, "4.2.0", OutcomeMajorUpgrade},
		{"downgrade", "2.1.0", true, "2.0.9", OutcomeDowngrade},
		{"major downgrade", "3.0.0", true, "2.9.9", OutcomeDowngrade},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.stored, tc.hasStored, tc.current); got != tc.want {
				t.Fatalf("Classify(%q, %v, %q) = %s, want %s", tc.stored, tc.hasStored, tc.current, got, tc.want)
			}
		})
	}
}

func TestOutcomeUpgrade(t *testing.T) {
	for _, outcome := range []Outcome{OutcomeMinorUpgrade, OutcomeMajorUpgrade} {
		if !outcome.Upgrade() {
			t.Fatalf("%s should be an upgrade", outcome)
		}
	}
	for _, outcome := range []Outcome{OutcomeFirstRun, OutcomeUnchanged, OutcomeDowngrade, OutcomeUnavailable, OutcomeInvalid} {
		if outcome.Upgrade() {
			t.Fatalf("%s should not be an upgrade", outcome)
		}
	}
}
