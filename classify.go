package stamp

// Outcome is the closed set of results a version check can reach.
type Outcome string

const (
	// OutcomeFirstRun means no tag was stored.
	OutcomeFirstRun Outcome = "first_run"
	// OutcomeUnchanged means the stored tag equals the running version.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeMinorUpgrade means the stored tag is lower with the same major.
	OutcomeMinorUpgrade Outcome = "minor_upgrade"
	// OutcomeMajorUpgrade means the leading component increased.
	OutcomeMajorUpgrade Outcome = "major_upgrade"
	// OutcomeDowngrade means the stored tag is higher than the running version.
	OutcomeDowngrade Outcome = "downgrade"
	// OutcomeUnavailable means storage could not be read; nothing was done.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeInvalid means the invocation carried no usable current version.
	OutcomeInvalid Outcome = "invalid"
)

// Upgrade reports whether o is one of the upgrade outcomes.
func (o Outcome) Upgrade() bool {
	return o == OutcomeMinorUpgrade || o == OutcomeMajorUpgrade
}

func (o Outcome) String() string {
	return string(o)
}

// Classify decides the transition for a stored tag against the running
// version. It has no side effects.
func Classify(stored string, hasStored bool, current string) Outcome {
	if !hasStored {
		return OutcomeFirstRun
	}
	switch cmp := Compare(stored, current); {
	case cmp == 0:
		return OutcomeUnchanged
	case cmp > 0:
		return OutcomeDowngrade
	}
	if Major(current) > Major(stored) {
		return OutcomeMajorUpgrade
	}
	return OutcomeMinorUpgrade
}
