package constants

// Policy selects how a sweep reacts to a failed run.
type Policy string

const (
	// PolicyFailFast aborts the sweep at the first failed run.
	PolicyFailFast Policy = "fail_fast"

	// PolicyCollectAll keeps going and reports every failure at the end.
	PolicyCollectAll Policy = "collect_all"
)

// Valid returns true if the policy is a recognized value.
func (p Policy) Valid() bool {
	switch p {
	case PolicyFailFast, PolicyCollectAll:
		return true
	}
	return false
}

// String returns the string representation of the policy.
func (p Policy) String() string {
	return string(p)
}
