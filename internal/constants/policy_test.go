package constants

import "testing"

func TestPolicy_Valid(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   bool
	}{
		{
			name:   "fail_fast is valid",
			policy: PolicyFailFast,
			want:   true,
		},
		{
			name:   "collect_all is valid",
			policy: PolicyCollectAll,
			want:   true,
		},
		{
			name:   "empty string is invalid",
			policy: Policy(""),
			want:   false,
		},
		{
			name:   "hyphenated spelling is invalid",
			policy: Policy("fail-fast"),
			want:   false,
		},
		{
			name:   "uppercase is invalid",
			policy: Policy("FAIL_FAST"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Valid(); got != tt.want {
				t.Errorf("Policy.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_String(t *testing.T) {
	if got := PolicyCollectAll.String(); got != "collect_all" {
		t.Errorf("Policy.String() = %q, want %q", got, "collect_all")
	}
}

func TestControllerFamilies_Order(t *testing.T) {
	want := []string{"fixed", "actuated", "max_pressure"}
	if len(ControllerFamilies) != len(want) {
		t.Fatalf("len(ControllerFamilies) = %d, want %d", len(ControllerFamilies), len(want))
	}
	for i := range want {
		if ControllerFamilies[i] != want[i] {
			t.Errorf("ControllerFamilies[%d] = %q, want %q", i, ControllerFamilies[i], want[i])
		}
	}
}
