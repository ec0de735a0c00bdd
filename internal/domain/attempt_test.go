package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from AttemptStatus
		to   AttemptStatus
		want bool
	}{
		{AttemptPending, AttemptScheduled, true},
		{AttemptPending, AttemptSent, true},
		{AttemptPending, AttemptCancelled, true},
		{AttemptScheduled, AttemptSent, true},
		{AttemptScheduled, AttemptCancelled, true},
		{AttemptSent, AttemptDelivered, true},
		{AttemptSent, AttemptFailed, true},
		{AttemptDelivered, AttemptRead, true},
		{AttemptFailed, AttemptSent, true}, // retry

		// Illegal moves
		{AttemptSent, AttemptCancelled, false},
		{AttemptDelivered, AttemptCancelled, false},
		{AttemptRead, AttemptSent, false},
		{AttemptCancelled, AttemptSent, false},
		{AttemptScheduled, AttemptDelivered, false},
		{AttemptDelivered, AttemptFailed, false},
		{AttemptRead, AttemptDelivered, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCancellable(t *testing.T) {
	cancellable := map[AttemptStatus]bool{
		AttemptPending:   true,
		AttemptScheduled: true,
		AttemptSent:      false,
		AttemptDelivered: false,
		AttemptRead:      false,
		AttemptCancelled: false,
		AttemptFailed:    false,
	}

	for status, want := range cancellable {
		if got := status.Cancellable(); got != want {
			t.Errorf("%s.Cancellable() = %v, want %v", status, got, want)
		}
	}
}

func TestParseChannel(t *testing.T) {
	for _, ch := range Channels() {
		parsed, err := ParseChannel(string(ch))
		if err != nil {
			t.Fatalf("ParseChannel(%q) returned error: %v", ch, err)
		}
		if parsed != ch {
			t.Errorf("ParseChannel(%q) = %q", ch, parsed)
		}
	}

	if _, err := ParseChannel("fax"); err == nil {
		t.Error("ParseChannel(\"fax\") should fail")
	}
	if _, err := ParseChannel(""); err == nil {
		t.Error("ParseChannel(\"\") should fail")
	}
}

func TestParseLeadSourceDefaultsToOther(t *testing.T) {
	src, err := ParseLeadSource("")
	if err != nil {
		t.Fatalf("ParseLeadSource(\"\") returned error: %v", err)
	}
	if src != LeadSourceOther {
		t.Errorf("ParseLeadSource(\"\") = %q, want %q", src, LeadSourceOther)
	}

	if _, err := ParseLeadSource("carrier_pigeon"); err == nil {
		t.Error("ParseLeadSource with unknown value should fail")
	}
}
