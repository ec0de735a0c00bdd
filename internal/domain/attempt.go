package domain

import "fmt"

// AttemptStatus is the lifecycle state of an outreach attempt.
//
//	PENDING -> SCHEDULED -> SENT -> DELIVERED -> READ
//	             |            |
//	             v            v
//	          CANCELLED    FAILED
//
// PENDING may also move directly to SENT (immediate dispatch) or CANCELLED.
// FAILED attempts may be retried (back to SENT) until the retry ceiling,
// after which FAILED is terminal.
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptScheduled AttemptStatus = "scheduled"
	AttemptSent      AttemptStatus = "sent"
	AttemptDelivered AttemptStatus = "delivered"
	AttemptRead      AttemptStatus = "read"
	AttemptCancelled AttemptStatus = "cancelled"
	AttemptFailed    AttemptStatus = "failed"
)

// ParseAttemptStatus validates and returns the status for a raw string.
func ParseAttemptStatus(raw string) (AttemptStatus, error) {
	switch AttemptStatus(raw) {
	case AttemptPending, AttemptScheduled, AttemptSent,
		AttemptDelivered, AttemptRead, AttemptCancelled, AttemptFailed:
		return AttemptStatus(raw), nil
	}
	return "", fmt.Errorf("unknown attempt status %q", raw)
}

// attemptTransitions encodes the legal state-machine moves.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptPending:   {AttemptScheduled, AttemptSent, AttemptCancelled, AttemptFailed},
	AttemptScheduled: {AttemptSent, AttemptCancelled, AttemptFailed},
	AttemptSent:      {AttemptDelivered, AttemptFailed},
	AttemptDelivered: {AttemptRead},
	AttemptFailed:    {AttemptSent}, // retry; the dispatcher enforces the ceiling
}

// CanTransition reports whether moving from one attempt status to another
// is a legal state-machine move.
func CanTransition(from, to AttemptStatus) bool {
	for _, allowed := range attemptTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an attempt in this status may still be
// cancelled. Only attempts that have not reached a provider qualify.
func (s AttemptStatus) Cancellable() bool {
	return s == AttemptPending || s == AttemptScheduled
}

// Terminal reports whether the status ends the attempt lifecycle.
// FAILED is terminal only once the retry ceiling is exhausted; that check
// belongs to the dispatcher, not the status itself.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptRead || s == AttemptCancelled
}
