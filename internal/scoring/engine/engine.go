// Package engine computes lead scores. It is pure: no IO, no clocks, no
// randomness. Callers fetch the lead's contact data and interaction history
// and pass an explicit "now".
package engine

import (
	"math"
	"time"

	"estate_crm_backend/internal/domain"
)

const (
	// recencyHalfLifeDays controls the exponential decay on time since the
	// last interaction. After ~21 days the recency factor halves.
	recencyHalfLifeDays = 21.0

	// volumeSaturation is the interaction count at which the volume factor
	// reaches 0.5. Diminishing returns beyond it.
	volumeSaturation = 10.0

	maxScore = 100.0
)

// Weights is the per-tenant tuning surface for the four scoring factors.
// Relative magnitudes matter, not absolute values; the engine normalizes.
type Weights struct {
	ContactCompleteness float64 `json:"contactCompleteness"`
	Recency             float64 `json:"recency"`
	Volume              float64 `json:"volume"`
	ResponseRate        float64 `json:"responseRate"`
}

// DefaultWeights returns the factory weights used when a tenant has not
// tuned scoring.
func DefaultWeights() Weights {
	return Weights{
		ContactCompleteness: 25,
		Recency:             30,
		Volume:              20,
		ResponseRate:        25,
	}
}

func (w Weights) total() float64 {
	return w.ContactCompleteness + w.Recency + w.Volume + w.ResponseRate
}

// Valid reports whether the weights can be normalized. All-zero or negative
// weight sets fall back to defaults.
func (w Weights) Valid() bool {
	return w.ContactCompleteness >= 0 && w.Recency >= 0 && w.Volume >= 0 &&
		w.ResponseRate >= 0 && w.total() > 0
}

// Contact is the slice of lead data scoring looks at.
type Contact struct {
	HasEmail bool
	HasPhone bool
}

// Interaction is one history sample, newest first by convention.
type Interaction struct {
	Outcome domain.InteractionOutcome
	At      time.Time
}

// Factor names as they appear in the factors map and score snapshots.
const (
	FactorContactCompleteness = "contact_completeness"
	FactorRecency             = "recency"
	FactorVolume              = "volume"
	FactorResponseRate        = "response_rate"
)

// Compute returns the weighted score in [0,100] and the raw per-factor values
// in [0,1]. A lead with zero interactions gets a deterministic baseline from
// contact completeness alone; that is never an error.
func Compute(contact Contact, history []Interaction, weights Weights, now time.Time) (float64, map[string]float64) {
	if !weights.Valid() {
		weights = DefaultWeights()
	}

	factors := map[string]float64{
		FactorContactCompleteness: contactCompleteness(contact),
		FactorRecency:             recency(history, now),
		FactorVolume:              volume(len(history)),
		FactorResponseRate:        responseRate(history),
	}

	weighted := factors[FactorContactCompleteness]*weights.ContactCompleteness +
		factors[FactorRecency]*weights.Recency +
		factors[FactorVolume]*weights.Volume +
		factors[FactorResponseRate]*weights.ResponseRate

	score := weighted / weights.total() * maxScore
	return clamp(score), factors
}

func contactCompleteness(contact Contact) float64 {
	value := 0.0
	if contact.HasEmail {
		value += 0.5
	}
	if contact.HasPhone {
		value += 0.5
	}
	return value
}

func recency(history []Interaction, now time.Time) float64 {
	if len(history) == 0 {
		return 0
	}

	latest := history[0].At
	for _, item := range history[1:] {
		if item.At.After(latest) {
			latest = item.At
		}
	}

	days := now.Sub(latest).Hours() / 24
	if days <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * days / recencyHalfLifeDays)
}

func volume(count int) float64 {
	if count <= 0 {
		return 0
	}
	n := float64(count)
	return n / (n + volumeSaturation)
}

func responseRate(history []Interaction) float64 {
	if len(history) == 0 {
		return 0
	}

	successes := 0
	for _, item := range history {
		if item.Outcome == domain.OutcomeSuccess {
			successes++
		}
	}
	return float64(successes) / float64(len(history))
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
