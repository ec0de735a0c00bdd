package engine

import (
	"math"
	"testing"
	"time"

	"estate_crm_backend/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestComputeBaselineWithoutInteractions(t *testing.T) {
	tests := []struct {
		name    string
		contact Contact
		want    float64
	}{
		{"no contact data", Contact{}, 0},
		{"email only", Contact{HasEmail: true}, 12.5},
		{"phone only", Contact{HasPhone: true}, 12.5},
		{"both", Contact{HasEmail: true, HasPhone: true}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, factors := Compute(tt.contact, nil, DefaultWeights(), testNow)
			if math.Abs(score-tt.want) > 1e-9 {
				t.Errorf("score = %v, want %v", score, tt.want)
			}
			if factors[FactorRecency] != 0 || factors[FactorVolume] != 0 || factors[FactorResponseRate] != 0 {
				t.Errorf("history factors should be zero, got %v", factors)
			}
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	contact := Contact{HasEmail: true}
	history := []Interaction{
		{Outcome: domain.OutcomeSuccess, At: testNow.Add(-24 * time.Hour)},
		{Outcome: domain.OutcomeNoResponse, At: testNow.Add(-72 * time.Hour)},
	}

	first, _ := Compute(contact, history, DefaultWeights(), testNow)
	second, _ := Compute(contact, history, DefaultWeights(), testNow)
	if first != second {
		t.Errorf("same input produced %v then %v", first, second)
	}
}

func TestComputeScoreBounds(t *testing.T) {
	history := make([]Interaction, 0, 200)
	for i := 0; i < 200; i++ {
		history = append(history, Interaction{
			Outcome: domain.OutcomeSuccess,
			At:      testNow.Add(-time.Duration(i) * time.Hour),
		})
	}

	score, _ := Compute(Contact{HasEmail: true, HasPhone: true}, history, DefaultWeights(), testNow)
	if score < 0 || score > 100 {
		t.Errorf("score %v out of [0,100]", score)
	}
	if score < 90 {
		t.Errorf("fully engaged lead should score high, got %v", score)
	}
}

func TestRecencyDecay(t *testing.T) {
	fresh := []Interaction{{Outcome: domain.OutcomeSuccess, At: testNow}}
	stale := []Interaction{{Outcome: domain.OutcomeSuccess, At: testNow.Add(-90 * 24 * time.Hour)}}

	_, freshFactors := Compute(Contact{}, fresh, DefaultWeights(), testNow)
	_, staleFactors := Compute(Contact{}, stale, DefaultWeights(), testNow)

	if freshFactors[FactorRecency] != 1 {
		t.Errorf("fresh recency = %v, want 1", freshFactors[FactorRecency])
	}
	if staleFactors[FactorRecency] >= 0.1 {
		t.Errorf("90-day-old recency = %v, want < 0.1", staleFactors[FactorRecency])
	}

	// Half-life: factor halves after recencyHalfLifeDays.
	halfway := []Interaction{{Outcome: domain.OutcomeSuccess, At: testNow.Add(-21 * 24 * time.Hour)}}
	_, halfFactors := Compute(Contact{}, halfway, DefaultWeights(), testNow)
	if math.Abs(halfFactors[FactorRecency]-0.5) > 0.01 {
		t.Errorf("half-life recency = %v, want ~0.5", halfFactors[FactorRecency])
	}
}

func TestVolumeDiminishingReturns(t *testing.T) {
	gain := func(from, to int) float64 {
		return volume(to) - volume(from)
	}
	if gain(0, 5) <= gain(5, 10) {
		t.Errorf("early interactions should add more than later ones: %v vs %v", gain(0, 5), gain(5, 10))
	}
	if volume(1000) >= 1 {
		t.Errorf("volume factor must stay below 1, got %v", volume(1000))
	}
}

func TestResponseRate(t *testing.T) {
	history := []Interaction{
		{Outcome: domain.OutcomeSuccess, At: testNow},
		{Outcome: domain.OutcomeFailed, At: testNow},
		{Outcome: domain.OutcomeNoResponse, At: testNow},
		{Outcome: domain.OutcomeSuccess, At: testNow},
	}
	if got := responseRate(history); got != 0.5 {
		t.Errorf("responseRate = %v, want 0.5", got)
	}
}

func TestInvalidWeightsFallBackToDefaults(t *testing.T) {
	contact := Contact{HasEmail: true, HasPhone: true}

	zero, _ := Compute(contact, nil, Weights{}, testNow)
	def, _ := Compute(contact, nil, DefaultWeights(), testNow)
	if zero != def {
		t.Errorf("zero weights should behave like defaults: %v vs %v", zero, def)
	}

	negative := Weights{ContactCompleteness: -5, Recency: 10, Volume: 10, ResponseRate: 10}
	if negative.Valid() {
		t.Error("negative weights must not be valid")
	}
}

func TestCustomWeightsShiftScore(t *testing.T) {
	contact := Contact{HasEmail: true, HasPhone: true}
	onlyCompleteness := Weights{ContactCompleteness: 1}

	score, _ := Compute(contact, nil, onlyCompleteness, testNow)
	if score != 100 {
		t.Errorf("completeness-only weights with full contact data = %v, want 100", score)
	}
}
