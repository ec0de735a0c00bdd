package service

import (
	"testing"

	"estate_crm_backend/internal/analytics/repository"
)

func TestBuildFunnel(t *testing.T) {
	counts := []repository.StatusCount{
		{Status: "new", Count: 10},
		{Status: "contacted", Count: 5},
		{Status: "closed", Count: 4},
		{Status: "lost", Count: 1},
	}

	funnel := buildFunnel(counts)

	if funnel.TotalLeads != 20 {
		t.Errorf("TotalLeads = %d, want 20", funnel.TotalLeads)
	}
	if funnel.ConversionRate != 0.2 {
		t.Errorf("ConversionRate = %v, want 0.2", funnel.ConversionRate)
	}
	// Every funnel stage appears, in order, including empty ones.
	if len(funnel.Stages) != 7 {
		t.Fatalf("Stages = %d, want 7", len(funnel.Stages))
	}
	if funnel.Stages[0].Status != "new" || funnel.Stages[0].Count != 10 {
		t.Errorf("first stage = %+v", funnel.Stages[0])
	}
	if funnel.Stages[3].Status != "proposal" || funnel.Stages[3].Count != 0 {
		t.Errorf("empty stage = %+v", funnel.Stages[3])
	}
}

func TestBuildFunnelEmptyWindow(t *testing.T) {
	funnel := buildFunnel(nil)
	if funnel.TotalLeads != 0 || funnel.ConversionRate != 0 {
		t.Errorf("empty funnel = %+v", funnel)
	}
}

func TestBuildChannels(t *testing.T) {
	avg := 42.5
	stats := []repository.ChannelStats{
		{Channel: "email", Total: 10, Successes: 7, AvgDurationSeconds: nil},
		{Channel: "call", Total: 4, Successes: 1, AvgDurationSeconds: &avg},
	}

	channels := buildChannels(stats)
	if channels[0].SuccessRate != 0.7 {
		t.Errorf("email success rate = %v, want 0.7", channels[0].SuccessRate)
	}
	if channels[1].SuccessRate != 0.25 {
		t.Errorf("call success rate = %v, want 0.25", channels[1].SuccessRate)
	}
	if channels[1].AvgResponseSeconds == nil || *channels[1].AvgResponseSeconds != 42.5 {
		t.Errorf("call avg response = %v", channels[1].AvgResponseSeconds)
	}
}

func TestBuildSources(t *testing.T) {
	counts := []repository.SourceCount{
		{Source: "website", Count: 6},
		{Source: "referral", Count: 2},
	}

	sources := buildSources(counts)
	if sources[0].Share != 0.75 || sources[1].Share != 0.25 {
		t.Errorf("shares = %v, %v", sources[0].Share, sources[1].Share)
	}
}
