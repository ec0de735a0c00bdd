package service

import (
	"testing"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/internal/preferences/repository"
	"estate_crm_backend/internal/scoring/engine"

	"github.com/google/uuid"
)

func prefsWithWindow(start, end string) repository.Preferences {
	prefs := Defaults(uuid.New())
	prefs.WorkingHoursStart = start
	prefs.WorkingHoursEnd = end
	return prefs
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestIsWithinWindow(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		t     time.Time
		want  bool
	}{
		{"inside normal window", "09:00", "18:00", at(12, 30), true},
		{"at window start", "09:00", "18:00", at(9, 0), true},
		{"at window end is outside", "09:00", "18:00", at(18, 0), false},
		{"before window", "09:00", "18:00", at(8, 59), false},
		{"after window", "09:00", "18:00", at(21, 0), false},
		{"overnight late evening", "20:00", "04:00", at(23, 0), true},
		{"overnight early morning", "20:00", "04:00", at(3, 59), true},
		{"overnight midday outside", "20:00", "04:00", at(12, 0), false},
		{"equal start and end always open", "09:00", "09:00", at(2, 0), true},
		{"unparseable start fails open", "nonsense", "18:00", at(2, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinWindow(prefsWithWindow(tt.start, tt.end), tt.t); got != tt.want {
				t.Errorf("IsWithinWindow(%s-%s, %v) = %v, want %v", tt.start, tt.end, tt.t, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseClock(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseClock(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseClock(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTemplateFor(t *testing.T) {
	prefs := Defaults(uuid.New())
	prefs.ChannelTemplates = map[string]string{
		"email": "welcome-v2",
		"sms":   "",
	}

	if templateID, ok := TemplateFor(prefs, domain.ChannelEmail); !ok || templateID != "welcome-v2" {
		t.Errorf("TemplateFor(email) = %q, %v", templateID, ok)
	}
	if _, ok := TemplateFor(prefs, domain.ChannelSMS); ok {
		t.Error("empty template id should not resolve")
	}
	if _, ok := TemplateFor(prefs, domain.ChannelWhatsApp); ok {
		t.Error("unset channel should not resolve")
	}
}

func TestDefaults(t *testing.T) {
	tenantID := uuid.New()
	prefs := Defaults(tenantID)

	if prefs.TenantID != tenantID {
		t.Errorf("TenantID = %v, want %v", prefs.TenantID, tenantID)
	}
	if prefs.DefaultChannel != domain.ChannelEmail {
		t.Errorf("DefaultChannel = %v, want email", prefs.DefaultChannel)
	}
	if prefs.MaxDailyOutreach != DefaultMaxDailyOutreach {
		t.Errorf("MaxDailyOutreach = %v, want %v", prefs.MaxDailyOutreach, DefaultMaxDailyOutreach)
	}
	if !IsWithinWindow(prefs, at(10, 0)) || IsWithinWindow(prefs, at(20, 0)) {
		t.Error("default window should be 09:00-18:00")
	}
}

func TestWeightsFromMap(t *testing.T) {
	raw := map[string]float64{
		engine.FactorContactCompleteness: 10,
		engine.FactorRecency:             20,
		engine.FactorVolume:              30,
		engine.FactorResponseRate:        40,
	}

	weights := weightsFromMap(raw)
	if weights.ContactCompleteness != 10 || weights.Recency != 20 ||
		weights.Volume != 30 || weights.ResponseRate != 40 {
		t.Errorf("weightsFromMap = %+v", weights)
	}

	if weightsFromMap(map[string]float64{"unknown": 5}).Valid() {
		t.Error("unknown-only keys should produce invalid weights")
	}
}
