package threshold

import (
	"testing"
	"time"

	"github.com/nocmx/vigia/pkg/models"
)

func fixedEngine() *Engine {
	e := NewEngine(Config{})
	e.now = func() time.Time { return time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC) }
	n := 0
	e.id = func() string { n++; return "alert-" + string(rune('a'+n-1)) }
	return e
}

func input(id int, contracted, util float64) Input {
	return Input{
		Link: models.Link{
			ID:          id,
			DeviceID:    1,
			Name:        "Te0/0/1",
			Utilization: &util,
		},
		Site:                   "MTY-Centro-01",
		Plaza:                  "Monterrey",
		ContractedCapacityMbps: contracted,
	}
}

func TestThresholdFor(t *testing.T) {
	e := NewEngine(Config{})
	tests := []struct {
		contracted, want float64
	}{
		{4000, 5000},  // at cutoff: static threshold
		{10000, 5000}, // above cutoff
		{1000, 800},   // scaled: 80%
		{3999, 3199.2},
	}
	for _, tc := range tests {
		if got := e.ThresholdFor(tc.contracted); got != tc.want {
			t.Errorf("ThresholdFor(%v) = %v, want %v", tc.contracted, got, tc.want)
		}
	}
}

func TestStatusFor_CapacityRiskWinsAtBoundary(t *testing.T) {
	tests := []struct {
		util float64
		want models.ThresholdStatus
	}{
		{95, models.ThresholdCapacityRisk},
		{92, models.ThresholdCapacityRisk},
		{90, models.ThresholdCapacityRisk},
		{89.9, models.ThresholdCritical},
		{80, models.ThresholdCritical},
		{79.9, models.ThresholdWarning},
		{70, models.ThresholdWarning},
		{69.9, models.ThresholdNormal},
		{0, models.ThresholdNormal},
	}
	for _, tc := range tests {
		if got := StatusFor(tc.util); got != tc.want {
			t.Errorf("StatusFor(%v) = %q, want %q", tc.util, got, tc.want)
		}
	}
}

func TestEvaluate_CapacityRiskScenario(t *testing.T) {
	// Contracted 4000 Mbps at 92% must emit capacity_risk, not critical.
	e := fixedEngine()
	alerts := e.Evaluate([]Input{input(1, 4000, 92)})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Status != models.ThresholdCapacityRisk {
		t.Errorf("Status = %q, want capacity_risk", a.Status)
	}
	if a.Severity != models.SeverityEmergency {
		t.Errorf("Severity = %q, want emergency", a.Severity)
	}
	if a.ThresholdMbps != 5000 {
		t.Errorf("ThresholdMbps = %v, want 5000", a.ThresholdMbps)
	}
	if a.RecommendedAction == "" {
		t.Error("RecommendedAction empty")
	}
}

func TestEvaluate_SkipsNormalAndUnknown(t *testing.T) {
	e := fixedEngine()
	unknown := Input{
		Link: models.Link{ID: 2, DeviceID: 1, Name: "Te0/0/2"}, // no utilization measured
		Site: "MTY-Centro-01",
	}
	alerts := e.Evaluate([]Input{input(1, 1000, 40), unknown})
	if len(alerts) != 0 {
		t.Fatalf("got %d alerts, want 0", len(alerts))
	}
}

func TestEvaluate_ContractFallsBackToLinkCapacity(t *testing.T) {
	e := fixedEngine()
	util := 85.0
	in := Input{
		Link: models.Link{ID: 3, DeviceID: 1, Name: "Hu0/0/0", CapacityMbps: 2000, Utilization: &util},
		Site: "GDL-Sur-02",
	}
	alerts := e.Evaluate([]Input{in})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].ContractedCapacityMbps != 2000 {
		t.Errorf("ContractedCapacityMbps = %v, want link capacity 2000", alerts[0].ContractedCapacityMbps)
	}
	if alerts[0].ThresholdMbps != 1600 {
		t.Errorf("ThresholdMbps = %v, want 1600", alerts[0].ThresholdMbps)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	// Two runs over identical input yield identical alert sets modulo
	// IDs and timestamps.
	inputs := []Input{
		input(1, 4000, 92),
		input(2, 1000, 75),
		input(3, 2000, 83),
	}

	first := fixedEngine().Evaluate(inputs)
	second := fixedEngine().Evaluate(inputs)

	if len(first) != len(second) {
		t.Fatalf("alert counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		a.ID, b.ID = "", ""
		a.GeneratedAt, b.GeneratedAt = time.Time{}, time.Time{}
		if a != b {
			t.Errorf("alert %d differs between runs:\n%+v\n%+v", i, a, b)
		}
	}
}
