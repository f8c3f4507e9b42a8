// Package threshold evaluates link utilization against engineering
// thresholds and synthesizes proactive capacity-planning alerts.
package threshold

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nocmx/vigia/pkg/models"
)

// Config holds the engineering-threshold policy.
type Config struct {
	// StaticMbps caps the threshold for large circuits.
	StaticMbps float64 `mapstructure:"static_mbps"`
	// ContractedCutoffMbps is the contracted capacity at which the
	// static threshold takes over from the scaled one.
	ContractedCutoffMbps float64 `mapstructure:"contracted_cutoff_mbps"`
	// ScaleFactor scales contracted capacity into a threshold for
	// smaller circuits.
	ScaleFactor float64 `mapstructure:"scale_factor"`
}

// DefaultConfig is the shipped engineering policy: 5 Gbps static
// threshold for circuits contracted at 4 Gbps or more, 80% of
// contracted capacity below that.
var DefaultConfig = Config{
	StaticMbps:           5000,
	ContractedCutoffMbps: 4000,
	ScaleFactor:          0.8,
}

// Input is one link with its contract context resolved.
type Input struct {
	Link                   models.Link
	Site                   string
	Plaza                  string
	ContractedCapacityMbps float64 // falls back to link capacity when no bill matched
}

// Engine sweeps links against the threshold policy. Alerts are
// regenerated fresh on every run and only reference links present in
// the current pass; there is no persistence or cross-run dedup.
type Engine struct {
	cfg Config
	now func() time.Time
	id  func() string
}

// NewEngine creates a threshold engine with the given policy. Zero
// config falls back to DefaultConfig.
func NewEngine(cfg Config) *Engine {
	if cfg == (Config{}) {
		cfg = DefaultConfig
	}
	return &Engine{
		cfg: cfg,
		now: time.Now,
		id:  func() string { return uuid.NewString() },
	}
}

// ThresholdFor computes the engineering threshold for a contracted
// capacity.
func (e *Engine) ThresholdFor(contractedMbps float64) float64 {
	if contractedMbps >= e.cfg.ContractedCutoffMbps {
		return e.cfg.StaticMbps
	}
	return contractedMbps * e.cfg.ScaleFactor
}

// StatusFor bands a measured utilization. The ranges are mutually
// exclusive and capacity_risk is checked first: a 95% link is a
// capacity risk, and must never fall through to plain critical.
func StatusFor(utilization float64) models.ThresholdStatus {
	switch {
	case utilization >= 90:
		return models.ThresholdCapacityRisk
	case utilization >= 80:
		return models.ThresholdCritical
	case utilization >= 70:
		return models.ThresholdWarning
	default:
		return models.ThresholdNormal
	}
}

// severityFor maps a breach status to an alert severity.
func severityFor(status models.ThresholdStatus) models.AlertSeverity {
	switch status {
	case models.ThresholdCapacityRisk:
		return models.SeverityEmergency
	case models.ThresholdCritical:
		return models.SeverityCritical
	default:
		return models.SeverityWarning
	}
}

// recommendedActions are fixed per-status action strings.
var recommendedActions = map[models.ThresholdStatus]string{
	models.ThresholdCapacityRisk: "Expedite capacity augmentation; circuit is at risk of saturation.",
	models.ThresholdCritical:     "Schedule a capacity upgrade for the next maintenance window.",
	models.ThresholdWarning:      "Review traffic growth trend and plan an upgrade this quarter.",
}

// Evaluate sweeps the links and synthesizes an alert per threshold
// breach. Links with unknown utilization are skipped: no measurement,
// no alert. Identical input yields an identical alert set modulo the
// generated IDs and timestamps.
func (e *Engine) Evaluate(inputs []Input) []models.EngineeringAlert {
	var alerts []models.EngineeringAlert
	now := e.now().UTC()

	for _, in := range inputs {
		if in.Link.Utilization == nil {
			continue
		}
		util := *in.Link.Utilization

		status := StatusFor(util)
		if status == models.ThresholdNormal {
			continue
		}

		contracted := in.ContractedCapacityMbps
		if contracted <= 0 {
			contracted = in.Link.CapacityMbps
		}

		alerts = append(alerts, models.EngineeringAlert{
			ID:                     e.id(),
			Site:                   in.Site,
			Plaza:                  in.Plaza,
			DeviceID:               in.Link.DeviceID,
			LinkID:                 in.Link.ID,
			LinkName:               in.Link.Name,
			ContractedCapacityMbps: contracted,
			ThresholdMbps:          e.ThresholdFor(contracted),
			Utilization:            util,
			Status:                 status,
			Severity:               severityFor(status),
			Message: fmt.Sprintf("%s on %s at %.1f%% utilization (%s)",
				in.Link.Name, in.Site, util, status),
			RecommendedAction: recommendedActions[status],
			GeneratedAt:       now,
		})
	}
	return alerts
}
