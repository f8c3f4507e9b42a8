// Package health computes composite site health scores and the
// critical-site and city-tier classifications built on them.
package health

import (
	"math"

	"github.com/nocmx/vigia/pkg/models"
)

// Weights are the health sub-score weights. Policy constants, tunable
// per deployment; they must sum to 1.0.
type Weights struct {
	Availability float64 `mapstructure:"weight_availability"`
	Alerts       float64 `mapstructure:"weight_alerts"`
	Performance  float64 `mapstructure:"weight_performance"`
}

// DefaultWeights is the shipped scoring policy.
var DefaultWeights = Weights{Availability: 0.4, Alerts: 0.35, Performance: 0.25}

// Config holds scoring and classification policy.
type Config struct {
	Weights              `mapstructure:",squash"`
	CriticalThreshold    float64 `mapstructure:"critical_threshold"`
	Tier1MinRadioBases   int     `mapstructure:"tier1_min_radio_bases"`
	Tier1MinCapacityMbps float64 `mapstructure:"tier1_min_capacity_mbps"`
	Tier1MinTrafficMbps  float64 `mapstructure:"tier1_min_traffic_mbps"`
}

// Engine scores sites and classifies sites and cities. Pure and
// CPU-only; safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates a health engine. Zero weights fall back to the
// default policy.
func NewEngine(cfg Config) *Engine {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights
	}
	if cfg.CriticalThreshold == 0 {
		cfg.CriticalThreshold = 75
	}
	return &Engine{cfg: cfg}
}

// CriticalThreshold returns the configured default utilization threshold
// for critical-site classification.
func (e *Engine) CriticalThreshold() float64 {
	return e.cfg.CriticalThreshold
}

// Score computes a site's 0-100 health report from its capacity rollup.
// The score is a function of the rollup alone, so it is invariant under
// reordering of the underlying device list.
func (e *Engine) Score(site models.SiteCapacity) models.HealthReport {
	r := models.HealthReport{
		DeviceAvailability: availabilityScore(site),
		AlertScore:         alertScore(site),
		PerformanceScore:   performanceScore(site.MeanUtilization),
	}
	r.Overall = e.cfg.Availability*r.DeviceAvailability +
		e.cfg.Alerts*r.AlertScore +
		e.cfg.Performance*r.PerformanceScore
	r.Status = StatusFor(r.Overall)
	return r
}

// availabilityScore is the active-device ratio on a 0-100 scale. A site
// with no devices scores 0: an empty site is unreachable, not healthy.
func availabilityScore(site models.SiteCapacity) float64 {
	if site.DeviceCount == 0 {
		return 0
	}
	return float64(site.ActiveDevices) / float64(site.DeviceCount) * 100
}

// alertScore penalizes alert density: critical alerts weigh 50 points
// per alert-per-device, warnings 20, capped at a full 100-point penalty.
func alertScore(site models.SiteCapacity) float64 {
	if site.DeviceCount == 0 {
		return 100
	}
	criticalRatio := float64(site.CriticalAlerts) / float64(site.DeviceCount)
	warningRatio := float64(site.WarningAlerts) / float64(site.DeviceCount)
	penalty := math.Min(criticalRatio*50+warningRatio*20, 100)
	return 100 - penalty
}

// performanceScore rewards the optimum utilization band centered at 70%:
// links should be well used but not saturated. Above 90% the score drops
// two points per percent; below 30% capacity is idle and scores lower
// than the optimum band.
func performanceScore(avgUtilization float64) float64 {
	u := avgUtilization
	switch {
	case u > 90:
		return clampScore(100 - (u-90)*2)
	case u < 30:
		return clampScore(70 + (u/30)*20)
	default:
		return clampScore(90 + ((70-math.Abs(u-70))/70)*10)
	}
}

// StatusFor bands an overall score into a health status.
func StatusFor(score float64) models.HealthStatus {
	switch {
	case score >= 90:
		return models.HealthExcellent
	case score >= 80:
		return models.HealthGood
	case score >= 70:
		return models.HealthFair
	case score >= 60:
		return models.HealthPoor
	default:
		return models.HealthCritical
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
