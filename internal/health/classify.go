package health

import (
	"fmt"
	"sort"

	"github.com/nocmx/vigia/pkg/models"
)

// Site-level critical classification gates, distinct from health status
// bands: a site is critical when any gate trips.
const (
	criticalAlertGate  = 2
	criticalHealthGate = 70.0
)

// ClassifyCritical scores every site and returns those classified
// critical, ranked worst first: ascending health score, then descending
// utilization as the tie-break. threshold <= 0 uses the configured
// default.
func (e *Engine) ClassifyCritical(sites []models.SiteCapacity, threshold float64) []models.CriticalSite {
	if threshold <= 0 {
		threshold = e.cfg.CriticalThreshold
	}

	var critical []models.CriticalSite
	for _, s := range sites {
		report := e.Score(s)

		var reasons []string
		if s.MeanUtilization >= threshold {
			reasons = append(reasons, fmt.Sprintf("utilization %.1f%% at or above %.0f%%", s.MeanUtilization, threshold))
		}
		if s.AlertCount >= criticalAlertGate {
			reasons = append(reasons, fmt.Sprintf("%d active alerts", s.AlertCount))
		}
		if report.Overall <= criticalHealthGate {
			reasons = append(reasons, fmt.Sprintf("health score %.1f at or below %.0f", report.Overall, criticalHealthGate))
		}
		if len(reasons) == 0 {
			continue
		}
		critical = append(critical, models.CriticalSite{
			SiteCapacity: s,
			Health:       report,
			Reasons:      reasons,
		})
	}

	sort.SliceStable(critical, func(i, j int) bool {
		if critical[i].Health.Overall != critical[j].Health.Overall {
			return critical[i].Health.Overall < critical[j].Health.Overall
		}
		return critical[i].MeanUtilization > critical[j].MeanUtilization
	})
	return critical
}

// ClassifyCity applies the Tier I gate to a plaza rollup. Tier I
// requires all three minimums (radio bases, total capacity, total
// traffic) -- a hard AND-gate, not a scored classifier. That is a
// deliberate simplification; plazas near the boundary flip tiers on
// small inventory changes.
//
// Radio-base count is approximated by the plaza device count: the
// provider inventories radio bases as devices and exposes no separate
// RAN collection.
func (e *Engine) ClassifyCity(p models.PlazaCapacity) models.CityClassification {
	c := models.CityClassification{
		Plaza:             p.Plaza,
		RadioBases:        p.DeviceCount,
		TotalCapacityMbps: p.TotalCapacityMbps,
		TotalTrafficMbps:  p.TotalTrafficMbps,
		Tier:              models.TierII,
	}
	if c.RadioBases >= e.cfg.Tier1MinRadioBases &&
		c.TotalCapacityMbps >= e.cfg.Tier1MinCapacityMbps &&
		c.TotalTrafficMbps >= e.cfg.Tier1MinTrafficMbps {
		c.Tier = models.TierI
	}
	return c
}
