package aggregate

import (
	"go.uber.org/zap"

	"github.com/nocmx/vigia/pkg/models"
)

// SiteGroup is one site's devices with their joined links, alerts and
// sensors.
type SiteGroup struct {
	Key     string
	Plaza   string
	Devices []models.Device
	Links   []models.Link
	Alerts  []models.Alert
	Sensors []models.Sensor
}

// Engine groups typed entities and computes capacity rollups. Pure and
// CPU-only; safe for concurrent use.
type Engine struct {
	siteKey SiteKeyFunc
	plazas  *PlazaNormalizer
	logger  *zap.Logger
}

// NewEngine creates an aggregation engine. A nil siteKey defaults to
// HostnameSiteKey.
func NewEngine(siteKey SiteKeyFunc, plazaAliases map[string]string, logger *zap.Logger) *Engine {
	if siteKey == nil {
		siteKey = HostnameSiteKey
	}
	return &Engine{
		siteKey: siteKey,
		plazas:  NewPlazaNormalizer(plazaAliases),
		logger:  logger,
	}
}

// Plaza resolves a raw location to its canonical plaza name.
func (e *Engine) Plaza(location string) string {
	return e.plazas.Normalize(location)
}

// SiteKey resolves the grouping key for a device.
func (e *Engine) SiteKey(d models.Device) string {
	return e.siteKey(d)
}

// GroupSites groups devices into sites and joins each device's links,
// alerts and sensors onto its group. Group order follows the order
// device records were returned by the provider, so identical input
// yields identical output. Records whose device is not present in this
// pass are dropped, not retained.
func (e *Engine) GroupSites(devices []models.Device, links []models.Link, alerts []models.Alert, sensors []models.Sensor) []SiteGroup {
	linksByDevice := make(map[int][]models.Link, len(devices))
	for _, l := range links {
		linksByDevice[l.DeviceID] = append(linksByDevice[l.DeviceID], l)
	}
	alertsByDevice := make(map[int][]models.Alert, len(devices))
	for _, a := range alerts {
		alertsByDevice[a.DeviceID] = append(alertsByDevice[a.DeviceID], a)
	}
	sensorsByDevice := make(map[int][]models.Sensor, len(devices))
	for _, s := range sensors {
		sensorsByDevice[s.DeviceID] = append(sensorsByDevice[s.DeviceID], s)
	}

	index := make(map[string]int)
	var groups []SiteGroup
	for _, d := range devices {
		key := e.siteKey(d)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, SiteGroup{
				Key:   key,
				Plaza: e.plazas.Normalize(d.Plaza),
			})
		}
		groups[i].Devices = append(groups[i].Devices, d)
		groups[i].Links = append(groups[i].Links, linksByDevice[d.ID]...)
		groups[i].Alerts = append(groups[i].Alerts, alertsByDevice[d.ID]...)
		groups[i].Sensors = append(groups[i].Sensors, sensorsByDevice[d.ID]...)
	}
	return groups
}

// SiteCapacity reduces one group into its rollup. Mean utilization is
// an equal-weight mean over links with measured utilization; links with
// unknown utilization are excluded from the mean rather than counted as
// zero.
func (e *Engine) SiteCapacity(g SiteGroup) models.SiteCapacity {
	sc := models.SiteCapacity{
		Site:      g.Key,
		Plaza:     g.Plaza,
		LinkCount: len(g.Links),
	}

	sc.DeviceCount = len(g.Devices)
	for _, d := range g.Devices {
		if d.Status == models.DeviceStatusActive {
			sc.ActiveDevices++
		}
	}

	var utilSum float64
	for _, l := range g.Links {
		sc.TotalCapacityMbps += l.CapacityMbps
		sc.TotalTrafficMbps += l.UsageMbps
		if l.Utilization == nil {
			continue
		}
		sc.KnownLinks++
		utilSum += *l.Utilization
		if *l.Utilization > sc.MaxUtilization {
			sc.MaxUtilization = *l.Utilization
		}
	}
	if sc.KnownLinks > 0 {
		sc.MeanUtilization = utilSum / float64(sc.KnownLinks)
	}

	sc.AlertCount = len(g.Alerts)
	for _, a := range g.Alerts {
		switch a.Severity {
		case models.SeverityCritical, models.SeverityEmergency:
			sc.CriticalAlerts++
		case models.SeverityWarning:
			sc.WarningAlerts++
		}
	}

	for _, sensor := range g.Sensors {
		if sensor.Critical {
			sc.CriticalSensors++
		}
	}
	return sc
}

// PlazaCapacity rolls sites up into plazas. Plaza mean utilization is
// the equal-weight mean of member site means, not capacity-weighted;
// plaza order follows first appearance in the site list.
func (e *Engine) PlazaCapacity(sites []models.SiteCapacity) []models.PlazaCapacity {
	index := make(map[string]int)
	var plazas []models.PlazaCapacity
	utilSums := make(map[string]float64)

	for _, s := range sites {
		i, ok := index[s.Plaza]
		if !ok {
			i = len(plazas)
			index[s.Plaza] = i
			plazas = append(plazas, models.PlazaCapacity{Plaza: s.Plaza})
		}
		p := &plazas[i]
		p.SiteCount++
		p.DeviceCount += s.DeviceCount
		p.ActiveDevices += s.ActiveDevices
		p.TotalCapacityMbps += s.TotalCapacityMbps
		p.TotalTrafficMbps += s.TotalTrafficMbps
		p.AlertCount += s.AlertCount
		utilSums[s.Plaza] += s.MeanUtilization
		if s.MaxUtilization > p.MaxUtilization {
			p.MaxUtilization = s.MaxUtilization
		}
	}

	for i := range plazas {
		if plazas[i].SiteCount > 0 {
			plazas[i].MeanUtilization = utilSums[plazas[i].Plaza] / float64(plazas[i].SiteCount)
		}
	}
	return plazas
}
