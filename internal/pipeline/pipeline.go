// Package pipeline orchestrates the full aggregation pass: collect raw
// telemetry from the backend, map it to typed entities, group and score
// it, and serve the derived views through the result cache.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nocmx/vigia/internal/aggregate"
	"github.com/nocmx/vigia/internal/cache"
	"github.com/nocmx/vigia/internal/cost"
	"github.com/nocmx/vigia/internal/event"
	"github.com/nocmx/vigia/internal/health"
	"github.com/nocmx/vigia/internal/narrative"
	"github.com/nocmx/vigia/internal/nms"
	"github.com/nocmx/vigia/internal/threshold"
	"github.com/nocmx/vigia/pkg/models"
)

var refreshDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vigia_pipeline_refresh_seconds",
		Help:    "Wall time of a full collection pass by data source.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"source"},
)

func init() {
	prometheus.MustRegister(refreshDuration)
}

// Backend is the read-only upstream surface the pipeline collects from.
// *nms.Client satisfies it; tests substitute fakes.
type Backend interface {
	Devices(ctx context.Context, params url.Values) ([]nms.RawRecord, error)
	PortsForDevices(ctx context.Context, deviceIDs []int) (nms.FetchResult, error)
	Alerts(ctx context.Context, params url.Values) ([]nms.RawRecord, error)
	Bills(ctx context.Context, params url.Values) ([]nms.RawRecord, error)
	Sensors(ctx context.Context, params url.Values) ([]nms.RawRecord, error)
	Ping(ctx context.Context) error
}

// snapshot is one collected and mapped pass over the backend.
type snapshot struct {
	Source          models.DataSource
	Devices         []models.Device
	Links           []models.Link
	Alerts          []models.Alert
	Bills           []models.Bill
	Sensors         []models.Sensor
	PartialFailures int
	CollectedAt     time.Time
}

// Service runs aggregation passes and serves derived views. All view
// methods are cache-fronted; a miss triggers a fresh collection pass.
type Service struct {
	backend    Backend
	agg        *aggregate.Engine
	health     *health.Engine
	thresholds *threshold.Engine
	costs      *cost.Engine
	cache      *cache.Cache
	ttl        cache.TTLPolicy
	bus        *event.Bus
	summarizer narrative.Summarizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the pipeline. A nil summarizer falls back to the
// template renderer; a nil bus disables event publishing.
func NewService(
	backend Backend,
	agg *aggregate.Engine,
	healthEngine *health.Engine,
	thresholds *threshold.Engine,
	costs *cost.Engine,
	resultCache *cache.Cache,
	ttl cache.TTLPolicy,
	bus *event.Bus,
	summarizer narrative.Summarizer,
	logger *zap.Logger,
) *Service {
	if ttl == (cache.TTLPolicy{}) {
		ttl = cache.DefaultTTLPolicy
	}
	if summarizer == nil {
		summarizer = narrative.TemplateSummarizer{}
	}
	return &Service{
		backend:    backend,
		agg:        agg,
		health:     healthEngine,
		thresholds: thresholds,
		costs:      costs,
		cache:      resultCache,
		ttl:        ttl,
		bus:        bus,
		summarizer: summarizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Ready reports whether the backend is reachable, for readiness probes.
func (s *Service) Ready(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// InvalidateCache removes every cached view under prefix (empty prefix
// clears everything) and returns the number of entries removed.
func (s *Service) InvalidateCache(ctx context.Context, prefix string) int {
	removed := s.cache.InvalidatePrefix(prefix)
	s.logger.Info("cache invalidated",
		zap.String("prefix", prefix),
		zap.Int("removed", removed),
	)
	if s.bus != nil {
		s.bus.Publish(ctx, event.Event{
			Topic:     event.TopicCacheInvalidated,
			Source:    "pipeline",
			Timestamp: s.now(),
			Payload:   event.CacheInvalidation{Prefix: prefix, Removed: removed},
		})
	}
	return removed
}

// collect runs one full collection pass. A backend that is unreachable
// or returns an empty device inventory yields the synthetic dataset,
// tagged so consumers can tell substitute numbers from measured ones.
// Partial failures below the device level degrade the pass, not the
// whole response.
func (s *Service) collect(ctx context.Context) snapshot {
	start := s.now()
	snap := s.collectLive(ctx)
	snap.CollectedAt = start

	elapsed := time.Since(start)
	refreshDuration.WithLabelValues(string(snap.Source)).Observe(elapsed.Seconds())

	s.logger.Info("collection pass completed",
		zap.String("source", string(snap.Source)),
		zap.Int("devices", len(snap.Devices)),
		zap.Int("links", len(snap.Links)),
		zap.Int("alerts", len(snap.Alerts)),
		zap.Int("bills", len(snap.Bills)),
		zap.Int("partial_failures", snap.PartialFailures),
		zap.Duration("elapsed", elapsed),
	)

	if s.bus != nil {
		sites := s.agg.GroupSites(snap.Devices, snap.Links, snap.Alerts, snap.Sensors)
		s.bus.PublishAsync(ctx, event.Event{
			Topic:     event.TopicRefreshCompleted,
			Source:    "pipeline",
			Timestamp: s.now(),
			Payload: event.RefreshSummary{
				Source:          snap.Source,
				Sites:           len(sites),
				Devices:         len(snap.Devices),
				Links:           len(snap.Links),
				Alerts:          len(snap.Alerts),
				PartialFailures: snap.PartialFailures,
				Duration:        elapsed,
			},
		})
	}
	return snap
}

func (s *Service) collectLive(ctx context.Context) snapshot {
	rawDevices, err := s.backend.Devices(ctx, nil)
	if err != nil {
		s.logger.Error("device inventory unavailable, serving synthetic dataset", zap.Error(err))
		s.publishRefreshFailed(ctx, err)
		return syntheticSnapshot(s.now())
	}
	if len(rawDevices) == 0 {
		// Distinct from unavailable: the backend answered with nothing.
		s.logger.Warn("device inventory empty, serving synthetic dataset")
		s.publishRefreshFailed(ctx, errors.New("backend returned empty device inventory"))
		return syntheticSnapshot(s.now())
	}

	snap := snapshot{Source: models.SourceLive}

	var skipped int
	deviceIDs := make([]int, 0, len(rawDevices))
	for _, rec := range rawDevices {
		d, err := nms.MapDevice(rec)
		if err != nil {
			skipped++
			s.logger.Debug("skipping malformed device record", zap.Error(err))
			continue
		}
		snap.Devices = append(snap.Devices, d)
		deviceIDs = append(deviceIDs, d.ID)
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed device records", zap.Int("skipped", skipped))
	}

	ports, err := s.backend.PortsForDevices(ctx, deviceIDs)
	if err != nil {
		s.logger.Warn("all port queries failed", zap.Error(err))
	}
	snap.PartialFailures += ports.Failed
	for _, rec := range ports.Records {
		l, err := nms.MapLink(rec)
		if err != nil {
			s.logger.Debug("skipping malformed port record", zap.Error(err))
			continue
		}
		snap.Links = append(snap.Links, l)
	}

	rawAlerts, err := s.backend.Alerts(ctx, nil)
	if err != nil {
		s.logger.Warn("alert query failed, continuing without alerts", zap.Error(err))
		snap.PartialFailures++
	}
	for _, rec := range rawAlerts {
		a, err := nms.MapAlert(rec)
		if err != nil {
			s.logger.Debug("skipping malformed alert record", zap.Error(err))
			continue
		}
		snap.Alerts = append(snap.Alerts, a)
	}

	rawBills, err := s.backend.Bills(ctx, nil)
	if err != nil {
		s.logger.Warn("bill query failed, continuing without contract data", zap.Error(err))
		snap.PartialFailures++
	}
	for _, rec := range rawBills {
		b, err := nms.MapBill(rec)
		if err != nil {
			s.logger.Debug("skipping malformed bill record", zap.Error(err))
			continue
		}
		snap.Bills = append(snap.Bills, b)
	}

	rawSensors, err := s.backend.Sensors(ctx, nil)
	if err != nil {
		s.logger.Warn("sensor query failed, continuing without environmental data", zap.Error(err))
		snap.PartialFailures++
	}
	for _, rec := range rawSensors {
		sensor, err := nms.MapSensor(rec)
		if err != nil {
			s.logger.Debug("skipping malformed sensor record", zap.Error(err))
			continue
		}
		snap.Sensors = append(snap.Sensors, sensor)
	}

	return snap
}

func (s *Service) publishRefreshFailed(ctx context.Context, err error) {
	if s.bus == nil {
		return
	}
	s.bus.PublishAsync(ctx, event.Event{
		Topic:     event.TopicRefreshFailed,
		Source:    "pipeline",
		Timestamp: s.now(),
		Payload:   err.Error(),
	})
}

// currentSnapshot serves the collected dataset through the cache so one
// pass feeds every view inside the aggregate TTL window.
func (s *Service) currentSnapshot(ctx context.Context) snapshot {
	if v, ok := s.cache.Get("snapshot:current"); ok {
		if snap, ok := v.(snapshot); ok {
			return snap
		}
	}
	snap := s.collect(ctx)
	s.cache.Set("snapshot:current", snap, s.ttl.Aggregate)
	return snap
}

// meta builds the response envelope for a snapshot.
func meta(snap snapshot) models.Meta {
	return models.Meta{
		Source:          snap.Source,
		GeneratedAt:     snap.CollectedAt,
		PartialFailures: snap.PartialFailures,
	}
}

// SiteCapacity computes the capacity view, optionally filtered to one
// plaza. The plaza filter matches the canonical plaza name
// case-insensitively, aliases included.
func (s *Service) SiteCapacity(ctx context.Context, plaza string) (models.SiteCapacityView, error) {
	key := "site-capacity:all"
	canonical := ""
	if plaza != "" {
		canonical = s.agg.Plaza(plaza)
		key = "site-capacity:plaza:" + strings.ToLower(canonical)
	}
	if v, ok := s.cache.Get(key); ok {
		if view, ok := v.(models.SiteCapacityView); ok {
			return view, nil
		}
	}

	snap := s.currentSnapshot(ctx)
	groups := s.agg.GroupSites(snap.Devices, snap.Links, snap.Alerts, snap.Sensors)

	sites := make([]models.SiteCapacity, 0, len(groups))
	for _, g := range groups {
		if canonical != "" && !strings.EqualFold(g.Plaza, canonical) {
			continue
		}
		sites = append(sites, s.agg.SiteCapacity(g))
	}
	plazas := s.agg.PlazaCapacity(sites)

	cities := make([]models.CityClassification, 0, len(plazas))
	for _, p := range plazas {
		cities = append(cities, s.health.ClassifyCity(p))
	}

	view := models.SiteCapacityView{
		Meta:   meta(snap),
		Plazas: plazas,
		Sites:  sites,
		Cities: cities,
	}
	s.cache.Set(key, view, s.ttl.Aggregate)
	return view, nil
}

// CriticalSites classifies every site and returns the critical subset,
// worst first. limit <= 0 returns the full list; threshold <= 0 uses the
// configured default. The summary always counts every critical site,
// limited or not.
func (s *Service) CriticalSites(ctx context.Context, limit int, utilThreshold float64) (models.CriticalSitesView, error) {
	effective := utilThreshold
	if effective <= 0 {
		effective = s.health.CriticalThreshold()
	}
	if limit < 0 {
		limit = 0
	}
	key := fmt.Sprintf("critical-sites:%d:%g", limit, effective)
	if v, ok := s.cache.Get(key); ok {
		if view, ok := v.(models.CriticalSitesView); ok {
			return view, nil
		}
	}

	snap := s.currentSnapshot(ctx)
	groups := s.agg.GroupSites(snap.Devices, snap.Links, snap.Alerts, snap.Sensors)
	sites := make([]models.SiteCapacity, 0, len(groups))
	for _, g := range groups {
		sites = append(sites, s.agg.SiteCapacity(g))
	}

	critical := s.health.ClassifyCritical(sites, effective)
	criticalCount := len(critical)
	if limit > 0 && len(critical) > limit {
		critical = critical[:limit]
	}

	var healthSum float64
	for _, site := range sites {
		healthSum += s.health.Score(site).Overall
	}
	summary := models.CriticalSitesSummary{
		TotalSites:    len(sites),
		CriticalCount: criticalCount,
		Threshold:     effective,
	}
	if len(sites) > 0 {
		summary.MeanHealth = healthSum / float64(len(sites))
	}

	view := models.CriticalSitesView{
		Meta:    meta(snap),
		Summary: summary,
		Sites:   critical,
	}
	s.cache.Set(key, view, s.ttl.Aggregate)
	return view, nil
}

// EngineeringAlerts sweeps every measured link against the threshold
// policy. The period parameter is passed through to the view verbatim;
// thresholds apply to current utilization regardless of period.
func (s *Service) EngineeringAlerts(ctx context.Context, period string) (models.EngineeringAlertsView, error) {
	if period == "" {
		period = "current"
	}
	key := "alerts:engineering:" + period
	if v, ok := s.cache.Get(key); ok {
		if view, ok := v.(models.EngineeringAlertsView); ok {
			return view, nil
		}
	}

	snap := s.currentSnapshot(ctx)
	groups := s.agg.GroupSites(snap.Devices, snap.Links, snap.Alerts, snap.Sensors)
	billByLink, billByDevice := indexBills(snap.Bills)

	var inputs []threshold.Input
	for _, g := range groups {
		for _, l := range g.Links {
			in := threshold.Input{Link: l, Site: g.Key, Plaza: g.Plaza}
			if b, ok := billByLink[l.ID]; ok {
				in.ContractedCapacityMbps = b.ContractedCapacityMbps
			} else if b, ok := billByDevice[l.DeviceID]; ok {
				in.ContractedCapacityMbps = b.ContractedCapacityMbps
			}
			inputs = append(inputs, in)
		}
	}

	alerts := s.thresholds.Evaluate(inputs)

	byStatus := make(map[string]int)
	for _, a := range alerts {
		byStatus[string(a.Status)]++
	}

	if s.bus != nil && len(alerts) > 0 {
		s.bus.PublishAsync(ctx, event.Event{
			Topic:     event.TopicAlertsGenerated,
			Source:    "pipeline",
			Timestamp: s.now(),
			Payload:   alerts,
		})
	}

	view := models.EngineeringAlertsView{
		Meta:     meta(snap),
		Period:   period,
		Total:    len(alerts),
		ByStatus: byStatus,
		Alerts:   alerts,
	}
	s.cache.Set(key, view, s.ttl.Trend)
	return view, nil
}

// CostAnalysis joins contract data with measured usage for every billed
// circuit.
func (s *Service) CostAnalysis(ctx context.Context, period string) (models.CostAnalysisView, error) {
	if period == "" {
		period = "current"
	}
	key := "cost:analysis:" + period
	if v, ok := s.cache.Get(key); ok {
		if view, ok := v.(models.CostAnalysisView); ok {
			return view, nil
		}
	}

	snap := s.currentSnapshot(ctx)
	deviceByID := make(map[int]models.Device, len(snap.Devices))
	for _, d := range snap.Devices {
		deviceByID[d.ID] = d
	}

	inputs := make([]cost.Input, 0, len(snap.Bills))
	for _, b := range snap.Bills {
		in := cost.Input{Bill: b, Site: aggregate.UnassignedKey, Plaza: aggregate.UnassignedKey}
		if d, ok := deviceByID[b.DeviceID]; ok {
			in.Site = s.agg.SiteKey(d)
			in.Plaza = s.agg.Plaza(d.Plaza)
		}
		inputs = append(inputs, in)
	}

	records, summary := s.costs.Analyze(inputs)

	view := models.CostAnalysisView{
		Meta:    meta(snap),
		Period:  period,
		Summary: summary,
		Records: records,
	}
	s.cache.Set(key, view, s.ttl.Trend)
	return view, nil
}

// ExecutiveSummary renders the narrative rollup, network-wide or for
// one plaza. The narrative carries the longest TTL; numbers shown next
// to it come from the same pass that fed the text.
func (s *Service) ExecutiveSummary(ctx context.Context, plaza string) (models.ExecutiveSummaryView, error) {
	key := "narrative:executive:all"
	canonical := ""
	if plaza != "" {
		canonical = s.agg.Plaza(plaza)
		key = "narrative:executive:plaza:" + strings.ToLower(canonical)
	}
	if v, ok := s.cache.Get(key); ok {
		if view, ok := v.(models.ExecutiveSummaryView); ok {
			return view, nil
		}
	}

	capacity, err := s.SiteCapacity(ctx, plaza)
	if err != nil {
		return models.ExecutiveSummaryView{}, err
	}
	critical, err := s.CriticalSites(ctx, 0, 0)
	if err != nil {
		return models.ExecutiveSummaryView{}, err
	}
	alerts, err := s.EngineeringAlerts(ctx, "")
	if err != nil {
		return models.ExecutiveSummaryView{}, err
	}

	text, model, err := s.summarizer.Summarize(ctx, narrative.Input{
		Plaza:         canonical,
		Plazas:        capacity.Plazas,
		Critical:      critical.Summary,
		AlertCount:    alerts.Total,
		CapacityRisks: alerts.ByStatus[string(models.ThresholdCapacityRisk)],
	})
	if err != nil {
		return models.ExecutiveSummaryView{}, fmt.Errorf("generate narrative: %w", err)
	}

	view := models.ExecutiveSummaryView{
		Meta:      capacity.Meta,
		Plaza:     canonical,
		Narrative: text,
		Model:     model,
		Plazas:    capacity.Plazas,
		Critical:  critical.Summary,
	}
	s.cache.Set(key, view, s.ttl.Narrative)
	return view, nil
}

// indexBills indexes bills by link and by device. When several bills
// reference the same link or device the first one wins.
func indexBills(bills []models.Bill) (byLink, byDevice map[int]models.Bill) {
	byLink = make(map[int]models.Bill)
	byDevice = make(map[int]models.Bill)
	for _, b := range bills {
		if b.LinkID != 0 {
			if _, ok := byLink[b.LinkID]; !ok {
				byLink[b.LinkID] = b
			}
		}
		if b.DeviceID != 0 {
			if _, ok := byDevice[b.DeviceID]; !ok {
				byDevice[b.DeviceID] = b
			}
		}
	}
	return byLink, byDevice
}
