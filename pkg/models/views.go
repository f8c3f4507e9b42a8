package models

import "time"

// DataSource tags a response as real or substitute data so consumers
// never mistake placeholder numbers for measured reality.
type DataSource string

const (
	SourceLive      DataSource = "live"
	SourceSynthetic DataSource = "synthetic-fallback"
)

// SiteCapacity is the per-site rollup computed on every aggregation pass.
// Aggregate fields are computed, never stored.
type SiteCapacity struct {
	Site              string  `json:"site" example:"CDMX-Norte-01"`
	Plaza             string  `json:"plaza" example:"CDMX"`
	DeviceCount       int     `json:"device_count" example:"10"`
	ActiveDevices     int     `json:"active_devices" example:"8"`
	LinkCount         int     `json:"link_count"`
	KnownLinks        int     `json:"known_links"` // links with measured utilization
	MeanUtilization   float64 `json:"mean_utilization" example:"70"`
	MaxUtilization    float64 `json:"max_utilization" example:"92.4"`
	TotalCapacityMbps float64 `json:"total_capacity_mbps"`
	TotalTrafficMbps  float64 `json:"total_traffic_mbps"`
	AlertCount        int     `json:"alert_count"`
	CriticalAlerts    int     `json:"critical_alerts"`
	WarningAlerts     int     `json:"warning_alerts"`
	CriticalSensors   int     `json:"critical_sensors"` // environmental readings past their limit
}

// PlazaCapacity is the per-plaza rollup over member sites.
// Mean utilization is an equal-weight mean over sites, not
// capacity-weighted.
type PlazaCapacity struct {
	Plaza             string  `json:"plaza" example:"Monterrey"`
	SiteCount         int     `json:"site_count"`
	DeviceCount       int     `json:"device_count"`
	ActiveDevices     int     `json:"active_devices"`
	MeanUtilization   float64 `json:"mean_utilization"`
	MaxUtilization    float64 `json:"max_utilization"`
	TotalCapacityMbps float64 `json:"total_capacity_mbps"`
	TotalTrafficMbps  float64 `json:"total_traffic_mbps"`
	AlertCount        int     `json:"alert_count"`
}

// HealthStatus bands an overall health score.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
	HealthCritical  HealthStatus = "critical"
)

// HealthReport breaks a site's 0-100 health score into its weighted
// sub-scores.
type HealthReport struct {
	DeviceAvailability float64      `json:"device_availability" example:"80"`
	AlertScore         float64      `json:"alert_score" example:"100"`
	PerformanceScore   float64      `json:"performance_score" example:"100"`
	Overall            float64      `json:"overall" example:"92"`
	Status             HealthStatus `json:"status" example:"excellent"`
}

// CriticalSite is a site flagged by the critical-site classifier,
// carrying the reasons it tripped.
type CriticalSite struct {
	SiteCapacity
	Health  HealthReport `json:"health"`
	Reasons []string     `json:"reasons"`
}

// CityTier coarsely classifies a plaza by infrastructure scale.
type CityTier string

const (
	TierI  CityTier = "tier1"
	TierII CityTier = "tier2"
)

// CityClassification is the Tier I/II gate result for a plaza.
type CityClassification struct {
	Plaza             string   `json:"plaza"`
	RadioBases        int      `json:"radio_bases"`
	TotalCapacityMbps float64  `json:"total_capacity_mbps"`
	TotalTrafficMbps  float64  `json:"total_traffic_mbps"`
	Tier              CityTier `json:"tier" example:"tier1"`
}

// ThresholdStatus is the engineering-threshold band for a link.
type ThresholdStatus string

const (
	ThresholdNormal       ThresholdStatus = "normal"
	ThresholdWarning      ThresholdStatus = "warning"
	ThresholdCritical     ThresholdStatus = "critical"
	ThresholdCapacityRisk ThresholdStatus = "capacity_risk"
)

// EngineeringAlert is synthesized per threshold breach on every
// aggregation pass. Never persisted; regenerated fresh each run.
type EngineeringAlert struct {
	ID                     string          `json:"id" example:"7f9c2ba4-e1a5-4a7c-9f30-2f9f4a1c0d55"`
	Site                   string          `json:"site"`
	Plaza                  string          `json:"plaza"`
	DeviceID               int             `json:"device_id"`
	LinkID                 int             `json:"link_id"`
	LinkName               string          `json:"link_name"`
	ContractedCapacityMbps float64         `json:"contracted_capacity_mbps"`
	ThresholdMbps          float64         `json:"threshold_mbps"`
	Utilization            float64         `json:"utilization"`
	Status                 ThresholdStatus `json:"status" example:"capacity_risk"`
	Severity               AlertSeverity   `json:"severity" example:"emergency"`
	Message                string          `json:"message"`
	RecommendedAction      string          `json:"recommended_action"`
	GeneratedAt            time.Time       `json:"generated_at"`
}

// EfficiencyTier bands cost-per-Mbps against the configured benchmark.
type EfficiencyTier string

const (
	EfficiencyExcellent EfficiencyTier = "excellent"
	EfficiencyGood      EfficiencyTier = "good"
	EfficiencyPoor      EfficiencyTier = "poor"
	EfficiencyCritical  EfficiencyTier = "critical"
)

// CostRecord joins contract data with measured usage for one link.
type CostRecord struct {
	Site                   string         `json:"site"`
	Plaza                  string         `json:"plaza"`
	DeviceID               int            `json:"device_id"`
	LinkID                 int            `json:"link_id,omitempty"`
	Provider               string         `json:"provider,omitempty"`
	MonthlyRecurringCharge float64        `json:"monthly_recurring_charge" example:"38000"`
	PeakUsageMbps          float64        `json:"peak_usage_mbps" example:"1000"`
	CostPerMbps            float64        `json:"cost_per_mbps" example:"38"`
	Tier                   EfficiencyTier `json:"tier" example:"good"`
	VariancePct            float64        `json:"variance_pct"` // vs benchmark, percent
	OptimizationPotential  float64        `json:"optimization_potential"`
}

// Meta is the envelope shared by every derived view.
type Meta struct {
	Source          DataSource `json:"source" example:"live"`
	GeneratedAt     time.Time  `json:"generated_at"`
	PartialFailures int        `json:"partial_failures,omitempty"`
}

// SiteCapacityView is the response for the site-capacity operation.
type SiteCapacityView struct {
	Meta
	Plazas []PlazaCapacity      `json:"plazas"`
	Sites  []SiteCapacity       `json:"sites"`
	Cities []CityClassification `json:"cities"`
}

// CriticalSitesSummary is the headline block for the critical-sites view.
type CriticalSitesSummary struct {
	TotalSites    int     `json:"total_sites"`
	CriticalCount int     `json:"critical_count"`
	Threshold     float64 `json:"threshold"`
	MeanHealth    float64 `json:"mean_health"`
}

// CriticalSitesView is the response for the critical-sites operation.
type CriticalSitesView struct {
	Meta
	Summary CriticalSitesSummary `json:"summary"`
	Sites   []CriticalSite       `json:"sites"`
}

// EngineeringAlertsView is the response for the engineering-alerts operation.
type EngineeringAlertsView struct {
	Meta
	Period   string             `json:"period"`
	Total    int                `json:"total"`
	ByStatus map[string]int     `json:"by_status"`
	Alerts   []EngineeringAlert `json:"alerts"`
}

// CostSummary is the headline block for the cost-analysis view.
// MeanCostPerMbps is capacity-weighted: total spend over total peak usage.
type CostSummary struct {
	TotalMonthlySpend     float64 `json:"total_monthly_spend"`
	TotalPeakUsageMbps    float64 `json:"total_peak_usage_mbps"`
	MeanCostPerMbps       float64 `json:"mean_cost_per_mbps"`
	OptimizationPotential float64 `json:"optimization_potential"`
	CriticalCount         int     `json:"critical_count"`
}

// CostAnalysisView is the response for the cost-analysis operation.
type CostAnalysisView struct {
	Meta
	Period  string       `json:"period"`
	Summary CostSummary  `json:"summary"`
	Records []CostRecord `json:"records"`
}

// ExecutiveSummaryView is the narrative rollup for a plaza (or all plazas).
type ExecutiveSummaryView struct {
	Meta
	Plaza     string               `json:"plaza,omitempty"`
	Narrative string               `json:"narrative"`
	Model     string               `json:"model,omitempty"`
	Plazas    []PlazaCapacity      `json:"plazas"`
	Critical  CriticalSitesSummary `json:"critical"`
}
