// Package cost joins contract/billing data with measured usage to
// compute cost-per-Mbps and flag over-provisioned capacity.
package cost

import (
	"sort"

	"github.com/nocmx/vigia/pkg/models"
)

// Config holds the cost-efficiency policy. Tier bands are absolute
// cost-per-Mbps ceilings set relative to the benchmark constant; the
// benchmark is configuration, not learned.
type Config struct {
	BenchmarkPerMbps float64 `mapstructure:"benchmark_per_mbps"`
	BaseRatePerMbps  float64 `mapstructure:"base_rate_per_mbps"`
	ExcellentMax     float64 `mapstructure:"excellent_max"`
	GoodMax          float64 `mapstructure:"good_max"`
	PoorMax          float64 `mapstructure:"poor_max"`
}

// DefaultConfig is the shipped policy.
var DefaultConfig = Config{
	BenchmarkPerMbps: 40,
	BaseRatePerMbps:  50,
	ExcellentMax:     25,
	GoodMax:          40,
	PoorMax:          60,
}

// optimizationFactor is the deliberately simple savings heuristic
// applied to critical-tier circuits: assume half the recurring charge
// is recoverable. Not a negotiated-savings model.
const optimizationFactor = 0.5

// Input is one billed circuit with its site context resolved.
type Input struct {
	Bill  models.Bill
	Site  string
	Plaza string
}

// Engine computes cost records. Pure and CPU-only.
type Engine struct {
	cfg Config
}

// NewEngine creates a cost engine. Zero config falls back to
// DefaultConfig.
func NewEngine(cfg Config) *Engine {
	if cfg == (Config{}) {
		cfg = DefaultConfig
	}
	return &Engine{cfg: cfg}
}

// Record computes the cost record for one billed circuit. A zero peak
// usage reports the base rate, never Inf or NaN.
func (e *Engine) Record(in Input) models.CostRecord {
	peak := in.Bill.Peak95Mbps()

	costPerMbps := e.cfg.BaseRatePerMbps
	if peak > 0 {
		costPerMbps = in.Bill.MonthlyRecurringCharge / peak
	}

	tier := e.tierFor(costPerMbps)

	var optimization float64
	if tier == models.EfficiencyCritical {
		optimization = in.Bill.MonthlyRecurringCharge * optimizationFactor
	}

	var variance float64
	if e.cfg.BenchmarkPerMbps > 0 {
		variance = (costPerMbps - e.cfg.BenchmarkPerMbps) / e.cfg.BenchmarkPerMbps * 100
	}

	return models.CostRecord{
		Site:                   in.Site,
		Plaza:                  in.Plaza,
		DeviceID:               in.Bill.DeviceID,
		LinkID:                 in.Bill.LinkID,
		Provider:               in.Bill.Provider,
		MonthlyRecurringCharge: in.Bill.MonthlyRecurringCharge,
		PeakUsageMbps:          peak,
		CostPerMbps:            costPerMbps,
		Tier:                   tier,
		VariancePct:            variance,
		OptimizationPotential:  optimization,
	}
}

// Analyze computes records for every billed circuit plus the summary,
// with records ranked most expensive per Mbps first. The summary's mean
// cost is capacity-weighted: total spend over total peak usage.
func (e *Engine) Analyze(inputs []Input) ([]models.CostRecord, models.CostSummary) {
	records := make([]models.CostRecord, 0, len(inputs))
	var summary models.CostSummary

	for _, in := range inputs {
		rec := e.Record(in)
		records = append(records, rec)

		summary.TotalMonthlySpend += rec.MonthlyRecurringCharge
		summary.TotalPeakUsageMbps += rec.PeakUsageMbps
		summary.OptimizationPotential += rec.OptimizationPotential
		if rec.Tier == models.EfficiencyCritical {
			summary.CriticalCount++
		}
	}

	if summary.TotalPeakUsageMbps > 0 {
		summary.MeanCostPerMbps = summary.TotalMonthlySpend / summary.TotalPeakUsageMbps
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CostPerMbps > records[j].CostPerMbps
	})
	return records, summary
}

func (e *Engine) tierFor(costPerMbps float64) models.EfficiencyTier {
	switch {
	case costPerMbps <= e.cfg.ExcellentMax:
		return models.EfficiencyExcellent
	case costPerMbps <= e.cfg.GoodMax:
		return models.EfficiencyGood
	case costPerMbps <= e.cfg.PoorMax:
		return models.EfficiencyPoor
	default:
		return models.EfficiencyCritical
	}
}
