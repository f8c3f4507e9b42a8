// Package narrative turns aggregated capacity data into a short
// executive summary. Generation goes through a black-box text backend
// when enabled and falls back to a deterministic template otherwise.
package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nocmx/vigia/pkg/models"
)

// Input carries everything a summary draws on. Plaza is empty for the
// network-wide rollup.
type Input struct {
	Plaza         string
	Plazas        []models.PlazaCapacity
	Critical      models.CriticalSitesSummary
	AlertCount    int
	CapacityRisks int
}

// Summarizer produces the narrative text for an input. Implementations
// report which model produced the text; the template fallback reports
// an empty model.
type Summarizer interface {
	Summarize(ctx context.Context, in Input) (text string, model string, err error)
}

// TemplateSummarizer renders a fixed-form summary with no external
// dependency. Always available; identical input yields identical text.
type TemplateSummarizer struct{}

// Summarize renders the template. It never fails.
func (TemplateSummarizer) Summarize(_ context.Context, in Input) (string, string, error) {
	var b strings.Builder

	scope := "the network"
	if in.Plaza != "" {
		scope = in.Plaza
	}

	var devices, active int
	var capacity, traffic float64
	for _, p := range in.Plazas {
		devices += p.DeviceCount
		active += p.ActiveDevices
		capacity += p.TotalCapacityMbps
		traffic += p.TotalTrafficMbps
	}

	fmt.Fprintf(&b, "Capacity summary for %s: %d plazas, %d devices (%d active), %.0f Mbps contracted and %.0f Mbps in use.",
		scope, len(in.Plazas), devices, active, capacity, traffic)

	if in.Critical.CriticalCount > 0 {
		fmt.Fprintf(&b, " %d of %d sites are classified critical; mean health score is %.1f.",
			in.Critical.CriticalCount, in.Critical.TotalSites, in.Critical.MeanHealth)
	} else {
		fmt.Fprintf(&b, " No sites are classified critical; mean health score is %.1f.",
			in.Critical.MeanHealth)
	}

	switch {
	case in.CapacityRisks > 0:
		fmt.Fprintf(&b, " %d circuits are at capacity risk and %d engineering alerts are open; expedite augmentation on the flagged circuits.",
			in.CapacityRisks, in.AlertCount)
	case in.AlertCount > 0:
		fmt.Fprintf(&b, " %d engineering alerts are open; review the flagged circuits in the next planning cycle.",
			in.AlertCount)
	default:
		b.WriteString(" No engineering alerts are open.")
	}

	if busiest := busiestPlaza(in.Plazas); busiest != "" {
		fmt.Fprintf(&b, " Highest mean utilization: %s.", busiest)
	}

	return b.String(), "", nil
}

// busiestPlaza names the plaza with the highest mean utilization,
// formatted with its value. Ties break on name for stable output.
func busiestPlaza(plazas []models.PlazaCapacity) string {
	if len(plazas) == 0 {
		return ""
	}
	sorted := make([]models.PlazaCapacity, len(plazas))
	copy(sorted, plazas)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MeanUtilization != sorted[j].MeanUtilization {
			return sorted[i].MeanUtilization > sorted[j].MeanUtilization
		}
		return sorted[i].Plaza < sorted[j].Plaza
	})
	return fmt.Sprintf("%s at %.1f%%", sorted[0].Plaza, sorted[0].MeanUtilization)
}

// FallbackSummarizer tries a primary backend and falls back to the
// template when the primary fails or runs past the deadline. The
// fallback result is tagged by the empty model string.
type FallbackSummarizer struct {
	Primary  Summarizer
	Fallback Summarizer
	Timeout  time.Duration
}

// Summarize runs the primary inside its own deadline, then the
// fallback. The fallback's error (nil for the template) is returned
// when both are tried.
func (s FallbackSummarizer) Summarize(ctx context.Context, in Input) (string, string, error) {
	if s.Primary != nil {
		pctx := ctx
		if s.Timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
		}
		text, model, err := s.Primary.Summarize(pctx, in)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, model, nil
		}
	}
	fallback := s.Fallback
	if fallback == nil {
		fallback = TemplateSummarizer{}
	}
	return fallback.Summarize(ctx, in)
}
