// Package aggregate groups devices into sites and plazas and computes
// the per-group capacity rollups every derived view builds on.
package aggregate

import (
	"strings"

	"github.com/nocmx/vigia/pkg/models"
)

// UnassignedKey is used when neither hostname nor location identifies
// a grouping.
const UnassignedKey = "unassigned"

// SiteKeyFunc extracts a site key from a device. The grouping rule is a
// heuristic: devices with coincidentally similar hostname prefixes but
// different physical locations will be merged, so site boundaries are
// advisory. Kept pluggable so the rule can be swapped without touching
// the scoring logic.
type SiteKeyFunc func(d models.Device) string

// HostnameSiteKey derives the site from the first three hyphen-delimited
// hostname tokens ("CDMX-Norte-01-agg1" -> "CDMX-Norte-01"), falling
// back to the device's location field when the hostname has fewer than
// three tokens.
func HostnameSiteKey(d models.Device) string {
	tokens := strings.Split(strings.TrimSpace(d.Hostname), "-")
	if len(tokens) >= 3 {
		return strings.Join(tokens[:3], "-")
	}
	if loc := strings.TrimSpace(d.Location); loc != "" {
		return loc
	}
	return UnassignedKey
}

// PlazaNormalizer maps raw location strings to canonical plaza names
// through a small alias table ("mty" -> "Monterrey"). Unknown locations
// pass through untouched.
type PlazaNormalizer struct {
	aliases map[string]string
}

// NewPlazaNormalizer builds a normalizer; alias keys are matched
// case-insensitively.
func NewPlazaNormalizer(aliases map[string]string) *PlazaNormalizer {
	lowered := make(map[string]string, len(aliases))
	for k, v := range aliases {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &PlazaNormalizer{aliases: lowered}
}

// Normalize resolves a raw location to a plaza name.
func (n *PlazaNormalizer) Normalize(location string) string {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return UnassignedKey
	}
	if canonical, ok := n.aliases[strings.ToLower(loc)]; ok {
		return canonical
	}
	return loc
}
