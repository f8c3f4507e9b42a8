package nms

import (
	"sort"
	"strconv"
)

// normalizeCollection flattens the two shapes the backend uses for
// collection payloads -- a plain array of records, or a map keyed by
// record ID -- into a single []RawRecord. Downstream code never
// branches on payload shape again.
//
// Map-shaped payloads have no inherent order; entries are sorted by
// numeric key (falling back to string order) so identical upstream data
// always yields identical output.
func normalizeCollection(payload any) []RawRecord {
	switch v := payload.(type) {
	case []any:
		out := make([]RawRecord, 0, len(v))
		for _, item := range v {
			if rec, ok := item.(map[string]any); ok {
				out = append(out, RawRecord(rec))
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			ni, errI := strconv.Atoi(keys[i])
			nj, errJ := strconv.Atoi(keys[j])
			if errI == nil && errJ == nil {
				return ni < nj
			}
			return keys[i] < keys[j]
		})
		out := make([]RawRecord, 0, len(v))
		for _, k := range keys {
			if rec, ok := v[k].(map[string]any); ok {
				out = append(out, RawRecord(rec))
			}
		}
		return out
	default:
		return nil
	}
}
