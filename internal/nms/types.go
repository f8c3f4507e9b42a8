// Package nms is the read-only client for the upstream network-monitoring
// backend (a LibreNMS-compatible REST API). It fetches raw paginated
// records and maps them into typed domain entities; nothing here writes
// upstream state.
package nms

// Collection names the upstream resource collections Vigía reads.
type Collection string

const (
	CollectionDevices Collection = "devices"
	CollectionPorts   Collection = "ports"
	CollectionBills   Collection = "bills"
	CollectionSensors Collection = "sensors"
	CollectionAlerts  Collection = "alerts"
)

// RawRecord is one untyped record as returned by the backend. Field
// types vary between deployments (numbers arrive as JSON numbers or as
// strings), so all access goes through the coercion helpers in mapper.go.
type RawRecord map[string]any

// FetchResult is the outcome of a fan-out fetch: the records that could
// be retrieved plus the number of per-device sub-queries that failed.
// A non-zero Failed with non-empty Records is a partial success, not an
// error.
type FetchResult struct {
	Records []RawRecord
	Failed  int
}
