// Package models defines the domain entities Vigía derives from raw
// NMS telemetry and the view payloads it serves to dashboards.
package models

import "time"

// DeviceStatus represents the operational state reported by the NMS.
type DeviceStatus string

const (
	DeviceStatusActive   DeviceStatus = "active"
	DeviceStatusInactive DeviceStatus = "inactive"
)

// Device is a network element tracked by the upstream NMS.
// Read-only to Vigía; the NMS owns identity and may reuse IDs when it
// rebuilds its inventory, so device IDs are not unique across time.
type Device struct {
	ID       int          `json:"id" example:"1042"`
	Hostname string       `json:"hostname" example:"CDMX-Norte-01-agg1"`
	Plaza    string       `json:"plaza" example:"CDMX"`
	Status   DeviceStatus `json:"status" example:"active"`
	Hardware string       `json:"hardware,omitempty" example:"ASR-9901"`
	OS       string       `json:"os,omitempty" example:"iosxr"`
	Location string       `json:"location,omitempty" example:"CDMX Norte POP"`
	LastSeen time.Time    `json:"last_seen,omitempty"`
}

// LinkState is the administrative/operational state of an interface.
type LinkState string

const (
	LinkStateUp   LinkState = "up"
	LinkStateDown LinkState = "down"
)

// LinkStatus is the utilization-derived status of a link.
type LinkStatus string

const (
	LinkStatusNormal   LinkStatus = "normal"
	LinkStatusWarning  LinkStatus = "warning"
	LinkStatusCritical LinkStatus = "critical"
	LinkStatusUnknown  LinkStatus = "unknown"
)

// Link is a single interface/port carrying a capacity and utilization
// figure, derived from an NMS port record. Utilization is nil when the
// NMS reported no rate counters or a zero interface speed; a nil value
// means "no data", which is distinct from a measured 0%.
type Link struct {
	ID           int        `json:"id" example:"55981"`
	DeviceID     int        `json:"device_id" example:"1042"`
	Name         string     `json:"name" example:"HundredGigE0/0/0/1"`
	Description  string     `json:"description,omitempty"`
	CapacityMbps float64    `json:"capacity_mbps" example:"10000"`
	UsageMbps    float64    `json:"usage_mbps" example:"7231.5"`
	Utilization  *float64   `json:"utilization,omitempty" example:"72.3"`
	State        LinkState  `json:"state" example:"up"`
	Status       LinkStatus `json:"status" example:"warning"`
}

// UtilizationOrZero returns the measured utilization, or 0 when unknown.
// Callers that must distinguish unknown from idle check Utilization directly.
func (l *Link) UtilizationOrZero() float64 {
	if l.Utilization == nil {
		return 0
	}
	return *l.Utilization
}

// AlertSeverity classifies an NMS alert.
type AlertSeverity string

const (
	SeverityInfo      AlertSeverity = "info"
	SeverityWarning   AlertSeverity = "warning"
	SeverityCritical  AlertSeverity = "critical"
	SeverityEmergency AlertSeverity = "emergency"
)

// Alert is an alarm read from the NMS. Immutable for a given poll;
// Vigía never writes alert state back upstream.
type Alert struct {
	ID           int           `json:"id" example:"88123"`
	DeviceID     int           `json:"device_id" example:"1042"`
	LinkID       int           `json:"link_id,omitempty"`
	Severity     AlertSeverity `json:"severity" example:"critical"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	Acknowledged bool          `json:"acknowledged"`
}

// Bill is a contract/billing record for a device's transit or transport
// service, used by the cost-efficiency and engineering-threshold engines.
type Bill struct {
	ID                     int     `json:"id"`
	DeviceID               int     `json:"device_id"`
	LinkID                 int     `json:"link_id,omitempty"`
	ContractedCapacityMbps float64 `json:"contracted_capacity_mbps" example:"4000"`
	MonthlyRecurringCharge float64 `json:"monthly_recurring_charge" example:"38000"`
	Rate95thBps            float64 `json:"rate_95th_bps"`
	Provider               string  `json:"provider,omitempty" example:"Transtelco"`
}

// Peak95Mbps converts the billing-style 95th-percentile rate to Mbps.
func (b *Bill) Peak95Mbps() float64 {
	return b.Rate95thBps / 1e6
}

// Sensor is an environmental reading (temperature, PSU state) attached
// to a device. Critical readings roll up into the site capacity view.
type Sensor struct {
	ID       int     `json:"id"`
	DeviceID int     `json:"device_id"`
	Class    string  `json:"class" example:"temperature"`
	Descr    string  `json:"descr,omitempty"`
	Value    float64 `json:"value" example:"41.5"`
	Critical bool    `json:"critical"`
}
