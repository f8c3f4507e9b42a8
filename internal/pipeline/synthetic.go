package pipeline

import (
	"time"

	"github.com/nocmx/vigia/pkg/models"
)

// syntheticSnapshot is the substitute dataset served when the backend
// is unreachable or empty. Deterministic by construction: dashboards
// keep rendering a plausible network, and the synthetic-fallback source
// tag tells consumers none of it was measured.
func syntheticSnapshot(now time.Time) snapshot {
	util := func(v float64) *float64 { return &v }

	return snapshot{
		Source: models.SourceSynthetic,
		Devices: []models.Device{
			{ID: 1, Hostname: "cdmx-norte-01-core1", Plaza: "cdmx", Location: "cdmx", Hardware: "ASR-9901", OS: "iosxr", Status: models.DeviceStatusActive, LastSeen: now},
			{ID: 2, Hostname: "cdmx-norte-01-agg1", Plaza: "cdmx", Location: "cdmx", Hardware: "NCS-540", OS: "iosxr", Status: models.DeviceStatusActive, LastSeen: now},
			{ID: 3, Hostname: "cdmx-sur-02-core1", Plaza: "cdmx", Location: "cdmx", Hardware: "ASR-9901", OS: "iosxr", Status: models.DeviceStatusActive, LastSeen: now},
			{ID: 4, Hostname: "cdmx-sur-02-agg1", Plaza: "cdmx", Location: "cdmx", Hardware: "NCS-540", OS: "iosxr", Status: models.DeviceStatusInactive, LastSeen: now},
			{ID: 5, Hostname: "mty-centro-01-core1", Plaza: "mty", Location: "mty", Hardware: "MX204", OS: "junos", Status: models.DeviceStatusActive, LastSeen: now},
			{ID: 6, Hostname: "mty-centro-01-agg1", Plaza: "mty", Location: "mty", Hardware: "ACX7100", OS: "junos", Status: models.DeviceStatusActive, LastSeen: now},
			{ID: 7, Hostname: "gdl-poniente-03-core1", Plaza: "gdl", Location: "gdl", Hardware: "ASR-9901", OS: "iosxr", Status: models.DeviceStatusActive, LastSeen: now},
			{ID: 8, Hostname: "gdl-poniente-03-agg1", Plaza: "gdl", Location: "gdl", Hardware: "NCS-540", OS: "iosxr", Status: models.DeviceStatusActive, LastSeen: now},
		},
		Links: []models.Link{
			{ID: 101, DeviceID: 1, Name: "Hu0/0/0/0", Description: "transit-cdmx-a", CapacityMbps: 10000, UsageMbps: 6200, Utilization: util(62), State: models.LinkStateUp, Status: models.LinkStatusNormal},
			{ID: 102, DeviceID: 2, Name: "Te0/0/0/1", Description: "metro-ring-cdmx", CapacityMbps: 4000, UsageMbps: 3680, Utilization: util(92), State: models.LinkStateUp, Status: models.LinkStatusCritical},
			{ID: 103, DeviceID: 3, Name: "Hu0/0/0/0", Description: "transit-cdmx-b", CapacityMbps: 10000, UsageMbps: 4100, Utilization: util(41), State: models.LinkStateUp, Status: models.LinkStatusNormal},
			{ID: 104, DeviceID: 4, Name: "Te0/0/0/2", Description: "metro-ring-cdmx", CapacityMbps: 4000, State: models.LinkStateDown, Status: models.LinkStatusUnknown},
			{ID: 105, DeviceID: 5, Name: "et-0/0/0", Description: "transit-mty-a", CapacityMbps: 10000, UsageMbps: 7300, Utilization: util(73), State: models.LinkStateUp, Status: models.LinkStatusWarning},
			{ID: 106, DeviceID: 6, Name: "et-0/0/1", Description: "metro-ring-mty", CapacityMbps: 2000, UsageMbps: 1660, Utilization: util(83), State: models.LinkStateUp, Status: models.LinkStatusCritical},
			{ID: 107, DeviceID: 7, Name: "Hu0/0/0/0", Description: "transit-gdl-a", CapacityMbps: 10000, UsageMbps: 3500, Utilization: util(35), State: models.LinkStateUp, Status: models.LinkStatusNormal},
			{ID: 108, DeviceID: 8, Name: "Te0/0/0/1", Description: "metro-ring-gdl", CapacityMbps: 4000, UsageMbps: 2200, Utilization: util(55), State: models.LinkStateUp, Status: models.LinkStatusNormal},
		},
		Alerts: []models.Alert{
			{ID: 9001, DeviceID: 2, LinkID: 102, Severity: models.SeverityCritical, Message: "Port utilization over 90%", Timestamp: now},
			{ID: 9002, DeviceID: 4, Severity: models.SeverityCritical, Message: "Device down", Timestamp: now},
			{ID: 9003, DeviceID: 6, LinkID: 106, Severity: models.SeverityWarning, Message: "Port utilization over 80%", Timestamp: now},
		},
		Bills: []models.Bill{
			{ID: 501, DeviceID: 1, LinkID: 101, Provider: "transit-a", ContractedCapacityMbps: 10000, MonthlyRecurringCharge: 220000, Rate95thBps: 6.2e9},
			{ID: 502, DeviceID: 2, LinkID: 102, Provider: "metro-cdmx", ContractedCapacityMbps: 4000, MonthlyRecurringCharge: 150000, Rate95thBps: 3.68e9},
			{ID: 503, DeviceID: 5, LinkID: 105, Provider: "transit-b", ContractedCapacityMbps: 10000, MonthlyRecurringCharge: 380000, Rate95thBps: 7.3e9},
			{ID: 504, DeviceID: 7, LinkID: 107, Provider: "transit-a", ContractedCapacityMbps: 10000, MonthlyRecurringCharge: 260000, Rate95thBps: 3.5e9},
		},
		Sensors: []models.Sensor{
			{ID: 701, DeviceID: 1, Class: "temperature", Descr: "FPC0 Intake", Value: 38.5},
			{ID: 702, DeviceID: 4, Class: "temperature", Descr: "FPC0 Intake", Value: 71.0, Critical: true},
			{ID: 703, DeviceID: 5, Class: "temperature", Descr: "Routing Engine", Value: 44.0},
		},
	}
}
