package nms

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nocmx/vigia/pkg/models"
)

// Mapping is pure: raw record in, typed entity out. A record that fails
// to map yields an error; callers skip it and keep the batch.

// severityTable is the fixed, case-insensitive alert severity mapping.
// Unmatched values degrade to info rather than failing.
var severityTable = map[string]models.AlertSeverity{
	"crit":      models.SeverityCritical,
	"critical":  models.SeverityCritical,
	"warn":      models.SeverityWarning,
	"warning":   models.SeverityWarning,
	"emerg":     models.SeverityEmergency,
	"emergency": models.SeverityEmergency,
}

// MapSeverity resolves a raw severity label to a typed severity.
func MapSeverity(raw string) models.AlertSeverity {
	if sev, ok := severityTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return sev
	}
	return models.SeverityInfo
}

// MapDevice converts a raw device record into a Device.
func MapDevice(rec RawRecord) (models.Device, error) {
	id, ok := recInt(rec, "device_id")
	if !ok {
		return models.Device{}, fmt.Errorf("device record missing device_id")
	}

	d := models.Device{
		ID:       int(id),
		Hostname: recString(rec, "hostname", "sysName"),
		Plaza:    recString(rec, "location"),
		Hardware: recString(rec, "hardware"),
		OS:       recString(rec, "os"),
		Location: recString(rec, "location"),
		Status:   models.DeviceStatusInactive,
	}
	if d.Hostname == "" {
		return models.Device{}, fmt.Errorf("device %d missing hostname", d.ID)
	}
	if recBool(rec, "status") {
		d.Status = models.DeviceStatusActive
	}
	if ts := recString(rec, "last_polled"); ts != "" {
		if t, err := parseTimestamp(ts); err == nil {
			d.LastSeen = t
		}
	}
	return d, nil
}

// MapLink converts a raw port record into a Link, deriving usage and
// utilization from octet-rate counters. Octet rates are bytes/s and
// ifSpeed is bits/s, so utilization = max(in, out) * 8 / speed * 100,
// clamped to [0,100]. A zero speed or absent rate counters yields a nil
// utilization (unknown), never a fabricated zero.
func MapLink(rec RawRecord) (models.Link, error) {
	id, ok := recInt(rec, "port_id")
	if !ok {
		return models.Link{}, fmt.Errorf("port record missing port_id")
	}
	deviceID, ok := recInt(rec, "device_id")
	if !ok {
		return models.Link{}, fmt.Errorf("port %d missing device_id", id)
	}

	l := models.Link{
		ID:          int(id),
		DeviceID:    int(deviceID),
		Name:        recString(rec, "ifName", "ifDescr"),
		Description: recString(rec, "ifAlias"),
		State:       models.LinkStateDown,
		Status:      models.LinkStatusUnknown,
	}
	if strings.EqualFold(recString(rec, "ifOperStatus"), "up") {
		l.State = models.LinkStateUp
	}

	speedBps, _ := recFloat(rec, "ifSpeed")
	l.CapacityMbps = speedBps / 1e6

	inRate, inOK := recFloat(rec, "ifInOctets_rate")
	outRate, outOK := recFloat(rec, "ifOutOctets_rate")
	if !inOK && !outOK {
		// No rate counters at all: utilization stays unknown.
		return l, nil
	}
	peakOctets := inRate
	if outRate > peakOctets {
		peakOctets = outRate
	}
	l.UsageMbps = peakOctets * 8 / 1e6

	if speedBps <= 0 {
		return l, nil
	}

	util := Clamp(peakOctets*8/speedBps*100, 0, 100)
	l.Utilization = &util
	l.Status = linkStatus(util)
	return l, nil
}

// linkStatus bands a measured utilization into a link status.
func linkStatus(util float64) models.LinkStatus {
	switch {
	case util >= 80:
		return models.LinkStatusCritical
	case util >= 70:
		return models.LinkStatusWarning
	default:
		return models.LinkStatusNormal
	}
}

// MapAlert converts a raw alert record into an Alert.
func MapAlert(rec RawRecord) (models.Alert, error) {
	id, ok := recInt(rec, "id", "alert_id")
	if !ok {
		return models.Alert{}, fmt.Errorf("alert record missing id")
	}
	deviceID, ok := recInt(rec, "device_id")
	if !ok {
		return models.Alert{}, fmt.Errorf("alert %d missing device_id", id)
	}

	a := models.Alert{
		ID:       int(id),
		DeviceID: int(deviceID),
		Severity: MapSeverity(recString(rec, "severity")),
		Message:  recString(rec, "rule_name", "msg", "name"),
	}
	if portID, ok := recInt(rec, "port_id"); ok {
		a.LinkID = int(portID)
	}
	if ts := recString(rec, "timestamp"); ts != "" {
		if t, err := parseTimestamp(ts); err == nil {
			a.Timestamp = t
		}
	}
	// State 2 is "acknowledged" in the backend's alert lifecycle.
	if state, ok := recInt(rec, "state"); ok && state == 2 {
		a.Acknowledged = true
	}
	return a, nil
}

// MapBill converts a raw billing record into a Bill. Contracted
// capacity (bill_quota) and the 95th-percentile rate arrive in bits/s.
func MapBill(rec RawRecord) (models.Bill, error) {
	id, ok := recInt(rec, "bill_id")
	if !ok {
		return models.Bill{}, fmt.Errorf("bill record missing bill_id")
	}

	b := models.Bill{
		ID:       int(id),
		Provider: recString(rec, "bill_name", "provider"),
	}
	if deviceID, ok := recInt(rec, "device_id"); ok {
		b.DeviceID = int(deviceID)
	}
	if portID, ok := recInt(rec, "port_id"); ok {
		b.LinkID = int(portID)
	}
	if quota, ok := recFloat(rec, "bill_quota"); ok {
		b.ContractedCapacityMbps = quota / 1e6
	}
	if rate, ok := recFloat(rec, "rate_95th"); ok {
		b.Rate95thBps = rate
	}
	if mrc, ok := recFloat(rec, "monthly_charge", "bill_mrc"); ok {
		b.MonthlyRecurringCharge = mrc
	}
	return b, nil
}

// MapSensor converts a raw sensor record into a Sensor.
func MapSensor(rec RawRecord) (models.Sensor, error) {
	id, ok := recInt(rec, "sensor_id")
	if !ok {
		return models.Sensor{}, fmt.Errorf("sensor record missing sensor_id")
	}
	deviceID, ok := recInt(rec, "device_id")
	if !ok {
		return models.Sensor{}, fmt.Errorf("sensor %d missing device_id", id)
	}

	s := models.Sensor{
		ID:       int(id),
		DeviceID: int(deviceID),
		Class:    recString(rec, "sensor_class"),
		Descr:    recString(rec, "sensor_descr"),
	}
	if v, ok := recFloat(rec, "sensor_current"); ok {
		s.Value = v
	}
	if limit, ok := recFloat(rec, "sensor_limit"); ok && limit > 0 && s.Value >= limit {
		s.Critical = true
	}
	return s, nil
}

// Clamp bounds v to [lo, hi]. Every utilization percentage passes
// through here before storage or display.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Field coercion helpers. The backend serializes numbers inconsistently
// (JSON numbers on some deployments, quoted strings on others), so all
// raw field access funnels through these.

func recString(rec RawRecord, keys ...string) string {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func recFloat(rec RawRecord, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func recInt(rec RawRecord, keys ...string) (int64, bool) {
	if f, ok := recFloat(rec, keys...); ok {
		return int64(f), true
	}
	return 0, false
}

func recBool(rec RawRecord, keys ...string) bool {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			s := strings.ToLower(v)
			return s == "1" || s == "true" || s == "up" || s == "active"
		}
	}
	return false
}

// parseTimestamp accepts the two timestamp layouts the backend emits.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
