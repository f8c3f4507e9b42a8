package ws

import (
	"time"

	"github.com/nocmx/vigia/pkg/models"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageRefreshCompleted MessageType = "refresh.completed"
	MessageRefreshFailed    MessageType = "refresh.failed"
	MessageAlertsGenerated  MessageType = "alerts.generated"
	MessageCacheInvalidated MessageType = "cache.invalidated"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// RefreshCompletedData is the payload for refresh.completed messages.
type RefreshCompletedData struct {
	Source          models.DataSource `json:"source"`
	Sites           int               `json:"sites"`
	Devices         int               `json:"devices"`
	Links           int               `json:"links"`
	PartialFailures int               `json:"partial_failures"`
	DurationMs      int64             `json:"duration_ms"`
}

// RefreshFailedData is the payload for refresh.failed messages.
type RefreshFailedData struct {
	Error string `json:"error"`
}

// AlertsGeneratedData is the payload for alerts.generated messages.
type AlertsGeneratedData struct {
	Alerts        []models.EngineeringAlert `json:"alerts"`
	CapacityRisks int                       `json:"capacity_risks"`
}

// CacheInvalidatedData is the payload for cache.invalidated messages.
type CacheInvalidatedData struct {
	Prefix  string `json:"prefix"`
	Removed int    `json:"removed"`
}
