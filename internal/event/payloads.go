package event

import (
	"time"

	"github.com/nocmx/vigia/pkg/models"
)

// RefreshSummary is the payload for TopicRefreshCompleted.
type RefreshSummary struct {
	Source          models.DataSource
	Sites           int
	Devices         int
	Links           int
	Alerts          int
	PartialFailures int
	Duration        time.Duration
}

// CacheInvalidation is the payload for TopicCacheInvalidated.
type CacheInvalidation struct {
	Prefix  string
	Removed int
}
