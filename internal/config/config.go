// Package config loads Vigía configuration via Viper and builds the
// Zap logger from it.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables.
// When configPath is empty, vigia.yaml is searched in ., ./configs and
// /etc/vigia. Environment overrides use the VG_ prefix (VG_SERVER_PORT=9090).
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Server / logging
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Auth (optional; tokens issued out of band)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")

	// Upstream NMS backend
	v.SetDefault("nms.url", "http://localhost:8000")
	v.SetDefault("nms.token", "")
	v.SetDefault("nms.timeout", "30s")
	v.SetDefault("nms.page_size", 500)
	v.SetDefault("nms.fallback_page_size", 100)
	v.SetDefault("nms.max_concurrent_queries", 8)
	v.SetDefault("nms.rate_limit_rps", 10.0)

	// Aggregation
	v.SetDefault("aggregate.plaza_aliases", map[string]string{
		"mty":  "Monterrey",
		"gdl":  "Guadalajara",
		"cdmx": "CDMX",
		"tij":  "Tijuana",
		"qro":  "Queretaro",
	})

	// Health scoring policy (weights must sum to 1.0)
	v.SetDefault("health.weight_availability", 0.4)
	v.SetDefault("health.weight_alerts", 0.35)
	v.SetDefault("health.weight_performance", 0.25)
	v.SetDefault("health.critical_threshold", 75.0)
	v.SetDefault("health.tier1_min_radio_bases", 5)
	v.SetDefault("health.tier1_min_capacity_mbps", 40000.0)
	v.SetDefault("health.tier1_min_traffic_mbps", 10000.0)

	// Engineering thresholds
	v.SetDefault("threshold.static_mbps", 5000.0)
	v.SetDefault("threshold.contracted_cutoff_mbps", 4000.0)
	v.SetDefault("threshold.scale_factor", 0.8)

	// Cost efficiency
	v.SetDefault("cost.benchmark_per_mbps", 40.0)
	v.SetDefault("cost.base_rate_per_mbps", 50.0)
	v.SetDefault("cost.excellent_max", 25.0)
	v.SetDefault("cost.good_max", 40.0)
	v.SetDefault("cost.poor_max", 60.0)

	// Result cache TTLs per data class
	v.SetDefault("cache.aggregate_ttl", "2m")
	v.SetDefault("cache.trend_ttl", "5m")
	v.SetDefault("cache.narrative_ttl", "30m")

	// Narrative summarizer (black-box LLM backend)
	v.SetDefault("narrative.enabled", false)
	v.SetDefault("narrative.url", "http://localhost:11434")
	v.SetDefault("narrative.model", "qwen2.5:32b")
	v.SetDefault("narrative.timeout", "2m")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("vigia")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vigia")
	}

	v.SetEnvPrefix("VG")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
