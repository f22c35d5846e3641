package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultSensitiveSources 默认敏感来源及延迟倍率
var DefaultSensitiveSources = map[string]float64{
	"real_madrid":     1.3,
	"barcelona":       1.3,
	"bayern_munich":   1.2,
	"manchester_city": 1.4,
	"juventus":        1.1,
	"psg":             1.2,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_body_bytes", 8<<20)
	v.SetDefault("http.host_rate_per_sec", 2.0)
	v.SetDefault("http.host_burst", 2)

	v.SetDefault("rate_limit.sensitive_min_spacing", 2*time.Second)
	v.SetDefault("rate_limit.sensitive_max_spacing", 6*time.Second)
	v.SetDefault("rate_limit.standard_min_spacing", time.Second)
	v.SetDefault("rate_limit.standard_max_spacing", 4*time.Second)
	v.SetDefault("rate_limit.sensitive_ceiling", 15)
	v.SetDefault("rate_limit.standard_ceiling", 25)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.backoff_base", time.Second)
	v.SetDefault("rate_limit.backoff_cap", time.Minute)
	v.SetDefault("rate_limit.business_start_hour", 9)
	v.SetDefault("rate_limit.business_end_hour", 18)
	v.SetDefault("rate_limit.off_peak_start_hour", 22)
	v.SetDefault("rate_limit.off_peak_end_hour", 7)
	v.SetDefault("rate_limit.off_peak_factor", 0.7)
	v.SetDefault("rate_limit.human_delays", true)

	v.SetDefault("cache.search_ttl", 15*time.Minute)
	v.SetDefault("cache.detail_ttl", 15*time.Minute)
	v.SetDefault("cache.regional_detail_ttl", 10*time.Minute)
	v.SetDefault("cache.sweep_interval", 5*time.Minute)

	v.SetDefault("ingest.batch_timeout", 2*time.Minute)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.stale_after", 24*time.Hour)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "ticket-updates")
	v.SetDefault("kafka.client_id", "ticketsync")
	v.SetDefault("kafka.flush_wait_ms", 5000)

	v.SetDefault("sensitive_sources", DefaultSensitiveSources)

	v.SetDefault("platforms.club_store.enabled", true)
	v.SetDefault("platforms.club_store.locale", "en-GB")

	v.SetDefault("platforms.marketplace.enabled", true)
	v.SetDefault("platforms.marketplace.base_url", "https://www.stubhub.com")
	v.SetDefault("platforms.marketplace.locale", "en-US")
	v.SetDefault("platforms.marketplace.sensitive", true)

	v.SetDefault("platforms.regional.enabled", true)
	v.SetDefault("platforms.regional.default_region", "uk")
	v.SetDefault("platforms.regional.base_url", "https://www.ticketek.co.uk")
	v.SetDefault("platforms.regional.regions.uk.name", "Ticketek UK")
	v.SetDefault("platforms.regional.regions.uk.base_url", "https://www.ticketek.co.uk")
	v.SetDefault("platforms.regional.regions.uk.currency", "GBP")
	v.SetDefault("platforms.regional.regions.uk.locale", "en-GB")
	v.SetDefault("platforms.regional.regions.au.name", "Ticketek Australia")
	v.SetDefault("platforms.regional.regions.au.base_url", "https://premier.ticketek.com.au")
	v.SetDefault("platforms.regional.regions.au.currency", "AUD")
	v.SetDefault("platforms.regional.regions.au.locale", "en-AU")
	v.SetDefault("platforms.regional.regions.nz.name", "Ticketek New Zealand")
	v.SetDefault("platforms.regional.regions.nz.base_url", "https://premier.ticketek.co.nz")
	v.SetDefault("platforms.regional.regions.nz.currency", "NZD")
	v.SetDefault("platforms.regional.regions.nz.locale", "en-NZ")
}
