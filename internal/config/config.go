package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultCountyGeoJSONURL is the county boundary geometry keyed by 5-digit FIPS.
const DefaultCountyGeoJSONURL = "https://raw.githubusercontent.com/plotly/datasets/master/geojson-counties-fips.json"

// Default color-scale clips for the case maps.
const (
	DefaultStateCasesClip  = 800000
	DefaultCountyCasesClip = 10000
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CovidCSVPath      string
	PopulationCSVPath string
	MinYear           int
	MaxYear           int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Figure styling.
	StateCasesClip  int64
	CountyCasesClip int64

	// County boundary geometry proxy.
	CountyGeoJSONURL    string
	GeoJSONProxyEnabled bool
	GeoJSONTimeout      time.Duration
	GeoJSONCacheTTL     time.Duration

	// Optional snapshot publishing.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
	BatchSize      int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	minYear, err := parseInt("MIN_YEAR", 2020)
	if err != nil {
		return nil, err
	}
	maxYear, err := parseInt("MAX_YEAR", 2022)
	if err != nil {
		return nil, err
	}

	stateClip, err := parseInt("STATE_CASES_CLIP", DefaultStateCasesClip)
	if err != nil {
		return nil, err
	}
	countyClip, err := parseInt("COUNTY_CASES_CLIP", DefaultCountyCasesClip)
	if err != nil {
		return nil, err
	}

	geoTimeout, err := parseDuration("GEOJSON_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geoTTL, err := parseDuration("GEOJSON_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		CovidCSVPath:      sharedcfg.EnvOrDefault("COVID_CSV_PATH", "covid19.csv"),
		PopulationCSVPath: sharedcfg.EnvOrDefault("POPULATION_CSV_PATH", "us_pop_by_state.csv"),
		MinYear:           minYear,
		MaxYear:           maxYear,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StateCasesClip:  int64(stateClip),
		CountyCasesClip: int64(countyClip),

		CountyGeoJSONURL:    sharedcfg.EnvOrDefault("COUNTY_GEOJSON_URL", DefaultCountyGeoJSONURL),
		GeoJSONProxyEnabled: sharedcfg.EnvOrDefault("GEOJSON_PROXY_ENABLED", "true") == "true",
		GeoJSONTimeout:      geoTimeout,
		GeoJSONCacheTTL:     geoTTL,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "covid-daily-totals"),
		BatchSize:      batchSize,
	}

	if cfg.CovidCSVPath == "" {
		return nil, errors.New("COVID_CSV_PATH is required")
	}
	if cfg.PopulationCSVPath == "" {
		return nil, errors.New("POPULATION_CSV_PATH is required")
	}
	if cfg.MinYear > cfg.MaxYear {
		return nil, fmt.Errorf("MIN_YEAR %d is after MAX_YEAR %d", cfg.MinYear, cfg.MaxYear)
	}
	if cfg.StateCasesClip <= 0 || cfg.CountyCasesClip <= 0 {
		return nil, errors.New("STATE_CASES_CLIP and COUNTY_CASES_CLIP must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
