package config

import (
	"errors"
	"fmt"
	"strconv"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	AnalysisFile    string
	DataDir         string
	OutputDir       string
	FigureDir       string
	MetricsFile     string
	ReadConcurrency int
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	concurrency, err := parseReadConcurrency()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AnalysisFile:    sharedcfg.EnvOrDefault("GWL_ANALYSIS_FILE", "analysis.yaml"),
		DataDir:         sharedcfg.EnvOrDefault("GWL_DATA_DIR", "data"),
		OutputDir:       sharedcfg.EnvOrDefault("GWL_OUTPUT_DIR", "output"),
		FigureDir:       sharedcfg.EnvOrDefault("GWL_FIGURE_DIR", "figures"),
		MetricsFile:     sharedcfg.EnvOrDefault("GWL_METRICS_FILE", ""),
		ReadConcurrency: concurrency,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("GWL_DATA_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("GWL_OUTPUT_DIR is required")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}

	return cfg, nil
}

func parseReadConcurrency() (int, error) {
	s := sharedcfg.EnvOrDefault("GWL_READ_CONCURRENCY", "4")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 64 {
		return 0, fmt.Errorf("invalid GWL_READ_CONCURRENCY %q: want 1-64", s)
	}
	return n, nil
}
