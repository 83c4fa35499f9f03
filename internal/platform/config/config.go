// Package config provides application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the tool-level settings loaded from environment variables.
// Everything here is about how chart-deploy itself runs; the deployment
// declarations live in the manifest file.
type Config struct {
	HelmBin      string // helm executable name or path
	ManifestPath string // path to the .chart-deploy.yaml manifest
	PlanPath     string // path to the stored invocation plan
	LogLevel     string
	Concurrency  int // max parallel helm processes

	// OpenTelemetry (optional)
	OTelEnabled bool // OTEL_ENABLED feature flag
}

// Load reads configuration from environment variables and applies defaults.
// Nothing is required: a bare environment yields a working configuration
// that expects `.chart-deploy.yaml` in the working directory and `helm` on
// PATH.
func Load() (Config, error) {
	cfg := Config{
		HelmBin:      getEnvOrDefault("HELM_BIN", "helm"),
		ManifestPath: getEnvOrDefault("CHART_DEPLOY_MANIFEST", ".chart-deploy.yaml"),
		PlanPath:     getEnvOrDefault("CHART_DEPLOY_PLAN", "chart-deploy.plan"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		Concurrency:  4,
		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
	}

	if v := os.Getenv("CHART_DEPLOY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHART_DEPLOY_CONCURRENCY %q: %w", v, err)
		}
		if n < 1 {
			return Config{}, fmt.Errorf("CHART_DEPLOY_CONCURRENCY must be at least 1, got %d", n)
		}
		cfg.Concurrency = n
	}

	return cfg, nil
}

func getEnvOrDefault(envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}
