package app

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
	"github.com/tripweaver/tripweaver-backend/internal/utils"
)

type Config struct {
	Port            string
	Environment     string
	Version         string
	JWTSecret       string
	PlannerBaseURL  string
	PollInterval    time.Duration
	MaxPollDuration time.Duration
	MetricsAddr     string
}

// fileConfig mirrors the optional CONFIG_FILE yaml document. Environment
// variables always win over file values.
type fileConfig struct {
	Port            string `yaml:"port"`
	Environment     string `yaml:"environment"`
	JWTSecret       string `yaml:"jwt_secret"`
	PlannerBaseURL  string `yaml:"planner_base_url"`
	PollIntervalSec int    `yaml:"poll_interval_seconds"`
	MaxPollSec      int    `yaml:"max_poll_seconds"`
	MetricsAddr     string `yaml:"metrics_addr"`
}

func LoadConfig(log *logger.Logger) Config {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Could not read config file", "path", path, "error", err)
		} else if err := yaml.Unmarshal(raw, &fc); err != nil {
			log.Warn("Could not parse config file", "path", path, "error", err)
		} else {
			log.Info("Loaded config file", "path", path)
		}
	}

	pollDefault := fc.PollIntervalSec
	if pollDefault <= 0 {
		pollDefault = 3
	}
	maxPollDefault := fc.MaxPollSec

	return Config{
		Port:            utils.GetEnv("PORT", withDefault(fc.Port, "8080"), log),
		Environment:     utils.GetEnv("ENVIRONMENT", withDefault(fc.Environment, "development"), log),
		Version:         utils.GetEnv("APP_VERSION", "dev", log),
		JWTSecret:       utils.GetEnv("JWT_SECRET_KEY", withDefault(fc.JWTSecret, "defaultsecret"), log),
		PlannerBaseURL:  utils.GetEnv("PLANNER_BASE_URL", fc.PlannerBaseURL, log),
		PollInterval:    time.Duration(utils.GetEnvAsInt("PLANNER_POLL_INTERVAL", pollDefault, log)) * time.Second,
		MaxPollDuration: time.Duration(utils.GetEnvAsInt("PLANNER_MAX_POLL_SECONDS", maxPollDefault, log)) * time.Second,
		MetricsAddr:     utils.GetEnv("METRICS_ADDR", withDefault(fc.MetricsAddr, ":9091"), log),
	}
}

func withDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}
