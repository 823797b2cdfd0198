package config

import (
	"os"
	"strconv"
	"time"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/db"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/utils"
)

const AppName = "crm-core"

type Config struct {
	AppName string
	AppPort string
	AppUrl  string
	DBUrl   string

	Retry db.RetryPolicy

	MetricsSnapshotCronSpec string
}

func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	appUrl := os.Getenv("APP_URL_FROM_ANYWHERE")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	retry := db.DefaultRetryPolicy()
	retry.MaxRetries = envInt("CONCURRENCY_MAX_RETRIES", retry.MaxRetries)
	retry.BaseDelay = envDurationMs("CONCURRENCY_BASE_DELAY_MS", retry.BaseDelay)
	retry.MaxDelay = envDurationMs("CONCURRENCY_MAX_DELAY_MS", retry.MaxDelay)

	return &Config{
		AppName:                 AppName,
		AppPort:                 appPort,
		AppUrl:                  appUrl,
		DBUrl:                   dbURL,
		Retry:                   retry,
		MetricsSnapshotCronSpec: envString("METRICS_SNAPSHOT_CRON", "@every 1m"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		utils.Logger.Warnf("Invalid %s '%s', using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDurationMs(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		utils.Logger.Warnf("Invalid %s '%s', using default %v", key, v, fallback)
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
