/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"marketplace-escrow-go/internal/models"
)

// Load reads the configuration from the environment. Durations use Go
// syntax ("30s", "5m").
func Load() (*models.Config, error) {
	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "escrow.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			TxMaxRetries:     getEnvInt("DB_TX_MAX_RETRIES", 5),
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Server: models.ServerConfig{
			Addr:         getEnvString("HTTP_ADDR", ":8080"),
			SettingsFile: getEnvString("SETTINGS_FILE", "settings.yaml"),
		},
		Auth: models.AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
			Issuer:    os.Getenv("AUTH_ISSUER"),
		},
		Relay: models.RelayConfig{
			BatchSize:   getEnvInt("RELAY_BATCH_SIZE", 100),
			MaxAttempts: getEnvInt("RELAY_MAX_ATTEMPTS", 10),
		},
		Kafka: models.KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnvString("KAFKA_TOPIC", "marketplace.escrow"),
		},
		Formance: models.FormanceConfig{
			StackURL:     os.Getenv("FORMANCE_STACK_URL"),
			ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
			ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "marketplace-escrow"),
		},
		Log: models.LogConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		},
	}

	durations := []struct {
		key          string
		defaultValue time.Duration
		dst          *time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", 5 * time.Minute, &cfg.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", 30 * time.Second, &cfg.Database.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", 5 * time.Second, &cfg.Database.PingTimeout},
		{"DB_BUSY_TIMEOUT", 5 * time.Second, &cfg.Database.BusyTimeout},
		{"DB_TX_RETRY_BACKOFF", 20 * time.Millisecond, &cfg.Database.TxRetryBackoff},
		{"HTTP_READ_TIMEOUT", 15 * time.Second, &cfg.Server.ReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.Server.WriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", 20 * time.Second, &cfg.Server.ShutdownTimeout},
		{"RELAY_POLLING_INTERVAL", 5 * time.Second, &cfg.Relay.PollingInterval},
		{"RELAY_CLEANUP_INTERVAL", 15 * time.Minute, &cfg.Relay.CleanupInterval},
		{"RELAY_RETENTION", 7 * 24 * time.Hour, &cfg.Relay.Retention},
		{"RECONCILE_INTERVAL", 10 * time.Minute, &cfg.Reconcile.Interval},
	}
	for _, d := range durations {
		value, err := getEnvDuration(d.key, d.defaultValue)
		if err != nil {
			return nil, err
		}
		*d.dst = value
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
