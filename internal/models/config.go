package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Relay     RelayConfig
	Kafka     KafkaConfig
	Formance  FormanceConfig
	Log       LogConfig
	Reconcile ReconcileConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	TxMaxRetries     int
	TxRetryBackoff   time.Duration
	CreateDummyUsers bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SettingsFile    string
}

// AuthConfig holds the bearer token verification settings. An empty secret
// disables token checks.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// RelayConfig holds outbox relay settings
type RelayConfig struct {
	PollingInterval time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	BatchSize       int
	MaxAttempts     int
}

// KafkaConfig holds the event stream settings. Empty brokers disable the sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FormanceConfig holds the external ledger mirror settings. An empty stack
// URL disables the mirror.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ReconcileConfig holds the periodic conservation check settings
type ReconcileConfig struct {
	Interval time.Duration
}
