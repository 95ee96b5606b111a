package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadHost        string        `mapstructure:"read_host"`
	ReadPort        int           `mapstructure:"read_port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	StreamName        string        `mapstructure:"stream_name"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	WorkConsumerName  string        `mapstructure:"work_consumer_name"`
	TokenConsumerName string        `mapstructure:"token_consumer_name"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
	ReconnectWait     time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName    string        `mapstructure:"connection_name"`
	AckWait           time.Duration `mapstructure:"ack_wait"`
	MaxDeliver        int           `mapstructure:"max_deliver"`
	MaxAge            time.Duration `mapstructure:"max_age"`
	DuplicateWindow   time.Duration `mapstructure:"duplicate_window"`
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	RPCURL         string `mapstructure:"rpc_url"`
	ChainID        int64  `mapstructure:"chain_id"`
	StartBlock     uint64 `mapstructure:"start_block"`
	KittiesAddress string `mapstructure:"kitties_address"`
	PunksAddress   string `mapstructure:"punks_address"`
}

// RateLimitConfig holds rate limit settings for a single provider
type RateLimitConfig struct {
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxWaitTime       time.Duration `mapstructure:"max_wait_time"`
}

// RateLimiterConfig holds configuration for the distributed RPC rate limiter
type RateLimiterConfig struct {
	Enabled                 bool                       `mapstructure:"enabled"`
	RedisAddr               string                     `mapstructure:"redis_addr"`
	RedisPassword           string                     `mapstructure:"redis_password"`
	RedisDB                 int                        `mapstructure:"redis_db"`
	RedisKeyPrefix          string                     `mapstructure:"redis_key_prefix"`
	EnableLocalFallback     bool                       `mapstructure:"enable_local_fallback"`
	LocalFallbackMultiplier float64                    `mapstructure:"local_fallback_multiplier"`
	HealthCheckInterval     time.Duration              `mapstructure:"health_check_interval"`
	Providers               map[string]RateLimitConfig `mapstructure:"providers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// WorkerConfig holds message processing configuration
type WorkerConfig struct {
	WorkPoolSize       int           `mapstructure:"work_pool_size"`
	TokenPoolSize      int           `mapstructure:"token_pool_size"`
	QueueSize          int           `mapstructure:"queue_size"`
	ReceiptConcurrency int           `mapstructure:"receipt_concurrency"`
	LockTimeout        time.Duration `mapstructure:"lock_timeout"`
	LockExpiry         time.Duration `mapstructure:"lock_expiry"`
	LockPollInterval   time.Duration `mapstructure:"lock_poll_interval"`
	LockRetryDelay     time.Duration `mapstructure:"lock_retry_delay"`
	MaxBlocksPerRun    uint64        `mapstructure:"max_blocks_per_run"`
	ReprocessWindow    time.Duration `mapstructure:"reprocess_window"`
	ReprocessThreshold time.Duration `mapstructure:"reprocess_threshold"`
	ReprocessLimit     int           `mapstructure:"reprocess_limit"`
}

// SchedulerConfig holds the trigger intervals of the scheduler
type SchedulerConfig struct {
	ReceiveNewBlocksInterval   time.Duration `mapstructure:"receive_new_blocks_interval"`
	ReprocessOldBlocksInterval time.Duration `mapstructure:"reprocess_old_blocks_interval"`
}

// PipelineWorkerConfig holds configuration for the pipeline worker
type PipelineWorkerConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

// PipelineSchedulerConfig holds configuration for the pipeline scheduler
type PipelineSchedulerConfig struct {
	BaseConfig `mapstructure:",squash"`
	NATS       NATSConfig      `mapstructure:"nats"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
}

// LoadWorkerConfig loads configuration for the pipeline worker
func LoadWorkerConfig(configFile string, envPath string) (*PipelineWorkerConfig, error) {
	v := configureViper("worker", configFile, envPath)

	// Set defaults
	setNATSDefaults(v)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.kitties_address", "0x06012c8cf97BEaD5deAe237070F9587f8E7A266d")
	v.SetDefault("ethereum.punks_address", "0xb47e3cd837dDF8e4c57F05d70Ab865de6e193BBB")
	v.SetDefault("rate_limiter.enabled", false)
	v.SetDefault("rate_limiter.enable_local_fallback", true)
	v.SetDefault("rate_limiter.local_fallback_multiplier", 0.5)
	v.SetDefault("rate_limiter.health_check_interval", "10s")
	v.SetDefault("worker.work_pool_size", 8)
	v.SetDefault("worker.token_pool_size", 16)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("worker.receipt_concurrency", 16)
	v.SetDefault("worker.lock_timeout", "30s")
	v.SetDefault("worker.lock_expiry", "2m")
	v.SetDefault("worker.lock_poll_interval", "250ms")
	v.SetDefault("worker.lock_retry_delay", "15s")
	v.SetDefault("worker.max_blocks_per_run", 50)
	v.SetDefault("worker.reprocess_window", "1h")
	v.SetDefault("worker.reprocess_threshold", "2m")
	v.SetDefault("worker.reprocess_limit", 100)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg PipelineWorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, errors.New("database.host is required")
	}
	if cfg.Database.DBName == "" {
		return nil, errors.New("database.dbname is required")
	}
	if cfg.Ethereum.RPCURL == "" {
		return nil, errors.New("ethereum.rpc_url is required")
	}

	return &cfg, nil
}

// LoadSchedulerConfig loads configuration for the pipeline scheduler
func LoadSchedulerConfig(configFile string, envPath string) (*PipelineSchedulerConfig, error) {
	v := configureViper("scheduler", configFile, envPath)

	// Set defaults
	setNATSDefaults(v)
	v.SetDefault("scheduler.receive_new_blocks_interval", "12s")
	v.SetDefault("scheduler.reprocess_old_blocks_interval", "5m")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg PipelineSchedulerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Scheduler.ReceiveNewBlocksInterval <= 0 {
		return nil, errors.New("scheduler.receive_new_blocks_interval must be positive")
	}
	if cfg.Scheduler.ReprocessOldBlocksInterval <= 0 {
		return nil, errors.New("scheduler.reprocess_old_blocks_interval must be positive")
	}

	return &cfg, nil
}

// setNATSDefaults sets the defaults shared by every service talking to the pipeline stream
func setNATSDefaults(v *viper.Viper) {
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "NFT_PIPELINE")
	v.SetDefault("nats.subject_prefix", "pipeline")
	v.SetDefault("nats.work_consumer_name", "work")
	v.SetDefault("nats.token_consumer_name", "token")
	v.SetDefault("nats.ack_wait", "2m")
	v.SetDefault("nats.max_deliver", 10)
	v.SetDefault("nats.max_age", "72h")
	v.SetDefault("nats.duplicate_window", "2m")
}

// readConfig reads the config file, falling back to environment variables when none exists
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_TRANSFER_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.read_host",
		"database.read_port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.work_consumer_name",
		"nats.token_consumer_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		"nats.max_age",
		"nats.duplicate_window",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.start_block",
		"ethereum.kitties_address",
		"ethereum.punks_address",
		// Rate limiter
		"rate_limiter.enabled",
		"rate_limiter.redis_addr",
		"rate_limiter.redis_password",
		"rate_limiter.redis_db",
		"rate_limiter.redis_key_prefix",
		"rate_limiter.enable_local_fallback",
		"rate_limiter.local_fallback_multiplier",
		"rate_limiter.health_check_interval",
		"rate_limiter.providers.ethereum.requests_per_second",
		"rate_limiter.providers.ethereum.burst",
		"rate_limiter.providers.ethereum.max_wait_time",
		// Worker
		"worker.work_pool_size",
		"worker.token_pool_size",
		"worker.queue_size",
		"worker.receipt_concurrency",
		"worker.lock_timeout",
		"worker.lock_expiry",
		"worker.lock_poll_interval",
		"worker.lock_retry_delay",
		"worker.max_blocks_per_run",
		"worker.reprocess_window",
		"worker.reprocess_threshold",
		"worker.reprocess_limit",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Scheduler
		"scheduler.receive_new_blocks_interval",
		"scheduler.reprocess_old_blocks_interval",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ReadDSN returns the read-replica database connection string.
// If ReadHost is not configured the primary is used; ReadPort falls back to Port.
func (c *DatabaseConfig) ReadDSN() string {
	host := c.ReadHost
	if host == "" {
		host = c.Host
	}
	port := c.ReadPort
	if port == 0 {
		port = c.Port
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Subject returns the subject a command is published on for the given queue
func (c *NATSConfig) Subject(queue string, command string) string {
	return fmt.Sprintf("%s.%s.%s", c.SubjectPrefix, queue, command)
}

// QueueSubjects returns the wildcard subject of a queue
func (c *NATSConfig) QueueSubjects(queue string) string {
	return fmt.Sprintf("%s.%s.>", c.SubjectPrefix, queue)
}
