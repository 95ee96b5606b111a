package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadWorkerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *PipelineWorkerConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  host: localhost
  port: 5433
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://nats:4222"
  stream_name: "TEST_PIPELINE"
  ack_wait: "30s"
  max_deliver: 3
ethereum:
  rpc_url: "http://localhost:8545"
  chain_id: 11155111
  start_block: 1000
rate_limiter:
  enabled: true
  redis_addr: "localhost:6379"
  providers:
    ethereum:
      requests_per_second: 25
      burst: 50
      max_wait_time: "1m"
worker:
  work_pool_size: 4
  token_pool_size: 32
  lock_timeout: "10s"
  max_blocks_per_run: 20
auth:
  api_keys:
    - key-a
    - key-b
`,
			validate: func(t *testing.T, cfg *PipelineWorkerConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_PIPELINE", cfg.NATS.StreamName)
				assert.Equal(t, 30*time.Second, cfg.NATS.AckWait)
				assert.Equal(t, 3, cfg.NATS.MaxDeliver)
				assert.Equal(t, int64(11155111), cfg.Ethereum.ChainID)
				assert.Equal(t, uint64(1000), cfg.Ethereum.StartBlock)
				assert.True(t, cfg.RateLimiter.Enabled)
				assert.Equal(t, "localhost:6379", cfg.RateLimiter.RedisAddr)
				require.Contains(t, cfg.RateLimiter.Providers, "ethereum")
				assert.Equal(t, 25, cfg.RateLimiter.Providers["ethereum"].RequestsPerSecond)
				assert.Equal(t, 50, cfg.RateLimiter.Providers["ethereum"].Burst)
				assert.Equal(t, time.Minute, cfg.RateLimiter.Providers["ethereum"].MaxWaitTime)
				assert.Equal(t, 4, cfg.Worker.WorkPoolSize)
				assert.Equal(t, 32, cfg.Worker.TokenPoolSize)
				assert.Equal(t, 10*time.Second, cfg.Worker.LockTimeout)
				assert.Equal(t, uint64(20), cfg.Worker.MaxBlocksPerRun)
				assert.Equal(t, []string{"key-a", "key-b"}, cfg.Auth.APIKeys)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
ethereum:
  rpc_url: "http://localhost:8545"
`,
			validate: func(t *testing.T, cfg *PipelineWorkerConfig) {
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, "NFT_PIPELINE", cfg.NATS.StreamName)
				assert.Equal(t, "pipeline", cfg.NATS.SubjectPrefix)
				assert.Equal(t, "work", cfg.NATS.WorkConsumerName)
				assert.Equal(t, "token", cfg.NATS.TokenConsumerName)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, int64(1), cfg.Ethereum.ChainID)
				assert.Equal(t, "0x06012c8cf97BEaD5deAe237070F9587f8E7A266d", cfg.Ethereum.KittiesAddress)
				assert.Equal(t, "0xb47e3cd837dDF8e4c57F05d70Ab865de6e193BBB", cfg.Ethereum.PunksAddress)
				assert.False(t, cfg.RateLimiter.Enabled)
				assert.Equal(t, 30*time.Second, cfg.Worker.LockTimeout)
				assert.Equal(t, 2*time.Minute, cfg.Worker.LockExpiry)
				assert.Equal(t, 250*time.Millisecond, cfg.Worker.LockPollInterval)
				assert.Equal(t, 15*time.Second, cfg.Worker.LockRetryDelay)
				assert.Equal(t, uint64(50), cfg.Worker.MaxBlocksPerRun)
				assert.Equal(t, time.Hour, cfg.Worker.ReprocessWindow)
				assert.Equal(t, 2*time.Minute, cfg.Worker.ReprocessThreshold)
				assert.Equal(t, 100, cfg.Worker.ReprocessLimit)
				assert.Equal(t, 8080, cfg.Server.Port)
			},
		},
		{
			name: "missing rpc url",
			configFile: `
database:
  host: localhost
  dbname: testdb
`,
			expectError: true,
		},
		{
			name: "missing database host",
			configFile: `
ethereum:
  rpc_url: "http://localhost:8545"
`,
			expectError: true,
		},
		{
			name: "invalid port",
			configFile: `
database:
  host: localhost
  port: invalid
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := writeConfigFile(t, tt.configFile)

			cfg, err := LoadWorkerConfig(configFile, t.TempDir())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadSchedulerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *PipelineSchedulerConfig)
	}{
		{
			name: "defaults",
			configFile: `
nats:
  url: "nats://nats:4222"
`,
			validate: func(t *testing.T, cfg *PipelineSchedulerConfig) {
				assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
				assert.Equal(t, 12*time.Second, cfg.Scheduler.ReceiveNewBlocksInterval)
				assert.Equal(t, 5*time.Minute, cfg.Scheduler.ReprocessOldBlocksInterval)
			},
		},
		{
			name: "custom intervals",
			configFile: `
scheduler:
  receive_new_blocks_interval: "3s"
  reprocess_old_blocks_interval: "1m"
`,
			validate: func(t *testing.T, cfg *PipelineSchedulerConfig) {
				assert.Equal(t, 3*time.Second, cfg.Scheduler.ReceiveNewBlocksInterval)
				assert.Equal(t, time.Minute, cfg.Scheduler.ReprocessOldBlocksInterval)
			},
		},
		{
			name: "non positive interval",
			configFile: `
scheduler:
  receive_new_blocks_interval: "0s"
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := writeConfigFile(t, tt.configFile)

			cfg, err := LoadSchedulerConfig(configFile, t.TempDir())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "primary",
		Port:     5432,
		User:     "testuser",
		Password: "p@ssw0rd!",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=primary port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable", cfg.DSN())
	assert.Equal(t, "host=primary port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable", cfg.ReadDSN())

	cfg.ReadHost = "replica"
	cfg.ReadPort = 6432
	assert.Equal(t, "host=replica port=6432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable", cfg.ReadDSN())
}

func TestNATSConfig_Subjects(t *testing.T) {
	cfg := NATSConfig{SubjectPrefix: "pipeline"}

	assert.Equal(t, "pipeline.work.PROCESS_BLOCK", cfg.Subject("work", "PROCESS_BLOCK"))
	assert.Equal(t, "pipeline.token.>", cfg.QueueSubjects("token"))
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	require.NoError(t, os.MkdirAll(envDir, 0750))

	// Viper uses the FF_TRANSFER_INDEXER_ prefix
	envContent := `FF_TRANSFER_INDEXER_DEBUG=true
FF_TRANSFER_INDEXER_DATABASE_HOST=env-host
FF_TRANSFER_INDEXER_DATABASE_PORT=3306
FF_TRANSFER_INDEXER_DATABASE_DBNAME=env-db
FF_TRANSFER_INDEXER_WORKER_LOCK_TIMEOUT=45s
`
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"), []byte(envContent), 0600))
	// The per-service file overrides the shared one
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env.worker.local"), []byte("FF_TRANSFER_INDEXER_DATABASE_DBNAME=local-db\n"), 0600))

	// godotenv sets process environment variables, so clear them for the other tests
	t.Cleanup(func() {
		for _, key := range []string{
			"FF_TRANSFER_INDEXER_DEBUG",
			"FF_TRANSFER_INDEXER_DATABASE_HOST",
			"FF_TRANSFER_INDEXER_DATABASE_PORT",
			"FF_TRANSFER_INDEXER_DATABASE_DBNAME",
			"FF_TRANSFER_INDEXER_WORKER_LOCK_TIMEOUT",
		} {
			_ = os.Unsetenv(key)
		}
	})

	configPath := writeConfigFile(t, `
debug: false
database:
  host: file-host
  port: 5432
  dbname: file-db
ethereum:
  rpc_url: "http://localhost:8545"
`)

	cfg, err := LoadWorkerConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "local-db", cfg.Database.DBName)
	assert.Equal(t, 45*time.Second, cfg.Worker.LockTimeout)
}
