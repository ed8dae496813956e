package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/mitfusco98/health-prep-sub002/types"
)

// RedisAddrEnv overrides cache.redis.addr when set, so deployments can point
// at a different Redis without editing the config file.
const RedisAddrEnv = "HEALTH_PREP_REDIS_ADDR"

type Loader struct {
	validator *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (l *Loader) LoadFromFile(configPath string) (*types.ServiceConfig, error) {
	if configPath == "" {
		return nil, types.ErrConfigNotFound
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, types.WrapError(err, "file not found: "+configPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := l.readFileWithTimeout(ctx, configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to read config file")
	}

	config := l.Defaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, types.WrapError(err, "failed to parse YAML config")
	}

	l.applyEnvOverrides(config)

	if err := l.validator.Struct(config); err != nil {
		return nil, types.WrapError(err, "config validation failed")
	}

	return config, nil
}

func (l *Loader) readFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) applyEnvOverrides(config *types.ServiceConfig) {
	addr := os.Getenv(RedisAddrEnv)
	if addr == "" {
		return
	}

	if config.Cache.Redis == nil {
		config.Cache.Redis = &types.RedisConfig{}
	}
	config.Cache.Redis.Addr = addr
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Cache: &types.CacheConfig{
			DefaultTTL: 5 * time.Minute,
			KeyPrefix:  "health-prep",
			Warm:       true,
			WarmSpec:   "0 */30 * * * *",
			SweepSpec:  "0 */5 * * * *",
		},
		Database: &types.DatabaseConfig{
			Type: "memory",
		},
		Metrics: &types.MetricsConfig{
			Enabled: false,
			Type:    "memory",
			Prefix:  "health_prep",
		},
		Cron: &types.CronConfig{
			Enabled:  true,
			Timezone: "UTC",
		},
	}
}
