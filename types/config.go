package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
	GetValue(path string, defaultValue interface{}) interface{}
}

type ServiceConfig struct {
	Name     string          `yaml:"name" json:"name" validate:"required"`
	Version  string          `yaml:"version" json:"version" validate:"required"`
	Logger   *LoggerConfig   `yaml:"logger" json:"logger"`
	Cache    *CacheConfig    `yaml:"cache" json:"cache" validate:"required"`
	Database *DatabaseConfig `yaml:"database" json:"database"`
	Metrics  *MetricsConfig  `yaml:"metrics" json:"metrics"`
	Cron     *CronConfig     `yaml:"cron" json:"cron"`
}

type LoggerConfig struct {
	Level  string      `yaml:"level" json:"level"`
	Config interface{} `yaml:"config" json:"config"`
}

// CacheConfig configures the dual-backend cache manager. A nil Redis block
// selects in-process-only mode.
type CacheConfig struct {
	Redis      *RedisConfig  `yaml:"redis" json:"redis"`
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
	KeyPrefix  string        `yaml:"key_prefix" json:"key_prefix"`
	Warm       bool          `yaml:"warm" json:"warm"`
	WarmSpec   string        `yaml:"warm_spec" json:"warm_spec"`
	SweepSpec  string        `yaml:"sweep_spec" json:"sweep_spec"`
}

type RedisConfig struct {
	Addr               string        `yaml:"addr" json:"addr" validate:"required"`
	Password           string        `yaml:"password" json:"password"`
	DB                 int           `yaml:"db" json:"db"`
	PoolSize           int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConnections int           `yaml:"min_idle_connections" json:"min_idle_connections"`
	DialTimeout        time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout        time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout" json:"write_timeout"`
	OpTimeout          time.Duration `yaml:"op_timeout" json:"op_timeout"`
}

type DatabaseConfig struct {
	Type string `yaml:"type" json:"type" validate:"required,oneof=clover memory"`
	Path string `yaml:"path" json:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Type    string `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Prefix  string `yaml:"prefix" json:"prefix"`
}

type CronConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Timezone string `yaml:"timezone" json:"timezone"`
}
