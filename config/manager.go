package config

import (
	"strings"
	"sync/atomic"

	"github.com/goccy/go-yaml"

	"github.com/mitfusco98/health-prep-sub002/types"
)

type ConfigurationManager struct {
	configPath string
	loader     *Loader
	config     atomic.Pointer[types.ServiceConfig]
	rawData    atomic.Pointer[map[string]interface{}]
}

func NewConfigurationManager(configPath string) (*ConfigurationManager, error) {
	cm := &ConfigurationManager{
		configPath: configPath,
		loader:     NewLoader(),
	}

	if err := cm.Load(); err != nil {
		return nil, types.WrapError(err, "failed to load initial configuration")
	}

	return cm, nil
}

func (cm *ConfigurationManager) Load() error {
	config, err := cm.loader.LoadFromFile(cm.configPath)
	if err != nil {
		return err
	}

	raw := make(map[string]interface{})
	configBytes, err := yaml.Marshal(config)
	if err == nil {
		if err := yaml.Unmarshal(configBytes, &raw); err != nil {
			raw = make(map[string]interface{})
		}
	}

	cm.config.Store(config)
	cm.rawData.Store(&raw)

	return nil
}

func (cm *ConfigurationManager) GetConfig() *types.ServiceConfig {
	return cm.config.Load()
}

// GetValue resolves a dotted path ("cache.default_ttl") against the raw
// configuration tree, returning defaultValue when the path is absent.
func (cm *ConfigurationManager) GetValue(path string, defaultValue interface{}) interface{} {
	raw := cm.rawData.Load()
	if raw == nil {
		return defaultValue
	}

	value := navigateToPath(*raw, path)
	if value == nil {
		return defaultValue
	}
	return value
}

func navigateToPath(data map[string]interface{}, path string) interface{} {
	if path == "" {
		return data
	}

	parts := strings.Split(path, ".")
	var current interface{} = data

	for _, part := range parts {
		switch v := current.(type) {
		case map[string]interface{}:
			if val, exists := v[part]; exists {
				current = val
			} else {
				return nil
			}
		case map[interface{}]interface{}:
			if val, exists := v[part]; exists {
				current = val
			} else {
				return nil
			}
		default:
			return nil
		}

		if current == nil {
			return nil
		}
	}

	return current
}
