package metrics

import (
	"github.com/mitfusco98/health-prep-sub002/types"
)

var customMetricsCreators = make(map[string]types.MetricsManagerCreator)

func RegisterMetricsManager(metricsManagerName string, creator types.MetricsManagerCreator) {
	customMetricsCreators[metricsManagerName] = creator
}

func NewMetricsManager(logger types.Logger, config *types.MetricsConfig) (types.MetricsManager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	switch config.Type {
	case "prometheus":
		return NewPrometheusMetrics(logger, config)
	case "memory", "":
		return NewMemoryMetrics(logger), nil
	default:
		if creator, exists := customMetricsCreators[config.Type]; exists {
			return creator(config)
		}
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", config.Type)
	}
}
