// Package healthprep wires the clinic-record caching service: configuration,
// logging, the tag-indexed cache over Redis with an in-process fallback, the
// trigger dispatcher, typed read-through accessors and scheduled maintenance.
// Everything is an explicit instance; callers construct a Service and pass its
// parts to their collaborators.
package healthprep

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/accessors"
	"github.com/mitfusco98/health-prep-sub002/cache"
	"github.com/mitfusco98/health-prep-sub002/config"
	"github.com/mitfusco98/health-prep-sub002/cron"
	"github.com/mitfusco98/health-prep-sub002/database"
	"github.com/mitfusco98/health-prep-sub002/health"
	"github.com/mitfusco98/health-prep-sub002/logger"
	"github.com/mitfusco98/health-prep-sub002/metrics"
	"github.com/mitfusco98/health-prep-sub002/types"
)

const (
	defaultWarmSpec  = "0 */30 * * * *"
	defaultSweepSpec = "0 */5 * * * *"
)

type Service struct {
	ctx    context.Context
	cancel context.CancelFunc

	Config     types.ConfigManager
	Logger     types.Logger
	Metrics    types.MetricsManager
	Health     *health.Manager
	Source     types.ClinicSource
	Cache      types.CacheManager
	Dispatcher *cache.Dispatcher
	Warmer     *cache.Warmer
	Accessors  *accessors.Accessors
	Cron       types.CronManager

	cacheCore *cache.Manager
	running   int32
}

func NewService(ctx context.Context, configPath string) (*Service, error) {
	configManager, err := config.NewConfigurationManager(configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to initialize configuration")
	}

	return NewServiceWithConfig(ctx, configManager)
}

func NewServiceWithConfig(ctx context.Context, configManager types.ConfigManager) (*Service, error) {
	serviceConfig := configManager.GetConfig()
	if serviceConfig == nil {
		return nil, types.ErrConfigIsNil
	}

	log, err := logger.NewDefaultLogger(serviceConfig.Logger)
	if err != nil {
		return nil, types.WrapError(err, "failed to initialize logger")
	}

	serviceCtx, cancel := context.WithCancel(ctx)

	svc := &Service{
		ctx:    serviceCtx,
		cancel: cancel,
		Config: configManager,
		Logger: log,
	}

	if err := svc.build(serviceConfig); err != nil {
		cancel()
		return nil, err
	}

	return svc, nil
}

func (s *Service) build(serviceConfig *types.ServiceConfig) error {
	if serviceConfig.Metrics != nil && serviceConfig.Metrics.Enabled {
		metricsManager, err := metrics.NewMetricsManager(s.Logger, serviceConfig.Metrics)
		if err != nil {
			return types.WrapError(err, "failed to initialize metrics")
		}
		s.Metrics = metricsManager
	}

	s.Health = health.NewManager(s.ctx, s.Logger)

	databaseConfig := serviceConfig.Database
	if databaseConfig == nil {
		databaseConfig = &types.DatabaseConfig{Type: "memory"}
	}

	source, err := database.NewSource(s.ctx, s.Logger, databaseConfig)
	if err != nil {
		return types.WrapError(err, "failed to initialize clinic source")
	}
	s.Source = source

	cacheManager, err := cache.NewManager(s.ctx, s.Logger, serviceConfig.Cache)
	if err != nil {
		return types.WrapError(err, "failed to initialize cache")
	}
	s.cacheCore = cacheManager

	s.Cache = types.CacheManager(cacheManager)
	if s.Metrics != nil {
		s.Cache = cache.NewInstrumentedManager(s.Metrics, cacheManager)
	}

	s.Dispatcher = cache.NewDispatcher(s.Cache, s.Logger)
	cache.RegisterClinicHandlers(s.Dispatcher)

	s.Warmer = cache.NewWarmer(s.Logger)

	cacheTTL := time.Duration(0)
	if serviceConfig.Cache != nil {
		cacheTTL = serviceConfig.Cache.DefaultTTL
	}
	s.Accessors = accessors.New(s.Cache, s.Source, s.Logger, cacheTTL)
	s.Accessors.RegisterWarm(s.Warmer)

	if serviceConfig.Cron != nil && serviceConfig.Cron.Enabled {
		cronManager, err := cron.NewManager(s.ctx, s.Logger, s.Metrics, serviceConfig.Cron)
		if err != nil {
			return types.WrapError(err, "failed to initialize cron")
		}
		s.Cron = cronManager
	}

	s.Health.RegisterChecker("cache", health.CacheChecker(s.Cache))
	s.Health.RegisterChecker("clinic_source", health.SourceChecker(s.Source))

	return nil
}

func (s *Service) Start() error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return types.ErrServiceIsRunning
	}

	serviceConfig := s.Config.GetConfig()

	if s.Metrics != nil {
		if err := s.Metrics.Start(); err != nil {
			return types.WrapError(err, "failed to start metrics")
		}
	}

	if err := s.Health.Start(); err != nil {
		return types.WrapError(err, "failed to start health manager")
	}

	if err := s.Source.Start(); err != nil {
		return types.WrapError(err, "failed to start clinic source")
	}

	if err := s.Cache.Start(); err != nil {
		return types.WrapError(err, "failed to start cache")
	}

	if serviceConfig.Cache != nil && serviceConfig.Cache.Warm {
		if err := s.Warmer.Warm(s.ctx); err != nil {
			s.Logger.Warn("Initial cache warm incomplete", zap.Error(err))
		}
	}

	if s.Cron != nil {
		if err := s.scheduleMaintenance(serviceConfig); err != nil {
			return err
		}

		if err := s.Cron.Start(); err != nil {
			return types.WrapError(err, "failed to start cron")
		}
	}

	s.Logger.Info("Service started",
		zap.String("name", serviceConfig.Name),
		zap.String("version", serviceConfig.Version))

	return nil
}

func (s *Service) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return types.ErrServiceIsNotRunning
	}

	defer s.cancel()

	if s.Cron != nil {
		if err := s.Cron.Stop(); err != nil {
			s.Logger.Error("Failed to stop cron", zap.Error(err))
		}
	}

	if err := s.Cache.Stop(); err != nil {
		s.Logger.Error("Failed to stop cache", zap.Error(err))
	}

	if err := s.Source.Stop(); err != nil {
		s.Logger.Error("Failed to stop clinic source", zap.Error(err))
	}

	if err := s.Health.Stop(); err != nil {
		s.Logger.Error("Failed to stop health manager", zap.Error(err))
	}

	if s.Metrics != nil {
		if err := s.Metrics.Stop(); err != nil {
			s.Logger.Error("Failed to stop metrics", zap.Error(err))
		}
	}

	s.Logger.Info("Service stopped")
	return nil
}

func (s *Service) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// Trigger forwards a named domain event to the dispatcher. Collaborators hold
// the Service and call this after committing their writes.
func (s *Service) Trigger(triggerType string, ctx types.TriggerContext) {
	s.Dispatcher.Trigger(triggerType, ctx)
}

func (s *Service) scheduleMaintenance(serviceConfig *types.ServiceConfig) error {
	warmSpec := defaultWarmSpec
	sweepSpec := defaultSweepSpec
	warmEnabled := false

	if serviceConfig.Cache != nil {
		warmEnabled = serviceConfig.Cache.Warm
		if serviceConfig.Cache.WarmSpec != "" {
			warmSpec = serviceConfig.Cache.WarmSpec
		}
		if serviceConfig.Cache.SweepSpec != "" {
			sweepSpec = serviceConfig.Cache.SweepSpec
		}
	}

	if warmEnabled {
		if err := s.Cron.Add("cache_warm", warmSpec, func() {
			if err := s.Warmer.Warm(s.ctx); err != nil {
				s.Logger.Warn("Scheduled cache warm incomplete", zap.Error(err))
			}
		}); err != nil {
			return types.WrapError(err, "failed to schedule cache warm")
		}
	}

	if err := s.Cron.Add("cache_sweep", sweepSpec, func() {
		if removed := s.cacheCore.Sweep(); removed > 0 {
			s.Logger.Debug("Expired cache entries swept", zap.Int("removed", removed))
		}
	}); err != nil {
		return types.WrapError(err, "failed to schedule cache sweep")
	}

	return nil
}
