package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrCacheNotFound         = errors.New("cache not found")
	ErrCacheKeyEmpty         = errors.New("cache key empty")
	ErrCacheConnectionFailed = errors.New("cache connection failed")
	ErrCacheSerializeFailed  = errors.New("cache serialize failed")
	ErrCacheOperationFailed  = errors.New("cache operation failed")
)

var (
	ErrTriggerUnknown      = errors.New("trigger unknown")
	ErrTriggerHandlerIsNil = errors.New("trigger handler is nil")
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrDatabaseTypeUnknown = errors.New("database type unknown")
	ErrDatabaseIsDisabled  = errors.New("database is disabled")
	ErrDatabaseOpenFailed  = errors.New("database open failed")
)

var (
	ErrCronJobNotFound       = errors.New("cron job not found")
	ErrCronIsRunning         = errors.New("cron is running")
	ErrCronJobExists         = errors.New("cron job exists")
	ErrCronExpressionInvalid = errors.New("cron expression invalid")
	ErrCronJobNameIsEmpty    = errors.New("cron job name is empty")
	ErrCronJobIsNil          = errors.New("cron job is nil")
	ErrCronJobFailed         = errors.New("cron job failed")
	ErrCronJobTimeout        = errors.New("cron job timeout")
	ErrCronSchedulerStopped  = errors.New("cron scheduler stopped")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
	ErrLoggerTypeUnknown  = errors.New("logger type unknown")
)

var (
	ErrServiceIsRunning      = errors.New("service is running")
	ErrServiceIsNotRunning   = errors.New("service is not running")
	ErrManagerNotRunning     = errors.New("manager not running")
	ErrManagerAlreadyRunning = errors.New("manager already running")
)

var (
	ErrHealthCheckFailed  = errors.New("health check failed")
	ErrHealthCheckTimeout = errors.New("health check timeout")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
