// Package database implements the authoritative clinic persistence layer
// behind the cache. The cache is never the source of truth: every miss falls
// through to one of these sources.
package database

import (
	"context"

	"github.com/mitfusco98/health-prep-sub002/types"
)

func NewSource(ctx context.Context, logger types.Logger, config *types.DatabaseConfig) (types.ClinicSource, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	switch config.Type {
	case "clover":
		return NewCloverSource(ctx, logger, config)
	case "memory":
		return NewMemorySource(logger), nil
	default:
		return nil, types.Errorf(types.ErrDatabaseTypeUnknown, "type: %s", config.Type)
	}
}
