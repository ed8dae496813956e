// Package accessors provides the typed read-through helpers used by the
// document-processing, screening-matching and prep-sheet collaborators.
// Accessors only read and populate; invalidation is always driven through
// the trigger dispatcher.
package accessors

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/cache"
	"github.com/mitfusco98/health-prep-sub002/types"
	"github.com/mitfusco98/health-prep-sub002/utils"
)

const (
	keyActiveScreeningTypes = "screening_types:active"
	keyAllScreeningTypes    = "screening_types:all"
	keyDocumentTypes        = "document_types"
)

func screeningTypeKey(id int) string {
	return fmt.Sprintf("screening_type:%d", id)
}

func patientDemographicsKey(patientID int) string {
	return fmt.Sprintf("patient_demographics:%d", patientID)
}

type Accessors struct {
	cache  types.CacheManager
	source types.ClinicSource
	logger types.Logger
	ttl    time.Duration
}

func New(cacheManager types.CacheManager, source types.ClinicSource, logger types.Logger, ttl time.Duration) *Accessors {
	return &Accessors{
		cache:  cacheManager,
		source: source,
		logger: logger,
		ttl:    ttl,
	}
}

func (a *Accessors) ActiveScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	value, err := a.cache.Cached(keyActiveScreeningTypes, a.ttl,
		[]string{cache.TagScreeningTypes, cache.TagActiveScreeningTypes},
		func() (interface{}, error) {
			return a.source.ActiveScreeningTypes(ctx)
		})
	if err != nil {
		return nil, err
	}

	var result []types.ScreeningType
	if err := a.decode(keyActiveScreeningTypes, value, &result); err != nil {
		return a.source.ActiveScreeningTypes(ctx)
	}
	return result, nil
}

func (a *Accessors) AllScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	value, err := a.cache.Cached(keyAllScreeningTypes, a.ttl,
		[]string{cache.TagScreeningTypes, cache.TagAllScreeningTypes},
		func() (interface{}, error) {
			return a.source.AllScreeningTypes(ctx)
		})
	if err != nil {
		return nil, err
	}

	var result []types.ScreeningType
	if err := a.decode(keyAllScreeningTypes, value, &result); err != nil {
		return a.source.AllScreeningTypes(ctx)
	}
	return result, nil
}

func (a *Accessors) ScreeningTypeByID(ctx context.Context, id int) (*types.ScreeningType, error) {
	key := screeningTypeKey(id)

	value, err := a.cache.Cached(key, a.ttl,
		[]string{cache.TagScreeningTypes, cache.ScreeningTypeTag(id)},
		func() (interface{}, error) {
			return a.source.ScreeningTypeByID(ctx, id)
		})
	if err != nil {
		return nil, err
	}

	result := &types.ScreeningType{}
	if err := a.decode(key, value, result); err != nil {
		return a.source.ScreeningTypeByID(ctx, id)
	}
	return result, nil
}

func (a *Accessors) PatientDemographics(ctx context.Context, patientID int) (*types.PatientDemographics, error) {
	key := patientDemographicsKey(patientID)

	value, err := a.cache.Cached(key, a.ttl,
		[]string{cache.TagPatientDemographics, cache.PatientTag(patientID)},
		func() (interface{}, error) {
			return a.source.PatientDemographics(ctx, patientID)
		})
	if err != nil {
		return nil, err
	}

	result := &types.PatientDemographics{}
	if err := a.decode(key, value, result); err != nil {
		return a.source.PatientDemographics(ctx, patientID)
	}
	return result, nil
}

func (a *Accessors) DocumentTypes(ctx context.Context) ([]types.DocumentType, error) {
	value, err := a.cache.Cached(keyDocumentTypes, a.ttl,
		[]string{cache.TagDocumentTypes},
		func() (interface{}, error) {
			return a.source.DocumentTypes(ctx)
		})
	if err != nil {
		return nil, err
	}

	var result []types.DocumentType
	if err := a.decode(keyDocumentTypes, value, &result); err != nil {
		return a.source.DocumentTypes(ctx)
	}
	return result, nil
}

// RegisterWarm wires the hot keys into the startup warm hook.
func (a *Accessors) RegisterWarm(warmer *cache.Warmer) {
	warmer.Register("active_screening_types", func(ctx context.Context) error {
		_, err := a.ActiveScreeningTypes(ctx)
		return err
	})

	warmer.Register("document_types", func(ctx context.Context) error {
		_, err := a.DocumentTypes(ctx)
		return err
	})
}

// decode converts a cached value into the expected shape. Values served from
// the in-process store keep their concrete type; values round-tripped through
// the durable backend come back as generic JSON and need re-marshalling. A
// decode failure falls back to the authoritative source at the call site.
func (a *Accessors) decode(key string, value interface{}, target interface{}) error {
	switch typed := value.(type) {
	case nil:
		return types.Errorf(types.ErrCacheOperationFailed, "nil value for key %s", key)
	case []types.ScreeningType:
		if t, ok := target.(*[]types.ScreeningType); ok {
			*t = typed
			return nil
		}
	case *types.ScreeningType:
		if t, ok := target.(*types.ScreeningType); ok {
			*t = *typed
			return nil
		}
	case *types.PatientDemographics:
		if t, ok := target.(*types.PatientDemographics); ok {
			*t = *typed
			return nil
		}
	case []types.DocumentType:
		if t, ok := target.(*[]types.DocumentType); ok {
			*t = typed
			return nil
		}
	}

	data, err := utils.Marshal(value)
	if err == nil {
		err = utils.UnmarshalAny(data, target)
	}
	if err != nil {
		a.logger.Warn("Cached value has unexpected shape, reading through",
			zap.String("key", key), zap.Error(err))
		return types.WrapError(err, "cache value decode failed")
	}

	return nil
}
