package cache

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/types"
)

// Tag vocabulary shared by accessors and trigger handlers.
const (
	TagScreeningTypes       = "screening_types"
	TagActiveScreeningTypes = "active_screening_types"
	TagAllScreeningTypes    = "all_screening_types"
	TagDocumentTypes        = "document_types"
	TagPatientDemographics  = "patient_demographics"
)

func ScreeningTypeTag(id int) string {
	return fmt.Sprintf("screening_type_%d", id)
}

func PatientTag(id int) string {
	return fmt.Sprintf("patient_%d", id)
}

func MedicalDataTag(dataType string) string {
	return fmt.Sprintf("medical_data_%s", dataType)
}

// Invalidator is the slice of the cache manager the dispatcher needs.
type Invalidator interface {
	InvalidateByTag(tag string) int
	BeginBatch()
	EndBatch()
}

// Dispatcher maps named domain events to registered handlers that translate
// event context into tags to invalidate. Handlers are registered at startup;
// there is no runtime method replacement. An unknown trigger is a logged
// no-op, and a panicking handler never blocks its siblings or the caller.
type Dispatcher struct {
	cache  Invalidator
	logger types.Logger

	mu       sync.RWMutex
	handlers map[string][]types.TriggerHandler
}

func NewDispatcher(cache Invalidator, logger types.Logger) *Dispatcher {
	return &Dispatcher{
		cache:    cache,
		logger:   logger,
		handlers: make(map[string][]types.TriggerHandler),
	}
}

func (d *Dispatcher) Register(triggerType string, handler types.TriggerHandler) {
	if triggerType == "" || handler == nil {
		d.logger.Warn("Ignoring invalid trigger registration",
			zap.String("trigger_type", triggerType),
			zap.Bool("handler_nil", handler == nil))
		return
	}

	d.mu.Lock()
	d.handlers[triggerType] = append(d.handlers[triggerType], handler)
	d.mu.Unlock()
}

// Trigger dispatches a domain event. Batch window transitions are handled
// directly; every other trigger runs its handlers and invalidates the union
// of the tags they return.
func (d *Dispatcher) Trigger(triggerType string, ctx types.TriggerContext) {
	switch triggerType {
	case types.TriggerBatchOperationStart:
		d.cache.BeginBatch()
		return
	case types.TriggerBatchOperationEnd:
		d.cache.EndBatch()
		return
	}

	d.mu.RLock()
	handlers := d.handlers[triggerType]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Warn("Unknown invalidation trigger",
			zap.String("trigger_type", triggerType))
		return
	}

	tagSet := make(map[string]struct{})
	for _, handler := range handlers {
		for _, tag := range d.invoke(triggerType, ctx, handler) {
			if tag != "" {
				tagSet[tag] = struct{}{}
			}
		}
	}

	for tag := range tagSet {
		d.cache.InvalidateByTag(tag)
	}
}

// invoke recovers handler panics so one failing handler cannot block its
// siblings or propagate into the caller.
func (d *Dispatcher) invoke(triggerType string, ctx types.TriggerContext, handler types.TriggerHandler) (tags []string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("Trigger handler panicked",
				zap.String("trigger_type", triggerType),
				zap.Any("context", ctx),
				zap.Any("panic", rec))
			tags = nil
		}
	}()

	return handler(ctx)
}

// RegisterClinicHandlers installs the domain event handlers for the clinic
// record application.
func RegisterClinicHandlers(d *Dispatcher) {
	screeningTypeChange := func(ctx types.TriggerContext) []string {
		tags := []string{TagScreeningTypes, TagActiveScreeningTypes, TagAllScreeningTypes}
		if id, ok := ctx.Int("screening_type_id"); ok {
			tags = append(tags, ScreeningTypeTag(id))
		}
		return tags
	}

	d.Register(types.TriggerScreeningTypeKeywordChange, screeningTypeChange)
	d.Register(types.TriggerScreeningTypeStatusChange, screeningTypeChange)

	d.Register(types.TriggerDocumentTypeChange, func(ctx types.TriggerContext) []string {
		tags := []string{TagDocumentTypes}
		if id, ok := ctx.Int("patient_id"); ok {
			tags = append(tags, PatientTag(id))
		}
		return tags
	})

	d.Register(types.TriggerPatientDemographicChange, func(ctx types.TriggerContext) []string {
		tags := []string{TagPatientDemographics}
		if id, ok := ctx.Int("patient_id"); ok {
			tags = append(tags, PatientTag(id))
		}
		return tags
	})

	d.Register(types.TriggerMedicalDataSubsectionUpdate, func(ctx types.TriggerContext) []string {
		var tags []string
		if id, ok := ctx.Int("patient_id"); ok {
			tags = append(tags, PatientTag(id))
		}
		if dataType, ok := ctx.String("data_type"); ok {
			tags = append(tags, MedicalDataTag(dataType))
		}
		return tags
	})
}
