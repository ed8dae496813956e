package cache

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitfusco98/health-prep-sub002/logger"
	"github.com/mitfusco98/health-prep-sub002/types"
)

// recordingInvalidator captures dispatcher calls without a real cache.
type recordingInvalidator struct {
	mu          sync.Mutex
	invalidated []string
	batchBegins int
	batchEnds   int
}

func (r *recordingInvalidator) InvalidateByTag(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, tag)
	return 1
}

func (r *recordingInvalidator) BeginBatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchBegins++
}

func (r *recordingInvalidator) EndBatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchEnds++
}

func (r *recordingInvalidator) tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	tags := append([]string(nil), r.invalidated...)
	sort.Strings(tags)
	return tags
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordingInvalidator) {
	t.Helper()

	inv := &recordingInvalidator{}
	d := NewDispatcher(inv, logger.NewNopLogger())
	RegisterClinicHandlers(d)

	return d, inv
}

func TestDispatcherUnknownTriggerIsNoOp(t *testing.T) {
	d, inv := newTestDispatcher(t)

	d.Trigger("nonexistent_event", nil)

	require.Empty(t, inv.tags())
	require.Equal(t, 0, inv.batchBegins)
}

func TestDispatcherScreeningStatusChange(t *testing.T) {
	d, inv := newTestDispatcher(t)

	d.Trigger(types.TriggerScreeningTypeStatusChange, types.TriggerContext{
		"screening_type_id": 3,
	})

	// Lexicographic order: "screening_type_3" sorts before "screening_types".
	require.Equal(t, []string{
		TagActiveScreeningTypes,
		TagAllScreeningTypes,
		ScreeningTypeTag(3),
		TagScreeningTypes,
	}, inv.tags())
}

func TestDispatcherScreeningKeywordChangeWithoutID(t *testing.T) {
	d, inv := newTestDispatcher(t)

	d.Trigger(types.TriggerScreeningTypeKeywordChange, nil)

	require.Equal(t, []string{
		TagActiveScreeningTypes,
		TagAllScreeningTypes,
		TagScreeningTypes,
	}, inv.tags())
}

func TestDispatcherDocumentTypeChange(t *testing.T) {
	d, inv := newTestDispatcher(t)

	d.Trigger(types.TriggerDocumentTypeChange, types.TriggerContext{
		"patient_id": 7,
	})

	require.Equal(t, []string{TagDocumentTypes, PatientTag(7)}, inv.tags())
}

func TestDispatcherPatientDemographicChange(t *testing.T) {
	d, inv := newTestDispatcher(t)

	d.Trigger(types.TriggerPatientDemographicChange, types.TriggerContext{
		"patient_id": 7,
	})

	require.Equal(t, []string{PatientTag(7), TagPatientDemographics}, inv.tags())
}

func TestDispatcherMedicalDataSubsectionUpdate(t *testing.T) {
	d, inv := newTestDispatcher(t)

	d.Trigger(types.TriggerMedicalDataSubsectionUpdate, types.TriggerContext{
		"patient_id": 12,
		"data_type":  "labs",
	})

	require.Equal(t, []string{MedicalDataTag("labs"), PatientTag(12)}, inv.tags())
}

func TestDispatcherFloatIDFromDecodedJSON(t *testing.T) {
	d, inv := newTestDispatcher(t)

	// IDs arriving through JSON decode as float64.
	d.Trigger(types.TriggerPatientDemographicChange, types.TriggerContext{
		"patient_id": float64(9),
	})

	require.Contains(t, inv.tags(), PatientTag(9))
}

func TestDispatcherBatchTriggers(t *testing.T) {
	d, inv := newTestDispatcher(t)

	d.Trigger(types.TriggerBatchOperationStart, nil)
	d.Trigger(types.TriggerBatchOperationEnd, nil)

	require.Equal(t, 1, inv.batchBegins)
	require.Equal(t, 1, inv.batchEnds)
	require.Empty(t, inv.tags())
}

func TestDispatcherDuplicateTagsInvalidatedOnce(t *testing.T) {
	inv := &recordingInvalidator{}
	d := NewDispatcher(inv, logger.NewNopLogger())

	d.Register("custom_event", func(ctx types.TriggerContext) []string {
		return []string{"tag_a", "tag_b"}
	})
	d.Register("custom_event", func(ctx types.TriggerContext) []string {
		return []string{"tag_a"}
	})

	d.Trigger("custom_event", nil)

	require.Equal(t, []string{"tag_a", "tag_b"}, inv.tags())
}

func TestDispatcherPanickingHandlerRecovered(t *testing.T) {
	inv := &recordingInvalidator{}
	d := NewDispatcher(inv, logger.NewNopLogger())

	d.Register("custom_event", func(ctx types.TriggerContext) []string {
		panic("handler bug")
	})
	d.Register("custom_event", func(ctx types.TriggerContext) []string {
		return []string{"tag_survivor"}
	})

	require.NotPanics(t, func() {
		d.Trigger("custom_event", nil)
	})

	require.Equal(t, []string{"tag_survivor"}, inv.tags())
}

func TestDispatcherIgnoresInvalidRegistration(t *testing.T) {
	inv := &recordingInvalidator{}
	d := NewDispatcher(inv, logger.NewNopLogger())

	d.Register("", func(ctx types.TriggerContext) []string { return nil })
	d.Register("custom_event", nil)

	d.Trigger("custom_event", nil)
	require.Empty(t, inv.tags())
}

func TestDispatcherBatchedTriggersCoalesce(t *testing.T) {
	m, _ := newTestManager(t)
	d := NewDispatcher(m, logger.NewNopLogger())
	RegisterClinicHandlers(d)

	require.NoError(t, m.Set("screening_types:active", "a", 0, TagScreeningTypes, TagActiveScreeningTypes))
	require.NoError(t, m.Set("screening_types:all", "b", 0, TagScreeningTypes, TagAllScreeningTypes))
	require.NoError(t, m.Set("screening_type:3", "c", 0, TagScreeningTypes, ScreeningTypeTag(3)))

	d.Trigger(types.TriggerBatchOperationStart, nil)

	// A bulk import re-fires the same status change per row.
	for i := 0; i < 3; i++ {
		d.Trigger(types.TriggerScreeningTypeStatusChange, types.TriggerContext{
			"screening_type_id": 3,
		})
	}

	// Deferred: the keys stay live inside the window.
	_, found := m.Get("screening_types:active")
	require.True(t, found)

	d.Trigger(types.TriggerBatchOperationEnd, nil)

	for _, key := range []string{"screening_types:active", "screening_types:all", "screening_type:3"} {
		_, found := m.Get(key)
		require.False(t, found, key)
	}

	// Each target key was removed exactly once, not three times.
	stats := m.Stats()
	require.Equal(t, uint64(3), stats.Invalidations)
	require.Equal(t, uint64(3), stats.Evictions)
}

func TestDispatcherEndToEndWithManager(t *testing.T) {
	m, _ := newTestManager(t)
	d := NewDispatcher(m, logger.NewNopLogger())
	RegisterClinicHandlers(d)

	require.NoError(t, m.Set("screening_types:active", "a", 0, TagScreeningTypes, TagActiveScreeningTypes))
	require.NoError(t, m.Set("screening_types:all", "b", 0, TagScreeningTypes, TagAllScreeningTypes))
	require.NoError(t, m.Set("screening_type:3", "c", 0, TagScreeningTypes, ScreeningTypeTag(3)))
	require.NoError(t, m.Set("patient_demographics:7", "d", 0, TagPatientDemographics, PatientTag(7)))

	d.Trigger(types.TriggerScreeningTypeStatusChange, types.TriggerContext{
		"screening_type_id": 3,
	})

	for _, key := range []string{"screening_types:active", "screening_types:all", "screening_type:3"} {
		_, found := m.Get(key)
		require.False(t, found, key)
	}

	// Patient data is untouched by screening changes.
	_, found := m.Get("patient_demographics:7")
	require.True(t, found)

	// Each screening key was counted exactly once despite overlapping tags.
	require.Equal(t, uint64(3), m.Stats().Invalidations)
}
