package accessors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mitfusco98/health-prep-sub002/cache"
	"github.com/mitfusco98/health-prep-sub002/database"
	"github.com/mitfusco98/health-prep-sub002/logger"
	"github.com/mitfusco98/health-prep-sub002/types"
)

// countingSource wraps the in-memory source and records how often the cache
// falls through to it.
type countingSource struct {
	*database.MemorySource
	calls map[string]int
}

func newCountingSource() *countingSource {
	return &countingSource{
		MemorySource: database.NewMemorySource(logger.NewNopLogger()),
		calls:        make(map[string]int),
	}
}

func (s *countingSource) ActiveScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	s.calls["active_screening_types"]++
	return s.MemorySource.ActiveScreeningTypes(ctx)
}

func (s *countingSource) AllScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	s.calls["all_screening_types"]++
	return s.MemorySource.AllScreeningTypes(ctx)
}

func (s *countingSource) ScreeningTypeByID(ctx context.Context, id int) (*types.ScreeningType, error) {
	s.calls["screening_type_by_id"]++
	return s.MemorySource.ScreeningTypeByID(ctx, id)
}

func (s *countingSource) PatientDemographics(ctx context.Context, patientID int) (*types.PatientDemographics, error) {
	s.calls["patient_demographics"]++
	return s.MemorySource.PatientDemographics(ctx, patientID)
}

func (s *countingSource) DocumentTypes(ctx context.Context) ([]types.DocumentType, error) {
	s.calls["document_types"]++
	return s.MemorySource.DocumentTypes(ctx)
}

func newTestAccessors(t *testing.T) (*Accessors, *cache.Manager, *countingSource) {
	t.Helper()

	m, err := cache.NewManager(context.Background(), logger.NewNopLogger(), &types.CacheConfig{
		DefaultTTL: 5 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Stop() })

	source := newCountingSource()
	source.SeedScreeningType(types.ScreeningType{ID: 1, Name: "Mammogram", Active: true})
	source.SeedScreeningType(types.ScreeningType{ID: 2, Name: "Colonoscopy", Active: false})
	source.SeedPatient(types.PatientDemographics{PatientID: 7, FirstName: "Jane", LastName: "Roe", MRN: "MRN-0007"})
	source.SeedDocumentType(types.DocumentType{ID: 1, Name: "Lab Report"})

	return New(m, source, logger.NewNopLogger(), time.Minute), m, source
}

func TestActiveScreeningTypesReadThrough(t *testing.T) {
	a, _, source := newTestAccessors(t)
	ctx := context.Background()

	active, err := a.ActiveScreeningTypes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Mammogram", active[0].Name)

	// Second read is served from cache.
	active, err = a.ActiveScreeningTypes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, 1, source.calls["active_screening_types"])
}

func TestAllScreeningTypesSortedByID(t *testing.T) {
	a, _, _ := newTestAccessors(t)

	all, err := a.AllScreeningTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 1, all[0].ID)
	require.Equal(t, 2, all[1].ID)
}

func TestScreeningTypeByID(t *testing.T) {
	a, _, source := newTestAccessors(t)
	ctx := context.Background()

	st, err := a.ScreeningTypeByID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Colonoscopy", st.Name)

	_, err = a.ScreeningTypeByID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, source.calls["screening_type_by_id"])
}

func TestScreeningTypeNotFoundNotCached(t *testing.T) {
	a, m, source := newTestAccessors(t)
	ctx := context.Background()

	_, err := a.ScreeningTypeByID(ctx, 99)
	require.ErrorIs(t, err, types.ErrRecordNotFound)

	_, err = a.ScreeningTypeByID(ctx, 99)
	require.ErrorIs(t, err, types.ErrRecordNotFound)

	// Every miss fell through: the failure was never cached.
	require.Equal(t, 2, source.calls["screening_type_by_id"])
	_, found := m.Get("screening_type:99")
	require.False(t, found)
}

func TestPatientDemographicsCachedUnderPatientTag(t *testing.T) {
	a, m, source := newTestAccessors(t)
	ctx := context.Background()

	p, err := a.PatientDemographics(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "MRN-0007", p.MRN)

	// The entry lives under the documented key.
	_, found := m.Get("patient_demographics:7")
	require.True(t, found)

	// A demographic edit for this patient drops it; the next read refetches.
	require.Equal(t, 1, m.InvalidateByTag(cache.PatientTag(7)))

	p, err = a.PatientDemographics(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "Roe", p.LastName)
	require.Equal(t, 2, source.calls["patient_demographics"])
}

func TestDocumentTypesInvalidatedByTag(t *testing.T) {
	a, m, source := newTestAccessors(t)
	ctx := context.Background()

	docs, err := a.DocumentTypes(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.Equal(t, 1, m.InvalidateByTag(cache.TagDocumentTypes))

	_, err = a.DocumentTypes(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls["document_types"])
}

func TestScreeningListingsShareScreeningTypesTag(t *testing.T) {
	a, m, source := newTestAccessors(t)
	ctx := context.Background()

	_, err := a.ActiveScreeningTypes(ctx)
	require.NoError(t, err)
	_, err = a.AllScreeningTypes(ctx)
	require.NoError(t, err)

	// One screening edit invalidates both listings at once.
	require.Equal(t, 2, m.InvalidateByTag(cache.TagScreeningTypes))

	_, err = a.ActiveScreeningTypes(ctx)
	require.NoError(t, err)
	_, err = a.AllScreeningTypes(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls["active_screening_types"])
	require.Equal(t, 2, source.calls["all_screening_types"])
}

func TestDecodeJSONRoundTrippedValue(t *testing.T) {
	a, m, _ := newTestAccessors(t)
	ctx := context.Background()

	// Simulate a value that came back from the durable backend as generic
	// JSON rather than the concrete slice type.
	require.NoError(t, m.Set("screening_types:active", []interface{}{
		map[string]interface{}{"id": float64(1), "name": "Mammogram", "active": true},
	}, time.Minute, cache.TagScreeningTypes, cache.TagActiveScreeningTypes))

	active, err := a.ActiveScreeningTypes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Mammogram", active[0].Name)
}

func TestRegisterWarmPopulatesHotKeys(t *testing.T) {
	a, m, source := newTestAccessors(t)

	warmer := cache.NewWarmer(logger.NewNopLogger())
	a.RegisterWarm(warmer)

	require.NoError(t, warmer.Warm(context.Background()))

	_, found := m.Get("screening_types:active")
	require.True(t, found)
	_, found = m.Get("document_types")
	require.True(t, found)

	// Subsequent reads come from the warmed cache.
	_, err := a.ActiveScreeningTypes(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, source.calls["active_screening_types"])
}
