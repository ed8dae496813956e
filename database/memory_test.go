package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitfusco98/health-prep-sub002/logger"
	"github.com/mitfusco98/health-prep-sub002/types"
)

func newSeededSource(t *testing.T) *MemorySource {
	t.Helper()

	source := NewMemorySource(logger.NewNopLogger())
	source.SeedScreeningType(types.ScreeningType{ID: 2, Name: "Colonoscopy", Active: false})
	source.SeedScreeningType(types.ScreeningType{ID: 1, Name: "Mammogram", Active: true})
	source.SeedPatient(types.PatientDemographics{PatientID: 7, FirstName: "Jane", LastName: "Roe"})
	source.SeedDocumentType(types.DocumentType{ID: 2, Name: "Imaging"})
	source.SeedDocumentType(types.DocumentType{ID: 1, Name: "Lab Report"})

	return source
}

func TestMemorySourceActiveScreeningTypes(t *testing.T) {
	source := newSeededSource(t)

	active, err := source.ActiveScreeningTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Mammogram", active[0].Name)
}

func TestMemorySourceAllScreeningTypesSorted(t *testing.T) {
	source := newSeededSource(t)

	all, err := source.AllScreeningTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 1, all[0].ID)
	require.Equal(t, 2, all[1].ID)
}

func TestMemorySourceScreeningTypeByID(t *testing.T) {
	source := newSeededSource(t)

	st, err := source.ScreeningTypeByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Mammogram", st.Name)

	_, err = source.ScreeningTypeByID(context.Background(), 42)
	require.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestMemorySourcePatientDemographics(t *testing.T) {
	source := newSeededSource(t)

	p, err := source.PatientDemographics(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Roe", p.LastName)

	_, err = source.PatientDemographics(context.Background(), 404)
	require.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestMemorySourceDocumentTypesSorted(t *testing.T) {
	source := newSeededSource(t)

	docs, err := source.DocumentTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "Lab Report", docs[0].Name)
}

func TestMemorySourceLifecycle(t *testing.T) {
	source := NewMemorySource(logger.NewNopLogger())

	require.False(t, source.IsRunning())
	require.NoError(t, source.Start())
	require.True(t, source.IsRunning())
	require.ErrorIs(t, source.Start(), types.ErrManagerAlreadyRunning)

	require.NoError(t, source.Stop())
	require.ErrorIs(t, source.Stop(), types.ErrManagerNotRunning)
}

func TestNewSourceFactory(t *testing.T) {
	log := logger.NewNopLogger()

	source, err := NewSource(context.Background(), log, &types.DatabaseConfig{Type: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemorySource{}, source)

	_, err = NewSource(context.Background(), log, &types.DatabaseConfig{Type: "postgres"})
	require.ErrorIs(t, err, types.ErrDatabaseTypeUnknown)

	_, err = NewSource(context.Background(), log, nil)
	require.ErrorIs(t, err, types.ErrConfigIsNil)
}
