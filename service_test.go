package healthprep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mitfusco98/health-prep-sub002/database"
	"github.com/mitfusco98/health-prep-sub002/types"
)

type staticConfig struct {
	config *types.ServiceConfig
}

func (s *staticConfig) Load() error { return nil }

func (s *staticConfig) GetConfig() *types.ServiceConfig { return s.config }

func (s *staticConfig) GetValue(path string, defaultValue interface{}) interface{} {
	return defaultValue
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewServiceWithConfig(context.Background(), &staticConfig{
		config: &types.ServiceConfig{
			Name:    "clinic-cache-test",
			Version: "0.0.1",
			Cache: &types.CacheConfig{
				DefaultTTL: time.Minute,
				Warm:       true,
			},
			Database: &types.DatabaseConfig{Type: "memory"},
			Metrics:  &types.MetricsConfig{Enabled: true, Type: "memory"},
		},
	})
	require.NoError(t, err)

	source, ok := svc.Source.(*database.MemorySource)
	require.True(t, ok)
	source.SeedScreeningType(types.ScreeningType{ID: 1, Name: "Mammogram", Active: true})
	source.SeedPatient(types.PatientDemographics{PatientID: 7, FirstName: "Jane", LastName: "Roe"})
	source.SeedDocumentType(types.DocumentType{ID: 1, Name: "Lab Report"})

	require.NoError(t, svc.Start())
	t.Cleanup(func() {
		if svc.IsRunning() {
			require.NoError(t, svc.Stop())
		}
	})

	return svc
}

func TestServiceStartWarmsHotKeys(t *testing.T) {
	svc := newTestService(t)

	// The warm pass already populated the listings; this read is a hit.
	_, found := svc.Cache.Get("screening_types:active")
	require.True(t, found)
	_, found = svc.Cache.Get("document_types")
	require.True(t, found)
}

func TestServiceTriggerInvalidatesAccessorReads(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Accessors.PatientDemographics(ctx, 7)
	require.NoError(t, err)

	_, found := svc.Cache.Get("patient_demographics:7")
	require.True(t, found)

	svc.Trigger(types.TriggerPatientDemographicChange, types.TriggerContext{"patient_id": 7})

	_, found = svc.Cache.Get("patient_demographics:7")
	require.False(t, found)
}

func TestServiceBatchTriggerCoalesces(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Accessors.ActiveScreeningTypes(ctx)
	require.NoError(t, err)

	svc.Trigger(types.TriggerBatchOperationStart, nil)
	require.True(t, svc.Cache.Stats().BatchActive)

	svc.Trigger(types.TriggerScreeningTypeStatusChange, types.TriggerContext{"screening_type_id": 1})

	// Deferred: still cached inside the window.
	_, found := svc.Cache.Get("screening_types:active")
	require.True(t, found)

	svc.Trigger(types.TriggerBatchOperationEnd, nil)

	_, found = svc.Cache.Get("screening_types:active")
	require.False(t, found)
}

func TestServiceHealthReport(t *testing.T) {
	svc := newTestService(t)

	report := svc.Health.Check(context.Background())
	require.Equal(t, types.StatusUnknown, report.Status)

	// Cache runs without a durable backend here, which degrades its check
	// to unknown; the clinic source stays healthy.
	require.Equal(t, types.StatusUnknown, report.Checks["cache"].Status)
	require.Equal(t, types.StatusHealthy, report.Checks["clinic_source"].Status)
}

func TestServiceStopIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Stop())
	require.ErrorIs(t, svc.Stop(), types.ErrServiceIsNotRunning)
}
