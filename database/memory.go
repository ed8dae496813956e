package database

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mitfusco98/health-prep-sub002/types"
)

// MemorySource keeps clinic records in process maps. Used by tests and by
// deployments that run without an embedded document store.
type MemorySource struct {
	logger types.Logger

	mu             sync.RWMutex
	screeningTypes map[int]types.ScreeningType
	patients       map[int]types.PatientDemographics
	documentTypes  map[int]types.DocumentType

	running int32
}

func NewMemorySource(logger types.Logger) *MemorySource {
	return &MemorySource{
		logger:         logger,
		screeningTypes: make(map[int]types.ScreeningType),
		patients:       make(map[int]types.PatientDemographics),
		documentTypes:  make(map[int]types.DocumentType),
	}
}

func (m *MemorySource) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrManagerAlreadyRunning
	}
	return nil
}

func (m *MemorySource) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrManagerNotRunning
	}
	return nil
}

func (m *MemorySource) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *MemorySource) Ping(ctx context.Context) error {
	return nil
}

func (m *MemorySource) SeedScreeningType(st types.ScreeningType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screeningTypes[st.ID] = st
}

func (m *MemorySource) SeedPatient(p types.PatientDemographics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.PatientID] = p
}

func (m *MemorySource) SeedDocumentType(dt types.DocumentType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documentTypes[dt.ID] = dt
}

func (m *MemorySource) ActiveScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []types.ScreeningType
	for _, st := range m.screeningTypes {
		if st.Active {
			result = append(result, st)
		}
	}

	sortScreeningTypes(result)
	return result, nil
}

func (m *MemorySource) AllScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.ScreeningType, 0, len(m.screeningTypes))
	for _, st := range m.screeningTypes {
		result = append(result, st)
	}

	sortScreeningTypes(result)
	return result, nil
}

func (m *MemorySource) ScreeningTypeByID(ctx context.Context, id int) (*types.ScreeningType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, exists := m.screeningTypes[id]
	if !exists {
		return nil, types.Errorf(types.ErrRecordNotFound, "screening type %d", id)
	}

	return &st, nil
}

func (m *MemorySource) PatientDemographics(ctx context.Context, patientID int) (*types.PatientDemographics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.patients[patientID]
	if !exists {
		return nil, types.Errorf(types.ErrRecordNotFound, "patient %d", patientID)
	}

	return &p, nil
}

func (m *MemorySource) DocumentTypes(ctx context.Context) ([]types.DocumentType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.DocumentType, 0, len(m.documentTypes))
	for _, dt := range m.documentTypes {
		result = append(result, dt)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func sortScreeningTypes(sts []types.ScreeningType) {
	sort.Slice(sts, func(i, j int) bool { return sts[i].ID < sts[j].ID })
}
