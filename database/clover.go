package database

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/types"
	"github.com/mitfusco98/health-prep-sub002/utils"
)

const (
	collectionPatients       = "patients"
	collectionScreeningTypes = "screening_types"
	collectionDocumentTypes  = "document_types"
)

type sourceState int32

const (
	sourceStateStopped sourceState = iota
	sourceStateStarting
	sourceStateRunning
	sourceStateStopping
)

// CloverSource persists clinic records in an embedded CloverDB document
// store. An empty path opens an in-memory database.
type CloverSource struct {
	db     *clover.DB
	logger types.Logger
	config *types.DatabaseConfig
	state  atomic.Value
}

func NewCloverSource(ctx context.Context, logger types.Logger, config *types.DatabaseConfig) (*CloverSource, error) {
	db, err := clover.Open(config.Path)
	if err != nil {
		return nil, types.WrapError(err, "failed to open CloverDB")
	}

	source := &CloverSource{
		db:     db,
		logger: logger,
		config: config,
	}

	source.state.Store(sourceStateStopped)

	for _, collection := range []string{collectionPatients, collectionScreeningTypes, collectionDocumentTypes} {
		if err := source.ensureCollection(collection); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return source, nil
}

func (c *CloverSource) Start() error {
	if !c.transitionState(sourceStateStopped, sourceStateStarting) {
		return types.ErrManagerAlreadyRunning
	}

	defer func() {
		if c.getState() == sourceStateStarting {
			c.setState(sourceStateRunning)
		}
	}()

	c.logger.Info("CloverDB source started", zap.String("path", c.config.Path))
	return nil
}

func (c *CloverSource) Stop() error {
	if !c.transitionState(sourceStateRunning, sourceStateStopping) {
		return types.ErrManagerNotRunning
	}

	defer func() {
		c.setState(sourceStateStopped)
	}()

	if err := c.db.Close(); err != nil {
		return types.WrapError(err, "failed to close CloverDB")
	}

	c.logger.Info("CloverDB source stopped gracefully")
	return nil
}

func (c *CloverSource) IsRunning() bool {
	return c.getState() == sourceStateRunning
}

func (c *CloverSource) Ping(ctx context.Context) error {
	_, err := c.db.HasCollection(collectionPatients)
	if err != nil {
		return types.WrapError(err, "CloverDB ping failed")
	}
	return nil
}

func (c *CloverSource) ActiveScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	docs, err := c.db.Query(collectionScreeningTypes).
		Where(clover.Field("active").Eq(true)).
		Sort(clover.SortOption{Field: "id", Direction: 1}).
		FindAll()
	if err != nil {
		return nil, types.WrapError(err, "failed to query active screening types")
	}

	return decodeDocs[types.ScreeningType](c.logger, docs), nil
}

func (c *CloverSource) AllScreeningTypes(ctx context.Context) ([]types.ScreeningType, error) {
	docs, err := c.db.Query(collectionScreeningTypes).
		Sort(clover.SortOption{Field: "id", Direction: 1}).
		FindAll()
	if err != nil {
		return nil, types.WrapError(err, "failed to query screening types")
	}

	return decodeDocs[types.ScreeningType](c.logger, docs), nil
}

func (c *CloverSource) ScreeningTypeByID(ctx context.Context, id int) (*types.ScreeningType, error) {
	doc, err := c.db.Query(collectionScreeningTypes).
		Where(clover.Field("id").Eq(id)).
		FindFirst()
	if err != nil {
		return nil, types.WrapError(err, "failed to query screening type")
	}

	if doc == nil {
		return nil, types.Errorf(types.ErrRecordNotFound, "screening type %d", id)
	}

	var st types.ScreeningType
	if err := doc.Unmarshal(&st); err != nil {
		return nil, types.WrapError(err, "failed to unmarshal screening type")
	}

	return &st, nil
}

func (c *CloverSource) PatientDemographics(ctx context.Context, patientID int) (*types.PatientDemographics, error) {
	doc, err := c.db.Query(collectionPatients).
		Where(clover.Field("patient_id").Eq(patientID)).
		FindFirst()
	if err != nil {
		return nil, types.WrapError(err, "failed to query patient")
	}

	if doc == nil {
		return nil, types.Errorf(types.ErrRecordNotFound, "patient %d", patientID)
	}

	var p types.PatientDemographics
	if err := doc.Unmarshal(&p); err != nil {
		return nil, types.WrapError(err, "failed to unmarshal patient")
	}

	return &p, nil
}

func (c *CloverSource) DocumentTypes(ctx context.Context) ([]types.DocumentType, error) {
	docs, err := c.db.Query(collectionDocumentTypes).
		Sort(clover.SortOption{Field: "id", Direction: 1}).
		FindAll()
	if err != nil {
		return nil, types.WrapError(err, "failed to query document types")
	}

	return decodeDocs[types.DocumentType](c.logger, docs), nil
}

func (c *CloverSource) InsertScreeningType(st types.ScreeningType) error {
	return c.insert(collectionScreeningTypes, st)
}

func (c *CloverSource) InsertPatient(p types.PatientDemographics) error {
	return c.insert(collectionPatients, p)
}

func (c *CloverSource) InsertDocumentType(dt types.DocumentType) error {
	return c.insert(collectionDocumentTypes, dt)
}

func (c *CloverSource) insert(collection string, record interface{}) error {
	data, err := utils.Marshal(record)
	if err != nil {
		return types.WrapError(err, "failed to marshal record")
	}

	dataMap := make(map[string]interface{})
	if err := utils.UnmarshalAny(data, &dataMap); err != nil {
		return types.WrapError(err, "failed to convert record")
	}
	dataMap["internal_id"] = uuid.New().String()

	doc := clover.NewDocument()
	for key, value := range dataMap {
		doc.Set(key, value)
	}

	if err := c.db.Insert(collection, doc); err != nil {
		return types.WrapError(err, "failed to insert record")
	}

	return nil
}

func (c *CloverSource) ensureCollection(name string) error {
	exists, err := c.db.HasCollection(name)
	if err != nil {
		return types.WrapError(err, "failed to check collection existence")
	}

	if exists {
		return nil
	}

	if err := c.db.CreateCollection(name); err != nil {
		return types.WrapError(err, "failed to create collection")
	}

	return nil
}

func decodeDocs[T any](logger types.Logger, docs []*clover.Document) []T {
	result := make([]T, 0, len(docs))
	for _, doc := range docs {
		var record T
		if err := doc.Unmarshal(&record); err != nil {
			logger.Warn("Skipping undecodable document", zap.Error(err))
			continue
		}
		result = append(result, record)
	}
	return result
}

func (c *CloverSource) getState() sourceState {
	return c.state.Load().(sourceState)
}

func (c *CloverSource) setState(newState sourceState) bool {
	currentState := c.getState()
	return c.state.CompareAndSwap(currentState, newState)
}

func (c *CloverSource) transitionState(from, to sourceState) bool {
	return c.state.CompareAndSwap(from, to)
}
