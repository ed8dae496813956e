package types

import (
	"context"
	"time"
)

// ClinicSource is the authoritative persistence layer behind the cache.
// The cache never owns this data; a miss always falls through to the source.
type ClinicSource interface {
	LifecycleManager
	ActiveScreeningTypes(ctx context.Context) ([]ScreeningType, error)
	AllScreeningTypes(ctx context.Context) ([]ScreeningType, error)
	ScreeningTypeByID(ctx context.Context, id int) (*ScreeningType, error)
	PatientDemographics(ctx context.Context, patientID int) (*PatientDemographics, error)
	DocumentTypes(ctx context.Context) ([]DocumentType, error)
	Ping(ctx context.Context) error
}

type ScreeningType struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Keywords  []string  `json:"keywords"`
	Active    bool      `json:"active"`
	MinAge    int       `json:"min_age"`
	MaxAge    int       `json:"max_age"`
	Gender    string    `json:"gender"`
	Frequency string    `json:"frequency"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PatientDemographics struct {
	PatientID   int       `json:"patient_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	MRN         string    `json:"mrn"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DocumentType struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
