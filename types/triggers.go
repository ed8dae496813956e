package types

const (
	TriggerScreeningTypeKeywordChange  = "screening_type_keyword_change"
	TriggerScreeningTypeStatusChange   = "screening_type_status_change"
	TriggerDocumentTypeChange          = "document_type_change"
	TriggerPatientDemographicChange    = "patient_demographic_change"
	TriggerMedicalDataSubsectionUpdate = "medical_data_subsection_update"
	TriggerBatchOperationStart         = "batch_operation_start"
	TriggerBatchOperationEnd           = "batch_operation_end"
)

// TriggerContext carries the domain event payload, e.g. patient_id or
// screening_type_id. Handlers read what they need and ignore the rest.
type TriggerContext map[string]interface{}

// Int extracts an integer field, accepting the numeric types that survive a
// JSON round trip.
func (tc TriggerContext) Int(key string) (int, bool) {
	v, ok := tc[key]
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}

	return 0, false
}

func (tc TriggerContext) String(key string) (string, bool) {
	v, ok := tc[key]
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	return s, ok
}

// TriggerHandler turns a domain event into the tags that must be invalidated.
// A panicking handler is recovered and logged by the dispatcher and never
// prevents sibling handlers from running.
type TriggerHandler func(ctx TriggerContext) []string

type TriggerDispatcher interface {
	Register(triggerType string, handler TriggerHandler)
	Trigger(triggerType string, ctx TriggerContext)
}
