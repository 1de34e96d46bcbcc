package models

// Error types attached to errors returned by the cullers. They are used as
// the error_type metrics label.
const (
	ErrTypeGeometryUnavailable  = "geometry-unavailable"
	ErrTypeInvalidConfiguration = "invalid-configuration"
	ErrTypeUnknownEntity        = "unknown-entity"
	ErrTypeInvalidQuery         = "invalid-query"
)
