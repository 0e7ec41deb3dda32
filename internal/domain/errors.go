package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreIndexOutOfRange = errors.New("store index out of range")
	ErrEditorBusy           = errors.New("another store entry is already being edited")
	ErrEditorIdle           = errors.New("no store entry is being edited")
	ErrInvalidRecord        = errors.New("invalid record")
	ErrRecordNotPersisted   = errors.New("record could not be persisted")
)

// ValidationRule names the directory rule an entry violated
type ValidationRule string

const (
	RuleInvalidURL          ValidationRule = "invalid_url"
	RuleDuplicateURL        ValidationRule = "duplicate_url"
	RuleMissingPlatform     ValidationRule = "missing_platform"
	RuleUnsupportedPlatform ValidationRule = "unsupported_platform"
)

// ValidationError is returned when a directory mutation is rejected
type ValidationError struct {
	Rule    ValidationRule `json:"rule"`
	Field   string         `json:"field"`
	Message string         `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AsValidationError unwraps err into a *ValidationError when it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
