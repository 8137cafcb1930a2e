package correction

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDisabled is returned when no LLM provider is configured.
var ErrDisabled = errors.New("grading is disabled: no LLM provider configured")

// Stage names the step of the correction pipeline that failed.
type Stage string

// Correction stages.
const (
	StageRead    Stage = "read"
	StageExtract Stage = "extract"
	StageGrade   Stage = "grade"
)

// CopyError is a failure to correct one copy. The copy is marked failed with Reason().
type CopyError struct {
	CopyID uuid.UUID
	Stage  Stage
	Cause  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s: %s failed: %v", e.CopyID, e.Stage, e.Cause)
}

func (e *CopyError) Unwrap() error {
	return e.Cause
}

// Reason is the message stored on the failed copy.
func (e *CopyError) Reason() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}
