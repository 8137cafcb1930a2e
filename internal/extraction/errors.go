package extraction

import "fmt"

// UnsupportedTypeError is returned for documents the extractor cannot read.
type UnsupportedTypeError struct {
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %q (accepted: PDF, plain text, PNG, JPEG, WebP)", e.ContentType)
}

// Error represents a failure to obtain text from a document
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
