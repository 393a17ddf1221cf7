package transcribe

import (
	"errors"
	"fmt"
)

// FailureClass groups provider failures by how the pipeline must react.
type FailureClass string

const (
	// ClassAuthentication means the shared credential was rejected. Fatal
	// for the whole batch, not just one file.
	ClassAuthentication FailureClass = "authentication"
	// ClassRateLimit means the provider throttled this call.
	ClassRateLimit FailureClass = "rate_limit"
	// ClassInvalidRequest means the provider rejected this file's content.
	ClassInvalidRequest FailureClass = "invalid_request"
	// ClassTransient covers network failures and provider 5xx responses.
	ClassTransient FailureClass = "transient"
)

// ProviderError is a classified failure from the transcription provider.
// The message must never contain the caller's credential.
type ProviderError struct {
	Class   FailureClass
	Status  int // HTTP status, 0 for transport errors
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Class, e.Status, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Class, e.Message)
}

// IsAuthentication reports whether err is a credential rejection.
func IsAuthentication(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassAuthentication
}

// IsRateLimit reports whether err is provider throttling.
func IsRateLimit(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassRateLimit
}
