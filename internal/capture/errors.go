package capture

import "fmt"

// MalformedCaptureError reports raw captured bytes that do not parse into
// the expected artifact shape. Analysis aborts for that artifact only;
// callers never receive a partially filled artifact alongside it.
type MalformedCaptureError struct {
	// Artifact names the artifact kind being parsed ("layout", "submission").
	Artifact string

	// Reason describes what was wrong with the input.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

func (e *MalformedCaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s capture: %s: %v", e.Artifact, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s capture: %s", e.Artifact, e.Reason)
}

func (e *MalformedCaptureError) Unwrap() error { return e.Err }

func malformed(artifact, reason string, args ...any) error {
	return &MalformedCaptureError{Artifact: artifact, Reason: fmt.Sprintf(reason, args...)}
}

func malformedWrap(artifact, reason string, err error) error {
	return &MalformedCaptureError{Artifact: artifact, Reason: reason, Err: err}
}
