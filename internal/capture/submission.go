package capture

import (
	"net/url"
	"strings"
	"time"
)

// InputLabel tags a submission capture with the input method that produced
// it. Two captures of the same credential under different labels are the
// controlled-variable pair the diff engine compares.
type InputLabel string

const (
	// LabelVirtual marks a submission typed through the on-screen keypad.
	LabelVirtual InputLabel = "virtual-input"

	// LabelHardware marks a submission typed through a physical (or
	// synthetic HID) keyboard.
	LabelHardware InputLabel = "hardware-input"
)

// Valid reports whether the label is one of the known input methods.
func (l InputLabel) Valid() bool {
	return l == LabelVirtual || l == LabelHardware
}

// Field is one name/value pair from a submission body, in capture order.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SubmissionCapture is one captured form submission.
//
// Fields are derived from RawBody by a lossless, order-preserving parse of
// the ordered key/value encoding. Order is kept for reproducibility; lookups
// are by name. Field names are case-sensitive and never repeat within one
// capture.
type SubmissionCapture struct {
	label      InputLabel
	observedAt time.Time
	rawBody    string
	fields     []Field
	index      map[string]int
}

// ParseSubmission parses a raw captured request body into a frozen
// submission capture. The body is an application/x-www-form-urlencoded
// key/value sequence; a duplicate field name or an empty body is a
// MalformedCaptureError, never a silently empty artifact.
func ParseSubmission(label InputLabel, observedAt time.Time, rawBody []byte) (*SubmissionCapture, error) {
	if !label.Valid() {
		return nil, malformed("submission", "unknown input label %q", string(label))
	}
	body := strings.TrimSpace(string(rawBody))
	if body == "" {
		return nil, malformed("submission", "empty body")
	}

	var fields []Field
	index := make(map[string]int)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			return nil, malformedWrap("submission", "field name "+name, err)
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, malformedWrap("submission", "field "+decodedName, err)
		}
		if decodedName == "" {
			return nil, malformed("submission", "field with empty name")
		}
		if _, dup := index[decodedName]; dup {
			return nil, malformed("submission", "duplicate field %q", decodedName)
		}
		index[decodedName] = len(fields)
		fields = append(fields, Field{Name: decodedName, Value: decodedValue})
	}
	if len(fields) == 0 {
		return nil, malformed("submission", "no fields")
	}

	return &SubmissionCapture{
		label:      label,
		observedAt: observedAt,
		rawBody:    string(rawBody),
		fields:     fields,
		index:      index,
	}, nil
}

// Label returns the input-method label.
func (s *SubmissionCapture) Label() InputLabel { return s.label }

// ObservedAt returns the timestamp the submission was captured.
func (s *SubmissionCapture) ObservedAt() time.Time { return s.observedAt }

// RawBody returns the opaque captured payload exactly as intercepted.
func (s *SubmissionCapture) RawBody() string { return s.rawBody }

// Fields returns the parsed fields in capture order. The returned slice is
// a copy.
func (s *SubmissionCapture) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldNames returns the field names in capture order.
func (s *SubmissionCapture) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Value returns the value for a field name and whether it exists.
func (s *SubmissionCapture) Value(name string) (string, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.fields[i].Value, true
}

// Len returns the number of fields.
func (s *SubmissionCapture) Len() int { return len(s.fields) }

// SessionMaterial assembles a read-only view of the locally known session
// values for derivation testing: every field of the capture by name.
func (s *SubmissionCapture) SessionMaterial() map[string]string {
	m := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		m[f.Name] = f.Value
	}
	return m
}
