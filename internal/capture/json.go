package capture

import (
	"encoding/json"
	"time"
)

// submissionJSON is the persisted wire shape of a submission capture.
type submissionJSON struct {
	Label      InputLabel `json:"label"`
	ObservedAt time.Time  `json:"observed_at"`
	RawBody    string     `json:"raw_body"`
	Fields     []Field    `json:"fields"`
}

// MarshalJSON serializes the capture including its derived field list, so
// persisted artifacts remain inspectable without re-parsing the raw body.
func (s *SubmissionCapture) MarshalJSON() ([]byte, error) {
	return json.Marshal(submissionJSON{
		Label:      s.label,
		ObservedAt: s.observedAt,
		RawBody:    s.rawBody,
		Fields:     s.fields,
	})
}

// UnmarshalJSON reconstructs a capture from its persisted shape. The field
// list is re-derived from the raw body, keeping the parse the single source
// of truth for round-trip compatibility.
func (s *SubmissionCapture) UnmarshalJSON(data []byte) error {
	var w submissionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return malformedWrap("submission", "decode json", err)
	}
	parsed, err := ParseSubmission(w.Label, w.ObservedAt, []byte(w.RawBody))
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
