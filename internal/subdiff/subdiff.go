// Package subdiff compares two full protocol submissions captured under
// controlled variable changes (typically input method) to isolate the
// fields carrying a hypothesized hidden signal.
//
// The engine is a structural set comparison: no cryptography, no state, the
// same two inputs always produce byte-identical reports.
package subdiff

import (
	"fmt"
	"sort"

	"padscope/internal/capture"
)

// ValueDivergence records a shared field whose values differ between the
// two captures.
type ValueDivergence struct {
	Field   string `json:"field"`
	ValueA  string `json:"value_a"`
	ValueB  string `json:"value_b"`
	LengthA int    `json:"length_a"`
	LengthB int    `json:"length_b"`
}

// LengthDelta returns |LengthA - LengthB|. Length-changing fields are the
// strongest timestamp/behavioral-data candidates and sort first.
func (v ValueDivergence) LengthDelta() int {
	d := v.LengthA - v.LengthB
	if d < 0 {
		return -d
	}
	return d
}

// DiffReport is the field-level comparison of two submission captures.
type DiffReport struct {
	LabelA capture.InputLabel `json:"label_a"`
	LabelB capture.InputLabel `json:"label_b"`

	// OnlyInA and OnlyInB preserve original field-capture order.
	OnlyInA []string `json:"only_in_a,omitempty"`
	OnlyInB []string `json:"only_in_b,omitempty"`

	// SharedFields is sorted by name so the set is identical regardless of
	// argument order.
	SharedFields []string `json:"shared_fields"`

	// Divergences is ordered by descending length delta, then field name.
	Divergences []ValueDivergence `json:"divergences,omitempty"`

	// ExpectedDivergences holds divergences on denylisted fields: fields
	// already known to legitimately differ per input method. They are kept
	// out of the interesting list but never discarded.
	ExpectedDivergences []ValueDivergence `json:"expected_divergences,omitempty"`
}

// Config configures the differ.
type Config struct {
	// ExpectedDivergent is the field-name denylist. Divergences on these
	// fields are reported separately as expected.
	ExpectedDivergent []string
}

// DefaultConfig returns the default differ configuration. The default
// denylist covers the password-hash-carrier fields the protocol replaces
// on every submission.
func DefaultConfig() Config {
	return Config{
		ExpectedDivergent: []string{"pwd", "password", "encPwd"},
	}
}

// Differ compares submission captures field by field.
type Differ struct {
	expected map[string]struct{}
}

// New creates a differ with the given configuration.
func New(cfg Config) *Differ {
	expected := make(map[string]struct{}, len(cfg.ExpectedDivergent))
	for _, name := range cfg.ExpectedDivergent {
		expected[name] = struct{}{}
	}
	return &Differ{expected: expected}
}

// Diff computes the field-level diff of two captures.
func (d *Differ) Diff(a, b *capture.SubmissionCapture) (*DiffReport, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("subdiff: nil capture")
	}

	report := &DiffReport{
		LabelA: a.Label(),
		LabelB: b.Label(),
	}

	for _, name := range a.FieldNames() {
		if _, ok := b.Value(name); !ok {
			report.OnlyInA = append(report.OnlyInA, name)
		} else {
			report.SharedFields = append(report.SharedFields, name)
		}
	}
	for _, name := range b.FieldNames() {
		if _, ok := a.Value(name); !ok {
			report.OnlyInB = append(report.OnlyInB, name)
		}
	}
	sort.Strings(report.SharedFields)

	for _, name := range report.SharedFields {
		va, _ := a.Value(name)
		vb, _ := b.Value(name)
		if va == vb {
			continue
		}
		div := ValueDivergence{
			Field:   name,
			ValueA:  va,
			ValueB:  vb,
			LengthA: len(va),
			LengthB: len(vb),
		}
		if _, expected := d.expected[name]; expected {
			report.ExpectedDivergences = append(report.ExpectedDivergences, div)
		} else {
			report.Divergences = append(report.Divergences, div)
		}
	}

	orderDivergences(report.Divergences)
	orderDivergences(report.ExpectedDivergences)
	return report, nil
}

// orderDivergences sorts by descending length delta, then field name.
func orderDivergences(divs []ValueDivergence) {
	sort.SliceStable(divs, func(i, j int) bool {
		di, dj := divs[i].LengthDelta(), divs[j].LengthDelta()
		if di != dj {
			return di > dj
		}
		return divs[i].Field < divs[j].Field
	})
}
