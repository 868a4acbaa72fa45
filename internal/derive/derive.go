// Package derive enumerates candidate construction formulas over known
// session material and checks each against an observed opaque submission
// field, per character position.
//
// Hypotheses are data: named pure functions, independently testable and
// orderable. The engine never infers a formula; it only reports pass/fail
// per explicit hypothesis, first match wins. The research loop is "add one
// more hypothesis, rerun the whole set", so evaluation is cheap and
// side-effect free.
package derive

import (
	"fmt"
	"sort"
	"sync"

	"padscope/internal/capture"
)

// Hypothesis is one candidate derivation formula for an opaque field
// segment. Eval must be pure: same inputs, same output, no captured-time
// side effects.
type Hypothesis struct {
	Name string
	Eval func(material map[string]string, ch byte, pos int) string
}

// PositionStatus classifies the outcome for one plaintext position.
type PositionStatus string

const (
	// StatusMatched means exactly one hypothesis reproduced the segment.
	StatusMatched PositionStatus = "matched"

	// StatusUnresolved means no enumerated hypothesis reproduced the
	// segment. The engine never guesses.
	StatusUnresolved PositionStatus = "unresolved"

	// StatusDegenerate means more than one hypothesis reproduced the
	// segment: the hypothesis set has overlapping formulas and needs
	// pruning. Warning only, analysis completes.
	StatusDegenerate PositionStatus = "degenerate"
)

// PositionResult is the outcome for one plaintext character position.
type PositionResult struct {
	Position int            `json:"position"`
	Segment  string         `json:"segment"`
	Status   PositionStatus `json:"status"`

	// Matched names the first matching hypothesis; empty when unresolved.
	Matched      string `json:"matched,omitempty"`
	MatchedIndex int    `json:"matched_index"`

	// Degenerate lists later hypotheses that also matched.
	Degenerate []string `json:"degenerate,omitempty"`
}

// Result aggregates per-position outcomes for one derivation test.
type Result struct {
	Field        string           `json:"field"`
	SegmentWidth int              `json:"segment_width"`
	Positions    []PositionResult `json:"positions"`

	// FullyResolved is true iff every position matched exactly one
	// hypothesis.
	FullyResolved bool `json:"fully_resolved"`
}

// SegmentCountMismatchError reports an opaque field whose length does not
// divide into one fixed-width segment per plaintext character. Continuing
// would silently mis-align segments to characters, so the test call fails
// instead of attempting a partial match.
type SegmentCountMismatchError struct {
	Field        string
	ValueLen     int
	SegmentWidth int
	Segments     int
	PlaintextLen int
}

func (e *SegmentCountMismatchError) Error() string {
	if e.ValueLen%e.SegmentWidth != 0 {
		return fmt.Sprintf("segment count mismatch: field %q length %d is not divisible by width %d",
			e.Field, e.ValueLen, e.SegmentWidth)
	}
	return fmt.Sprintf("segment count mismatch: field %q splits into %d segments for %d plaintext characters",
		e.Field, e.Segments, e.PlaintextLen)
}

// Test evaluates the ordered hypothesis set against the named opaque field
// of a submission capture, one fixed-width segment per plaintext character.
func Test(sub *capture.SubmissionCapture, plaintext, segmentField string, segmentWidth int, hypotheses []Hypothesis) (*Result, error) {
	return run(sub, plaintext, segmentField, segmentWidth, hypotheses, 1)
}

// TestParallel behaves like Test but evaluates (position, hypothesis) pairs
// across the given number of workers. First-match-wins is preserved by
// taking the minimum hypothesis index per position after all evaluations
// complete, never by racing.
func TestParallel(sub *capture.SubmissionCapture, plaintext, segmentField string, segmentWidth int, hypotheses []Hypothesis, workers int) (*Result, error) {
	if workers < 1 {
		workers = 1
	}
	return run(sub, plaintext, segmentField, segmentWidth, hypotheses, workers)
}

func run(sub *capture.SubmissionCapture, plaintext, segmentField string, segmentWidth int, hypotheses []Hypothesis, workers int) (*Result, error) {
	if sub == nil {
		return nil, fmt.Errorf("derive: nil capture")
	}
	if segmentWidth <= 0 {
		return nil, fmt.Errorf("derive: invalid segment width %d", segmentWidth)
	}
	if plaintext == "" {
		return nil, fmt.Errorf("derive: empty plaintext")
	}
	value, ok := sub.Value(segmentField)
	if !ok {
		return nil, fmt.Errorf("derive: field %q not present in capture", segmentField)
	}

	segments, err := splitSegments(segmentField, value, segmentWidth, len(plaintext))
	if err != nil {
		return nil, err
	}

	material := sub.SessionMaterial()

	matches := make([][]int, len(plaintext)) // per position: matching hypothesis indices
	if workers == 1 {
		// Byte indexing, not range: range over a string walks rune starts
		// and would skip segments aligned to continuation bytes.
		for pos := 0; pos < len(plaintext); pos++ {
			matches[pos] = evalPosition(material, plaintext[pos], pos, segments[pos], hypotheses)
		}
	} else {
		evalPositionsParallel(material, plaintext, segments, hypotheses, workers, matches)
	}

	result := &Result{
		Field:         segmentField,
		SegmentWidth:  segmentWidth,
		FullyResolved: true,
	}
	for pos := 0; pos < len(plaintext); pos++ {
		pr := PositionResult{
			Position:     pos,
			Segment:      segments[pos],
			MatchedIndex: -1,
		}
		switch hits := matches[pos]; len(hits) {
		case 0:
			pr.Status = StatusUnresolved
			result.FullyResolved = false
		case 1:
			pr.Status = StatusMatched
			pr.MatchedIndex = hits[0]
			pr.Matched = hypotheses[hits[0]].Name
		default:
			pr.Status = StatusDegenerate
			pr.MatchedIndex = hits[0]
			pr.Matched = hypotheses[hits[0]].Name
			for _, k := range hits[1:] {
				pr.Degenerate = append(pr.Degenerate, hypotheses[k].Name)
			}
			result.FullyResolved = false
		}
		result.Positions = append(result.Positions, pr)
	}
	return result, nil
}

// splitSegments cuts the field value into fixed-width segments, one per
// plaintext character.
func splitSegments(field, value string, width, plaintextLen int) ([]string, error) {
	if len(value)%width != 0 {
		return nil, &SegmentCountMismatchError{
			Field:        field,
			ValueLen:     len(value),
			SegmentWidth: width,
			Segments:     len(value) / width,
			PlaintextLen: plaintextLen,
		}
	}
	count := len(value) / width
	if count != plaintextLen {
		return nil, &SegmentCountMismatchError{
			Field:        field,
			ValueLen:     len(value),
			SegmentWidth: width,
			Segments:     count,
			PlaintextLen: plaintextLen,
		}
	}
	segments := make([]string, count)
	for i := range segments {
		segments[i] = value[i*width : (i+1)*width]
	}
	return segments, nil
}

// evalPosition evaluates all hypotheses in order for one position and
// returns the indices of those whose output equals the segment exactly.
func evalPosition(material map[string]string, ch byte, pos int, segment string, hypotheses []Hypothesis) []int {
	var hits []int
	for k, h := range hypotheses {
		if h.Eval(material, ch, pos) == segment {
			hits = append(hits, k)
		}
	}
	return hits
}

// evalPositionsParallel fans (position, hypothesis) pairs out to workers.
// Hit indices are sorted per position afterwards so the minimum-index match
// wins regardless of completion order.
func evalPositionsParallel(material map[string]string, plaintext string, segments []string, hypotheses []Hypothesis, workers int, matches [][]int) {
	type pair struct{ pos, hyp int }
	type hit struct{ pos, hyp int }

	pairs := make(chan pair)
	hits := make(chan hit, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pairs {
				if hypotheses[p.hyp].Eval(material, plaintext[p.pos], p.pos) == segments[p.pos] {
					hits <- hit{pos: p.pos, hyp: p.hyp}
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for h := range hits {
			matches[h.pos] = append(matches[h.pos], h.hyp)
		}
	}()

	for pos := 0; pos < len(plaintext); pos++ {
		for k := range hypotheses {
			pairs <- pair{pos: pos, hyp: k}
		}
	}
	close(pairs)
	wg.Wait()
	close(hits)
	<-done

	for pos := range matches {
		sort.Ints(matches[pos])
	}
}
