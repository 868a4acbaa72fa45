package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padscope/internal/capture"
	"padscope/internal/subdiff"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "padscope.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "padscope.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureSession("sess-1"))
}

func TestEnsureSessionIdempotent(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.EnsureSession("sess-1"))
	require.NoError(t, s.EnsureSession("sess-1"))
	require.NoError(t, s.EnsureSession("sess-2"))

	ids, err := s.Sessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1", "sess-2"}, ids)
}

func TestSubmissionRoundTrip(t *testing.T) {
	s := createTestStore(t)

	older, err := capture.ParseSubmission(capture.LabelVirtual,
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), []byte("id=x&encPwd=aaaa"))
	require.NoError(t, err)
	newer, err := capture.ParseSubmission(capture.LabelVirtual,
		time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), []byte("id=x&encPwd=bbbb"))
	require.NoError(t, err)

	_, err = s.InsertSubmission("sess-1", older)
	require.NoError(t, err)
	_, err = s.InsertSubmission("sess-1", newer)
	require.NoError(t, err)

	got, err := s.LatestSubmission("sess-1", capture.LabelVirtual)
	require.NoError(t, err)
	v, ok := got.Value("encPwd")
	require.True(t, ok)
	assert.Equal(t, "bbbb", v, "latest by observed_at must win")
	assert.Equal(t, capture.LabelVirtual, got.Label())

	// Labels are separate streams.
	_, err = s.LatestSubmission("sess-1", capture.LabelHardware)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLatestSubmissionNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LatestSubmission("no-such-session", capture.LabelVirtual)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLayoutCaptureInsert(t *testing.T) {
	s := createTestStore(t)

	id1, err := s.InsertLayoutCapture("sess-1", []byte(`{"info": {}}`))
	require.NoError(t, err)
	id2, err := s.InsertLayoutCapture("sess-1", []byte(`{"info": {}}`))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}

func TestAnalysisRoundTrip(t *testing.T) {
	s := createTestStore(t)

	report := &subdiff.DiffReport{
		LabelA:       capture.LabelVirtual,
		LabelB:       capture.LabelHardware,
		SharedFields: []string{"id", "pwd"},
		Divergences: []subdiff.ValueDivergence{
			{Field: "pwd", ValueA: "t", ValueB: "t__E2E", LengthA: 1, LengthB: 6},
		},
	}
	_, err := s.InsertAnalysis("sess-1", AnalysisDiff, report)
	require.NoError(t, err)

	raw, err := s.LatestAnalysis("sess-1", AnalysisDiff)
	require.NoError(t, err)

	var restored subdiff.DiffReport
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, report.SharedFields, restored.SharedFields)
	assert.Equal(t, report.Divergences, restored.Divergences)

	// Kinds are separate streams.
	_, err = s.LatestAnalysis("sess-1", AnalysisMapping)
	assert.True(t, errors.Is(err, ErrNotFound))
}
