package capture

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Layout capture construction
// =============================================================================

func validDims() ImageDimensions {
	return ImageDimensions{TotalWidth: 220, TotalHeight: 264, VisibleWidth: 220, VisibleHeight: 88}
}

func validButtons() []ButtonEntry {
	return []ButtonEntry{
		{LayoutID: "lower", Token: "a1b2", Mask: MaskLower,
			RenderBox: Box{X1: 0, Y1: 0, X2: 20, Y2: 20},
			SourceBox: Box{X1: 0, Y1: 0, X2: 20, Y2: 20}},
		{LayoutID: "lower", Token: "c3d4", Mask: MaskLower,
			RenderBox: Box{X1: 20, Y1: 0, X2: 40, Y2: 20},
			SourceBox: Box{X1: 20, Y1: 0, X2: 40, Y2: 20}},
	}
}

func TestNewLayoutCapture(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := NewLayoutCapture("sess-1", validDims(), validButtons())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.SessionID() != "sess-1" {
			t.Errorf("expected session sess-1, got %q", c.SessionID())
		}
		if len(c.Buttons()) != 2 {
			t.Errorf("expected 2 buttons, got %d", len(c.Buttons()))
		}
	})

	t.Run("missing_session", func(t *testing.T) {
		_, err := NewLayoutCapture("", validDims(), validButtons())
		assertMalformed(t, err)
	})

	t.Run("invalid_dimensions", func(t *testing.T) {
		dims := validDims()
		dims.TotalHeight = 0
		_, err := NewLayoutCapture("sess-1", dims, validButtons())
		assertMalformed(t, err)
	})

	t.Run("visible_exceeds_total", func(t *testing.T) {
		dims := validDims()
		dims.VisibleWidth = dims.TotalWidth + 1
		_, err := NewLayoutCapture("sess-1", dims, validButtons())
		assertMalformed(t, err)
	})

	t.Run("no_buttons", func(t *testing.T) {
		_, err := NewLayoutCapture("sess-1", validDims(), nil)
		assertMalformed(t, err)
	})

	t.Run("non_hex_token", func(t *testing.T) {
		buttons := validButtons()
		buttons[1].Token = "zzzz"
		_, err := NewLayoutCapture("sess-1", validDims(), buttons)
		assertMalformed(t, err)
	})

	t.Run("uneven_token_length", func(t *testing.T) {
		buttons := validButtons()
		buttons[1].Token = "c3d4e5"
		_, err := NewLayoutCapture("sess-1", validDims(), buttons)
		assertMalformed(t, err)
	})

	t.Run("duplicate_token_same_page", func(t *testing.T) {
		buttons := validButtons()
		buttons[1].Token = buttons[0].Token
		_, err := NewLayoutCapture("sess-1", validDims(), buttons)
		assertMalformed(t, err)
	})

	t.Run("same_token_different_pages_allowed", func(t *testing.T) {
		buttons := validButtons()
		buttons[1].LayoutID = "upper"
		buttons[1].Token = buttons[0].Token
		if _, err := NewLayoutCapture("sess-1", validDims(), buttons); err != nil {
			t.Errorf("cross-page token reuse should be valid at parse time: %v", err)
		}
	})

	t.Run("invalid_mask", func(t *testing.T) {
		buttons := validButtons()
		buttons[0].Mask = "ab"
		_, err := NewLayoutCapture("sess-1", validDims(), buttons)
		assertMalformed(t, err)
	})

	t.Run("buttons_are_frozen", func(t *testing.T) {
		buttons := validButtons()
		c, err := NewLayoutCapture("sess-1", validDims(), buttons)
		if err != nil {
			t.Fatal(err)
		}
		buttons[0].Token = "ffff"
		if c.Buttons()[0].Token == "ffff" {
			t.Error("mutating the input slice must not affect the capture")
		}
		got := c.Buttons()
		got[0].Token = "eeee"
		if c.Buttons()[0].Token == "eeee" {
			t.Error("mutating the accessor result must not affect the capture")
		}
	})
}

func TestPageIDsFirstAppearanceOrder(t *testing.T) {
	buttons := []ButtonEntry{
		{LayoutID: "special", Token: "00", Mask: MaskSpecial, SourceBox: Box{X2: 1, Y2: 1}, RenderBox: Box{X2: 1, Y2: 1}},
		{LayoutID: "lower", Token: "01", Mask: MaskLower, SourceBox: Box{X2: 1, Y2: 1}, RenderBox: Box{X2: 1, Y2: 1}},
		{LayoutID: "special", Token: "02", Mask: MaskSpecial, SourceBox: Box{X2: 1, Y2: 1}, RenderBox: Box{X2: 1, Y2: 1}},
		{LayoutID: "upper", Token: "03", Mask: MaskUpper, SourceBox: Box{X2: 1, Y2: 1}, RenderBox: Box{X2: 1, Y2: 1}},
	}
	c, err := NewLayoutCapture("sess-1", validDims(), buttons)
	if err != nil {
		t.Fatal(err)
	}
	got := c.PageIDs()
	want := []string{"special", "lower", "upper"}
	if len(got) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// =============================================================================
// Box geometry
// =============================================================================

func TestBox(t *testing.T) {
	b := Box{X1: 10, Y1: 20, X2: 30, Y2: 50}

	if b.Width() != 20 || b.Height() != 30 {
		t.Errorf("expected 20x30, got %dx%d", b.Width(), b.Height())
	}

	moved := b.Translated(0, 100)
	if moved.Y1 != 120 || moved.Y2 != 150 || moved.X1 != 10 {
		t.Errorf("unexpected translation result %v", moved)
	}

	if !b.Within(30, 50) {
		t.Error("box touching the boundary should be within")
	}
	if b.Within(29, 50) {
		t.Error("box past the right edge should not be within")
	}
	if (Box{X1: -1, Y1: 0, X2: 5, Y2: 5}).Within(100, 100) {
		t.Error("negative origin should not be within")
	}
}

// =============================================================================
// Submission parsing
// =============================================================================

func TestParseSubmission(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("basic", func(t *testing.T) {
		body := []byte("id=user1&encPwd=abcdef&cnt=3")
		s, err := ParseSubmission(LabelVirtual, now, body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Len() != 3 {
			t.Fatalf("expected 3 fields, got %d", s.Len())
		}
		names := s.FieldNames()
		want := []string{"id", "encPwd", "cnt"}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("field %d: expected %q, got %q", i, want[i], names[i])
			}
		}
		if v, ok := s.Value("encPwd"); !ok || v != "abcdef" {
			t.Errorf("expected encPwd=abcdef, got %q ok=%v", v, ok)
		}
		if s.RawBody() != string(body) {
			t.Error("raw body must survive verbatim")
		}
	})

	t.Run("percent_decoding", func(t *testing.T) {
		s, err := ParseSubmission(LabelHardware, now, []byte("q=a%26b&note=hello+world"))
		if err != nil {
			t.Fatal(err)
		}
		if v, _ := s.Value("q"); v != "a&b" {
			t.Errorf("expected decoded a&b, got %q", v)
		}
		if v, _ := s.Value("note"); v != "hello world" {
			t.Errorf("expected plus decoded to space, got %q", v)
		}
	})

	t.Run("empty_value_kept", func(t *testing.T) {
		s, err := ParseSubmission(LabelVirtual, now, []byte("id=x&flag="))
		if err != nil {
			t.Fatal(err)
		}
		if v, ok := s.Value("flag"); !ok || v != "" {
			t.Errorf("expected empty flag present, got %q ok=%v", v, ok)
		}
	})

	t.Run("empty_body", func(t *testing.T) {
		_, err := ParseSubmission(LabelVirtual, now, []byte("   "))
		assertMalformed(t, err)
	})

	t.Run("duplicate_field", func(t *testing.T) {
		_, err := ParseSubmission(LabelVirtual, now, []byte("id=a&id=b"))
		assertMalformed(t, err)
	})

	t.Run("bad_label", func(t *testing.T) {
		_, err := ParseSubmission("keyboard", now, []byte("id=a"))
		assertMalformed(t, err)
	})

	t.Run("bad_percent_escape", func(t *testing.T) {
		_, err := ParseSubmission(LabelVirtual, now, []byte("id=%zz"))
		assertMalformed(t, err)
	})

	t.Run("session_material", func(t *testing.T) {
		s, err := ParseSubmission(LabelVirtual, now, []byte("id=user1&keypadUuid=ku-9"))
		if err != nil {
			t.Fatal(err)
		}
		m := s.SessionMaterial()
		if m["id"] != "user1" || m["keypadUuid"] != "ku-9" {
			t.Errorf("unexpected material %v", m)
		}
	})
}

// =============================================================================
// Submission JSON round trip
// =============================================================================

func TestSubmissionJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	orig, err := ParseSubmission(LabelHardware, now, []byte("id=user1&encPwd=dead&extra2=yy"))
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hardware-input") {
		t.Errorf("serialized form should carry the label: %s", data)
	}

	var restored SubmissionCapture
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}
	if restored.Label() != LabelHardware {
		t.Errorf("expected hardware label, got %q", restored.Label())
	}
	if !restored.ObservedAt().Equal(now) {
		t.Errorf("expected observedAt %v, got %v", now, restored.ObservedAt())
	}
	if restored.RawBody() != orig.RawBody() {
		t.Error("raw body must round trip")
	}
	if v, _ := restored.Value("extra2"); v != "yy" {
		t.Errorf("fields must be re-derived from the raw body, got extra2=%q", v)
	}
}

func assertMalformed(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var mce *MalformedCaptureError
	if !errors.As(err, &mce) {
		t.Fatalf("expected MalformedCaptureError, got %T: %v", err, err)
	}
}
