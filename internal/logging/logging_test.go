package logging

import "testing"

func TestShouldRedact(t *testing.T) {
	redacted := []string{
		"password", "Password", "user_password", "plaintext",
		"pwd", "encPwd", "pin", "raw_body", "client_secret",
	}
	for _, key := range redacted {
		if !shouldRedact(key) {
			t.Errorf("key %q should be redacted", key)
		}
	}

	clear := []string{"session_id", "field", "path", "segment_width", "token_count"}
	for _, key := range clear {
		if shouldRedact(key) {
			t.Errorf("key %q should not be redacted", key)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("unknown level should error")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("empty format should default to text, got %v %v", f, err)
	}
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("expected json format, got %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("unknown format should error")
	}
}

func TestNewNilConfig(t *testing.T) {
	l := New(nil)
	if l == nil || l.Logger == nil {
		t.Fatal("nil config should yield a working default logger")
	}
}

func TestWithComponent(t *testing.T) {
	l := New(DefaultConfig())
	tagged := l.WithComponent("watcher")
	if tagged == l || tagged.Logger == l.Logger {
		t.Error("WithComponent should return a distinct logger")
	}
}
