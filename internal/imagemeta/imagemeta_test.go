package imagemeta

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDimensions(t *testing.T) {
	data := encodePNG(t, 220, 264)
	w, h, err := Dimensions(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 220 || h != 264 {
		t.Errorf("expected 220x264, got %dx%d", w, h)
	}
}

func TestDimensionsNotAnImage(t *testing.T) {
	if _, _, err := Dimensions(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDimensionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprite.png")
	if err := os.WriteFile(path, encodePNG(t, 100, 50), 0o644); err != nil {
		t.Fatal(err)
	}

	w, h, err := DimensionsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if w != 100 || h != 50 {
		t.Errorf("expected 100x50, got %dx%d", w, h)
	}

	if _, _, err := DimensionsFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("missing file should error")
	}
}
