package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func createTestJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, fill(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, fill(w, h, color.RGBA{0, 0, 255, 255}))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestProcessFormats(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"jpeg", createTestJPEG(100, 80)},
		{"png", createTestPNG(100, 80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photo, err := Process(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if photo.ContentType != "image/jpeg" {
				t.Errorf("expected image/jpeg output, got %s", photo.ContentType)
			}
			if photo.Width != 100 || photo.Height != 80 {
				t.Errorf("expected 100x80, got %dx%d", photo.Width, photo.Height)
			}
			if w, h := decodedSize(t, photo.Data); w != 100 || h != 80 {
				t.Errorf("expected encoded 100x80, got %dx%d", w, h)
			}
		})
	}
}

func TestProcessDownscaleKeepsAspect(t *testing.T) {
	photo, err := ProcessWith(bytes.NewReader(createTestJPEG(400, 200)), Options{MaxDimension: 100, Quality: 80})
	if err != nil {
		t.Fatalf("ProcessWith: %v", err)
	}
	if w, h := decodedSize(t, photo.Data); w != 100 || h != 50 {
		t.Errorf("expected 100x50, got %dx%d", w, h)
	}

	photo, err = ProcessWith(bytes.NewReader(createTestPNG(200, 400)), Options{MaxDimension: 100})
	if err != nil {
		t.Fatalf("ProcessWith: %v", err)
	}
	if photo.Width != 50 || photo.Height != 100 {
		t.Errorf("expected 50x100, got %dx%d", photo.Width, photo.Height)
	}
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(50, 50)))
	if err != nil {
		t.Fatalf("Process small image: %v", err)
	}
	if w, h := decodedSize(t, photo.Data); w != 50 || h != 50 {
		t.Errorf("small image should not be resized: got %dx%d", w, h)
	}
}

func TestProcessRejectsUnsupported(t *testing.T) {
	for name, data := range map[string][]byte{
		"text": []byte("not an image"),
		"gif":  []byte("GIF89a..."),
	} {
		_, err := Process(bytes.NewReader(data))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestProcessRejectsOversized(t *testing.T) {
	data := createTestPNG(64, 64)
	_, err := ProcessWith(bytes.NewReader(data), Options{MaxBytes: int64(len(data) - 1)})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
