package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// encodePNG renders a solid-color test image of the given size.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
	return img
}

func TestGenerateDownscalesLongEdge(t *testing.T) {
	t.Parallel()

	p := NewPipeline(400, 80)

	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"landscape", 1600, 800, 400, 200},
		{"portrait", 600, 1200, 200, 400},
		{"square", 1024, 1024, 400, 400},
		{"already small", 300, 200, 300, 200},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := p.Generate(encodePNG(t, tt.w, tt.h))
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			thumb := decodeJPEG(t, out)
			if got := thumb.Bounds().Dx(); got != tt.wantW {
				t.Errorf("width = %d, want %d", got, tt.wantW)
			}
			if got := thumb.Bounds().Dy(); got != tt.wantH {
				t.Errorf("height = %d, want %d", got, tt.wantH)
			}
		})
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	p := NewPipeline(400, 80)
	input := encodePNG(t, 800, 600)

	first, err := p.Generate(input)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := p.Generate(input)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("identical input produced different thumbnail bytes")
	}
}

func TestGenerateSurfacesDecodeError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(400, 80)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated png", encodePNG(t, 100, 100)[:20]},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := p.Generate(tt.data)
			if err == nil {
				t.Fatal("Generate() should fail for undecodable input")
			}
			if out != nil {
				t.Error("Generate() returned bytes alongside an error")
			}
		})
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	t.Parallel()

	p := NewPipeline(0, 0)
	if p.maxEdge != DefaultMaxEdge {
		t.Errorf("maxEdge = %d, want %d", p.maxEdge, DefaultMaxEdge)
	}
	if p.quality != DefaultQuality {
		t.Errorf("quality = %d, want %d", p.quality, DefaultQuality)
	}

	p = NewPipeline(200, 150)
	if p.quality != DefaultQuality {
		t.Errorf("quality out of range should fall back, got %d", p.quality)
	}
}

func TestScaledSize(t *testing.T) {
	t.Parallel()

	p := NewPipeline(400, 80)

	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1600, 800, 400, 200},
		{800, 1600, 200, 400},
		{400, 400, 400, 400},
		{100, 50, 100, 50},
	}

	for _, tt := range tests {
		tt := tt
		gotW, gotH := p.ScaledSize(tt.w, tt.h)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("ScaledSize(%d, %d) = (%d, %d), want (%d, %d)",
				tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestSniffFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"gif", []byte("GIF89a"), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "webp"},
		{"bmp", []byte{0x42, 0x4D, 0x00}, "bmp"},
		{"unknown", []byte("hello world!"), "unknown"},
		{"empty", nil, "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		if got := SniffFormat(tt.data); got != tt.want {
			t.Errorf("%s: SniffFormat() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
