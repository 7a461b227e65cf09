package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"gen-gallery/internal/logging"
	"gen-gallery/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Default parameters for generated previews.
const (
	// DefaultMaxEdge caps the longer edge of a thumbnail in pixels.
	DefaultMaxEdge = 400
	// DefaultQuality is the JPEG quality factor for re-encoding.
	DefaultQuality = 80
)

// Pipeline turns full-resolution image bytes into downscaled JPEG preview
// bytes. It is a pure transform: identical input bytes produce identical
// output for a given decode backend, and failures are returned rather than
// producing an empty thumbnail.
type Pipeline struct {
	maxEdge int
	quality int
}

// NewPipeline creates a thumbnail pipeline. Non-positive parameters fall
// back to the defaults.
func NewPipeline(maxEdge, quality int) *Pipeline {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Pipeline{maxEdge: maxEdge, quality: quality}
}

// Generate decodes data, downscales it so the longer edge is at most the
// configured maximum (never upscaling), and re-encodes it as JPEG.
func (p *Pipeline) Generate(data []byte) ([]byte, error) {
	if len(data) == 0 {
		metrics.ThumbnailsTotal.WithLabelValues("error_decode").Inc()
		return nil, fmt.Errorf("empty image data")
	}

	// Fast path: libvips shrinks during decode, which is much cheaper on
	// memory for large generations.
	if IsVipsAvailable() {
		out, err := generateWithVips(data, p.maxEdge, p.quality)
		if err == nil {
			metrics.ThumbnailsTotal.WithLabelValues("success").Inc()
			return out, nil
		}
		logging.Debug("vips thumbnail failed (%v), falling back to imaging", err)
	}

	decodeStart := time.Now()
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	metrics.ThumbnailDuration.WithLabelValues("decode").Observe(time.Since(decodeStart).Seconds())
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error_decode").Inc()
		return nil, fmt.Errorf("failed to decode image (format %s): %w", SniffFormat(data), err)
	}

	resizeStart := time.Now()
	thumb := p.resize(img)
	metrics.ThumbnailDuration.WithLabelValues("resize").Observe(time.Since(resizeStart).Seconds())

	encodeStart := time.Now()
	var buf bytes.Buffer
	err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: p.quality})
	metrics.ThumbnailDuration.WithLabelValues("encode").Observe(time.Since(encodeStart).Seconds())
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error_encode").Inc()
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	metrics.ThumbnailsTotal.WithLabelValues("success").Inc()
	return buf.Bytes(), nil
}

// resize scales img so its longer edge is at most maxEdge, preserving
// aspect ratio. Images already within bounds pass through unchanged.
func (p *Pipeline) resize(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= p.maxEdge && bounds.Dy() <= p.maxEdge {
		return img
	}
	return imaging.Fit(img, p.maxEdge, p.maxEdge, imaging.Lanczos)
}

// ScaledSize returns the dimensions resize would produce for a w x h
// image. Exposed so callers can report expected thumbnail bounds without
// decoding.
func (p *Pipeline) ScaledSize(w, h int) (int, int) {
	if w <= p.maxEdge && h <= p.maxEdge {
		return w, h
	}
	if w >= h {
		return p.maxEdge, h * p.maxEdge / w
	}
	return w * p.maxEdge / h, p.maxEdge
}

// SniffFormat identifies an image format from its magic bytes. It is used
// for error reporting and debug logging only; decoding goes through the
// registered image decoders.
func SniffFormat(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpeg"

	case len(data) >= 8 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "png"

	case len(data) >= 4 && data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return "gif"

	case len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50:
		return "webp"

	case len(data) >= 2 && data[0] == 0x42 && data[1] == 0x4D:
		return "bmp"

	case len(data) >= 12 && data[4] == 0x66 && data[5] == 0x74 && data[6] == 0x79 && data[7] == 0x70:
		brand := string(data[8:12])
		if brand == "avif" || brand == "avis" {
			return "avif"
		}
		return "heif"
	}

	return "unknown"
}
