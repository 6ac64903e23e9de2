package media

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/disintegration/imaging"

	// Decoders for Inspect. Uploads are GIF-only but previews and
	// diagnostics can encounter the other formats on disk.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"gif-share/internal/logging"
	"gif-share/internal/metrics"
)

// Metadata describes a decodable image file.
type Metadata struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ProcessingError wraps a decode or encode failure with the file it
// happened on. Boundary layers map it to an unprocessable-content
// response rather than a server error.
type ProcessingError struct {
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("media processing failed for %s: %v", e.Path, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Processor derives preview images from uploaded gifs.
type Processor struct {
	maxWidth int
}

// NewProcessor returns a Processor whose previews fit inside a
// maxWidth square. Aspect ratio is always preserved.
func NewProcessor(maxWidth int) *Processor {
	if maxWidth < 16 {
		maxWidth = 16
	}
	return &Processor{maxWidth: maxWidth}
}

// Inspect reads just enough of the file to report its format and pixel
// dimensions. The file content decides the format, never the filename.
func (p *Processor) Inspect(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Error("error closing %s: %v", path, err)
		}
	}()

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, &ProcessingError{Path: path, Err: err}
	}

	return &Metadata{
		Format: format,
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// DerivePreview renders a still preview of the gif at srcPath into
// dstPath. The first frame is scaled down to fit the configured bound;
// images already within the bound are written at original size, never
// enlarged. Output format follows dstPath's extension.
func (p *Processor) DerivePreview(srcPath, dstPath string) error {
	start := time.Now()

	// imaging decodes only the first frame of an animated gif, which
	// is exactly what a still preview needs.
	img, err := imaging.Open(srcPath)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("error").Inc()
		return &ProcessingError{Path: srcPath, Err: err}
	}

	bounds := img.Bounds()
	if bounds.Dx() > p.maxWidth || bounds.Dy() > p.maxWidth {
		img = imaging.Fit(img, p.maxWidth, p.maxWidth, imaging.Lanczos)
	}

	if err := imaging.Save(img, dstPath); err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("error").Inc()
		return &ProcessingError{Path: dstPath, Err: err}
	}

	duration := time.Since(start)
	metrics.PreviewGenerationsTotal.WithLabelValues("success").Inc()
	metrics.PreviewGenerationDuration.Observe(duration.Seconds())
	logging.Debug("Derived preview %s from %s (%dx%d -> fit %d) in %v",
		dstPath, srcPath, bounds.Dx(), bounds.Dy(), p.maxWidth, duration)

	return nil
}
