package image

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"io"
	"time"

	"golang.org/x/image/draw"

	"medscan-server-go/internal/platform/config"
	"medscan-server-go/internal/platform/logging"
	"medscan-server-go/internal/platform/observability"
)

const defaultDecodeTimeout = 10 * time.Second

// Loader turns uploads into pixel buffers. It keeps no per-call state and is
// safe for concurrent use.
type Loader struct {
	cfg     config.DecodeConfig
	allowed map[string]bool
	timeout time.Duration
	logger  *logging.Logger
}

// NewLoader builds a loader bounded by cfg.
func NewLoader(cfg config.DecodeConfig, logger *logging.Logger) *Loader {
	allowed := make(map[string]bool, len(cfg.AllowedFormats))
	for _, f := range cfg.AllowedFormats {
		allowed[normalizeFormat(f)] = true
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	return &Loader{
		cfg:     cfg,
		allowed: allowed,
		timeout: config.Duration(cfg.Timeout, defaultDecodeTimeout),
		logger:  logger,
	}
}

// Load reads and decodes up. The upload's reader is closed before Load
// returns, whatever the outcome. Every failure is a decode error.
func (l *Loader) Load(ctx context.Context, up Upload) (_ *Loaded, err error) {
	ctx, end := observability.StartSpan(ctx, "image", "load")
	defer func() { end(err) }()

	data, err := l.read(up)
	if err != nil {
		return nil, err
	}

	if declared := declaredFormat(up.Name, up.ContentType); declared != "" && !matchesSignature(data, declared) {
		l.logger.WarnTag(logging.TagImage, "signature mismatch name=%s declared=%s header=%x",
			up.Name, declared, data[:min(len(data), 16)])
	}

	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError("image.config", "unsupported or corrupt image", err)
	}
	if err := l.checkLimits(cfg, format); err != nil {
		return nil, err
	}

	img, err := l.decode(ctx, data)
	if err != nil {
		return nil, err
	}

	l.logger.DebugTag(logging.TagImage, "decoded name=%s format=%s %dx%d bytes=%d",
		up.Name, format, cfg.Width, cfg.Height, len(data))

	return &Loaded{
		Pixels: toPixelBuffer(img),
		Format: format,
		Bytes:  int64(len(data)),
	}, nil
}

func (l *Loader) read(up Upload) ([]byte, error) {
	if up.Open == nil {
		return nil, decodeError("image.open", "upload has no content", nil)
	}
	if up.Size > l.cfg.MaxFileSize {
		return nil, decodeError("image.read",
			fmt.Sprintf("file too large: %d bytes (max %d)", up.Size, l.cfg.MaxFileSize), nil)
	}

	rc, err := up.Open()
	if err != nil {
		return nil, decodeError("image.open", "cannot open upload", err)
	}
	defer rc.Close()

	limited := &io.LimitedReader{R: rc, N: l.cfg.MaxFileSize + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, decodeError("image.read", "cannot read upload", err)
	}
	if int64(len(data)) > l.cfg.MaxFileSize {
		return nil, decodeError("image.read",
			fmt.Sprintf("file too large: exceeds %d bytes", l.cfg.MaxFileSize), nil)
	}
	if len(data) == 0 {
		return nil, decodeError("image.read", "empty file", nil)
	}
	return data, nil
}

func (l *Loader) checkLimits(cfg stdimage.Config, format string) error {
	if len(l.allowed) > 0 && !l.allowed[format] {
		return decodeError("image.format", fmt.Sprintf("format %s is not accepted", format), nil)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return decodeError("image.limits", fmt.Sprintf("invalid dimensions %dx%d", cfg.Width, cfg.Height), nil)
	}
	if (l.cfg.MaxWidth > 0 && cfg.Width > l.cfg.MaxWidth) || (l.cfg.MaxHeight > 0 && cfg.Height > l.cfg.MaxHeight) {
		return decodeError("image.limits", fmt.Sprintf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, l.cfg.MaxWidth, l.cfg.MaxHeight), nil)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); l.cfg.MaxPixels > 0 && pixels > l.cfg.MaxPixels {
		return decodeError("image.limits", fmt.Sprintf("pixel count exceeds limit: %d (max %d)", pixels, l.cfg.MaxPixels), nil)
	}
	return nil
}

type decodeResult struct {
	img stdimage.Image
	err error
}

// decode runs the decoder under the configured deadline. A decoder that
// overruns is abandoned; its result is dropped into a buffered channel.
func (l *Loader) decode(ctx context.Context, data []byte) (stdimage.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, decodeError("image.decode", "decode aborted", err)
	}

	done := make(chan decodeResult, 1)
	go func() {
		img, _, err := stdimage.Decode(bytes.NewReader(data))
		done <- decodeResult{img: img, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, decodeError("image.decode", "corrupt image data", res.err)
		}
		return res.img, nil
	case <-ctx.Done():
		return nil, decodeError("image.decode", "decode deadline exceeded", ctx.Err())
	}
}

// toPixelBuffer copies img into a tightly packed NRGBA buffer with its origin
// at (0,0), the layout a canvas readback would produce.
func toPixelBuffer(img stdimage.Image) PixelBuffer {
	b := img.Bounds()
	if n, ok := img.(*stdimage.NRGBA); ok && n.Rect.Min == (stdimage.Point{}) && n.Stride == 4*b.Dx() {
		return PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: n.Pix[:4*b.Dx()*b.Dy()]}
	}
	dst := stdimage.NewNRGBA(stdimage.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}
