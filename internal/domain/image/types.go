package image

import (
	"bytes"
	"io"
	"time"
)

// Upload is a file handed to the loader: its metadata plus a way to read it.
type Upload struct {
	Name         string
	Size         int64
	ContentType  string
	LastModified time.Time
	// Open returns a fresh reader over the file. The loader closes it.
	Open func() (io.ReadCloser, error)
}

// BytesUpload wraps an in-memory file.
func BytesUpload(name string, data []byte) Upload {
	return Upload{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// PixelBuffer is a decoded image as non-premultiplied 8-bit RGBA, row-major,
// four bytes per pixel. It is not modified after construction.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// Len returns the number of pixels.
func (p PixelBuffer) Len() int {
	return p.Width * p.Height
}

// RGB returns the colour channels of the i-th pixel in row-major order.
func (p PixelBuffer) RGB(i int) (r, g, b uint8) {
	o := i * 4
	return p.Pix[o], p.Pix[o+1], p.Pix[o+2]
}

// Loaded is the loader's output.
type Loaded struct {
	Pixels PixelBuffer
	// Format is the decoder that accepted the bytes ("png", "jpeg", ...).
	Format string
	// Bytes is the number of bytes actually read.
	Bytes int64
}
