package image

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscan-server-go/internal/platform/config"
	"medscan-server-go/internal/platform/logging"
	testhelpers "medscan-server-go/internal/platform/testing"
)

type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

func trackedUpload(name string, data []byte) (Upload, *trackingCloser) {
	rc := &trackingCloser{Reader: bytes.NewReader(data)}
	return Upload{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return rc, nil },
	}, rc
}

func newTestLoader(t *testing.T, mutate func(*config.DecodeConfig)) *Loader {
	t.Helper()
	cfg := config.DefaultConfig().Decode
	if mutate != nil {
		mutate(&cfg)
	}
	return NewLoader(cfg, testhelpers.SetupTestLogger(t))
}

func TestLoader_DecodesRegisteredFormats(t *testing.T) {
	fx := testhelpers.ScanFixture{Width: 8, Height: 4, Base: 120, DarkRatio: 0.25}
	loader := newTestLoader(t, nil)

	tests := []struct {
		name   string
		file   string
		data   []byte
		format string
	}{
		{"png", "scan.png", fx.PNG(t), "png"},
		{"jpeg", "scan.jpg", fx.JPEG(t), "jpeg"},
		{"gif", "scan.gif", fx.GIF(t), "gif"},
		{"bmp", "scan.bmp", fx.BMP(t), "bmp"},
		{"tiff", "scan.tiff", fx.TIFF(t), "tiff"},
		{"dicom extension carrying png bytes", "chest.dcm", fx.PNG(t), "png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, rc := trackedUpload(tt.file, tt.data)
			loaded, err := loader.Load(context.Background(), up)
			require.NoError(t, err)
			assert.True(t, rc.closed)
			assert.Equal(t, tt.format, loaded.Format)
			assert.Equal(t, 8, loaded.Pixels.Width)
			assert.Equal(t, 4, loaded.Pixels.Height)
			assert.Len(t, loaded.Pixels.Pix, 8*4*4)
			assert.Equal(t, int64(len(tt.data)), loaded.Bytes)
		})
	}
}

func TestLoader_PixelValues(t *testing.T) {
	fx := testhelpers.ScanFixture{Width: 4, Height: 2, Base: 120, DarkRatio: 0.25, BrightRatio: 0.25}
	loaded, err := newTestLoader(t, nil).Load(context.Background(), BytesUpload("x.png", fx.PNG(t)))
	require.NoError(t, err)

	r, g, b := loaded.Pixels.RGB(0)
	assert.Equal(t, [3]uint8{testhelpers.DarkLevel, testhelpers.DarkLevel, testhelpers.DarkLevel}, [3]uint8{r, g, b})
	r, _, _ = loaded.Pixels.RGB(2)
	assert.Equal(t, uint8(testhelpers.BrightLevel), r)
	r, _, _ = loaded.Pixels.RGB(7)
	assert.Equal(t, uint8(120), r)
	assert.Equal(t, uint8(255), loaded.Pixels.Pix[3], "alpha is preserved")
}

func TestLoader_DecodeErrors(t *testing.T) {
	fx := testhelpers.ScanFixture{Width: 64, Height: 64, Base: 100}
	png := fx.PNG(t)

	tests := []struct {
		name   string
		mutate func(*config.DecodeConfig)
		upload Upload
	}{
		{name: "zero bytes", upload: BytesUpload("empty.png", nil)},
		{name: "not an image", upload: BytesUpload("notes.png", []byte("definitely not pixels"))},
		{name: "truncated png", upload: BytesUpload("cut.png", png[:len(png)/2])},
		{name: "dicom container", upload: BytesUpload("head.dcm", append(make([]byte, 128), []byte("DICM")...))},
		{
			name:   "declared size over cap",
			mutate: func(c *config.DecodeConfig) { c.MaxFileSize = 100 },
			upload: Upload{Name: "big.png", Size: 101, Open: BytesUpload("", png).Open},
		},
		{
			name:   "actual size over cap",
			mutate: func(c *config.DecodeConfig) { c.MaxFileSize = 100 },
			upload: Upload{Name: "big.png", Size: 1, Open: BytesUpload("", png).Open},
		},
		{
			name:   "dimensions over cap",
			mutate: func(c *config.DecodeConfig) { c.MaxWidth = 32 },
			upload: BytesUpload("wide.png", png),
		},
		{
			name:   "pixels over cap",
			mutate: func(c *config.DecodeConfig) { c.MaxPixels = 1000 },
			upload: BytesUpload("many.png", png),
		},
		{
			name:   "format not allowed",
			mutate: func(c *config.DecodeConfig) { c.AllowedFormats = []string{"jpg"} },
			upload: BytesUpload("scan.png", png),
		},
		{
			name: "open fails",
			upload: Upload{Name: "gone.png", Open: func() (io.ReadCloser, error) {
				return nil, errors.New("tmp file removed")
			}},
		},
		{name: "no opener", upload: Upload{Name: "nil.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(t, tt.mutate).Load(context.Background(), tt.upload)
			require.Error(t, err)
			assert.True(t, IsDecodeError(err), "got %v", err)
		})
	}
}

func TestLoader_ClosesSourceOnFailure(t *testing.T) {
	up, rc := trackedUpload("bad.png", []byte("garbage"))
	_, err := newTestLoader(t, nil).Load(context.Background(), up)
	require.Error(t, err)
	assert.True(t, rc.closed)
}

func TestLoader_DecodeDeadline(t *testing.T) {
	loader := newTestLoader(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fx := testhelpers.ScanFixture{Width: 16, Height: 16, Base: 90}
	_, err := loader.decode(ctx, fx.PNG(t))
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_SignatureMismatchIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	fx := testhelpers.ScanFixture{Width: 4, Height: 4, Base: 90}

	loader := NewLoader(config.DefaultConfig().Decode, logging.NewDiscard(&buf))
	loaded, err := loader.Load(context.Background(), BytesUpload("scan.jpg", fx.PNG(t)))
	require.NoError(t, err)
	assert.Equal(t, "png", loaded.Format)
	assert.Contains(t, buf.String(), "signature mismatch name=scan.jpg declared=jpeg")
}

func TestDeclaredFormat(t *testing.T) {
	assert.Equal(t, "jpeg", declaredFormat("a.JPG", ""))
	assert.Equal(t, "png", declaredFormat("a.bin", "image/png"))
	assert.Equal(t, "tiff", declaredFormat("a.tif", ""))
	assert.Equal(t, "", declaredFormat("a.dcm", "application/dicom"))
}
