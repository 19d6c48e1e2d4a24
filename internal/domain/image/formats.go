package image

import (
	"bytes"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var signatures = map[string][][]byte{
	"jpeg": {{0xFF, 0xD8, 0xFF}},
	"png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"gif":  {[]byte("GIF87a"), []byte("GIF89a")},
	"webp": {{0x52, 0x49, 0x46, 0x46}},
	"bmp":  {{0x42, 0x4D}},
	"tiff": {{0x49, 0x49, 0x2A, 0x00}, {0x4D, 0x4D, 0x00, 0x2A}},
}

var formatAliases = map[string]string{
	"jpg":      "jpeg",
	"jpe":      "jpeg",
	"tif":      "tiff",
	"x-ms-bmp": "bmp",
}

// normalizeFormat maps extensions and MIME subtypes to decoder names.
func normalizeFormat(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := formatAliases[name]; ok {
		return alias
	}
	return name
}

// declaredFormat guesses the intended format from the content type, then the
// file extension. It returns "" when neither names a raster format.
func declaredFormat(fileName, contentType string) string {
	if sub, ok := strings.CutPrefix(strings.ToLower(contentType), "image/"); ok {
		if f := normalizeFormat(sub); signatures[f] != nil {
			return f
		}
	}
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if f := normalizeFormat(ext); signatures[f] != nil {
		return f
	}
	return ""
}

// matchesSignature reports whether data starts with a magic number of format.
// Unknown formats always match.
func matchesSignature(data []byte, format string) bool {
	sigs, ok := signatures[format]
	if !ok {
		return true
	}
	for _, sig := range sigs {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}
