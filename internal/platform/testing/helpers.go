package testing

import (
	"bytes"
	"io"
	"mime/multipart"
	"testing"

	"medscan-server-go/internal/platform/config"
	"medscan-server-go/internal/platform/logging"
)

// SetupTestConfig returns defaults tuned for tests: deterministic analysis,
// memory store, no static site.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = t.TempDir()
	cfg.Log.File = "test.log"
	cfg.Web.Enabled = false
	cfg.Analysis.Seed = 1
	cfg.Store.Driver = "memory"
	cfg.Store.SQLite.DSN = ":memory:"
	return cfg
}

// SetupTestLogger returns a logger that writes nowhere unless testing.Verbose.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	var out io.Writer = io.Discard
	if testing.Verbose() {
		out = testWriter{t}
	}
	logger := logging.NewDiscard(out)
	t.Cleanup(func() { logger.Close() })
	return logger
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// FilePart is one file field of a multipart form.
type FilePart struct {
	Field string
	Name  string
	Data  []byte
	Extra map[string]string
}

// MultipartBody encodes parts as multipart/form-data and returns the body
// with its content type.
func MultipartBody(t *testing.T, parts ...FilePart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		for k, v := range p.Extra {
			if err := w.WriteField(k, v); err != nil {
				t.Fatalf("write field %s: %v", k, err)
			}
		}
		fw, err := w.CreateFormFile(p.Field, p.Name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(p.Data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}
