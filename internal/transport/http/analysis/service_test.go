package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainanalysis "medscan-server-go/internal/domain/analysis"
	"medscan-server-go/internal/domain/analysis/store"
	"medscan-server-go/internal/domain/eventbus"
	"medscan-server-go/internal/domain/eventbus/infrastructure"
	"medscan-server-go/internal/domain/image"
	"medscan-server-go/internal/domain/scan"
	"medscan-server-go/internal/platform/storage"
	testhelpers "medscan-server-go/internal/platform/testing"
	httptransport "medscan-server-go/internal/transport/http"
)

type env struct {
	engine *gin.Engine
	bus    *eventbus.Bus
}

func setup(t *testing.T) env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testhelpers.SetupTestConfig(t)
	cfg.Log.Level = "INFO"
	logger := testhelpers.SetupTestLogger(t)

	db, err := storage.Open(storage.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	audit := infrastructure.NewEventRepository(db)

	bus := eventbus.New(1, 64, logger)
	require.NoError(t, eventbus.SetupEventHandlers(bus, eventbus.Handlers{Logger: logger, Audit: audit}))
	bus.Start()
	t.Cleanup(bus.Stop)

	var seq atomic.Int64
	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := domainanalysis.NewService(domainanalysis.Options{
		Loader:   image.NewLoader(cfg.Decode, logger),
		Analyzer: scan.NewAnalyzer(cfg.Analysis.Thresholds),
		Random:   scan.SeededRandom(cfg.Analysis.Seed),
		NewID:    func() string { return fmt.Sprintf("scan-%d", seq.Add(1)) },
		Now: func() time.Time {
			return clock.Add(time.Duration(seq.Load()) * time.Second)
		},
		Store:     store.NewMemoryStore(time.Hour),
		Publisher: bus,
		Logger:    logger,
	})

	router, err := httptransport.Build(httptransport.Options{Config: cfg, Logger: logger})
	require.NoError(t, err)
	handlers, err := NewService(svc, audit, logger)
	require.NoError(t, err)
	require.NoError(t, handlers.Register(context.Background(), router.API))

	return env{engine: router.Engine, bus: bus}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

func (e env) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func (e env) upload(t *testing.T, parts ...testhelpers.FilePart) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	body, contentType := testhelpers.MultipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", contentType)
	return e.do(t, req)
}

func chestPart(t *testing.T) testhelpers.FilePart {
	return testhelpers.FilePart{
		Field: "file",
		Name:  "chest.png",
		Data:  testhelpers.ChestXRay().PNG(t),
		Extra: map[string]string{"lastModified": "1700000000000"},
	}
}

func TestAnalyze_ValidScan(t *testing.T) {
	e := setup(t)

	w, body := e.upload(t, chestPart(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, body.Success)
	assert.Equal(t, http.StatusOK, body.Code)

	var res domainanalysis.AnalysisResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, "scan-1", res.ID)
	assert.True(t, res.IsValidMedicalScan)
	assert.Equal(t, "chest.png", res.File.Name)
	assert.Equal(t, "image/png", res.File.Type)
	assert.Equal(t, int64(1_700_000_000_000), res.File.LastModified)
	assert.NotEmpty(t, res.Findings)
}

func TestAnalyze_InvalidScanIsStillOK(t *testing.T) {
	e := setup(t)

	w, body := e.upload(t, testhelpers.FilePart{Field: "file", Name: "holiday.png", Data: testhelpers.Snapshot().PNG(t)})
	require.Equal(t, http.StatusOK, w.Code)

	var res domainanalysis.AnalysisResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.False(t, res.IsValidMedicalScan)
	assert.Equal(t, scan.SeverityError, res.Severity)
	assert.Equal(t, []string{scan.InvalidFinding}, res.Findings)
}

func TestAnalyze_Errors(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name    string
		part    testhelpers.FilePart
		code    int
		message string
	}{
		{"missing file", testhelpers.FilePart{Field: "other", Name: "a.png", Data: []byte("x")}, http.StatusBadRequest, "\"file\" is required"},
		{"corrupt", testhelpers.FilePart{Field: "file", Name: "a.png", Data: []byte("definitely not a png")}, http.StatusUnprocessableEntity, "unsupported or corrupt image"},
		{"empty", testhelpers.FilePart{Field: "file", Name: "a.png", Data: []byte{}}, http.StatusUnprocessableEntity, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := e.upload(t, tt.part)
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.Contains(t, body.Message, tt.message)
		})
	}
}

func TestBatch(t *testing.T) {
	e := setup(t)

	body, contentType := testhelpers.MultipartBody(t,
		testhelpers.FilePart{Field: "files[]", Name: "a.png", Data: testhelpers.ChestXRay().PNG(t)},
		testhelpers.FilePart{Field: "files[]", Name: "b.png", Data: []byte("broken")},
		testhelpers.FilePart{Field: "files[]", Name: "c.jpg", Data: testhelpers.ChestXRay().JPEG(t)},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses/batch", body)
	req.Header.Set("Content-Type", contentType)

	w, env := e.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Items, 3)
	assert.NotNil(t, resp.Items[0].Result)
	assert.Equal(t, "decode", resp.Items[1].Kind)
	assert.NotNil(t, resp.Items[2].Result)
}

func TestBatch_LastModifiedByPosition(t *testing.T) {
	e := setup(t)

	body, contentType := testhelpers.MultipartBody(t,
		testhelpers.FilePart{Field: "files[]", Name: "a.png", Data: testhelpers.ChestXRay().PNG(t),
			Extra: map[string]string{"lastModified[]": "1700000000000"}},
		testhelpers.FilePart{Field: "files[]", Name: "b.png", Data: testhelpers.ChestXRay().PNG(t),
			Extra: map[string]string{"lastModified[]": "1700000005000"}},
		testhelpers.FilePart{Field: "files[]", Name: "c.png", Data: testhelpers.ChestXRay().PNG(t)},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses/batch", body)
	req.Header.Set("Content-Type", contentType)

	w, env := e.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Items, 3)
	for _, it := range resp.Items {
		require.NotNil(t, it.Result, it.FileName)
	}
	assert.Equal(t, int64(1700000000000), resp.Items[0].Result.File.LastModified)
	assert.Equal(t, int64(1700000005000), resp.Items[1].Result.File.LastModified)
	assert.Zero(t, resp.Items[2].Result.File.LastModified)
}

func TestBatch_RequiresFiles(t *testing.T) {
	e := setup(t)

	body, contentType := testhelpers.MultipartBody(t, testhelpers.FilePart{Field: "file", Name: "a.png", Data: []byte("x")})
	req := httptest.NewRequest(http.MethodPost, "/api/analyses/batch", body)
	req.Header.Set("Content-Type", contentType)

	w, _ := e.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGetStatsRemove(t *testing.T) {
	e := setup(t)

	for i := 0; i < 2; i++ {
		w, _ := e.upload(t, chestPart(t))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := e.upload(t, testhelpers.FilePart{Field: "file", Name: "holiday.png", Data: testhelpers.Snapshot().PNG(t)})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Equal(t, 3, list.Total)
	assert.Equal(t, "scan-3", list.Items[0].Result.ID)
	assert.Equal(t, domainanalysis.StatusInvalid, list.Items[0].Status)
	assert.Equal(t, domainanalysis.PriorityInvalid, list.Items[0].Priority)
	assert.Equal(t, "The uploaded file does not appear to be a valid medical scan", list.Items[0].Summary)
	assert.Contains(t, list.Items[1].Summary, "analyzed with")

	w, body = e.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var st domainanalysis.Stats
	require.NoError(t, json.Unmarshal(body.Data, &st))
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.ByStatus["completed"])
	assert.Equal(t, 1, st.ByStatus["invalid"])

	w, body = e.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/scan-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got domainanalysis.AnalysisResult
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Equal(t, "scan-1", got.ID)

	w, _ = e.do(t, httptest.NewRequest(http.MethodDelete, "/api/analyses/scan-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = e.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/scan-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)

	w, _ = e.do(t, httptest.NewRequest(http.MethodDelete, "/api/analyses/scan-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvents_AuditTrail(t *testing.T) {
	e := setup(t)

	w, _ := e.upload(t, chestPart(t))
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = e.do(t, httptest.NewRequest(http.MethodDelete, "/api/analyses/scan-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	e.bus.Flush()

	w, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/scan-1/events", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var events []EventView
	require.NoError(t, json.Unmarshal(body.Data, &events))
	require.Len(t, events, 2)
	assert.Equal(t, eventbus.EventAnalysisCompleted, events[0].Type)
	assert.Equal(t, eventbus.EventAnalysisRemoved, events[1].Type)

	w, body = e.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/unknown/events", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestUnknownRoute(t *testing.T) {
	e := setup(t)

	w, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
}
