package analysis

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	domainanalysis "medscan-server-go/internal/domain/analysis"
	"medscan-server-go/internal/domain/eventbus/repository"
	"medscan-server-go/internal/domain/image"
	platformerrors "medscan-server-go/internal/platform/errors"
	"medscan-server-go/internal/platform/logging"
	httptransport "medscan-server-go/internal/transport/http"
)

const (
	fileField     = "file"
	batchField    = "files[]"
	batchFieldAlt = "files"
	modifiedField = "lastModified"
	// batchModified holds one Unix-ms value per file of files[], by position.
	batchModified    = "lastModified[]"
	batchModifiedAlt = "lastModified"
	maxBatchFiles    = 32
)

// Service exposes the analysis pipeline and the session store over HTTP.
type Service struct {
	analyses *domainanalysis.Service
	events   repository.EventRepository
	logger   *logging.Logger
}

// NewService builds the handlers. events may be nil when no audit log is
// kept.
func NewService(analyses *domainanalysis.Service, events repository.EventRepository, logger *logging.Logger) (*Service, error) {
	if analyses == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "analysis_http.new", "analysis service is required")
	}
	return &Service{analyses: analyses, events: events, logger: logger}, nil
}

// Register mounts the analysis routes on router.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	g := router.Group("/analyses")
	g.POST("", s.handleAnalyze)
	g.POST("/batch", s.handleBatch)
	g.GET("", s.handleList)
	g.GET("/stats", s.handleStats)
	g.GET("/:id", s.handleGet)
	g.GET("/:id/events", s.handleEvents)
	g.DELETE("/:id", s.handleRemove)

	s.logger.InfoTag(logging.TagHTTP, "analysis routes registered")
	return nil
}

// ListItem pairs a stored result with its derived views.
type ListItem struct {
	Result   *domainanalysis.AnalysisResult `json:"result"`
	Status   string                         `json:"status"`
	Priority string                         `json:"priority"`
	Summary  string                         `json:"summary"`
}

type ListResponse struct {
	Items []ListItem `json:"items"`
	Total int        `json:"total"`
}

type BatchResponse struct {
	Items  []domainanalysis.BatchItem `json:"items"`
	Total  int                        `json:"total"`
	Failed int                        `json:"failed"`
}

// EventView is one audit entry of an analysis.
type EventView struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	CreatedAt string `json:"createdAt"`
}

// handleAnalyze analyses one uploaded file.
// @Summary Analyze a scan
// @Description Decodes the uploaded image, classifies it and returns a synthetic report. Invalid scans are still a 200.
// @Tags Analyses
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "image file"
// @Param lastModified formData int false "last modified time in Unix milliseconds"
// @Success 200 {object} httptransport.APIResponse{data=domainanalysis.AnalysisResult}
// @Failure 400 {object} httptransport.APIResponse
// @Failure 422 {object} httptransport.APIResponse
// @Router /analyses [post]
func (s *Service) handleAnalyze(c *gin.Context) {
	fh, err := c.FormFile(fileField)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "multipart field \"file\" is required", nil)
		return
	}

	res, err := s.analyses.Analyze(c.Request.Context(), uploadOf(fh, parseModified(c.PostForm(modifiedField))))
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, res, "")
}

// handleBatch analyses several files concurrently.
// @Summary Analyze several scans
// @Tags Analyses
// @Accept multipart/form-data
// @Produce json
// @Param files[] formData file true "image files"
// @Param lastModified[] formData []int false "last modified time of each file in Unix milliseconds, in file order"
// @Success 200 {object} httptransport.APIResponse{data=BatchResponse}
// @Failure 400 {object} httptransport.APIResponse
// @Router /analyses/batch [post]
func (s *Service) handleBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "multipart form expected", nil)
		return
	}
	files := form.File[batchField]
	if len(files) == 0 {
		files = form.File[batchFieldAlt]
	}
	if len(files) == 0 {
		httptransport.RespondError(c, http.StatusBadRequest, "multipart field \"files[]\" is required", nil)
		return
	}
	if len(files) > maxBatchFiles {
		httptransport.RespondError(c, http.StatusBadRequest, "too many files in one batch, limit is "+strconv.Itoa(maxBatchFiles), nil)
		return
	}

	modified := form.Value[batchModified]
	if len(modified) == 0 {
		modified = form.Value[batchModifiedAlt]
	}

	uploads := make([]image.Upload, 0, len(files))
	for i, fh := range files {
		var mod time.Time
		if i < len(modified) {
			mod = parseModified(modified[i])
		}
		uploads = append(uploads, uploadOf(fh, mod))
	}

	items, err := s.analyses.AnalyzeBatch(c.Request.Context(), uploads)
	if err != nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "batch interrupted: "+err.Error(), nil)
		return
	}

	resp := BatchResponse{Items: items, Total: len(items)}
	for _, it := range items {
		if it.Result == nil {
			resp.Failed++
		}
	}
	httptransport.RespondSuccess(c, http.StatusOK, resp, "")
}

// handleList returns the session results.
// @Summary List session analyses
// @Tags Analyses
// @Produce json
// @Success 200 {object} httptransport.APIResponse{data=ListResponse}
// @Router /analyses [get]
func (s *Service) handleList(c *gin.Context) {
	list, err := s.analyses.List(c.Request.Context())
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}

	items := make([]ListItem, 0, len(list))
	for _, r := range list {
		items = append(items, ListItem{Result: r, Status: r.Status(), Priority: r.Priority(), Summary: r.Summary()})
	}
	httptransport.RespondSuccess(c, http.StatusOK, ListResponse{Items: items, Total: len(items)}, "")
}

// handleStats
// @Summary Session statistics
// @Tags Analyses
// @Produce json
// @Success 200 {object} httptransport.APIResponse{data=domainanalysis.Stats}
// @Router /analyses/stats [get]
func (s *Service) handleStats(c *gin.Context) {
	st, err := s.analyses.Stats(c.Request.Context())
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, st, "")
}

// handleGet
// @Summary Get one analysis
// @Tags Analyses
// @Produce json
// @Param id path string true "analysis id"
// @Success 200 {object} httptransport.APIResponse{data=domainanalysis.AnalysisResult}
// @Failure 404 {object} httptransport.APIResponse
// @Router /analyses/{id} [get]
func (s *Service) handleGet(c *gin.Context) {
	res, err := s.analyses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, res, "")
}

// handleRemove
// @Summary Remove one analysis
// @Tags Analyses
// @Produce json
// @Param id path string true "analysis id"
// @Success 200 {object} httptransport.APIResponse
// @Failure 404 {object} httptransport.APIResponse
// @Router /analyses/{id} [delete]
func (s *Service) handleRemove(c *gin.Context) {
	id := c.Param("id")
	if err := s.analyses.Remove(c.Request.Context(), id); err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"id": id}, "removed")
}

// handleEvents returns the audit trail of one analysis.
// @Summary Lifecycle events of one analysis
// @Tags Analyses
// @Produce json
// @Param id path string true "analysis id"
// @Success 200 {object} httptransport.APIResponse{data=[]EventView}
// @Router /analyses/{id}/events [get]
func (s *Service) handleEvents(c *gin.Context) {
	views := []EventView{}
	if s.events != nil {
		events, err := s.events.FindByAnalysisID(c.Request.Context(), c.Param("id"))
		if err != nil {
			httptransport.RespondErr(c, err)
			return
		}
		for _, e := range events {
			views = append(views, EventView{
				Type:      e.EventType,
				Data:      e.Data,
				CreatedAt: e.CreatedAt.UTC().Format(domainanalysis.TimeLayout),
			})
		}
	}
	httptransport.RespondSuccess(c, http.StatusOK, views, "")
}

func uploadOf(fh *multipart.FileHeader, modified time.Time) image.Upload {
	return image.Upload{
		Name:         fh.Filename,
		Size:         fh.Size,
		ContentType:  fh.Header.Get("Content-Type"),
		LastModified: modified,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func parseModified(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
