package httptransport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"

	"medscan-server-go/internal/platform/logging"
	"medscan-server-go/internal/platform/observability"
)

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Store     string `json:"store"`
	Uptime    string `json:"uptime"`
	StartedAt string `json:"startedAt"`
}

// SystemOptions feed the health and metrics endpoints.
type SystemOptions struct {
	Version   string
	StoreName string
	StartedAt time.Time
	Metrics   *observability.Metrics
	// Docs serves the swag-registered document at /openapi.json and a
	// reader at /docs.
	Docs   bool
	Logger *logging.Logger
}

// RegisterSystemRoutes mounts /api/health, /metrics and the API document.
func RegisterSystemRoutes(r *Router, opts SystemOptions) {
	started := opts.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	r.API.GET("/health", func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, HealthStatus{
			Status:    "ok",
			Version:   opts.Version,
			Store:     opts.StoreName,
			Uptime:    time.Since(started).Round(time.Second).String(),
			StartedAt: started.UTC().Format(time.RFC3339),
		}, "")
	})

	if opts.Metrics != nil {
		r.Engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	if opts.Docs {
		r.Engine.GET("/openapi.json", func(c *gin.Context) {
			doc, err := swag.ReadDoc()
			if err != nil {
				opts.Logger.ErrorTag(logging.TagHTTP, "read openapi doc: %v", err)
				RespondError(c, http.StatusInternalServerError, "failed to generate openapi spec", gin.H{"error": err.Error()})
				return
			}
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
		})
		r.Engine.GET("/docs", func(c *gin.Context) {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
		})
	}
}

const docsPage = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>medscan API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`
