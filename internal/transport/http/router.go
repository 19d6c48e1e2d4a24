package httptransport

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"medscan-server-go/internal/platform/config"
	"medscan-server-go/internal/platform/logging"
	"medscan-server-go/internal/platform/observability"
)

// Options configures the HTTP router builder.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *observability.Metrics
}

// Router bundles together the gin engine and the API route group.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build constructs a gin engine pre-configured with logging, recovery, CORS,
// metrics and the static dashboard.
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	cfg := opts.Config

	if strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recoveryMiddleware(opts.Logger))
	engine.Use(loggingMiddleware(opts.Logger))
	engine.Use(observabilityMiddleware(opts.Metrics))

	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	engine.MaxMultipartMemory = cfg.Decode.MaxFileSize

	origins := cfg.Web.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	engine.Use(cors.New(corsCfg))

	if cfg.Web.Enabled {
		root := cfg.Web.StaticDir
		if root == "" {
			root = "./web"
		}
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			engine.Use(static.Serve("/", static.LocalFile(root, true)))
		} else {
			opts.Logger.WarnTag(logging.TagHTTP, "static dir %s not found, dashboard disabled", root)
		}
	}

	engine.NoRoute(func(c *gin.Context) {
		RespondError(c, http.StatusNotFound, "route not found", nil)
	})

	return &Router{
		Engine: engine,
		API:    engine.Group("/api"),
	}, nil
}

func recoveryMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.ErrorTag(logging.TagHTTP, "panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		RespondError(c, http.StatusInternalServerError, "internal server error", nil)
		c.Abort()
	})
}

func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoTag(logging.TagHTTP, "%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Round(time.Microsecond),
		)
	}
}

func observabilityMiddleware(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		path := route
		if path == "" {
			path = c.Request.URL.Path
		}

		reqCtx, spanEnd := observability.StartSpan(c.Request.Context(), "http.server", path)
		c.Request = c.Request.WithContext(reqCtx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		var spanErr error
		if len(c.Errors) > 0 {
			spanErr = c.Errors.Last().Err
		} else if status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("status %d", status)
		}
		spanEnd(spanErr)

		metrics.RecordHTTPRequest(c.Request.Method, route, status, duration)
		observability.RecordMetric(reqCtx, "http.request.duration_ms", float64(duration.Milliseconds()), map[string]string{
			"method": c.Request.Method,
			"path":   path,
			"status": strconv.Itoa(status),
		})
	}
}
