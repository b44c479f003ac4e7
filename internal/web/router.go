package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"visitorlog/internal/auth"
	"visitorlog/internal/httpmiddleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Options configure the engine around a Handler.
type Options struct {
	Cookie          auth.CookieConfig
	RateLimitPerMin int
	LoginPerMin     int
	CORSOrigins     []string
	AccessLog       io.Writer
	// Health reports dependency status for /healthz.
	Health func(ctx context.Context) (gin.H, bool)
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxPhotoBytes

	r.Use(gin.Recovery())
	logCfg := gin.LoggerConfig{SkipPaths: []string{"/healthz", "/metrics"}}
	if opts.AccessLog != nil {
		logCfg.Output = opts.AccessLog
	}
	r.Use(gin.LoggerWithConfig(logCfg))
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).PerIP())
	if h.metrics != nil {
		r.Use(requestCounter(h))
	}

	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))
	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		body, ok := opts.Health(c.Request.Context())
		status := http.StatusOK
		body["status"] = "ok"
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})
	r.GET("/terms", h.Terms)

	pages := r.Group("/", auth.SessionCookie(opts.Cookie, h.log))
	pages.GET("/", h.Kiosk)
	pages.POST("/", h.SignIn)
	pages.GET("/login", h.LoginPage)
	pages.POST("/login", httpmiddleware.NewTokenBucket(opts.LoginPerMin, opts.LoginPerMin).PerIP(), h.Login)
	pages.POST("/logout", h.Logout)

	admin := pages.Group("/admin", auth.Guard(h.sessions, "/login", h.log))
	admin.GET("", h.Dashboard)
	admin.POST("/visitors/:id/signout", h.SignOutVisitor)
	admin.POST("/visitors/:id/edit", h.EditVisitor)
	admin.POST("/visitors/:id/delete", h.DeleteVisitor)
	admin.GET("/visitors/:id/photo", h.VisitorPhoto)
	admin.GET("/export.csv", h.ExportCSV)
	admin.GET("/export.xlsx", h.ExportXLSX)

	api := pages.Group("/api/admin", auth.Guard(h.sessions, "/login", h.log))
	api.GET("/visitors", h.APIVisitors)
	api.GET("/stats", h.APIStats)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// securityHeaders sets the browser hardening headers. The page may use
// its own camera and nothing else may frame it.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(self)")

		// HSTS in release mode only.
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

func requestCounter(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status()/100) + "xx"
		h.metrics.HTTPTotal.WithLabelValues(route, code).Inc()
	}
}
