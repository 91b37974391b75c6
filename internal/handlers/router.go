package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AllowedHeaders are accepted on cross-origin requests.
var AllowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// NewRouter builds a gin engine with recovery, request logging and a
// permissive CORS policy that answers pre-flight requests without a body.
func NewRouter(logger *zap.Logger, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger.Named("http")))
	engine.Use(allowAnyOrigin())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     AllowedHeaders,
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))
	return engine
}

// allowAnyOrigin sets the wildcard origin on every response. cors only
// answers requests that carry an Origin header.
func allowAnyOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
