package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/deeptrust/internal/analysis"
	"github.com/example/deeptrust/internal/imageinput"
	"github.com/example/deeptrust/internal/usecase"
)

// MaxUploadSize is the default cap on request bodies.
const MaxUploadSize = 10 << 20

// jsonEnvelope covers the data URI header and the JSON field names around an
// inline image.
const jsonEnvelope = 1 << 10

// JSONBodyLimit is the JSON body cap that admits a base64 encoding of an
// upload of the given size.
func JSONBodyLimit(uploadLimit int64) int64 {
	return (uploadLimit+2)/3*4 + jsonEnvelope
}

// AnalyzeRequest is the relay request body. Exactly one field should be set.
type AnalyzeRequest struct {
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// Options tunes the registered routes.
type Options struct {
	MaxUploadSize int64
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc *usecase.AnalysisUseCase, opts Options) {
	limit := opts.MaxUploadSize
	if limit <= 0 {
		limit = MaxUploadSize
	}
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metricsHandler))

	jsonLimit := JSONBodyLimit(limit)

	router.POST("/analyze-image", func(c *gin.Context) {
		if c.Request.ContentLength > jsonLimit {
			respondError(c, http.StatusRequestEntityTooLarge, "image payload too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, jsonLimit)

		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "image payload too large")
				return
			}
			respondError(c, http.StatusBadRequest, "invalid JSON body")
			return
		}

		in := imageinput.ImageInput{URL: req.ImageURL, Base64: req.ImageBase64}
		if in.IsZero() {
			respondError(c, http.StatusBadRequest, analysis.MessageMissingInput)
			return
		}
		analyze(c, uc, in)
	})

	router.POST("/analyze-image/upload", func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			respondError(c, http.StatusRequestEntityTooLarge, "image payload too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		file, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "image payload too large")
				return
			}
			respondError(c, http.StatusBadRequest, "image file is required")
			return
		}

		src, err := file.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "unable to open image")
			return
		}
		defer src.Close()

		in, err := imageinput.FromFile(src, file.Header.Get("Content-Type"))
		if err != nil {
			if errors.Is(err, analysis.ErrUnsupportedMediaType) {
				respondError(c, http.StatusUnsupportedMediaType, analysis.MessageUnsupported)
				return
			}
			respondError(c, http.StatusInternalServerError, "failed to read image")
			return
		}
		analyze(c, uc, in)
	})
}

func analyze(c *gin.Context, uc *usecase.AnalysisUseCase, in imageinput.ImageInput) {
	requestID, result, err := uc.AnalyzeImage(c.Request.Context(), in)
	c.Header("X-Request-Id", requestID)
	if err != nil {
		classified := analysis.AsError(err)
		respondError(c, StatusFor(classified.Kind), classified.Message)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StatusFor maps a failure kind onto the relay's HTTP status.
func StatusFor(kind analysis.Kind) int {
	switch kind {
	case analysis.KindBadRequest:
		return http.StatusBadRequest
	case analysis.KindRateLimited:
		return http.StatusTooManyRequests
	case analysis.KindUsageLimitReached:
		return http.StatusPaymentRequired
	case analysis.KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
