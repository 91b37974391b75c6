// Package relayclient is the caller side of the relay HTTP contract.
package relayclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/example/deeptrust/internal/analysis"
	"github.com/example/deeptrust/internal/imageinput"
	"github.com/example/deeptrust/internal/logging"
	"github.com/example/deeptrust/internal/relay"
)

// AnalyzePath is the relay route for JSON analysis requests.
const AnalyzePath = "/analyze-image"

type analyzeRequest struct {
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Client posts images to a relay. It sets no timeout of its own.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New returns a client for the relay at baseURL. apiKey, when set, is sent
// as a bearer token.
func New(baseURL, apiKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		rc.SetAuthToken(apiKey)
	}
	return &Client{http: rc, logger: logger.Named("relay_client")}
}

// Analyze sends in to the relay and decodes the verdict. A 2xx body goes
// through the same strict parser as model output, so a body with missing or
// unknown fields is a parse failure. Every failure is an *analysis.Error.
func (c *Client) Analyze(ctx context.Context, in imageinput.ImageInput) (*analysis.Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(analyzeRequest{ImageURL: in.URL, ImageBase64: in.Base64}).
		Post(AnalyzePath)
	if err != nil {
		opErr := &logging.OperationError{Operation: "relayclient.analyze", Err: err}
		c.logger.Error("relay request failed", opErr.Fields()...)
		return nil, analysis.NewError(analysis.KindProviderFailure, analysis.MessageProviderError, opErr)
	}

	requestID := resp.Header().Get("X-Request-Id")
	if resp.IsSuccess() {
		result, err := relay.ParseContent(string(resp.Body()))
		if err != nil {
			c.logger.Warn("relay returned an unreadable result",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			return nil, err
		}
		return result, nil
	}

	var failed errorBody
	_ = json.Unmarshal(resp.Body(), &failed)
	message := failed.Error
	if message == "" {
		message = analysis.MessageProviderError
	}
	classified := analysis.NewError(kindFor(resp.StatusCode(), message), message, nil)
	classified.Detail = resp.Status()
	c.logger.Debug("relay returned error",
		zap.Int("status", resp.StatusCode()),
		zap.String("request_id", requestID),
		zap.String("kind", string(classified.Kind)),
	)
	return nil, classified
}

func kindFor(status int, message string) analysis.Kind {
	switch status {
	case http.StatusBadRequest:
		return analysis.KindBadRequest
	case http.StatusTooManyRequests:
		return analysis.KindRateLimited
	case http.StatusPaymentRequired:
		return analysis.KindUsageLimitReached
	case http.StatusUnsupportedMediaType:
		return analysis.KindUnsupportedMediaType
	}
	if message == analysis.MessageParseFailure {
		return analysis.KindParseFailure
	}
	return analysis.KindProviderFailure
}
