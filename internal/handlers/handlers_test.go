package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/deeptrust/internal/analysis"
	"github.com/example/deeptrust/internal/imageinput"
	"github.com/example/deeptrust/internal/relay"
	"github.com/example/deeptrust/internal/usecase"
)

const sampleAnalysis = `{"confidence":92,"verdict":"AI_GENERATED","signals":[{"name":"Anatomical Errors","detected":true,"severity":"high","description":"Irregular finger count"}],"summary":"Multiple strong indicators of synthesis."}`

const testUploadLimit = 1 << 10

type stubAnalyzer struct {
	result *analysis.Result
	err    error
	calls  []imageinput.ImageInput
}

func (s *stubAnalyzer) Analyze(ctx context.Context, in imageinput.ImageInput) (*analysis.Result, error) {
	s.calls = append(s.calls, in)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func okAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{result: &analysis.Result{Confidence: 12, Verdict: analysis.VerdictReal, Signals: []analysis.Signal{}, Summary: "ok"}}
}

func newTestRouter(t *testing.T, analyzer usecase.Analyzer) *gin.Engine {
	t.Helper()
	router := NewRouter(zap.NewNop(), false)
	RegisterRoutes(router, usecase.NewAnalysisUseCase(analyzer, zap.NewNop()), Options{MaxUploadSize: testUploadLimit})
	return router
}

func postJSON(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze-image", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://deeptrust.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func postUpload(t *testing.T, router http.Handler, contentType string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, formType := buildMultipartBody(t, contentType, payload)
	req := httptest.NewRequest(http.MethodPost, "/analyze-image/upload", body)
	req.Header.Set("Content-Type", formType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func errorMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), resp.Body.String())
	return body["error"]
}

func TestAnalyzeImageEndToEndWithProvider(t *testing.T) {
	var providerCalls atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "```json\n" + sampleAnalysis + "\n```"}}},
		})
	}))
	defer provider.Close()

	rl, err := relay.New(relay.Config{BaseURL: provider.URL, Model: "test-model"}, zap.NewNop())
	require.NoError(t, err)
	router := newTestRouter(t, rl)

	resp := postJSON(t, router, `{"imageUrl":"https://example.com/photo.jpg"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
	assert.JSONEq(t, sampleAnalysis, resp.Body.String())
	assert.EqualValues(t, 1, providerCalls.Load())
}

func TestAnalyzeImageMissingInput(t *testing.T) {
	stub := &stubAnalyzer{}
	router := newTestRouter(t, stub)

	resp := postJSON(t, router, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, analysis.MessageMissingInput, errorMessage(t, resp))
	assert.Empty(t, stub.calls)
}

func TestAnalyzeImageMalformedJSON(t *testing.T) {
	stub := &stubAnalyzer{}
	router := newTestRouter(t, stub)

	resp := postJSON(t, router, `{"imageUrl":`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid JSON body", errorMessage(t, resp))
	assert.Empty(t, stub.calls)
}

func TestAnalyzeImageMapsFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"rate limited", analysis.NewError(analysis.KindRateLimited, analysis.MessageRateLimited, nil), http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment."},
		{"usage limit", analysis.NewError(analysis.KindUsageLimitReached, analysis.MessageUsageLimit, nil), http.StatusPaymentRequired, "Usage limit reached. Please add credits to continue."},
		{"parse failure", analysis.NewError(analysis.KindParseFailure, analysis.MessageParseFailure, nil), http.StatusInternalServerError, "Failed to parse analysis results"},
		{"provider failure", &analysis.Error{Kind: analysis.KindProviderFailure, Message: analysis.MessageProviderError, Detail: "secret upstream text"}, http.StatusInternalServerError, "Failed to analyze image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubAnalyzer{err: tt.err})
			resp := postJSON(t, router, `{"imageBase64":"AAAA"}`)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.message, errorMessage(t, resp))
			assert.NotContains(t, resp.Body.String(), "secret upstream text")
		})
	}
}

func TestAnalyzeImageRejectsOversizedBody(t *testing.T) {
	stub := &stubAnalyzer{}
	router := newTestRouter(t, stub)

	resp := postJSON(t, router, `{"imageBase64":"`+strings.Repeat("A", 4<<10)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Empty(t, stub.calls)
}

func TestAnalyzeImageAcceptsEncodedUploadSizedImage(t *testing.T) {
	stub := okAnalyzer()
	router := newTestRouter(t, stub)

	payload := bytes.Repeat([]byte{0xff}, testUploadLimit)
	uri := imageinput.DataURI("image/jpeg", payload)
	require.Greater(t, int64(len(uri)), int64(testUploadLimit))

	resp := postJSON(t, router, `{"imageBase64":"`+uri+`"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Len(t, stub.calls, 1)
	assert.Equal(t, uri, stub.calls[0].Base64)
}

func TestJSONBodyLimitCoversBase64Growth(t *testing.T) {
	for _, n := range []int64{1, 3, 1 << 10, 10 << 20} {
		encoded := (n + 2) / 3 * 4
		assert.Greater(t, JSONBodyLimit(n), encoded+int64(len(`{"imageBase64":"data:image/jpeg;base64,"}`)), "upload limit %d", n)
	}
}

func TestResponsesCarryOriginWithoutOriginHeader(t *testing.T) {
	router := newTestRouter(t, &stubAnalyzer{})

	req := httptest.NewRequest(http.MethodPost, "/analyze-image", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightAnswersWithoutBody(t *testing.T) {
	router := newTestRouter(t, &stubAnalyzer{})

	req := httptest.NewRequest(http.MethodOptions, "/analyze-image", nil)
	req.Header.Set("Origin", "https://deeptrust.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type, apikey")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Less(t, resp.Code, 300)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, resp.Body.Len())
}

func TestUploadRejectsUnsupportedContentType(t *testing.T) {
	stub := &stubAnalyzer{}
	router := newTestRouter(t, stub)

	resp := postUpload(t, router, "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)
	assert.Equal(t, analysis.MessageUnsupported, errorMessage(t, resp))
	assert.Empty(t, stub.calls)
}

func TestUploadRejectsLargeUpload(t *testing.T) {
	stub := &stubAnalyzer{}
	router := newTestRouter(t, stub)

	resp := postUpload(t, router, "image/png", bytes.Repeat([]byte("a"), 2<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Empty(t, stub.calls)
}

func TestUploadForwardsDataURI(t *testing.T) {
	stub := okAnalyzer()
	router := newTestRouter(t, stub)

	resp := postUpload(t, router, "image/png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Len(t, stub.calls, 1)
	assert.Equal(t, imageinput.DataURI("image/png", []byte("png-bytes")), stub.calls[0].Base64)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, &stubAnalyzer{})

	for _, path := range []string{"/health", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestStatusForCoversEveryKind(t *testing.T) {
	cases := map[analysis.Kind]int{
		analysis.KindBadRequest:           http.StatusBadRequest,
		analysis.KindRateLimited:          http.StatusTooManyRequests,
		analysis.KindUsageLimitReached:    http.StatusPaymentRequired,
		analysis.KindProviderFailure:      http.StatusInternalServerError,
		analysis.KindParseFailure:         http.StatusInternalServerError,
		analysis.KindUnsupportedMediaType: http.StatusUnsupportedMediaType,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusFor(kind), string(kind))
	}
}

func buildMultipartBody(t *testing.T, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="upload"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}
