// Package relay forwards one image to an external multimodal chat-completion
// provider and normalizes its answer into an analysis.Result.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/example/deeptrust/internal/analysis"
	"github.com/example/deeptrust/internal/imageinput"
)

// Config holds the provider settings. It is passed in explicitly so the
// relay never reads process-wide state.
type Config struct {
	// BaseURL is the provider API root; "/chat/completions" is appended.
	BaseURL string
	APIKey  string
	Model   string
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Relay is stateless apart from its provider client and is safe for
// concurrent use.
type Relay struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// New builds a relay for the configured provider.
func New(cfg Config, logger *zap.Logger) (*Relay, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("relay: provider base url is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("relay: model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	return &Relay{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.Named("relay"),
	}, nil
}

// BuildRequest assembles the chat completion request for one attachment.
func (r *Relay) BuildRequest(att Attachment) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: UserInstruction},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: att.URL()},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

// Analyze makes exactly one provider call for in. It fails with a
// BadRequest error, without calling out, when in carries no image.
func (r *Relay) Analyze(ctx context.Context, in imageinput.ImageInput) (*analysis.Result, error) {
	att, ok := AttachmentFor(in)
	if !ok {
		return nil, analysis.NewError(analysis.KindBadRequest, analysis.MessageMissingInput, nil)
	}

	_, inline := att.(InlineImage)
	r.logger.Debug("calling provider", zap.String("model", r.model), zap.Bool("inline", inline))

	resp, err := r.client.CreateChatCompletion(ctx, r.BuildRequest(att))
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, analysis.NewError(analysis.KindProviderFailure, analysis.MessageEmptyAnalysis, nil)
	}

	result, err := ParseContent(resp.Choices[0].Message.Content)
	if err != nil {
		var typed *analysis.Error
		if errors.As(err, &typed) {
			typed.Detail = resp.Choices[0].Message.Content
		}
		return nil, err
	}
	return result, nil
}

// classify maps a provider error onto the failure taxonomy by HTTP status.
func classify(err error) *analysis.Error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return analysis.NewError(analysis.KindRateLimited, analysis.MessageRateLimited, err)
	case http.StatusPaymentRequired:
		return analysis.NewError(analysis.KindUsageLimitReached, analysis.MessageUsageLimit, err)
	}

	classified := analysis.NewError(analysis.KindProviderFailure, analysis.MessageProviderError, err)
	if status != 0 {
		classified.Detail = fmt.Sprintf("status %d: %s", status, err.Error())
	} else {
		classified.Detail = err.Error()
	}
	return classified
}
