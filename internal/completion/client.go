// Package completion adapts an ordered transcript to one chat-completions
// call against an OpenAI-compatible endpoint.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zulandar/interviewer/internal/session"
	"github.com/zulandar/interviewer/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultModel is the model requested when none is configured.
const DefaultModel = "gpt-4"

// GatewayError reports a failed completion call: transport failure, non-2xx
// response, or a response that could not be used.
type GatewayError struct {
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion: gateway error (http %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion: gateway error: %v", e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Client sends transcripts to the completion endpoint. It performs exactly
// one request per call; the SDK's automatic retries are disabled.
type Client struct {
	api   openai.Client
	model string
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	APIKey     string
	BaseURL    string       // defaults to the OpenAI API
	Model      string       // defaults to DefaultModel
	HTTPClient *http.Client // optional
}

// New creates a Client.
func New(opts ClientOpts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("completion: api key is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:   openai.NewClient(reqOpts...),
		model: model,
	}, nil
}

// Model returns the model name sent with every request.
func (c *Client) Model() string { return c.model }

// Complete sends turns in order and returns the content of the first choice.
// Every failure is returned as a *GatewayError.
func (c *Client) Complete(ctx context.Context, turns []session.Turn) (reply string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "completion.Complete",
		attribute.String("completion.model", c.model),
		attribute.Int("completion.turns", len(turns)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if len(turns) == 0 {
		return "", &GatewayError{Err: errors.New("empty transcript")}
	}

	messages, err := toMessages(turns)
	if err != nil {
		return "", &GatewayError{Err: err}
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &GatewayError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", &GatewayError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GatewayError{StatusCode: http.StatusOK, Err: errors.New("empty choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// toMessages translates transcript turns into SDK message params.
func toMessages(turns []session.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for i, t := range turns {
		switch t.Role {
		case session.RoleSystem:
			out = append(out, openai.SystemMessage(t.Content))
		case session.RoleUser:
			out = append(out, openai.UserMessage(t.Content))
		case session.RoleAssistant:
			out = append(out, openai.AssistantMessage(t.Content))
		default:
			return nil, fmt.Errorf("turn %d: unknown role %q", i, t.Role)
		}
	}
	return out, nil
}
