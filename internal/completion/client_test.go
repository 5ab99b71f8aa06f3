package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zulandar/interviewer/internal/session"
)

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

// newTestClient starts a server running handler and returns a Client aimed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(ClientOpts{
		APIKey:     "sk-test",
		BaseURL:    srv.URL + "/v1/",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(ClientOpts{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestNewDefaultsModel(t *testing.T) {
	c, err := New(ClientOpts{APIKey: "sk"})
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.Model())
}

func TestCompleteSendsTranscriptInOrder(t *testing.T) {
	var (
		got       wireRequest
		gotPath   string
		gotAuth   string
		decodeErr error
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		decodeErr = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("What is a closure?")))
	})

	reply, err := c.Complete(context.Background(), []session.Turn{
		session.SystemTurn("You are an interviewer."),
		session.AssistantTurn("Tell me about yourself."),
		session.UserTurn("I write Go."),
	})
	require.NoError(t, err)
	require.Equal(t, "What is a closure?", reply)

	require.NoError(t, decodeErr)
	require.Equal(t, "/v1/chat/completions", gotPath)
	require.Equal(t, "Bearer sk-test", gotAuth)

	require.Equal(t, DefaultModel, got.Model)
	require.Equal(t, []wireMessage{
		{Role: "system", Content: "You are an interviewer."},
		{Role: "assistant", Content: "Tell me about yourself."},
		{Role: "user", Content: "I write Go."},
	}, got.Messages)
}

func TestCompleteHTTPErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	})

	_, err := c.Complete(context.Background(), []session.Turn{session.SystemTurn("x")})
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusInternalServerError, gwErr.StatusCode)
	require.EqualValues(t, 1, calls.Load(), "expected a single request with retries disabled")
}

func TestCompleteEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := c.Complete(context.Background(), []session.Turn{session.SystemTurn("x")})
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Contains(t, err.Error(), "empty choices")
}

func TestCompleteMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := c.Complete(context.Background(), []session.Turn{session.SystemTurn("x")})
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestCompleteNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(ClientOpts{APIKey: "sk", BaseURL: url + "/v1/"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), []session.Turn{session.SystemTurn("x")})
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Zero(t, gwErr.StatusCode)
	require.NotNil(t, errors.Unwrap(gwErr))
}

func TestCompleteRejectsEmptyTranscript(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.Complete(context.Background(), nil)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Zero(t, calls.Load())
}

func TestCompleteRejectsUnknownRole(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.Complete(context.Background(), []session.Turn{{Role: "tool", Content: "x"}})
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Contains(t, err.Error(), "unknown role")
	require.Zero(t, calls.Load())
}
