package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/activityagent/logging"
	"github.com/hupe1980/activityagent/model"
	"github.com/hupe1980/activityagent/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReplier struct {
	mock.Mock
}

func (m *mockReplier) Generate(ctx context.Context, instruction string) (map[string]any, error) {
	args := m.Called(ctx, instruction)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

func newTestServer(t *testing.T, replier Replier, optFns ...func(o *HandlerOptions)) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	fns := append([]func(o *HandlerOptions){func(o *HandlerOptions) { o.Logger = logger }}, optFns...)
	srv := httptest.NewServer(NewRouter(NewHandler(replier, fns...), logger))
	t.Cleanup(srv.Close)
	return srv, &buf
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHandleChatReply_EmptyBodyForwardsResultOnce(t *testing.T) {
	r := &mockReplier{}
	result := map[string]any{"output": `{"name":"Reading","duration":600}`}
	r.On("Generate", mock.Anything, "").Return(result, nil).Once()

	srv, logs := newTestServer(t, r)

	resp, out := post(t, srv.URL+"/", "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, result, out)

	r.AssertExpectations(t)
	r.AssertNumberOfCalls(t, "Generate", 1)
	assert.Contains(t, logs.String(), "http request")
}

func TestHandleChatReply_InputForwarded(t *testing.T) {
	r := &mockReplier{}
	r.On("Generate", mock.Anything, "Create an activity named Running").Return(map[string]any{"output": "ok"}, nil).Once()

	srv, _ := newTestServer(t, r)

	resp, out := post(t, srv.URL+"/", `{"input":"Create an activity named Running"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ok", out["output"])
	r.AssertExpectations(t)
}

func TestHandleChatReply_EmptyObjectUsesDefault(t *testing.T) {
	r := &mockReplier{}
	r.On("Generate", mock.Anything, "").Return(map[string]any{"output": "ok"}, nil).Once()

	srv, _ := newTestServer(t, r)

	resp, _ := post(t, srv.URL+"/", `{}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	r.AssertExpectations(t)
}

func TestHandleChatReply_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blank", `{"input":"   "}`},
		{"control char", `{"input":"a\u0000b"}`},
		{"too long", fmt.Sprintf(`{"input":%q}`, strings.Repeat("a", 11))},
		{"unknown field", `{"input":"x","extra":true}`},
		{"malformed", `{"input":`},
		{"wrong type", `{"input":42}`},
		{"trailing data", `{"input":"x"} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &mockReplier{}
			srv, _ := newTestServer(t, r, func(o *HandlerOptions) { o.MaxInputLength = 10 })

			resp, out := post(t, srv.URL+"/", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_input", out["error"].(map[string]any)["kind"])
			r.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleChatReply_BodyTooLarge(t *testing.T) {
	r := &mockReplier{}
	srv, _ := newTestServer(t, r, func(o *HandlerOptions) { o.MaxBodySize = 16 })

	resp, out := post(t, srv.URL+"/", fmt.Sprintf(`{"input":%q}`, strings.Repeat("a", 64)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "invalid_input", out["error"].(map[string]any)["kind"])
}

func TestHandleChatReply_ModelNetworkError(t *testing.T) {
	providerErr := &model.ProviderError{Provider: "openai", Err: errors.New("dial tcp: connection refused")}
	r := &mockReplier{}
	r.On("Generate", mock.Anything, "").Return(nil, &reply.Error{Kind: reply.KindModelProvider, Err: providerErr}).Once()

	srv, logs := newTestServer(t, r)

	resp, out := post(t, srv.URL+"/", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	detail := out["error"].(map[string]any)
	assert.Equal(t, "model_provider_failure", detail["kind"])
	assert.Contains(t, detail["message"], "connection refused")
	assert.Contains(t, logs.String(), "connection refused")
	assert.Contains(t, logs.String(), "api.reply.failed")
}

func TestHandleChatReply_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&reply.Error{Kind: reply.KindInvalidCredential, Err: reply.ErrMissingCredential}, http.StatusInternalServerError, "invalid_credential"},
		{&reply.Error{Kind: reply.KindToolExecution, Err: errors.New("tool")}, http.StatusInternalServerError, "tool_execution_failure"},
		{&reply.Error{Kind: reply.KindExecutor, Err: errors.New("loop")}, http.StatusInternalServerError, "executor_failure"},
		{errors.New("unclassified"), http.StatusInternalServerError, "executor_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			r := &mockReplier{}
			r.On("Generate", mock.Anything, "").Return(nil, tt.err).Once()
			srv, _ := newTestServer(t, r)

			resp, out := post(t, srv.URL+"/", "")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, out["error"].(map[string]any)["kind"])
		})
	}
}

func TestHandleChatReply_RequestTimeout(t *testing.T) {
	r := &mockReplier{}
	r.On("Generate", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "").Return(map[string]any{"output": "ok"}, nil).Once()

	srv, _ := newTestServer(t, r, func(o *HandlerOptions) { o.RequestTimeout = time.Minute })

	resp, _ := post(t, srv.URL+"/", "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	r.AssertExpectations(t)
}

type echoReplier struct{}

func (echoReplier) Generate(_ context.Context, instruction string) (map[string]any, error) {
	time.Sleep(10 * time.Millisecond)
	return map[string]any{"output": "reply to " + instruction}, nil
}

func TestHandleChatReply_ConcurrentRequestsIndependent(t *testing.T) {
	srv, _ := newTestServer(t, echoReplier{})

	var wg sync.WaitGroup
	outputs := make([]any, 8)
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(fmt.Sprintf(`{"input":"task %d"}`, i)))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			var out map[string]any
			if assert.NoError(t, json.NewDecoder(resp.Body).Decode(&out)) {
				outputs[i] = out["output"]
			}
		}(i)
	}
	wg.Wait()

	for i, out := range outputs {
		assert.Equal(t, fmt.Sprintf("reply to task %d", i), out)
	}
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t, &mockReplier{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &mockReplier{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, ValidateInput("Create an activity\n\twith tabs\r\n", 100))
	assert.NoError(t, ValidateInput("日本語", 3))
	assert.ErrorIs(t, ValidateInput("日本語!", 3), ErrInvalidInput)
	assert.ErrorIs(t, ValidateInput("", 0), ErrInvalidInput)
	assert.ErrorIs(t, ValidateInput("\xff", 0), ErrInvalidInput)
	assert.ErrorIs(t, ValidateInput("bell\a", 0), ErrInvalidInput)
	assert.NoError(t, ValidateInput(strings.Repeat("a", 5000), 0))
}
