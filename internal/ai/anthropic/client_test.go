package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spigell/finn-ranker/internal/ai"
	"go.uber.org/zap"
)

type recordedRequest struct {
	path   string
	apiKey string
	body   map[string]any
}

func fakeAPI(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		requests = append(requests, recordedRequest{path: r.URL.Path, apiKey: r.Header.Get("X-Api-Key"), body: body})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	return srv, &requests
}

func TestGenerateContent(t *testing.T) {
	srv, requests := fakeAPI(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [
			{"type": "text", "text": "[{\"job_index\": 0,"},
			{"type": "text", "text": "\"match_score\": 80, \"summary\": \"ok\"}]"}
		],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 12, "output_tokens": 20}
	}`)

	g, err := NewGenerator("sk-test", "claude-test", 1000, 0, zap.NewNop(), option.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output, err := g.GenerateContent(context.Background(), "you rank jobs", "the prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "[{\"job_index\": 0,\n\"match_score\": 80, \"summary\": \"ok\"}]"
	if output != want {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected one request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.path != "/v1/messages" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if req.apiKey != "sk-test" {
		t.Fatalf("api key not sent")
	}
	if req.body["model"] != "claude-test" || req.body["max_tokens"] != float64(1000) {
		t.Fatalf("unexpected request body: %v", req.body)
	}
	system, ok := req.body["system"].([]any)
	if !ok || len(system) != 1 || system[0].(map[string]any)["text"] != "you rank jobs" {
		t.Fatalf("system prompt not sent: %v", req.body["system"])
	}
}

func TestGenerateContentRejectedKey(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusUnauthorized,
		`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)

	g, err := NewGenerator("sk-bad", "", 0, 0, zap.NewNop(), option.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = g.GenerateContent(context.Background(), "", "the prompt")
	if !errors.Is(err, ai.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGenerateContentEmptyAnswer(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, `{
		"id": "msg_02", "type": "message", "role": "assistant", "model": "claude-test",
		"content": [], "stop_reason": "end_turn", "stop_sequence": null,
		"usage": {"input_tokens": 1, "output_tokens": 0}
	}`)

	g, err := NewGenerator("sk-test", "claude-test", 0, 0, zap.NewNop(), option.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := g.GenerateContent(context.Background(), "", "prompt"); !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewGeneratorDefaults(t *testing.T) {
	if _, err := NewGenerator("  ", "", 0, 0, zap.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}

	g, err := NewGenerator("sk-test", "", 0, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Model() != defaultModel || g.maxTokens != defaultMaxTokens {
		t.Fatalf("unexpected defaults: %s %d", g.Model(), g.maxTokens)
	}
}
