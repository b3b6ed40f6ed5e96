package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/deckforge/deckforge-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func responsesPayload(text string) map[string]any {
	return map[string]any{
		"model": "test-model",
		"output": []map[string]any{
			{
				"type": "message",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "output_text", "text": text},
				},
			},
		},
		"usage": map[string]any{"input_tokens": 12, "output_tokens": 34},
	}
}

func TestGenerateReturnsContentAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(responsesPayload("hello cards"))
	}))
	defer srv.Close()

	c := NewClientWith(testLogger(t), srv.URL, "test-key", "test-model", 0)
	res, err := c.Generate(context.Background(), GenerateParams{System: "s", User: "u", Temperature: 0.7, MaxTokens: 100})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Content != "hello cards" {
		t.Fatalf("unexpected content %q", res.Content)
	}
	if res.InputTokens != 12 || res.OutputTokens != 34 {
		t.Fatalf("unexpected usage %d/%d", res.InputTokens, res.OutputTokens)
	}
	if res.FinishReason != "stop" {
		t.Fatalf("unexpected finish reason %q", res.FinishReason)
	}
}

func TestGenerateRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(responsesPayload("recovered"))
	}))
	defer srv.Close()

	c := NewClientWith(testLogger(t), srv.URL, "test-key", "test-model", 2)
	res, err := c.Generate(context.Background(), GenerateParams{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Content != "recovered" {
		t.Fatalf("unexpected content %q", res.Content)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestGenerateDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClientWith(testLogger(t), srv.URL, "test-key", "test-model", 3)
	if _, err := c.Generate(context.Background(), GenerateParams{System: "s", User: "u"}); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestGenerateRequiresSchemaName(t *testing.T) {
	c := NewClientWith(testLogger(t), "http://127.0.0.1:0", "k", "m", 0)
	_, err := c.Generate(context.Background(), GenerateParams{
		System:         "s",
		User:           "u",
		ResponseSchema: map[string]any{"type": "object"},
	})
	if err == nil {
		t.Fatal("expected error for missing schema name")
	}
}

func TestVerifyClaimParsesStructuredResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		text, _ := body["text"].(map[string]any)
		if text == nil || text["format"] == nil {
			t.Errorf("expected json_schema format in request")
		}
		verdict := `{"confidence":0.85,"sources":["encyclopedia"],"reasoning":"well documented"}`
		_ = json.NewEncoder(w).Encode(responsesPayload(verdict))
	}))
	defer srv.Close()

	c := NewClientWith(testLogger(t), srv.URL, "test-key", "test-model", 0)
	out, err := c.VerifyClaim(context.Background(), "water boils at 100C at sea level", "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Confidence != 0.85 {
		t.Fatalf("unexpected confidence %v", out.Confidence)
	}
	if len(out.Sources) != 1 || out.Sources[0] != "encyclopedia" {
		t.Fatalf("unexpected sources %v", out.Sources)
	}
}

func TestVerifyClaimRequiresClaim(t *testing.T) {
	c := NewClientWith(testLogger(t), "http://127.0.0.1:0", "k", "m", 0)
	if _, err := c.VerifyClaim(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty claim")
	}
}
