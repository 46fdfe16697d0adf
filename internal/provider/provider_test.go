package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

func testMessages() []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: "You are a helper."},
		{Role: domain.RoleUser, Content: "hello"},
	}
}

func TestHostedComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", auth)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Fatalf("expected non-streaming request")
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected full history, got %d messages", len(req.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`)
	}))
	defer server.Close()

	client := newHostedClient("openai", server.URL, "test-key", "gpt-4o-mini", openAIPricing, "gpt-4o-mini", time.Second)
	text, err := client.Complete(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "hi there" {
		t.Fatalf("unexpected response: %q", text)
	}
}

func TestHostedCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"rate limited"}`)
	}))
	defer server.Close()

	client := newHostedClient("openai", server.URL, "k", "gpt-4o-mini", openAIPricing, "gpt-4o-mini", time.Second)
	_, err := client.Complete(context.Background(), testMessages())

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", upstreamErr.Status)
	}
	if upstreamErr.Body != `{"error":"rate limited"}` {
		t.Fatalf("unexpected body: %q", upstreamErr.Body)
	}
}

func TestHostedCompleteUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newHostedClient("openai", server.URL, "k", "gpt-4o-mini", openAIPricing, "gpt-4o-mini", time.Second)
	_, err := client.Complete(context.Background(), testMessages())

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}

func TestHostedStreamComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Fatalf("expected streaming request")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		fmt.Fprint(w, "data: {not valid json\n\n")                          // malformed, skipped
		fmt.Fprint(w, ": keepalive comment\n\n")                            // no data prefix, skipped
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")           // no content, skipped
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"never\"}}]}\n\n") // after DONE, ignored
	}))
	defer server.Close()

	client := newHostedClient("groq", server.URL, "k", "llama-3.3-70b-versatile", groqPricing, "llama-3.3-70b-versatile", time.Second)
	var deltas []string
	err := client.StreamComplete(context.Background(), testMessages(), func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamComplete failed: %v", err)
	}
	if len(deltas) != 2 || deltas[0] != "Hi" || deltas[1] != " there" {
		t.Fatalf("unexpected deltas: %v", deltas)
	}
}

func TestHostedStreamCompleteEndsAtEOF(t *testing.T) {
	// No [DONE] sentinel: the stream ends naturally when the upstream
	// closes the connection.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	}))
	defer server.Close()

	client := newHostedClient("openai", server.URL, "k", "gpt-4o-mini", openAIPricing, "gpt-4o-mini", time.Second)
	var deltas []string
	err := client.StreamComplete(context.Background(), testMessages(), func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamComplete failed: %v", err)
	}
	if len(deltas) != 1 || deltas[0] != "partial" {
		t.Fatalf("unexpected deltas: %v", deltas)
	}
}

func TestHostedStreamCompleteCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newHostedClient("openai", server.URL, "k", "gpt-4o-mini", openAIPricing, "gpt-4o-mini", time.Second)
	sentinel := errors.New("client went away")
	err := client.StreamComplete(context.Background(), testMessages(), func(string) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error to propagate, got %v", err)
	}
}

func TestOllamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Fatalf("expected non-streaming request")
		}
		if req.Model != "llama3.2" {
			t.Fatalf("unexpected model: %s", req.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"local reply"},"done":true}`)
	}))
	defer server.Close()

	o := NewOllama("", server.URL, time.Second)
	text, err := o.Complete(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "local reply" {
		t.Fatalf("unexpected response: %q", text)
	}
}

func TestOllamaStreamComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, "{\"message\":{\"role\":\"assistant\",\"content\":\"Hi\"},\"done\":false}\n")
		fmt.Fprint(w, "garbage line\n")                                      // malformed, skipped
		fmt.Fprint(w, "\n")                                                  // blank, skipped
		fmt.Fprint(w, "{\"message\":{\"role\":\"assistant\",\"content\":\" there\"},\"done\":false}\n")
		fmt.Fprint(w, "{\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true}\n")
	}))
	defer server.Close()

	o := NewOllama("llama3.2", server.URL, time.Second)
	var deltas []string
	err := o.StreamComplete(context.Background(), testMessages(), func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamComplete failed: %v", err)
	}
	if len(deltas) != 2 || deltas[0] != "Hi" || deltas[1] != " there" {
		t.Fatalf("unexpected deltas: %v", deltas)
	}
}

func TestOllamaStreamCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model not found"}`)
	}))
	defer server.Close()

	o := NewOllama("llama3.2", server.URL, time.Second)
	err := o.StreamComplete(context.Background(), testMessages(), func(string) error { return nil })

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestOllamaEstimateCostIsFree(t *testing.T) {
	o := NewOllama("llama3.2", "", time.Second)
	if cost := o.EstimateCost(100000, 100000); cost != 0 {
		t.Fatalf("expected zero cost, got %f", cost)
	}
	if cost := o.EstimateCost(0, 0); cost != 0 {
		t.Fatalf("expected zero cost, got %f", cost)
	}
}
