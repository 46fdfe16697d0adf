package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

// DefaultOllamaBaseURL is the standard local Ollama endpoint.
const DefaultOllamaBaseURL = "http://localhost:11434"

// Ollama runs models locally; inference is free but slow, so its client gets
// the long local timeout. The stream framing is newline-delimited JSON rather
// than SSE.
type Ollama struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOllama creates the local-inference provider.
func NewOllama(model, baseURL string, timeout time.Duration) *Ollama {
	if model == "" {
		model = "llama3.2"
	}
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return &Ollama{
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ollamaRequest is the /api/chat request envelope.
type ollamaRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
}

// ollamaFrame is one response object, complete or streamed.
type ollamaFrame struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	resp, err := o.post(ctx, &ollamaRequest{Model: o.model, Messages: messages, Stream: false})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UnavailableError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var frame ollamaFrame
	if err := json.Unmarshal(respBody, &frame); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return frame.Message.Content, nil
}

func (o *Ollama) StreamComplete(ctx context.Context, messages []domain.Message, onDelta func(string) error) error {
	resp, err := o.post(ctx, &ollamaRequest{Model: o.model, Messages: messages, Stream: true})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	// Decode newline-delimited JSON frames until the upstream closes the
	// connection. Malformed or contentless lines are skipped.
	reader := bufio.NewReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return &UnavailableError{Err: ctx.Err()}
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &UnavailableError{Err: err}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var frame ollamaFrame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			continue
		}
		if frame.Message.Content == "" {
			continue
		}

		if err := onDelta(frame.Message.Content); err != nil {
			return err
		}
	}
}

// EstimateCost is always zero: local inference is free.
func (o *Ollama) EstimateCost(inputTokens, outputTokens int) float64 {
	return 0
}

func (o *Ollama) post(ctx context.Context, req *ollamaRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return resp, nil
}
