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

// hostedClient implements Provider for the OpenAI-compatible hosted backends.
// The three hosted providers share this client and differ only in endpoint,
// auth headers and pricing table. Configuration is bound once at construction;
// the http.Client is shared across turns and safe for concurrent use.
type hostedClient struct {
	name          string
	endpoint      string
	apiKey        string
	model         string
	extraHeaders  map[string]string
	temperature   *float64
	pricing       Table
	fallbackModel string
	httpClient    *http.Client
}

func newHostedClient(name, endpoint, apiKey, model string, pricing Table, fallbackModel string, timeout time.Duration) *hostedClient {
	return &hostedClient{
		name:          name,
		endpoint:      endpoint,
		apiKey:        apiKey,
		model:         model,
		pricing:       pricing,
		fallbackModel: fallbackModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// chatRequest is the OpenAI-compatible request envelope.
type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

// chatResponse is the non-streaming response envelope.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// streamChunk is a single SSE chunk from the stream.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *hostedClient) Name() string { return c.name }

func (c *hostedClient) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	resp, err := c.post(ctx, &chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
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

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}

	return result.Choices[0].Message.Content, nil
}

func (c *hostedClient) StreamComplete(ctx context.Context, messages []domain.Message, onDelta func(string) error) error {
	resp, err := c.post(ctx, &chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return decodeSSE(ctx, resp.Body, onDelta)
}

// decodeSSE reads `data: <json>` server-sent-event lines until EOF or the
// [DONE] sentinel, forwarding each non-empty content delta. Malformed or
// contentless frames are skipped rather than aborting the stream.
func decodeSSE(ctx context.Context, body io.Reader, onDelta func(string) error) error {
	reader := bufio.NewReader(body)

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
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		if err := onDelta(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

func (c *hostedClient) EstimateCost(inputTokens, outputTokens int) float64 {
	return c.pricing.Cost(c.model, c.fallbackModel, inputTokens, outputTokens)
}

func (c *hostedClient) post(ctx context.Context, req *chatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for key, val := range c.extraHeaders {
		httpReq.Header.Set(key, val)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return resp, nil
}
