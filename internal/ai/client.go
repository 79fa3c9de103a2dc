package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client is the stateful conversational model service the comment pipeline
// talks to: create a server-side conversation, then stream one response into
// it. Any implementation that buffers a full reply (or fails) satisfies the
// runner.
type Client interface {
	CreateConversation(ctx context.Context) (string, error)
	StreamMessage(ctx context.Context, conversationID, instructions, message string, onDelta func(delta string)) (string, error)
}

const defaultBaseURL = "https://api.openai.com"

// HTTPClient talks to the OpenAI Conversations + Responses APIs directly
// over HTTP with SSE streaming.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPClient(apiKey, baseURL, model string, log *zap.Logger) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		// Streaming runs can sit for a while between deltas; the timeout
		// bounds the whole response, not a single read.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        log,
	}
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("model service http %d: %s", e.StatusCode, e.Body)
}

type responsesRequest struct {
	Model        string         `json:"model"`
	Conversation string         `json:"conversation,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Input        []inputMessage `json:"input"`
	Stream       bool           `json:"stream,omitempty"`
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CreateConversation opens a fresh server-side conversation and returns its id.
func (c *HTTPClient) CreateConversation(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]any{})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/conversations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req, false)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode conversation: %w", err)
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", fmt.Errorf("create conversation: missing id")
	}
	return strings.TrimSpace(out.ID), nil
}

// StreamMessage appends one user message to the conversation, streams the
// model's response, and returns the accumulated output text. Every non-empty
// output_text delta is also forwarded to onDelta when set.
func (c *HTTPClient) StreamMessage(ctx context.Context, conversationID, instructions, message string, onDelta func(string)) (string, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return "", fmt.Errorf("conversation id required")
	}

	reqBody := responsesRequest{
		Model:        c.model,
		Conversation: conversationID,
		Instructions: strings.TrimSpace(instructions),
		Input:        []inputMessage{{Role: "user", Content: message}},
		Stream:       true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req, true)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var full strings.Builder
	err = streamSSE(resp.Body, func(event, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			// Non-JSON frames are transport noise; skip them.
			return nil
		}

		evt := strings.TrimSpace(event)
		if t, ok := obj["type"].(string); ok && strings.TrimSpace(t) != "" {
			evt = strings.TrimSpace(t)
		}

		if r, ok := obj["refusal"].(string); ok && strings.TrimSpace(r) != "" {
			return fmt.Errorf("model refused: %s", r)
		}
		if eAny, ok := obj["error"]; ok && eAny != nil {
			b, _ := json.Marshal(eAny)
			return fmt.Errorf("model stream error: %s", string(b))
		}
		if strings.Contains(evt, "response.failed") {
			return fmt.Errorf("model run failed")
		}

		if d, ok := obj["delta"].(string); ok && d != "" && strings.Contains(evt, "output_text.delta") {
			full.WriteString(d)
			if onDelta != nil {
				onDelta(d)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return full.String(), nil
}

func (c *HTTPClient) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
}
