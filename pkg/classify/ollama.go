package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// chatMessage is one turn in an Ollama /api/chat request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// ollamaClient issues chat completions against a local small-model backend,
// retrying transient transport failures a bounded number of times before the
// caller falls through to its rule-based classifier.
type ollamaClient struct {
	baseURL string
	http    *http.Client
}

func newOllamaClient(baseURL string, timeout time.Duration) *ollamaClient {
	return &ollamaClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// chat issues a single-shot, temperature-0 chat completion with system and
// user messages and returns the raw assistant content.
func (c *ollamaClient) chat(ctx context.Context, model, system, user string) (string, error) {
	reqBody := chatRequest{
		Model:  model,
		Stream: false,
		Options: chatOptions{
			Temperature: 0,
			NumPredict:  128,
		},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	op := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return "", err // retryable: transport failure
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}

		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("ollama returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", backoff.Permanent(fmt.Errorf("ollama returned %d: %s", resp.StatusCode, body))
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", backoff.Permanent(fmt.Errorf("decoding ollama response: %w", err))
		}
		return parsed.Message.Content, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithMaxTries(2),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	)
}

// firstJSONObject extracts the first balanced {...} substring from s (the
// object that opens at the first '{' and ends at its matching '}'),
// tolerating surrounding prose the way a small model's reply often includes.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	var obj json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s[start:])).Decode(&obj); err != nil {
		return "", false
	}
	return string(obj), true
}
