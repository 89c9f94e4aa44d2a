package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPBackend forwards questions to an HTTP answer service speaking a
// small JSON contract: POST {user_id, question} -> {answer}.
type HTTPBackend struct {
	url    string
	client *http.Client
}

// NewHTTPBackend creates a backend client for the given endpoint URL.
func NewHTTPBackend(url string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBackend{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type backendRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

type backendResponse struct {
	Answer string `json:"answer"`
}

// Answer implements Backend.
func (b *HTTPBackend) Answer(ctx context.Context, userID, question string) (string, error) {
	body, err := json.Marshal(backendRequest{UserID: userID, Question: question})
	if err != nil {
		return "", fmt.Errorf("encoding backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling answer backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded amount so error logs stay sane.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("answer backend returned %d: %s", resp.StatusCode, string(snippet))
	}

	var out backendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding backend response: %w", err)
	}
	return out.Answer, nil
}

// StaticBackend returns a fixed answer for every question. Useful in
// tests and for smoke deployments.
type StaticBackend struct {
	Reply string
}

func (b *StaticBackend) Answer(_ context.Context, _ string, _ string) (string, error) {
	return b.Reply, nil
}
