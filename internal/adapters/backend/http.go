package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

// maxErrorBody bounds how much of a failed response ends up in an error message.
const maxErrorBody = 512

// HTTPClient calls the console's ask and confirm-source routes.
type HTTPClient struct {
	baseURL     string
	askPath     string
	confirmPath string
	httpClient  *http.Client
}

// NewHTTPClient creates a backend client. A zero timeout leaves requests bounded
// only by their context.
func NewHTTPClient(baseURL, askPath, confirmPath string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		askPath:     askPath,
		confirmPath: confirmPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Ask(ctx context.Context, req domain.AskRequest) (*domain.AnswerResponse, error) {
	return c.post(ctx, c.askPath, req.RequestID, req)
}

func (c *HTTPClient) ConfirmSource(ctx context.Context, req domain.ConfirmRequest) (*domain.AnswerResponse, error) {
	return c.post(ctx, c.confirmPath, req.RequestID, req)
}

func (c *HTTPClient) post(ctx context.Context, path, requestID string, body any) (*domain.AnswerResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out domain.AnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return &out, nil
}
