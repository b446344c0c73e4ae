package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	requestTimeout = 10 * time.Second
	// vendors allow roughly 100 requests per 10 seconds per key
	requestsPerSecond = 10
	requestBurst      = 10
)

// apiClient is the JSON-over-HTTP transport shared by the vendor adapters.
type apiClient struct {
	baseURL string
	headers map[string]string
	http    *http.Client
	limiter *rate.Limiter
}

func newAPIClient(baseURL string, headers map[string]string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

type apiResponse struct {
	status int
	body   []byte
}

func (r apiResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r apiResponse) decode(out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (r apiResponse) text() string {
	return strings.TrimSpace(string(r.body))
}

// do sends one request. A non-2xx status is not an error here.
func (c *apiClient) do(ctx context.Context, method, path string, body any) (apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return apiResponse{}, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apiResponse{}, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apiResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("read response: %w", err)
	}
	return apiResponse{status: resp.StatusCode, body: data}, nil
}
