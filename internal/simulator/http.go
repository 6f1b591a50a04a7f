package simulator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type apiError struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// HTTPSender posts payloads to the ingest endpoint with the shared API key.
type HTTPSender struct {
	client *resty.Client
}

func NewHTTPSender(baseURL, apiKey string, timeout time.Duration) *HTTPSender {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("X-API-KEY", apiKey).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusServiceUnavailable
		})
	return &HTTPSender{client: client}
}

func (s *HTTPSender) Send(ctx context.Context, p Payload) error {
	var apiErr apiError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(p).
		SetError(&apiErr).
		Post("/api/v1/readings")
	if err != nil {
		return fmt.Errorf("post reading: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		if apiErr.Kind != "" {
			return fmt.Errorf("post reading: %s: %s (%s)", resp.Status(), apiErr.Message, apiErr.Kind)
		}
		return fmt.Errorf("post reading: %s: %s", resp.Status(), apiErr.Message)
	}
	return nil
}
