// Package client talks to the lending api that owns users, lines, customers
// and loans.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	logger     *logrus.Logger
}

func New(cfg Config, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// APIError is a non-retryable error status returned by the lending api.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("lending api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("lending api returned %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return target == apperrors.ErrUpstream
}

// execute sends one request and decodes a 2xx body into decodeResponse when it
// is non-nil. 429 responses are retried up to maxRetries times, 5xx responses
// only for reads since a write may already have been applied.
func (c *Client) execute(ctx context.Context, method, path, token string, body, decodeResponse interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable to encode request body: %w", err)
		}
	}

	url := c.baseURL + path

	for attempt := 0; ; attempt++ {
		request, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("unable to create request: %w", err)
		}

		request.Header.Set("Accept", "application/json")
		if body != nil {
			request.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}

		response, err := c.httpClient.Do(request)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %v", apperrors.ErrUpstream, method, path, err)
		}

		responseBody, err := io.ReadAll(response.Body)
		response.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: reading response body: %v", apperrors.ErrUpstream, err)
		}

		status := response.StatusCode
		switch {
		case status >= 200 && status < 300:
			if decodeResponse == nil || len(bytes.TrimSpace(responseBody)) == 0 {
				return nil
			}
			if err := json.Unmarshal(responseBody, decodeResponse); err != nil {
				return fmt.Errorf("%w: decoding %s %s: %v", apperrors.ErrUpstream, method, path, err)
			}
			return nil

		case status == http.StatusUnauthorized:
			return apperrors.ErrUnauthorized

		case status == http.StatusForbidden:
			return apperrors.ErrAccountFrozen

		case status == http.StatusNotFound:
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, path)
		}

		retryable := status == http.StatusTooManyRequests ||
			(status >= http.StatusInternalServerError && retriesServerErrors(method))
		if !retryable {
			return &APIError{StatusCode: status, Detail: errorDetail(responseBody)}
		}
		if attempt >= c.maxRetries {
			return fmt.Errorf("%w: %s %s gave up after %d attempts (last status %d)", apperrors.ErrUpstream, method, path, attempt+1, status)
		}

		wait := c.retryDelay
		if status == http.StatusTooManyRequests {
			if seconds, err := strconv.ParseFloat(response.Header.Get("Retry-After"), 64); err == nil && seconds >= 0 {
				wait = time.Duration(seconds * float64(time.Second))
			}
		}

		c.logger.WithFields(logrus.Fields{
			"method":  method,
			"path":    path,
			"status":  status,
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("retrying lending api request")

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func retriesServerErrors(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errorDetail pulls a message out of the usual django rest framework error
// bodies, falling back to the raw text.
func errorDetail(body []byte) string {
	var detail struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &detail); err == nil {
		for _, s := range []string{detail.Detail, detail.Message, detail.Error} {
			if s != "" {
				return s
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
