// Package dispatcher forwards evaluator output to a webhook's destination
// URL and reports the outcome for the audit log. A non-2xx response is a
// completed dispatch, not an error; there is no retry.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Result captures everything the audit log needs about one delivery
// attempt.
type Result struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Duration     time.Duration
}

// Dispatcher delivers transformed payloads over HTTP with a bounded
// timeout and response size.
type Dispatcher struct {
	client          *http.Client
	maxResponseBody int64
}

// New builds a Dispatcher with the given per-request timeout and response
// body cap (bytes).
func New(timeout time.Duration, maxResponseBodyBytes int64) *Dispatcher {
	return &Dispatcher{
		client:          &http.Client{Timeout: timeout},
		maxResponseBody: maxResponseBodyBytes,
	}
}

// Dispatch POSTs payload as JSON to destinationURL. Network errors and
// non-2xx responses both yield Success=false rather than a Go error — the
// only error return is for a payload that can't be marshaled, which should
// never happen for evaluator output.
func (d *Dispatcher) Dispatch(ctx context.Context, destinationURL string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destinationURL, bytes.NewReader(body))
	if err != nil {
		return &Result{Success: false, StatusCode: 0, ResponseBody: err.Error(), Duration: time.Since(start)}, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &Result{Success: false, StatusCode: 0, ResponseBody: err.Error(), Duration: time.Since(start)}, nil
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, d.maxResponseBody)
	respBody, readErr := io.ReadAll(limited)
	duration := time.Since(start)
	if readErr != nil {
		return &Result{Success: false, StatusCode: resp.StatusCode, ResponseBody: readErr.Error(), Duration: duration}, nil
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	return &Result{
		Success:      success,
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
		Duration:     duration,
	}, nil
}
