package nimbus

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

	"nimbus-api/internal/config"
	"nimbus-api/internal/debug"
	"nimbus-api/internal/metrics"
	"nimbus-api/internal/util"
)

const maxResponseBytes = 50 * 1024 * 1024

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	transport := &http.Transport{
		Proxy:                 util.ProxyFunc(cfg.ProxyHTTP, cfg.ProxyHTTPS, cfg.ProxyUser, cfg.ProxyPass, cfg.ProxyBypass),
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 0 // unbounded; the caller imposes limits at the transport boundary
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Send posts the payload to the configured upstream endpoint and returns the
// decoded response. The response is opaque: JSON bodies decode to their loose
// form, anything else is returned as a raw string. Failures come back as
// *UpstreamError; no retries happen here.
func (c *Client) Send(ctx context.Context, payload Request, logger *debug.Logger) (interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nimbus-api/1.0")
	if token := strings.TrimSpace(c.cfg.UpstreamToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.LogUpstreamRequest(c.cfg.UpstreamURL, payload)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			Status: resp.StatusCode,
			Body:   parseErrorBody(raw),
			Err:    fmt.Errorf("upstream returned status %d", resp.StatusCode),
		}
	}

	payloadOut := decodeLoose(raw)
	logger.LogUpstreamResponse(resp.StatusCode, payloadOut)
	return payloadOut, nil
}

// decodeLoose parses the body as JSON when possible and falls back to the
// raw text. The upstream contract guarantees no fixed schema.
func decodeLoose(raw []byte) interface{} {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return string(raw)
	}
	return out
}

// parseErrorBody extracts a structured error object from a failure body.
// Bodies like {"error":{...}} unwrap to the inner object; a bare object is
// used as-is; anything else yields nil.
func parseErrorBody(raw []byte) map[string]interface{} {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil
	}
	if inner, ok := m["error"].(map[string]interface{}); ok {
		return inner
	}
	return m
}
