// Package analyzer provides a client for the document-analysis service that
// answers questions against a set of PDF documents.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the analysis service operations.
type Client interface {
	// Analyze sends one batched request and returns one result per answered question.
	Analyze(ctx context.Context, req Request) ([]Result, error)
}

// Request is the batched analysis payload.
type Request struct {
	PDFURLs   []string `json:"pdf_urls"`
	Questions []string `json:"questions"`
	Keywords  []string `json:"keywords"`
}

// Result is the service's answer to a single question.
type Result struct {
	Question        string     `json:"question"`
	Summary         Summary    `json:"summary"`
	SourceDocuments []string   `json:"source_documents"`
	Evidence        []Evidence `json:"evidence"`
}

// Summary is the consolidated answer across all evidence.
type Summary struct {
	FinalAnswer string `json:"final_answer"`
	Explanation string `json:"explanation"`
	Discrepancy string `json:"discrepancy"`
}

// Evidence is one supporting excerpt.
type Evidence struct {
	Answer       string `json:"answer"`
	Explanation  string `json:"explanation"`
	Quotes       string `json:"quotes"`
	PageNumber   int    `json:"page_number"`
	DocumentName string `json:"document_name"`
}

// StatusError is returned when the service replies with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analyzer: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the analyzer client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout bounds each call. Zero leaves the call governed by the context only.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRequestsPerMinute paces outbound calls. Zero or negative disables pacing.
func WithRequestsPerMinute(n int) Option {
	return func(c *httpClient) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

type httpClient struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client posting to the given analysis endpoint.
func NewClient(url string, opts ...Option) Client {
	c := &httpClient{
		url: url,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Analyze(ctx context.Context, req Request) ([]Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "analyzer: rate limit wait")
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// An empty body or JSON null both mean no results.
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var results []Result
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "analyzer: unmarshal response")
	}
	return results, nil
}
