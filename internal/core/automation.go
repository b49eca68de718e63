package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

var httpVerbs = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// HTTPRequestAction is an automation step that calls an external endpoint.
type HTTPRequestAction struct {
	Name    string            `json:"name"`
	Verb    string            `json:"verb"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

func (a HTTPRequestAction) Validate() error {
	if !slices.Contains(httpVerbs, strings.ToUpper(strings.TrimSpace(a.Verb))) {
		return newError(ErrValidation, "automation.action.http.verb.invalid", "Invalid HTTP verb",
			fmt.Sprintf("action %q uses %q, which is not an HTTP verb", a.Name, a.Verb)).
			With("verb", a.Verb)
	}
	u, err := url.Parse(a.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return newError(ErrValidation, "automation.action.http.url.invalid", "Invalid URL",
			fmt.Sprintf("action %q needs an absolute http(s) URL", a.Name))
	}
	return nil
}

type HTTPActionResult struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// HTTPActionRunner executes HTTPRequestActions. Responses are read up to
// 1 MiB.
type HTTPActionRunner struct {
	client *http.Client
	log    *slog.Logger
}

func NewHTTPActionRunner(client *http.Client, log *slog.Logger) *HTTPActionRunner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPActionRunner{client: client, log: log}
}

func (r *HTTPActionRunner) Run(ctx context.Context, a HTTPRequestAction) (HTTPActionResult, error) {
	if err := a.Validate(); err != nil {
		return HTTPActionResult{}, err
	}
	var body io.Reader
	if a.Body != "" {
		body = bytes.NewBufferString(a.Body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(strings.TrimSpace(a.Verb)), a.URL, body)
	if err != nil {
		return HTTPActionResult{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return HTTPActionResult{}, fmt.Errorf("automation action %q: %w", a.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return HTTPActionResult{}, fmt.Errorf("read response of %q: %w", a.Name, err)
	}
	r.log.InfoContext(ctx, "automation action executed",
		"action", a.Name, "verb", req.Method, "status", resp.StatusCode, "duration", time.Since(start))
	return HTTPActionResult{StatusCode: resp.StatusCode, Body: string(data)}, nil
}
