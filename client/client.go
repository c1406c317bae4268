// Package client calls a paginated list endpoint of the admin backend.
//
// One Lister per endpoint (roles, resources, smtp configs, ...). Lister.Fetch
// has the shape of view.Fetcher and is usually driven by a view.View.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/unkn0wn-root/listcount"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 32 << 20
	maxErrorBody    = 512
)

type Config struct {
	URL        string
	HTTPClient *http.Client // nil => &http.Client{Timeout: Timeout}
	Timeout    time.Duration
	Header     http.Header // sent with every request, e.g. Authorization
	Logger     listcount.Logger
}

type Lister[T any] struct {
	url    string
	hc     *http.Client
	header http.Header
	log    listcount.Logger
}

func New[T any](cfg Config) (*Lister[T], error) {
	if cfg.URL == "" {
		return nil, errors.New("client: url is required")
	}
	l := &Lister[T]{url: cfg.URL, header: cfg.Header.Clone(), hc: cfg.HTTPClient}
	if l.hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		l.hc = &http.Client{Timeout: timeout}
	}
	if cfg.Logger != nil {
		l.log = cfg.Logger
	} else {
		l.log = listcount.NopLogger{}
	}
	return l, nil
}

// Fetch POSTs q and decodes one page. Cancelling ctx aborts the request.
func (l *Lister[T]) Fetch(ctx context.Context, q listcount.Query) (listcount.PageQueryResult[T], error) {
	var zero listcount.PageQueryResult[T]
	body, err := EncodeRequest(q)
	if err != nil {
		return zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("client: build request: %w", err)
	}
	for k, vs := range l.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := l.hc.Do(req)
	if err != nil {
		return zero, fmt.Errorf("client: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return zero, &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var env Response[T]
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&env); err != nil {
		return zero, fmt.Errorf("client: decode response: %w", err)
	}
	if !env.Status {
		return zero, &APIError{Message: env.Message}
	}

	l.log.Debug("list page fetched", listcount.Fields{
		"url":       l.url,
		"page":      q.Page.Page,
		"count_num": q.CountNum,
		"rows":      len(env.Data),
		"has_total": env.Total != nil,
		"took":      time.Since(start).String(),
	})
	return env.Result(), nil
}
