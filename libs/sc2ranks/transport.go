package sc2ranks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "sc2ranks-go"
)

// Transport fetches a URL. A nil body is sent as GET, anything else as a form POST.
type Transport interface {
	Fetch(ctx context.Context, target string, body []byte) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, target string, body []byte) ([]byte, error)

func (f TransportFunc) Fetch(ctx context.Context, target string, body []byte) ([]byte, error) {
	return f(ctx, target, body)
}

type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPTransport{client: client, userAgent: defaultUserAgent}
}

// Fetch returns the body of every response below 500. sc2ranks reports unknown
// characters as an error payload, which the validator turns into an *APIError.
func (t *HTTPTransport) Fetch(ctx context.Context, target string, body []byte) ([]byte, error) {
	method := http.MethodGet
	var reader io.Reader
	if body != nil {
		method = http.MethodPost
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &TransportError{URL: redact(target), Err: err}
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := t.client.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, app key included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &TransportError{URL: redact(target), Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return nil, &TransportError{URL: redact(target), Err: fmt.Errorf("server returned status %d", res.StatusCode)}
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{URL: redact(target), Err: fmt.Errorf("read body: %w", err)}
	}

	return data, nil
}
