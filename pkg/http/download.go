package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pavelc4/mediaq-bot/pkg/buffer"
)

const (
	DefaultTimeout = 30 * time.Second
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxErrorBody = 512
)

var ErrEmptyBody = errors.New("downloaded file is empty")

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// NewClient returns a client for API calls. Media downloads use a client
// without an overall timeout and rely on the request context instead.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

// Do sends req with the default user agent and converts non-2xx responses
// into a *StatusError. The caller closes the body.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func DecodeJSON(client *http.Client, req *http.Request, v any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := Do(client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

// Download streams url into dest. On any failure the partial file is
// removed. An empty body is an error.
func Download(ctx context.Context, client *http.Client, url string, headers map[string]string, dest string) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("create request failed: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := Do(client, req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, "", fmt.Errorf("create file failed: %w", err)
	}

	buf := buffer.Get()
	n, copyErr := io.CopyBuffer(writerOnly{f}, resp.Body, *buf)
	buffer.Put(buf)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		err = fmt.Errorf("read body failed: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close file failed: %w", closeErr)
	case n == 0:
		err = ErrEmptyBody
	}
	if err != nil {
		os.Remove(dest)
		return 0, "", err
	}

	return n, resp.Header.Get("Content-Type"), nil
}

// writerOnly hides (*os.File).ReadFrom so io.CopyBuffer uses the pooled
// buffer.
type writerOnly struct {
	io.Writer
}
