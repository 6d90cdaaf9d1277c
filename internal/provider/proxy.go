package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pavelc4/mediaq-bot/internal/media"
	xhttp "github.com/pavelc4/mediaq-bot/pkg/http"
)

type ProxyConfig struct {
	Endpoint string
	APIKey   string
}

// ProxyStrategy relays the download through a cobalt-compatible instance
// which tunnels or redirects to the media.
type ProxyStrategy struct {
	cfg      ProxyConfig
	api      *http.Client
	download *http.Client
	paths    Paths
}

func NewProxy(cfg ProxyConfig, paths Paths) *ProxyStrategy {
	return &ProxyStrategy{
		cfg:      cfg,
		api:      xhttp.NewClient(xhttp.DefaultTimeout),
		download: xhttp.NewClient(0),
		paths:    paths,
	}
}

func (s *ProxyStrategy) Name() string {
	return NameProxy
}

type cobaltResponse struct {
	Status   string       `json:"status"`
	URL      string       `json:"url"`
	Filename string       `json:"filename"`
	Picker   []cobaltItem `json:"picker"`
	Error    cobaltError  `json:"error"`
}

type cobaltItem struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

type cobaltError struct {
	Code    string `json:"code"`
	Context any    `json:"context"`
}

func (s *ProxyStrategy) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	if s.cfg.Endpoint == "" {
		return nil, media.Unavailable(NameProxy, "no proxy endpoint configured")
	}

	resp, err := s.request(ctx, job)
	if err != nil {
		return nil, media.Wrap(NameProxy, err)
	}
	link, err := s.parse(resp)
	if err != nil {
		return nil, err
	}
	return fetchLink(ctx, s.download, s.paths, job, NameProxy, link)
}

func (s *ProxyStrategy) request(ctx context.Context, job media.Job) (*cobaltResponse, error) {
	body := map[string]any{
		"url":          job.URL,
		"downloadMode": "auto",
		"videoQuality": "1080",
	}
	if job.Category == media.CategoryMusic {
		body["downloadMode"] = "audio"
		body["audioFormat"] = "mp3"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Api-Key "+s.cfg.APIKey)
	}

	var out cobaltResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProxyStrategy) parse(resp *cobaltResponse) (*mediaLink, error) {
	switch resp.Status {
	case "tunnel", "redirect":
		if resp.URL == "" {
			return nil, media.Fail(NameProxy, media.KindUnknown, "empty URL in proxy response")
		}
		return &mediaLink{url: resp.URL, title: resp.Filename, ext: extOf(resp.Filename, "mp4")}, nil

	case "picker":
		for _, item := range resp.Picker {
			if item.URL == "" {
				continue
			}
			name := item.Filename
			if name == "" {
				name = resp.Filename
			}
			fallback := "jpg"
			if item.Type == "video" || item.Type == "gif" {
				fallback = "mp4"
			}
			return &mediaLink{url: item.URL, title: name, ext: extOf(name, fallback)}, nil
		}
		return nil, media.Fail(NameProxy, media.KindNotFound, "no usable item in picker")

	case "error":
		return nil, media.Fail(NameProxy, cobaltKind(resp.Error.Code), "proxy error: %s", resp.Error.Code)

	default:
		return nil, media.Fail(NameProxy, media.KindUnknown, "unknown proxy status %q", resp.Status)
	}
}

// cobaltKind maps error codes such as "error.api.content.video.private".
func cobaltKind(code string) media.Kind {
	switch {
	case strings.Contains(code, "rate_exceeded"):
		return media.KindRateLimited
	case strings.Contains(code, "private"), strings.Contains(code, "age"),
		strings.Contains(code, "region"), strings.Contains(code, "auth"):
		return media.KindAccessDenied
	case strings.Contains(code, "unavailable"), strings.Contains(code, "not_found"), strings.Contains(code, "empty"):
		return media.KindNotFound
	case strings.Contains(code, "timed_out"):
		return media.KindTimeout
	case strings.Contains(code, "unsupported"), strings.Contains(code, "link.invalid"):
		return media.KindUnavailable
	}
	return media.KindUnknown
}

func extOf(name, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" || len(ext) > 5 {
		return fallback
	}
	return ext
}
