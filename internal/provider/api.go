package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pavelc4/mediaq-bot/internal/media"
	xhttp "github.com/pavelc4/mediaq-bot/pkg/http"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

const (
	rapidAPIHost     = "youtube-mp36.p.rapidapi.com"
	rapidAPIEndpoint = "https://" + rapidAPIHost + "/dl"
	minRapidKeyLen   = 10
)

type APIConfig struct {
	RapidAPIKey string
	// RapidAPIURL overrides the endpoint, mainly for tests.
	RapidAPIURL string
	CustomURL   string
	CustomKey   string
}

func (c APIConfig) hasRapid() bool {
	return len(c.RapidAPIKey) > minRapidKeyLen
}

func (c APIConfig) hasCustom() bool {
	u := c.CustomURL
	return c.CustomKey != "" && len(u) > 10 && (strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://"))
}

// APIStrategy downloads through keyed third-party YouTube APIs: RapidAPI
// first, then a self-hosted endpoint.
type APIStrategy struct {
	cfg      APIConfig
	api      *http.Client
	download *http.Client
	paths    Paths
}

func NewAPI(cfg APIConfig, paths Paths) *APIStrategy {
	if cfg.RapidAPIURL == "" {
		cfg.RapidAPIURL = rapidAPIEndpoint
	}
	s := &APIStrategy{
		cfg:      cfg,
		api:      xhttp.NewClient(xhttp.DefaultTimeout),
		download: xhttp.NewClient(0),
		paths:    paths,
	}
	if cfg.hasRapid() {
		logger.Info("RapidAPI key configured for YouTube downloads")
	}
	if cfg.hasCustom() {
		logger.Info("Custom YouTube API configured", "url", cfg.CustomURL)
	}
	return s
}

func (s *APIStrategy) Name() string {
	return NameAPI
}

type mediaLink struct {
	url     string
	title   string
	ext     string
	headers map[string]string
}

func (s *APIStrategy) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	type method struct {
		name string
		fn   func(context.Context, string) (*mediaLink, error)
	}
	var methods []method
	if s.cfg.hasRapid() {
		methods = append(methods, method{"rapidapi", s.rapid})
	}
	if s.cfg.hasCustom() {
		methods = append(methods, method{"custom", s.custom})
	}
	if len(methods) == 0 {
		return nil, media.Unavailable(NameAPI, "no API credentials configured")
	}

	videoID := media.YouTubeID(job.URL)
	if videoID == "" {
		return nil, media.Unavailable(NameAPI, "not a YouTube video URL")
	}

	var lastErr error
	for _, m := range methods {
		link, err := m.fn(ctx, videoID)
		if err == nil {
			var res *media.StrategyResult
			res, err = fetchLink(ctx, s.download, s.paths, job, NameAPI, link)
			if err == nil {
				return res, nil
			}
		}
		logger.Warn("API method failed", "method", m.name, "error", err)
		lastErr = err
	}
	return nil, media.Wrap(NameAPI, lastErr)
}

type rapidResponse struct {
	Link   string `json:"link"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

func (s *APIStrategy) rapid(ctx context.Context, videoID string) (*mediaLink, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.RapidAPIURL+"?id="+url.QueryEscape(videoID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", s.cfg.RapidAPIKey)
	req.Header.Set("X-RapidAPI-Host", rapidAPIHost)

	var out rapidResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return nil, err
	}
	switch {
	case out.Status == "processing":
		return nil, media.Fail(NameAPI, media.KindUnavailable, "conversion still processing")
	case out.Status == "fail":
		return nil, media.Fail(NameAPI, media.ClassifyMessage(out.Msg), "rapidapi: %s", out.Msg)
	case out.Link == "":
		return nil, media.Fail(NameAPI, media.KindUnknown, "no download link in API response")
	}
	return &mediaLink{url: out.Link, title: out.Title, ext: "mp3"}, nil
}

type customResponse struct {
	DownloadURL string `json:"downloadUrl"`
	Title       string `json:"title"`
	Format      string `json:"format"`
}

func (s *APIStrategy) custom(ctx context.Context, videoID string) (*mediaLink, error) {
	q := url.Values{"videoId": {videoID}, "apiKey": {s.cfg.CustomKey}}
	endpoint := strings.TrimRight(s.cfg.CustomURL, "/") + "/api/v1/download?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	var out customResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return nil, err
	}
	if out.DownloadURL == "" {
		return nil, media.Fail(NameAPI, media.KindUnknown, "no download URL in API response")
	}
	ext := out.Format
	if ext == "" {
		ext = "mp4"
	}
	return &mediaLink{url: out.DownloadURL, title: out.Title, ext: ext}, nil
}

// fetchLink downloads a resolved media link into the job's working file.
func fetchLink(ctx context.Context, client *http.Client, paths Paths, job media.Job, strategy string, link *mediaLink) (*media.StrategyResult, error) {
	ext := strings.TrimPrefix(link.ext, ".")
	if ext == "" {
		ext = "mp4"
	}
	dest := paths.Path(job, ext)
	size, mime, err := xhttp.Download(ctx, client, link.url, link.headers, dest)
	if err != nil {
		return nil, media.Wrap(strategy, err)
	}
	if m := media.MimeType(dest); m != "application/octet-stream" {
		mime = m
	}
	return &media.StrategyResult{
		FilePath:  dest,
		Strategy:  strategy,
		SizeBytes: size,
		Title:     link.title,
		MimeType:  mime,
	}, nil
}
