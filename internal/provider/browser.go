package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pavelc4/mediaq-bot/internal/media"
	xhttp "github.com/pavelc4/mediaq-bot/pkg/http"
)

const browserFrontend = "https://yout-ube.com"

type BrowserConfig struct {
	Enabled bool
	// Binary is a Chromium-compatible executable name or path.
	Binary string
	// Frontend overrides the page the browser renders.
	Frontend string
}

// RenderFunc returns the rendered DOM of a page.
type RenderFunc func(ctx context.Context, binary, pageURL string) ([]byte, error)

// BrowserStrategy renders a YouTube frontend page in a headless browser and
// downloads the media link found in the resulting DOM.
type BrowserStrategy struct {
	cfg      BrowserConfig
	render   RenderFunc
	lookup   func(string) (string, error)
	download *http.Client
	paths    Paths
}

func NewBrowser(cfg BrowserConfig, paths Paths) *BrowserStrategy {
	if cfg.Binary == "" {
		cfg.Binary = "chromium"
	}
	if cfg.Frontend == "" {
		cfg.Frontend = browserFrontend
	}
	return &BrowserStrategy{
		cfg:      cfg,
		render:   renderHeadless,
		lookup:   exec.LookPath,
		download: xhttp.NewClient(0),
		paths:    paths,
	}
}

func (s *BrowserStrategy) Name() string {
	return NameBrowser
}

func (s *BrowserStrategy) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	if !s.cfg.Enabled {
		return nil, media.Unavailable(NameBrowser, "browser automation disabled")
	}
	binary, err := s.lookup(s.cfg.Binary)
	if err != nil {
		return nil, media.Unavailable(NameBrowser, "browser binary not found")
	}
	videoID := media.YouTubeID(job.URL)
	if videoID == "" {
		return nil, media.Unavailable(NameBrowser, "not a YouTube video URL")
	}

	page := strings.TrimRight(s.cfg.Frontend, "/") + "/watch?v=" + url.QueryEscape(videoID)
	dom, err := s.render(ctx, binary, page)
	if err != nil {
		return nil, media.Wrap(NameBrowser, err)
	}

	link, err := parseFrontendPage(dom, page, videoID)
	if err != nil {
		return nil, err
	}
	return fetchLink(ctx, s.download, s.paths, job, NameBrowser, link)
}

func parseFrontendPage(dom []byte, pageURL, videoID string) (*mediaLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(dom))
	if err != nil {
		return nil, media.Fail(NameBrowser, media.KindUnknown, "parse rendered page: %v", err)
	}

	href := firstAttr(doc, []selector{
		{"a.download-button[href]", "href"},
		{"button.download-button[data-href]", "data-href"},
		{"video[src]", "src"},
		{"video source[src]", "src"},
	})
	if href == "" {
		return nil, media.Fail(NameBrowser, media.KindNotFound, "no download link on rendered page")
	}

	base, _ := url.Parse(pageURL)
	ref, err := url.Parse(href)
	if err != nil {
		return nil, media.Fail(NameBrowser, media.KindUnknown, "bad download link %q", href)
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	return &mediaLink{url: ref.String(), title: titleOr(title, videoID), ext: "mp4"}, nil
}

func renderHeadless(ctx context.Context, binary, pageURL string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary,
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--user-agent="+xhttp.UserAgent,
		"--dump-dom",
		pageURL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("headless browser failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
