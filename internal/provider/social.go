package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pavelc4/mediaq-bot/internal/media"
	xhttp "github.com/pavelc4/mediaq-bot/pkg/http"
)

const (
	tikwmAPIURL   = "https://www.tikwm.com/api/"
	tikwmHost     = "https://tikwm.com"
	instagramBase = "https://www.instagram.com"
)

// SocialConfig overrides upstream base URLs. Zero values use the public hosts.
type SocialConfig struct {
	TikWMURL      string
	InstagramBase string
}

// SocialStrategy is the platform-native downloader for social posts: TikTok
// through tikwm and Instagram through the public embed page.
type SocialStrategy struct {
	cfg      SocialConfig
	api      *http.Client
	download *http.Client
	paths    Paths
}

func NewSocial(cfg SocialConfig, paths Paths) *SocialStrategy {
	if cfg.TikWMURL == "" {
		cfg.TikWMURL = tikwmAPIURL
	}
	if cfg.InstagramBase == "" {
		cfg.InstagramBase = instagramBase
	}
	return &SocialStrategy{
		cfg:      cfg,
		api:      xhttp.NewClient(xhttp.DefaultTimeout),
		download: xhttp.NewClient(0),
		paths:    paths,
	}
}

func (s *SocialStrategy) Name() string {
	return NameSocial
}

func (s *SocialStrategy) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	var (
		link *mediaLink
		err  error
	)
	switch job.Platform {
	case "tiktok":
		link, err = s.tiktok(ctx, job.URL)
	case "instagram":
		link, err = s.instagram(ctx, job.URL)
	default:
		return nil, media.Unavailable(NameSocial, fmt.Sprintf("no native downloader for %q", job.Platform))
	}
	if err != nil {
		return nil, media.Wrap(NameSocial, err)
	}
	return fetchLink(ctx, s.download, s.paths, job, NameSocial, link)
}

type tikwmResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Play  string `json:"play"`
	} `json:"data"`
}

func (s *SocialStrategy) tiktok(ctx context.Context, postURL string) (*mediaLink, error) {
	payload, _ := json.Marshal(map[string]string{"url": postURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TikWMURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out tikwmResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return nil, err
	}
	if out.Code != 0 {
		return nil, media.Fail(NameSocial, media.ClassifyMessage(out.Msg), "tikwm: %s", out.Msg)
	}
	if out.Data.Play == "" {
		return nil, media.Fail(NameSocial, media.KindNotFound, "video URL not found in response")
	}
	play := out.Data.Play
	if !strings.HasPrefix(play, "http") {
		play = tikwmHost + play
	}
	title := out.Data.Title
	if title == "" {
		title = "tiktok_" + out.Data.ID
	}
	return &mediaLink{url: play, title: title, ext: "mp4"}, nil
}

func (s *SocialStrategy) instagram(ctx context.Context, postURL string) (*mediaLink, error) {
	shortcode := media.InstagramShortcode(postURL)
	if shortcode == "" {
		return nil, media.Fail(NameSocial, media.KindNotFound, "invalid Instagram URL format")
	}

	embed := strings.TrimRight(s.cfg.InstagramBase, "/") + "/p/" + shortcode + "/embed/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, embed, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := xhttp.Do(s.api, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse embed page: %w", err)
	}

	src := firstAttr(doc, []selector{
		{"video[src]", "src"},
		{`meta[property="og:video"]`, "content"},
		{`meta[property="og:video:secure_url"]`, "content"},
	})
	if src == "" {
		if strings.Contains(strings.ToLower(doc.Text()), "login") {
			return nil, media.Fail(NameSocial, media.KindAccessDenied, "post requires login")
		}
		return nil, media.Fail(NameSocial, media.KindNotFound, "no video found in post")
	}
	return &mediaLink{url: src, title: "instagram_" + shortcode, ext: "mp4"}, nil
}

type selector struct {
	query string
	attr  string
}

// firstAttr returns the first non-empty attribute matched by the selectors,
// tried in order.
func firstAttr(doc *goquery.Document, selectors []selector) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel.query).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if v, ok := node.Attr(sel.attr); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}
