package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pavelc4/mediaq-bot/internal/media"
	xhttp "github.com/pavelc4/mediaq-bot/pkg/http"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

const (
	MirrorConvert = "convert"
	MirrorStreams = "streams"
	MirrorDirect  = "direct"
)

// Mirror is one alternate frontend. Kind selects the request/response shape.
type Mirror struct {
	Kind string
	URL  string
}

// ParseMirrors reads "kind=url" entries.
func ParseMirrors(entries []string) ([]Mirror, error) {
	var out []Mirror
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kind, endpoint, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("mirror %q: expected kind=url", entry)
		}
		switch kind {
		case MirrorConvert, MirrorStreams, MirrorDirect:
		default:
			return nil, fmt.Errorf("mirror %q: unknown kind %q", entry, kind)
		}
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("mirror %q: %w", entry, err)
		}
		out = append(out, Mirror{Kind: kind, URL: endpoint})
	}
	return out, nil
}

// MirrorStrategy walks a fixed list of alternate frontends for the same
// video ID. The first mirror that yields a file wins.
type MirrorStrategy struct {
	mirrors  []Mirror
	api      *http.Client
	download *http.Client
	paths    Paths
}

func NewMirror(mirrors []Mirror, paths Paths) *MirrorStrategy {
	return &MirrorStrategy{
		mirrors:  mirrors,
		api:      xhttp.NewClient(xhttp.DefaultTimeout),
		download: xhttp.NewClient(0),
		paths:    paths,
	}
}

func (s *MirrorStrategy) Name() string {
	return NameMirror
}

func (s *MirrorStrategy) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	if len(s.mirrors) == 0 {
		return nil, media.Unavailable(NameMirror, "no mirrors configured")
	}
	videoID := media.YouTubeID(job.URL)
	if videoID == "" {
		return nil, media.Unavailable(NameMirror, "not a YouTube video URL")
	}

	var lastErr error
	for _, m := range s.mirrors {
		if ctx.Err() != nil {
			break
		}
		link, err := s.resolve(ctx, m, job.URL, videoID)
		if err == nil {
			var res *media.StrategyResult
			if res, err = fetchLink(ctx, s.download, s.paths, job, NameMirror, link); err == nil {
				return res, nil
			}
		}
		logger.Warn("Mirror failed", "mirror", m.URL, "kind", m.Kind, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, media.Wrap(NameMirror, lastErr)
}

func (s *MirrorStrategy) resolve(ctx context.Context, m Mirror, original, videoID string) (*mediaLink, error) {
	switch m.Kind {
	case MirrorConvert:
		return s.convert(ctx, m.URL, original, videoID)
	case MirrorStreams:
		return s.streams(ctx, m.URL, videoID)
	default:
		return s.direct(ctx, m.URL, original, videoID)
	}
}

type convertResponse struct {
	Title   string `json:"title"`
	Formats []struct {
		Ext    string `json:"ext"`
		Height int    `json:"height"`
		URL    string `json:"url"`
	} `json:"formats"`
}

func (s *MirrorStrategy) convert(ctx context.Context, endpoint, original, videoID string) (*mediaLink, error) {
	payload, _ := json.Marshal(map[string]string{"url": original})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out convertResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return nil, err
	}

	best, bestHeight := "", -1
	for _, f := range out.Formats {
		if f.Ext == "mp4" && f.URL != "" && f.Height > bestHeight {
			best, bestHeight = f.URL, f.Height
		}
	}
	if best == "" {
		return nil, media.Fail(NameMirror, media.KindNotFound, "no MP4 formats available")
	}
	return &mediaLink{url: best, title: titleOr(out.Title, videoID), ext: "mp4"}, nil
}

type streamsResponse struct {
	Title   string `json:"title"`
	Formats []struct {
		MimeType     string `json:"mimeType"`
		AudioQuality string `json:"audioQuality"`
		QualityLabel string `json:"qualityLabel"`
		URL          string `json:"url"`
	} `json:"formats"`
}

func (s *MirrorStrategy) streams(ctx context.Context, endpoint, videoID string) (*mediaLink, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(endpoint, "/")+"/"+videoID, nil)
	if err != nil {
		return nil, err
	}

	var out streamsResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return nil, err
	}

	formats := out.Formats[:0]
	for _, f := range out.Formats {
		if strings.HasPrefix(f.MimeType, "video/mp4") && f.AudioQuality != "" && f.URL != "" {
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, media.Fail(NameMirror, media.KindNotFound, "no MP4 formats with audio found")
	}
	sort.SliceStable(formats, func(i, j int) bool {
		return qualityHeight(formats[i].QualityLabel) > qualityHeight(formats[j].QualityLabel)
	})
	return &mediaLink{url: formats[0].URL, title: titleOr(out.Title, videoID), ext: "mp4"}, nil
}

type directResponse struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (s *MirrorStrategy) direct(ctx context.Context, endpoint, original, videoID string) (*mediaLink, error) {
	q := url.Values{"url": {original}, "format": {"best"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out directResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, media.Fail(NameMirror, media.KindNotFound, "no download URL in mirror response")
	}
	return &mediaLink{url: out.URL, title: titleOr(out.Title, videoID), ext: "mp4"}, nil
}

func qualityHeight(label string) int {
	label = strings.TrimSpace(label)
	if idx := strings.IndexByte(label, 'p'); idx != -1 {
		label = label[:idx]
	}
	n, _ := strconv.Atoi(label)
	return n
}

func titleOr(title, videoID string) string {
	if title == "" {
		return "youtube_" + videoID
	}
	return title
}
