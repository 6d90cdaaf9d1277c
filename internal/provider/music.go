package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/extractor"
	"github.com/pavelc4/mediaq-bot/internal/media"
	xhttp "github.com/pavelc4/mediaq-bot/pkg/http"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

const (
	spotifyAccountsURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL      = "https://api.spotify.com/v1"
)

type MusicConfig struct {
	ClientID     string
	ClientSecret string
	// AccountsURL and APIURL override the Spotify hosts.
	AccountsURL string
	APIURL      string
}

// MusicStrategy resolves a Spotify track to "artist - title" through the Web
// API and fetches the best matching audio through the extractor's search.
type MusicStrategy struct {
	cfg     MusicConfig
	fetcher Fetcher
	paths   Paths
	api     *http.Client
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewMusic(cfg MusicConfig, fetcher Fetcher, paths Paths) *MusicStrategy {
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = spotifyAccountsURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = spotifyAPIURL
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Warn("Spotify credentials not found, music falls back to the generic chain")
	}
	return &MusicStrategy{
		cfg:     cfg,
		fetcher: fetcher,
		paths:   paths,
		api:     xhttp.NewClient(xhttp.DefaultTimeout),
		now:     time.Now,
	}
}

func (s *MusicStrategy) Name() string {
	return NameMusic
}

func (s *MusicStrategy) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, media.Unavailable(NameMusic, "no Spotify credentials configured")
	}
	kind, id := media.SpotifyID(job.URL)
	if id == "" {
		return nil, media.Fail(NameMusic, media.KindNotFound, "invalid Spotify URL format")
	}
	if kind != media.SpotifyTrack {
		return nil, media.Unavailable(NameMusic, fmt.Sprintf("spotify %s links are not supported", kind))
	}
	if !s.fetcher.Available() {
		return nil, media.Unavailable(NameMusic, "yt-dlp binary not found")
	}

	tr, err := s.track(ctx, id)
	if err != nil {
		return nil, media.Wrap(NameMusic, err)
	}

	query := "ytsearch1:" + tr.query()
	path, err := s.fetcher.Fetch(ctx, query, extractor.Options{
		Template:   s.paths.Template(job),
		Format:     extractor.AudioFormat,
		AudioCodec: "mp3",
	})
	if err != nil {
		return nil, media.Wrap(NameMusic, err)
	}
	return &media.StrategyResult{FilePath: path, Strategy: NameMusic, Title: tr.query()}, nil
}

type spotifyTrack struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (t spotifyTrack) query() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return t.Name
	}
	return strings.Join(names, ", ") + " - " + t.Name
}

func (s *MusicStrategy) track(ctx context.Context, id string) (*spotifyTrack, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIURL+"/tracks/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var tr spotifyTrack
	if err := xhttp.DecodeJSON(s.api, req, &tr); err != nil {
		return nil, err
	}
	if tr.Name == "" {
		return nil, media.Fail(NameMusic, media.KindNotFound, "track %s has no name", id)
	}
	logger.Debug("Resolved Spotify track", "id", id, "query", tr.query())
	return &tr, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken runs the client-credentials flow and caches the token until
// shortly before it expires.
func (s *MusicStrategy) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires) {
		return s.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AccountsURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.ClientID, s.cfg.ClientSecret)

	var out tokenResponse
	if err := xhttp.DecodeJSON(s.api, req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", media.Fail(NameMusic, media.KindAccessDenied, "empty Spotify access token")
	}

	s.token = out.AccessToken
	s.expires = s.now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return s.token, nil
}
