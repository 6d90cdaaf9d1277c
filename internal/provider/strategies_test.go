package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelc4/mediaq-bot/internal/extractor"
	"github.com/pavelc4/mediaq-bot/internal/media"
)

const payload = "fake media bytes"

// mediaServer serves payload on /media.mp4 and delegates everything else.
func mediaServer(t *testing.T, api http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/media.mp4", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		io.WriteString(w, payload)
	})
	mux.HandleFunc("/", api)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func assertPayload(t *testing.T, res *media.StrategyResult) {
	t.Helper()
	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assert.EqualValues(t, len(payload), res.SizeBytes)
}

func TestProxyTunnel(t *testing.T) {
	var body map[string]any
	var srv *httptest.Server
	srv = mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Api-Key secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, map[string]any{"status": "tunnel", "url": srv.URL + "/media.mp4", "filename": "clip.mp4"})
	})
	dir := newDir(t)

	res, err := NewProxy(ProxyConfig{Endpoint: srv.URL + "/", APIKey: "secret"}, dir).Attempt(context.Background(), videoJob())
	require.NoError(t, err)

	assertPayload(t, res)
	assert.Equal(t, NameProxy, res.Strategy)
	assert.Equal(t, "auto", body["downloadMode"])
}

func TestProxyErrorCodes(t *testing.T) {
	srv := mediaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "error", "error": map[string]string{"code": "error.api.content.video.private"}})
	})

	_, err := NewProxy(ProxyConfig{Endpoint: srv.URL + "/"}, newDir(t)).Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindAccessDenied, media.KindOf(err))
}

func TestProxyHTTPStatus(t *testing.T) {
	srv := mediaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := NewProxy(ProxyConfig{Endpoint: srv.URL + "/"}, newDir(t)).Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindRateLimited, media.KindOf(err))
}

func TestProxyUnconfigured(t *testing.T) {
	_, err := NewProxy(ProxyConfig{}, newDir(t)).Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
}

func TestAPICustomEndpoint(t *testing.T) {
	var srv *httptest.Server
	srv = mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/download", r.URL.Path)
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("videoId"))
		assert.Equal(t, "k", r.URL.Query().Get("apiKey"))
		writeJSON(w, map[string]string{"downloadUrl": srv.URL + "/media.mp4", "title": "song", "format": "mp4"})
	})

	s := NewAPI(APIConfig{CustomURL: srv.URL, CustomKey: "k"}, newDir(t))
	res, err := s.Attempt(context.Background(), videoJob())
	require.NoError(t, err)
	assertPayload(t, res)
	assert.Equal(t, "song", res.Title)
}

func TestAPIRapidFailureFallsToCustom(t *testing.T) {
	var srv *httptest.Server
	srv = mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rapid" {
			writeJSON(w, map[string]string{"status": "fail", "msg": "Video unavailable"})
			return
		}
		writeJSON(w, map[string]string{"downloadUrl": srv.URL + "/media.mp4"})
	})

	s := NewAPI(APIConfig{
		RapidAPIKey: "0123456789abcdef",
		RapidAPIURL: srv.URL + "/rapid",
		CustomURL:   srv.URL,
		CustomKey:   "k",
	}, newDir(t))
	res, err := s.Attempt(context.Background(), videoJob())
	require.NoError(t, err)
	assertPayload(t, res)
}

func TestAPIRapidFailureKind(t *testing.T) {
	srv := mediaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "fail", "msg": "Video unavailable"})
	})

	s := NewAPI(APIConfig{RapidAPIKey: "0123456789abcdef", RapidAPIURL: srv.URL + "/rapid"}, newDir(t))
	_, err := s.Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindNotFound, media.KindOf(err))
}

func TestAPIUnavailable(t *testing.T) {
	s := NewAPI(APIConfig{RapidAPIKey: "short"}, newDir(t))
	_, err := s.Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))

	s = NewAPI(APIConfig{CustomURL: "https://api.example.com", CustomKey: "k"}, newDir(t))
	_, err = s.Attempt(context.Background(), media.NewJob("https://example.com/file.mp4", media.ChatPrivate))
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
}

func TestParseMirrors(t *testing.T) {
	mirrors, err := ParseMirrors([]string{"convert=https://a.example/api", " ", "direct=https://b.example/dl"})
	require.NoError(t, err)
	assert.Equal(t, []Mirror{
		{Kind: MirrorConvert, URL: "https://a.example/api"},
		{Kind: MirrorDirect, URL: "https://b.example/dl"},
	}, mirrors)

	_, err = ParseMirrors([]string{"https://no-kind.example"})
	assert.Error(t, err)
	_, err = ParseMirrors([]string{"ftp=https://a.example"})
	assert.Error(t, err)
}

func TestMirrorWalksList(t *testing.T) {
	var srv *httptest.Server
	srv = mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/convert":
			http.Error(w, "down", http.StatusBadGateway)
		case strings.HasPrefix(r.URL.Path, "/streams/"):
			assert.Equal(t, "/streams/dQw4w9WgXcQ", r.URL.Path)
			writeJSON(w, map[string]any{"title": "t", "formats": []map[string]string{
				{"mimeType": "video/mp4", "audioQuality": "", "qualityLabel": "1080p", "url": srv.URL + "/silent"},
				{"mimeType": "video/mp4", "audioQuality": "AUDIO_QUALITY_LOW", "qualityLabel": "360p", "url": srv.URL + "/low"},
				{"mimeType": "video/mp4", "audioQuality": "AUDIO_QUALITY_MEDIUM", "qualityLabel": "720p", "url": srv.URL + "/media.mp4"},
			}})
		default:
			t.Errorf("unexpected request %s", r.URL)
		}
	})

	s := NewMirror([]Mirror{
		{Kind: MirrorConvert, URL: srv.URL + "/convert"},
		{Kind: MirrorStreams, URL: srv.URL + "/streams"},
		{Kind: MirrorDirect, URL: srv.URL + "/direct"},
	}, newDir(t))
	res, err := s.Attempt(context.Background(), videoJob())
	require.NoError(t, err)
	assertPayload(t, res)
	assert.Equal(t, NameMirror, res.Strategy)
}

func TestMirrorReturnsLastError(t *testing.T) {
	srv := mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/convert" {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]string{"title": "nothing"})
	})

	s := NewMirror([]Mirror{
		{Kind: MirrorConvert, URL: srv.URL + "/convert"},
		{Kind: MirrorDirect, URL: srv.URL + "/direct"},
	}, newDir(t))
	_, err := s.Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindNotFound, media.KindOf(err))
}

func TestMirrorUnavailable(t *testing.T) {
	_, err := NewMirror(nil, newDir(t)).Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
}

func TestSocialTikTok(t *testing.T) {
	var srv *httptest.Server
	srv = mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, map[string]any{"code": 0, "data": map[string]string{
			"id": "1", "title": "dance", "play": srv.URL + "/media.mp4",
		}})
	})

	s := NewSocial(SocialConfig{TikWMURL: srv.URL + "/api/"}, newDir(t))
	res, err := s.Attempt(context.Background(), media.NewJob("https://www.tiktok.com/@u/video/1", media.ChatPrivate))
	require.NoError(t, err)
	assertPayload(t, res)
	assert.Equal(t, "dance", res.Title)
}

func TestSocialTikTokAPIError(t *testing.T) {
	srv := mediaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"code": -1, "msg": "Url parsing is failed! Please check url. not found"})
	})

	s := NewSocial(SocialConfig{TikWMURL: srv.URL + "/api/"}, newDir(t))
	_, err := s.Attempt(context.Background(), media.NewJob("https://vm.tiktok.com/xyz", media.ChatPrivate))
	assert.Equal(t, media.KindNotFound, media.KindOf(err))
}

func TestSocialInstagramEmbed(t *testing.T) {
	var srv *httptest.Server
	srv = mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/p/ABC123/embed/", r.URL.Path)
		fmt.Fprintf(w, `<html><body><div class="EmbeddedMedia"><video src="%s/media.mp4"></video></div></body></html>`, srv.URL)
	})

	s := NewSocial(SocialConfig{InstagramBase: srv.URL}, newDir(t))
	res, err := s.Attempt(context.Background(), media.NewJob("https://www.instagram.com/reel/ABC123/?igsh=x", media.ChatPrivate))
	require.NoError(t, err)
	assertPayload(t, res)
}

func TestSocialInstagramWithoutVideo(t *testing.T) {
	srv := mediaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><body><img src="photo.jpg"></body></html>`)
	})

	s := NewSocial(SocialConfig{InstagramBase: srv.URL}, newDir(t))
	_, err := s.Attempt(context.Background(), media.NewJob("https://www.instagram.com/p/ABC123/", media.ChatPrivate))
	assert.Equal(t, media.KindNotFound, media.KindOf(err))
}

func TestSocialUnsupportedPlatform(t *testing.T) {
	s := NewSocial(SocialConfig{}, newDir(t))
	_, err := s.Attempt(context.Background(), media.NewJob("https://x.com/u/status/1", media.ChatPrivate))
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
}

type fakeFetcher struct {
	available bool
	urls      []string
	opts      []extractor.Options
	content   string
}

func (f *fakeFetcher) Available() bool { return f.available }

func (f *fakeFetcher) Fetch(_ context.Context, url string, opts extractor.Options) (string, error) {
	f.urls = append(f.urls, url)
	f.opts = append(f.opts, opts)
	path := strings.Replace(opts.Template, "%(ext)s", "mp3", 1)
	return path, os.WriteFile(path, []byte(f.content), 0o644)
}

func TestMusicResolvesTrack(t *testing.T) {
	tokens := 0
	srv := mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokens++
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "id", user)
			assert.Equal(t, "secret", pass)
			writeJSON(w, map[string]any{"access_token": "tok", "expires_in": 3600})
		case "/v1/tracks/4uLU6hMCjMI75M1A2tKUQC":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeJSON(w, map[string]any{"name": "Song", "artists": []map[string]string{{"name": "Artist"}, {"name": "Guest"}}})
		default:
			http.NotFound(w, r)
		}
	})

	fetcher := &fakeFetcher{available: true, content: "mp3"}
	s := NewMusic(MusicConfig{
		ClientID: "id", ClientSecret: "secret",
		AccountsURL: srv.URL + "/token", APIURL: srv.URL + "/v1",
	}, fetcher, newDir(t))

	job := media.NewJob("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", media.ChatPrivate)
	for range 2 {
		res, err := s.Attempt(context.Background(), job)
		require.NoError(t, err)
		assert.Equal(t, NameMusic, res.Strategy)
	}

	assert.Equal(t, 1, tokens)
	require.Len(t, fetcher.urls, 2)
	assert.Equal(t, "ytsearch1:Artist, Guest - Song", fetcher.urls[0])
	assert.Equal(t, extractor.AudioFormat, fetcher.opts[0].Format)
	assert.Equal(t, "mp3", fetcher.opts[0].AudioCodec)
}

func TestMusicUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{available: true}
	track := media.NewJob("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", media.ChatPrivate)

	_, err := NewMusic(MusicConfig{}, fetcher, newDir(t)).Attempt(context.Background(), track)
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))

	album := media.NewJob("https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", media.ChatPrivate)
	_, err = NewMusic(MusicConfig{ClientID: "id", ClientSecret: "s"}, fetcher, newDir(t)).Attempt(context.Background(), album)
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
	assert.Empty(t, fetcher.urls)
}

func TestBrowserParsesRenderedPage(t *testing.T) {
	srv := mediaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	s := NewBrowser(BrowserConfig{Enabled: true, Frontend: srv.URL}, newDir(t))
	s.lookup = func(string) (string, error) { return "/usr/bin/chromium", nil }
	var rendered string
	s.render = func(_ context.Context, _ string, page string) ([]byte, error) {
		rendered = page
		return []byte(`<html><h1>Never Gonna</h1><a class="download-button" href="/media.mp4">Download</a></html>`), nil
	}

	res, err := s.Attempt(context.Background(), videoJob())
	require.NoError(t, err)
	assertPayload(t, res)
	assert.Equal(t, srv.URL+"/watch?v=dQw4w9WgXcQ", rendered)
	assert.Equal(t, "Never Gonna", res.Title)
}

func TestBrowserNoLink(t *testing.T) {
	s := NewBrowser(BrowserConfig{Enabled: true}, newDir(t))
	s.lookup = func(string) (string, error) { return "/usr/bin/chromium", nil }
	s.render = func(context.Context, string, string) ([]byte, error) {
		return []byte(`<html><p>Loading...</p></html>`), nil
	}

	_, err := s.Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindNotFound, media.KindOf(err))
}

func TestBrowserUnavailable(t *testing.T) {
	_, err := NewBrowser(BrowserConfig{}, newDir(t)).Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))

	s := NewBrowser(BrowserConfig{Enabled: true}, newDir(t))
	s.lookup = func(string) (string, error) { return "", os.ErrNotExist }
	_, err = s.Attempt(context.Background(), videoJob())
	assert.Equal(t, media.KindUnavailable, media.KindOf(err))
}
