package app

import (
	"fmt"

	"github.com/pavelc4/mediaq-bot/config"
	"github.com/pavelc4/mediaq-bot/internal/provider"
)

// buildStrategies creates every strategy variant. Unconfigured ones are still
// created; they report Unavailable and the chain moves on.
func buildStrategies(src config.SourceConfig, paths provider.Paths, fetcher provider.Fetcher) (provider.Set, error) {
	mirrors, err := provider.ParseMirrors(src.MirrorEndpoints)
	if err != nil {
		return provider.Set{}, fmt.Errorf("mirror endpoints: %w", err)
	}

	return provider.Set{
		Extractor: provider.NewExtractor(fetcher, paths),
		API: provider.NewAPI(provider.APIConfig{
			RapidAPIKey: src.RapidAPIKey,
			CustomURL:   src.YouTubeAPIURL,
			CustomKey:   src.YouTubeAPIKey,
		}, paths),
		Proxy: provider.NewProxy(provider.ProxyConfig{
			Endpoint: src.CobaltAPI,
			APIKey:   src.CobaltAPIKey,
		}, paths),
		Mirror: provider.NewMirror(mirrors, paths),
		Browser: provider.NewBrowser(provider.BrowserConfig{
			Enabled: src.BrowserEnabled,
			Binary:  src.BrowserPath,
		}, paths),
		Social: provider.NewSocial(provider.SocialConfig{}, paths),
		Music: provider.NewMusic(provider.MusicConfig{
			ClientID:     src.SpotifyClientID,
			ClientSecret: src.SpotifyClientSecret,
		}, fetcher, paths),
	}, nil
}
