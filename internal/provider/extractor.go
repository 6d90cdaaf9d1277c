package provider

import (
	"context"

	"github.com/pavelc4/mediaq-bot/internal/extractor"
	"github.com/pavelc4/mediaq-bot/internal/media"
)

// ExtractorStrategy fetches directly through yt-dlp. It is the default head
// of the video chain and the backbone of the generic chain.
type ExtractorStrategy struct {
	fetcher Fetcher
	paths   Paths
}

func NewExtractor(fetcher Fetcher, paths Paths) *ExtractorStrategy {
	return &ExtractorStrategy{fetcher: fetcher, paths: paths}
}

func (s *ExtractorStrategy) Name() string {
	return NameExtractor
}

func (s *ExtractorStrategy) Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	if !s.fetcher.Available() {
		return nil, media.Unavailable(NameExtractor, "yt-dlp binary not found")
	}

	opts := extractor.Options{Template: s.paths.Template(job), Format: extractor.VideoFormat}
	switch {
	case job.Category == media.CategoryMusic:
		opts.Format = extractor.AudioFormat
		opts.AudioCodec = "mp3"
	case job.Category == media.CategorySocial:
		opts.Format = "best"
	}

	path, err := s.fetcher.Fetch(ctx, job.URL, opts)
	if err != nil {
		return nil, media.Wrap(NameExtractor, err)
	}
	return &media.StrategyResult{FilePath: path, Strategy: NameExtractor}, nil
}
