package provider

import (
	"context"

	"github.com/pavelc4/mediaq-bot/internal/extractor"
	"github.com/pavelc4/mediaq-bot/internal/media"
)

// Strategy is one way of turning a job into a local file. Implementations
// must return *media.RetrievalError on failure and must only write files
// whose names start with job.WorkName().
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, job media.Job) (*media.StrategyResult, error)
}

// Executor runs a job to completion, either a single chain or a two-level
// native-then-generic fallback.
type Executor interface {
	Execute(ctx context.Context, job media.Job) (*media.StrategyResult, error)
}

// Fetcher is the extraction collaborator used by strategies that delegate
// to yt-dlp.
type Fetcher interface {
	Available() bool
	Fetch(ctx context.Context, url string, opts extractor.Options) (string, error)
}

// Paths names working files; satisfied by *workdir.Dir.
type Paths interface {
	Path(job media.Job, ext string) string
	Template(job media.Job) string
	Remove(path string)
}

const (
	NameExtractor = "extractor"
	NameAPI       = "api"
	NameProxy     = "proxy"
	NameMirror    = "mirror"
	NameBrowser   = "browser"
	NameSocial    = "social"
	NameMusic     = "music"
)
