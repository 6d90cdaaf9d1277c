package app

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
	"github.com/pavelc4/mediaq-bot/config"
	"github.com/pavelc4/mediaq-bot/internal/admission"
	"github.com/pavelc4/mediaq-bot/internal/bot"
	"github.com/pavelc4/mediaq-bot/internal/coordinator"
	"github.com/pavelc4/mediaq-bot/internal/extractor"
	"github.com/pavelc4/mediaq-bot/internal/handler"
	"github.com/pavelc4/mediaq-bot/internal/middleware"
	"github.com/pavelc4/mediaq-bot/internal/progress"
	"github.com/pavelc4/mediaq-bot/internal/provider"
	"github.com/pavelc4/mediaq-bot/internal/sizegate"
	"github.com/pavelc4/mediaq-bot/internal/stats"
	"github.com/pavelc4/mediaq-bot/internal/telegram"
	"github.com/pavelc4/mediaq-bot/internal/workdir"
	"github.com/pavelc4/mediaq-bot/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg *config.Config
	bot *bot.Bot
	dir *workdir.Dir
}

func New(cfg *config.Config) (*App, error) {
	logger.SetLevel(cfg.LogLevel)

	dir, err := workdir.New(cfg.Download.Dir)
	if err != nil {
		return nil, err
	}

	ytdlp := extractor.New(cfg.Sources.YtDlpPath, cfg.Sources.CookieFile)
	if !ytdlp.Available() {
		logger.Warn("yt-dlp not found, extractor strategy disabled", "path", cfg.Sources.YtDlpPath)
	}

	set, err := buildStrategies(cfg.Sources, dir, ytdlp)
	if err != nil {
		return nil, err
	}
	table, err := provider.NewTable(set, cfg.Download.VideoStrategy)
	if err != nil {
		return nil, err
	}

	dispatcher := tg.NewUpdateDispatcher()
	client := telegram.NewClient(telegram.Config{
		AppID:      cfg.AppID,
		AppHash:    cfg.AppHash,
		BotToken:   cfg.BotToken,
		SessionDir: cfg.SessionDir,
	}, dispatcher)
	peers := telegram.NewPeers()

	adm := admission.New(cfg.Download.MaxQueue)
	recorder := stats.NewRecorder()
	coord := coordinator.New(coordinator.Deps{
		Admission: adm,
		Gate: sizegate.New(sizegate.Limits{
			Global: cfg.Download.MaxFileSize,
			Group:  cfg.Download.GroupMaxFileSize,
		}, ytdlp),
		Executor:  table,
		Messenger: telegram.NewMessenger(client.API(), peers),
		Files:     dir,
		Recorder:  recorder,
	}, coordinator.Options{
		JobTimeout: cfg.Download.Timeout,
		Progress:   progress.PolicyByName(cfg.Download.ProgressPolicy),
	})

	router := bot.NewRouter(
		handler.NewDownloadHandler(coord, peers),
		handler.NewAdminHandler(client.API(), cfg.OwnerID, adm, recorder, dir.Root()),
		handler.NewBasicHandler(client.API()),
	)
	b := bot.New(client, router)
	b.Register(dispatcher, middleware.Recover, middleware.Timeout(cfg.Download.RequestTimeout))

	logger.Info("Application initialized",
		"video_strategy", cfg.Download.VideoStrategy,
		"max_queue", cfg.Download.MaxQueue,
		"timeout", cfg.Download.Timeout,
		"download_dir", dir.Root(),
	)
	return &App{cfg: cfg, bot: b, dir: dir}, nil
}

// Run blocks until ctx is cancelled or the Telegram client fails.
func (a *App) Run(ctx context.Context) error {
	a.dir.CleanStale(ctx, a.cfg.Download.StaleFileAge)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.bot.Run(ctx); err != nil {
			return fmt.Errorf("telegram client: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.dir.RunJanitor(ctx, a.cfg.Download.JanitorInterval, a.cfg.Download.StaleFileAge)
	})
	return g.Wait()
}
