package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DefaultMaxFileSize      = 2040109465 // 1.9 GiB
	DefaultGroupMaxFileSize = 50 * 1024 * 1024
)

// Config is read from an optional .env file, an optional YAML file named by
// CONFIG_FILE and the environment, in increasing order of precedence.
type Config struct {
	AppID      int    `yaml:"app_id" env:"APP_ID" env-required:"true" validate:"gt=0"`
	AppHash    string `yaml:"app_hash" env:"APP_HASH" env-required:"true" validate:"required"`
	BotToken   string `yaml:"bot_token" env:"BOT_TOKEN" env-required:"true" validate:"required"`
	OwnerID    int64  `yaml:"owner_id" env:"OWNER_ID"`
	SessionDir string `yaml:"session_dir" env:"SESSION_DIR" env-default:"session"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`

	Download DownloadConfig `yaml:"download"`
	Sources  SourceConfig   `yaml:"sources"`
}

type DownloadConfig struct {
	Dir              string        `yaml:"dir" env:"DOWNLOAD_DIR" env-default:"downloads"`
	MaxFileSize      int64         `yaml:"max_file_size" env:"MAX_FILE_SIZE" env-default:"2040109465" validate:"gt=0"`
	GroupMaxFileSize int64         `yaml:"group_max_file_size" env:"GROUP_MAX_FILE_SIZE" env-default:"52428800" validate:"gt=0"`
	Timeout          time.Duration `yaml:"timeout" env:"DOWNLOAD_TIMEOUT" env-default:"10m" validate:"gt=0"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"1h"`
	MaxQueue         int           `yaml:"max_queue" env:"MAX_QUEUE" env-default:"50" validate:"min=1"`
	VideoStrategy    string        `yaml:"video_strategy" env:"VIDEO_STRATEGY" env-default:"extractor" validate:"oneof=extractor api proxy mirror browser"`
	ProgressPolicy   string        `yaml:"progress_policy" env:"PROGRESS_POLICY" env-default:"strict" validate:"oneof=strict loose"`
	StaleFileAge     time.Duration `yaml:"stale_file_age" env:"STALE_FILE_AGE" env-default:"1h" validate:"gt=0"`
	JanitorInterval  time.Duration `yaml:"janitor_interval" env:"JANITOR_INTERVAL" env-default:"10m" validate:"gt=0"`
}

type SourceConfig struct {
	YtDlpPath  string `yaml:"ytdlp_path" env:"YTDLP_PATH" env-default:"yt-dlp"`
	CookieFile string `yaml:"cookie_file" env:"COOKIE_FILE_PATH"`

	RapidAPIKey   string `yaml:"rapidapi_key" env:"RAPIDAPI_KEY"`
	YouTubeAPIURL string `yaml:"youtube_api_url" env:"YOUTUBE_API_URL" validate:"omitempty,url"`
	YouTubeAPIKey string `yaml:"youtube_api_key" env:"YOUTUBE_API_KEY"`

	CobaltAPI    string `yaml:"cobalt_api" env:"COBALT_API" validate:"omitempty,url"`
	CobaltAPIKey string `yaml:"cobalt_api_key" env:"COBALT_API_KEY"`

	MirrorEndpoints []string `yaml:"mirror_endpoints" env:"MIRROR_ENDPOINTS" env-separator:","`

	BrowserEnabled bool   `yaml:"browser_enabled" env:"BROWSER_ENABLED" env-default:"false"`
	BrowserPath    string `yaml:"browser_path" env:"BROWSER_PATH" env-default:"chromium"`

	SpotifyClientID     string `yaml:"spotify_client_id" env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `yaml:"spotify_client_secret" env:"SPOTIFY_CLIENT_SECRET"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
