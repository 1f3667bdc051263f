package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"local"`

	RedditClientID     string `env:"REDDIT_CLIENT_ID,required"`
	RedditClientSecret string `env:"REDDIT_CLIENT_SECRET,required"`
	RedditUsername     string `env:"REDDIT_USERNAME,required"`
	RedditPassword     string `env:"REDDIT_PASSWORD,required"`
	RedditUserAgent    string `env:"REDDIT_USER_AGENT" envDefault:"reddit-topic-bridge/1.0"`

	BotToken     string  `env:"BOT_TOKEN,required"`
	TargetChatID int64   `env:"TARGET_CHAT_ID,required"`
	ErrorTopicID int     `env:"ERROR_TOPIC_ID" envDefault:"0"`
	AdminIDs     []int64 `env:"ADMIN_IDS" envSeparator:","`

	SubredditsFile string `env:"SUBREDDITS_FILE" envDefault:"./subreddits.db"`
	DedupFile      string `env:"DEDUP_FILE" envDefault:"./delivered.db"`

	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"15s"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	ListingLimit  int           `env:"LISTING_LIMIT" envDefault:"25"`
	RedditRPS     float64       `env:"REDDIT_RPS" envDefault:"1"`
	MediaFetchRPS float64       `env:"MEDIA_FETCH_RPS" envDefault:"2"`

	CommentDigestSize  int `env:"COMMENT_DIGEST_SIZE" envDefault:"5"`
	CommentRecentHours int `env:"COMMENT_RECENT_HOURS" envDefault:"12"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
