package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig describes the configuration of the daemon and the publisher worker.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Relays []string `envconfig:"RELAYS" default:"wss://relay.damus.io,wss://nos.lol,wss://relay.nostr.band"`

	Ingest struct {
		MinLoading       time.Duration `envconfig:"INGEST_MIN_LOADING" default:"1s"`
		MinGoals         int           `envconfig:"INGEST_MIN_GOALS" default:"100"`
		GoalLimit        int           `envconfig:"INGEST_GOAL_LIMIT" default:"100"`
		ZapLimit         int           `envconfig:"INGEST_ZAP_LIMIT" default:"500"`
		ReactionLimit    int           `envconfig:"INGEST_REACTION_LIMIT" default:"1000"`
		NoteLimit        int           `envconfig:"INGEST_NOTE_LIMIT" default:"500"`
		RefreshInterval  time.Duration `envconfig:"INGEST_REFRESH_INTERVAL" default:"1m"`
		ResubscribeDelay time.Duration `envconfig:"INGEST_RESUBSCRIBE_DELAY" default:"2s"`
		EOSETimeout      time.Duration `envconfig:"INGEST_EOSE_TIMEOUT" default:"10s"`
		ArchiveBuffer    int           `envconfig:"INGEST_ARCHIVE_BUFFER" default:"1024"`
		ReplayLimit      uint64        `envconfig:"INGEST_REPLAY_LIMIT" default:"50000"`
	} `envconfig:""`

	Goals struct {
		DefaultTargetSats int64 `envconfig:"GOAL_DEFAULT_TARGET_SATS" default:"10000"`
		ExcludeSelfZaps   bool  `envconfig:"GOAL_EXCLUDE_SELF_ZAPS" default:"false"`
	} `envconfig:""`

	Listing struct {
		PageSize int `envconfig:"LIST_PAGE_SIZE" default:"30"`
		MaxPages int `envconfig:"LIST_MAX_PAGES" default:"5"`
	} `envconfig:""`

	FollowerPubkey string `envconfig:"FOLLOWER_PUBKEY"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queues struct {
		Backend     string `envconfig:"QUEUE_BACKEND" default:"redis"`
		RabbitURL   string `envconfig:"RABBITMQ_URL"`
		Publish     string `envconfig:"PUBLISH_QUEUE_KEY" default:"publish_jobs"`
		MaxAttempts int    `envconfig:"PUBLISH_MAX_ATTEMPTS" default:"5"`
	} `envconfig:""`

	Telegram struct {
		Token        string `envconfig:"TG_BOT_TOKEN"`
		NotifyChatID int64  `envconfig:"TG_NOTIFY_CHAT_ID"`
	} `envconfig:""`

	Nostr struct {
		PrivateKey string `envconfig:"NOSTR_PRIVATE_KEY"`
	} `envconfig:""`

	API struct {
		WriteToken string `envconfig:"API_WRITE_TOKEN"`
	} `envconfig:""`
}

// Load reads the configuration from the environment.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Parse reads the configuration and returns the error instead of exiting.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
