package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const DefaultFeedURL = "http://fondationscp.wikidot.com/feed/forum/ct-656675.xml"

type rawCfg struct {
	// Storage
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/catalog.db" description:"SQLite database file"`
	UndoDepth int    `long:"undo-depth" env:"UNDO_DEPTH" default:"50" description:"Number of catalog operations that can be undone"`

	// HTTP server
	Port    string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://desk.example.com)"`

	ReadKey   string `long:"read-key" env:"API_READ_KEY" description:"API key granting read access (optional, read is public when empty)"`
	EditKey   string `long:"edit-key" env:"API_EDIT_KEY" description:"API key granting edit access" required:"true"`
	ManageKey string `long:"manage-key" env:"API_MANAGE_KEY" description:"API key granting manage access" required:"true"`

	// Background work
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	FeedInterval      int    `long:"feed-interval" env:"FEED_INTERVAL" default:"600" description:"Forum feed refresh interval in seconds"`
	FeedURL           string `long:"feed-url" env:"FEED_URL" description:"Forum feed of new submission threads"`
	FeedTimeout       int    `long:"feed-timeout" env:"FEED_TIMEOUT" default:"30" description:"HTTP timeout in seconds for feed and thread requests"`
	AuthorExtension   string `long:"author-extension" env:"AUTHOR_EXTENSION" default:"wikidot:authorName" description:"Feed extension element holding the thread author"`
	ExtractPreviews   bool   `long:"extract-previews" env:"EXTRACT_PREVIEWS" description:"Extract readable previews of thread pages"`
	StaleAfterDays    int    `long:"stale-after-days" env:"STALE_AFTER_DAYS" default:"0" description:"Mark open entries untouched for this many days as no response (0 disables)"`
	StaleSweepCron    string `long:"stale-sweep-cron" env:"STALE_SWEEP_CRON" default:"0 4 * * *" description:"Cron schedule of the stale entry sweep"`

	// Display and notifications
	ChannelsFile   string `long:"channels-file" env:"CHANNELS_FILE" default:"./channels.yml" description:"YAML file describing display channels"`
	TelegramToken  string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token for the audit log (optional)"`
	TelegramChatID int64  `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat receiving the audit log"`
	NotifyInterval int    `long:"notify-interval" env:"NOTIFY_INTERVAL" default:"1000" description:"Minimum delay in milliseconds between audit messages"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Critique Desk/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps and dates (e.g., UTC, Europe/Paris)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogJSON   bool   `long:"log-json" env:"LOG_JSON" description:"Write logs as JSON"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args instead of os.Args when args is not nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		UndoDepth:         raw.UndoDepth,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		ReadKey:           raw.ReadKey,
		EditKey:           raw.EditKey,
		ManageKey:         raw.ManageKey,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		FeedInterval:      raw.FeedInterval,
		FeedURL:           cmp.Or(raw.FeedURL, DefaultFeedURL),
		FeedTimeout:       raw.FeedTimeout,
		AuthorExtension:   raw.AuthorExtension,
		ExtractPreviews:   raw.ExtractPreviews,
		StaleAfterDays:    raw.StaleAfterDays,
		StaleSweepCron:    raw.StaleSweepCron,
		ChannelsFile:      raw.ChannelsFile,
		TelegramToken:     raw.TelegramToken,
		TelegramChatID:    raw.TelegramChatID,
		NotifyInterval:    raw.NotifyInterval,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		LogJSON:           raw.LogJSON,
		Version:           GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func (c *Cfg) validate() error {
	if c.EditKey == c.ManageKey {
		return fmt.Errorf("edit and manage keys must differ")
	}
	if c.ReadKey != "" && (c.ReadKey == c.EditKey || c.ReadKey == c.ManageKey) {
		return fmt.Errorf("read key must differ from edit and manage keys")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("telegram chat id is required when a telegram token is set")
	}
	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
