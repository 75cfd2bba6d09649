package cfg

import (
	"time"
)

type Cfg struct {
	// Storage
	DBPath    string
	UndoDepth int

	// HTTP server
	Port    string
	BaseUrl string

	// Access keys, one per permission level
	ReadKey   string
	EditKey   string
	ManageKey string

	// Background work
	WorkerCount       int
	SchedulerInterval int
	FeedInterval      int
	FeedURL           string
	FeedTimeout       int
	AuthorExtension   string
	ExtractPreviews   bool
	StaleAfterDays    int
	StaleSweepCron    string

	// Display and notifications
	ChannelsFile   string
	TelegramToken  string
	TelegramChatID int64
	NotifyInterval int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	LogJSON   bool
	Version   string
}

func (c *Cfg) GetSchedulerInterval() time.Duration {
	return seconds(c.SchedulerInterval, 30)
}

func (c *Cfg) GetFeedInterval() time.Duration {
	return seconds(c.FeedInterval, 600)
}

func (c *Cfg) GetFeedTimeout() time.Duration {
	return seconds(c.FeedTimeout, 30)
}

func (c *Cfg) GetNotifyInterval() time.Duration {
	if c.NotifyInterval <= 0 {
		return 0
	}
	return time.Duration(c.NotifyInterval) * time.Millisecond
}

// GetStaleAfter is how long an open entry may sit untouched before the
// sweep marks it as no response. Zero disables the sweep.
func (c *Cfg) GetStaleAfter() time.Duration {
	if c.StaleAfterDays <= 0 {
		return 0
	}
	return time.Duration(c.StaleAfterDays) * 24 * time.Hour
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
