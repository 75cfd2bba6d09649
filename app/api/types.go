package api

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/database"
	"github.com/lysyi3m/critique-desk/app/display"
	"github.com/lysyi3m/critique-desk/app/feed"
	"github.com/lysyi3m/critique-desk/app/notify"
	"github.com/lysyi3m/critique-desk/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, entries []*catalog.Entry) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// Deps is everything the handlers work with. Previews, Scheduler and
// Notifier are optional.
type Deps struct {
	Store      *catalog.Store
	Controller *catalog.Controller
	Rules      *display.Rules
	Generator  GeneratorInterface
	Ingester   tasks.FeedIngester
	Entries    database.EntryRepository
	Settings   database.SettingsRepository
	Previews   database.PreviewRepository
	Scheduler  tasks.TaskSchedulerInterface
	Notifier   notify.Notifier
	Version    string
}

type Handler struct {
	store      *catalog.Store
	controller *catalog.Controller
	searcher   catalog.TextSearcher
	rules      *display.Rules
	generator  GeneratorInterface
	ingester   tasks.FeedIngester
	entries    database.EntryRepository
	settings   database.SettingsRepository
	previews   database.PreviewRepository
	scheduler  tasks.TaskSchedulerInterface
	notifier   notify.Notifier
	version    string

	// only used under the store lock
	rnd *rand.Rand
}

// Keys maps API keys to access levels. An empty Read key makes read
// endpoints public.
type Keys struct {
	Read   string
	Edit   string
	Manage string
}

type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelEdit
	LevelManage
)

func (l Level) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelEdit:
		return "edit"
	case LevelManage:
		return "manage"
	}
	return "none"
}

// Actor is the person a request is made on behalf of, taken from the
// X-Actor-ID and X-Actor-Name headers.
type Actor struct {
	Key  int64
	Name string
}

var (
	errNoReservation = errors.New("no matching reservation")
	errTagPresent    = errors.New("tag already present")
	errNoTagMatched  = errors.New("no tag matches the criterion")
	errNoThreadLink  = errors.New("no forum thread link in text")
)

type AddEntryRequest struct {
	Name   string `json:"name" binding:"required"`
	URL    string `json:"url" binding:"required,url"`
	Author string `json:"author" binding:"required"`
	Type   string `json:"type" binding:"required"`
	Status string `json:"status"`
}

type UpdateEntryRequest struct {
	Name   *string `json:"name"`
	Author *string `json:"author"`
	Type   *string `json:"type"`
	Status *string `json:"status"`
}

func (r UpdateEntryRequest) empty() bool {
	return r.Name == nil && r.Author == nil && r.Type == nil && r.Status == nil
}

type ClaimRequest struct {
	Kind string `json:"kind" binding:"required"`
	// Claims on behalf of someone else carry their name and no identity.
	Name string `json:"name"`
}

type ReleaseRequest struct {
	Name string `json:"name"`
}

type TagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

type RenameAuthorRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

type CleanupRequest struct {
	Strong bool `json:"strong"`
}

type NoResponseRequest struct {
	Before string `json:"before" binding:"required"`
}

type ThreadRequest struct {
	Text string `json:"text" binding:"required"`
}

type ProblemView struct {
	Field   string   `json:"field"`
	Token   string   `json:"token"`
	Reason  string   `json:"reason"`
	Matches []string `json:"matches,omitempty"`
}

type PreviewView struct {
	Excerpt     string     `json:"excerpt,omitempty"`
	Status      string     `json:"status"`
	ExtractedAt *time.Time `json:"extracted_at,omitempty"`
}

type EntryDetailResponse struct {
	Entry    catalog.EntryView `json:"entry"`
	Channels []string          `json:"channels"`
	Preview  *PreviewView      `json:"preview,omitempty"`
}

type ChannelView struct {
	*display.Channel
	Count int `json:"count"`
}
