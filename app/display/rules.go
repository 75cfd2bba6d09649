package display

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/critique-desk/app/catalog"
)

// Channel is a display channel: the set of entries whose status and type
// both match. An empty status or type list matches everything.
type Channel struct {
	Name        string   `yaml:"name" json:"name"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Statuses    []string `yaml:"statuses" json:"statuses,omitempty"`
	Types       []string `yaml:"types" json:"types,omitempty"`

	statuses []catalog.Status
	types    []catalog.Type
}

type rulesFile struct {
	Channels []*Channel `yaml:"channels"`
}

func (c *Channel) Matches(e *catalog.Entry) bool {
	if len(c.statuses) > 0 && !slices.Contains(c.statuses, e.Status()) {
		return false
	}
	if len(c.types) > 0 && !slices.Contains(c.types, e.Type) {
		return false
	}
	return true
}

func DefaultChannels() []*Channel {
	return []*Channel{
		{Name: "open", Title: "Open entries", Statuses: []string{"open", "open_claimed"}},
		{Name: "triage", Title: "Needs triage", Statuses: []string{"unknown", "violation"}},
		{Name: "other", Title: "Other submissions", Types: []string{"other"}},
	}
}

// Rules holds the channel definitions loaded from a YAML file. It is safe
// for concurrent use; Load swaps the whole set at once.
type Rules struct {
	path     string
	channels []*Channel
	mu       sync.RWMutex
}

func NewRules(path string) *Rules {
	r := &Rules{path: path}
	channels, _ := compile(DefaultChannels())
	r.channels = channels
	return r
}

func (r *Rules) Path() string {
	return r.path
}

// Load reads the rules file. A missing file keeps the default channels. On
// any error the previous channel set stays in place.
func (r *Rules) Load() error {
	if r.path == "" {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("Display rules file not found, using defaults", "path", r.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	channels, err := compile(file.Channels)
	if err != nil {
		return fmt.Errorf("invalid rules %s: %w", r.path, err)
	}

	r.mu.Lock()
	r.channels = channels
	r.mu.Unlock()

	slog.Info("Display rules loaded", "path", r.path, "channels", len(channels))
	return nil
}

func compile(channels []*Channel) ([]*Channel, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels defined")
	}

	seen := make(map[string]bool, len(channels))
	out := make([]*Channel, 0, len(channels))

	for i, c := range channels {
		if c == nil || c.Name == "" {
			return nil, fmt.Errorf("channel at index %d has no name", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate channel name: %s", c.Name)
		}
		seen[c.Name] = true

		compiled := *c
		if compiled.Title == "" {
			compiled.Title = c.Name
		}
		compiled.statuses = nil
		compiled.types = nil
		for _, s := range c.Statuses {
			status, err := catalog.ParseStatus(s)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", c.Name, err)
			}
			compiled.statuses = append(compiled.statuses, status)
		}
		for _, t := range c.Types {
			typ, err := catalog.ParseType(t)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", c.Name, err)
			}
			compiled.types = append(compiled.types, typ)
		}
		out = append(out, &compiled)
	}

	return out, nil
}

func (r *Rules) Channels() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.channels)
}

func (r *Rules) Channel(name string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.channels {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ChannelsFor returns the names of the channels an entry is displayed in.
func (r *Rules) ChannelsFor(e *catalog.Entry) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := []string{}
	for _, c := range r.channels {
		if c.Matches(e) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Entries returns the entries of a channel, oldest first.
func (c *Channel) Entries(entries map[int64]*catalog.Entry) []*catalog.Entry {
	out := make([]*catalog.Entry, 0)
	for _, e := range entries {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	catalog.SortOldestFirst(out)
	return out
}
