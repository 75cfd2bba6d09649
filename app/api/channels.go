package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/display"
	"github.com/lysyi3m/critique-desk/app/feed"
)

func (h *Handler) channel(c *gin.Context) (*display.Channel, bool) {
	name := c.Param("name")
	if h.rules == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return nil, false
	}
	ch, ok := h.rules.Channel(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return nil, false
	}
	return ch, true
}

func (h *Handler) ListChannels(c *gin.Context) {
	channels := []ChannelView{}
	if h.rules != nil {
		_ = h.store.Do(func(tx *catalog.Tx) error {
			for _, ch := range h.rules.Channels() {
				channels = append(channels, ChannelView{Channel: ch, Count: len(ch.Entries(tx.Entries()))})
			}
			return nil
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"total":    len(channels),
	})
}

func (h *Handler) GetChannel(c *gin.Context) {
	ch, ok := h.channel(c)
	if !ok {
		return
	}

	var views []catalog.EntryView
	_ = h.store.Do(func(tx *catalog.Tx) error {
		views = catalog.SummaryViews(ch.Entries(tx.Entries()))
		return nil
	})

	c.JSON(http.StatusOK, gin.H{
		"channel": ChannelView{Channel: ch, Count: len(views)},
		"entries": views,
	})
}

func (h *Handler) GetChannelFeed(c *gin.Context) {
	ch, ok := h.channel(c)
	if !ok {
		return
	}
	if h.generator == nil {
		c.Status(http.StatusNotFound)
		return
	}

	var entries []*catalog.Entry
	_ = h.store.Do(func(tx *catalog.Tx) error {
		for _, e := range ch.Entries(tx.Entries()) {
			entries = append(entries, e.Clone())
		}
		return nil
	})

	rss, err := h.generator.Run(feed.Channel{Name: ch.Name, Title: ch.Title, Description: ch.Description}, entries)
	if err != nil {
		slog.Error("RSS generation error", "channel", ch.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(entries)))
	c.Header("X-Feed-Name", ch.Name)

	c.String(http.StatusOK, rss)
}
