package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/feed"
	"github.com/lysyi3m/critique-desk/app/notify"
)

func (h *Handler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if !bindJSON(c, &req, true) {
		return
	}

	var removed []int64
	ok := h.commit(c, "cleanup", func(tx *catalog.Tx) (notify.Notice, error) {
		removed = catalog.Cleanup(tx, req.Strong)
		return notify.Notice{Detail: fmt.Sprintf("%d entries removed", len(removed))}, nil
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{
			"removed": nonNil(removed),
			"count":   len(removed),
		})
	}
}

func (h *Handler) MarkNoResponse(c *gin.Context) {
	var req NoResponseRequest
	if !bindJSON(c, &req, false) {
		return
	}
	cutoff, ok := catalog.ParseDate(req.Before)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid date %q", req.Before)})
		return
	}

	var archived []int64
	ok = h.commit(c, "no_response", func(tx *catalog.Tx) (notify.Notice, error) {
		archived = catalog.MarkStale(tx, h.controller, cutoff)
		return notify.Notice{Detail: fmt.Sprintf("%d entries untouched since %s", len(archived), cutoff.Format("02/01/2006"))}, nil
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{
			"archived": nonNil(archived),
			"count":    len(archived),
		})
	}
}

func (h *Handler) refresh(c *gin.Context) (*feed.Result, bool) {
	if h.ingester == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed ingestion is not configured"})
		return nil, false
	}

	result, err := h.ingester.Run(c.Request.Context())
	if err != nil {
		slog.Error("Feed refresh failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Feed refresh failed", "message": err.Error()})
		return nil, false
	}

	if len(result.Added) > 0 {
		h.scheduleSave()
	}
	return result, true
}

func (h *Handler) RefreshFeed(c *gin.Context) {
	result, ok := h.refresh(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// ThreadCreated handles a new forum thread announced in chat: the feed is
// refreshed and the linked entry returned when it made it into the
// catalog.
func (h *Handler) ThreadCreated(c *gin.Context) {
	var req ThreadRequest
	if !bindJSON(c, &req, false) {
		return
	}

	url, found := catalog.FindThreadURL(req.Text)
	if !found {
		h.respondError(c, "thread", errNoThreadLink)
		return
	}
	id, _ := catalog.ExtractID(url)

	result, ok := h.refresh(c)
	if !ok {
		return
	}

	var view catalog.EntryView
	err := h.store.Do(func(tx *catalog.Tx) error {
		e, err := tx.MustGet(id)
		if err != nil {
			return err
		}
		view = e.DetailView()
		return nil
	})
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Thread is not in the catalog",
			"url":      url,
			"rejected": result.Rejected,
		})
		return
	}
	if err != nil {
		h.respondError(c, "thread", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entry": view,
		"added": slices.Contains(result.Added, id),
	})
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
