package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/database"
	"github.com/lysyi3m/critique-desk/app/notify"
)

// listParam collects a query parameter given repeatedly or comma separated.
func listParam(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

// typeParam parses the optional "type" filter. It writes the error
// response itself.
func typeParam(c *gin.Context) (*catalog.Type, bool) {
	raw := strings.TrimSpace(c.Query("type"))
	if raw == "" {
		return nil, true
	}
	t, err := catalog.ParseType(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &t, true
}

func (h *Handler) SearchEntries(c *gin.Context) {
	raw := catalog.RawQuery{
		Text:     c.Query("q"),
		Statuses: listParam(c, "statuses"),
		Types:    listParam(c, "types"),
		Authors:  listParam(c, "authors"),
		Tags:     listParam(c, "tags"),
		Before:   c.Query("before"),
		After:    c.Query("after"),
	}
	if v := c.Query("tags_all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tags_all parameter"})
			return
		}
		raw.TagsRequireAll = all
	}

	var views []catalog.EntryView
	err := h.store.Do(func(tx *catalog.Tx) error {
		criteria, err := catalog.ParseQuery(tx.Entries(), raw)
		if err != nil {
			return err
		}
		views = catalog.SummaryViews(catalog.Search(tx.Entries(), h.searcher, criteria))
		return nil
	})
	if err != nil {
		h.respondError(c, "search", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": views,
		"total":   len(views),
	})
}

func (h *Handler) LookupEntry(c *gin.Context) {
	criterion := strings.TrimSpace(c.Query("q"))
	if criterion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing q parameter"})
		return
	}

	var view catalog.EntryView
	var candidates []catalog.EntryView
	err := h.store.Do(func(tx *catalog.Tx) error {
		e, matches, err := catalog.FindUnique(tx.Entries(), h.searcher, criterion)
		if err != nil {
			candidates = catalog.SummaryViews(matches)
			return err
		}
		view = e.DetailView()
		return nil
	})

	if err != nil && len(candidates) > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"candidates": candidates,
		})
		return
	}
	if err != nil {
		h.respondError(c, "lookup", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) RandomEntry(c *gin.Context) {
	h.pickEntry(c, func(entries map[int64]*catalog.Entry, typ *catalog.Type) *catalog.Entry {
		return catalog.RandomOpen(entries, typ, h.rnd)
	})
}

func (h *Handler) OldestEntry(c *gin.Context) {
	h.pickEntry(c, catalog.OldestOpen)
}

func (h *Handler) pickEntry(c *gin.Context, pick func(map[int64]*catalog.Entry, *catalog.Type) *catalog.Entry) {
	typ, ok := typeParam(c)
	if !ok {
		return
	}

	var view *catalog.EntryView
	_ = h.store.Do(func(tx *catalog.Tx) error {
		if e := pick(tx.Entries(), typ); e != nil {
			v := e.DetailView()
			view = &v
		}
		return nil
	})

	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No open entry"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetEntry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var resp EntryDetailResponse
	err := h.store.Do(func(tx *catalog.Tx) error {
		e, err := tx.MustGet(id)
		if err != nil {
			return err
		}
		resp.Entry = e.DetailView()
		resp.Channels = []string{}
		if h.rules != nil {
			resp.Channels = h.rules.ChannelsFor(e)
		}
		return nil
	})
	if err != nil {
		h.respondError(c, "get_entry", err)
		return
	}

	if h.previews != nil {
		preview, err := h.previews.GetPreview(c.Request.Context(), id)
		if err != nil {
			slog.Error("Database error", "operation", "get_preview", "entry_id", id, "error", err)
		} else if preview != nil {
			resp.Preview = &PreviewView{Status: preview.Status, ExtractedAt: preview.ExtractedAt}
			if preview.Status == database.PreviewStatusSuccess {
				resp.Preview.Excerpt = preview.Excerpt
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListTags(c *gin.Context) {
	var tags []catalog.TagCount
	_ = h.store.Do(func(tx *catalog.Tx) error {
		tags = catalog.TagCounts(tx.Entries())
		return nil
	})

	c.JSON(http.StatusOK, gin.H{
		"tags":  tags,
		"total": len(tags),
	})
}

func (h *Handler) AddEntry(c *gin.Context) {
	var req AddEntryRequest
	if !bindJSON(c, &req, false) {
		return
	}

	typ, err := catalog.ParseType(req.Type)
	if err != nil {
		h.respondError(c, "add", err)
		return
	}
	status := catalog.StatusOpen
	if strings.TrimSpace(req.Status) != "" {
		if status, err = catalog.ParseStatus(req.Status); err != nil {
			h.respondError(c, "add", err)
			return
		}
	}

	var view catalog.EntryView
	ok := h.commit(c, "add", func(tx *catalog.Tx) (notify.Notice, error) {
		e, err := catalog.NewEntry(req.Name, req.URL, req.Author, typ, status, h.controller.Now())
		if err != nil {
			return notify.Notice{}, err
		}
		tx.Archive(e.ID)
		if err := tx.Insert(e); err != nil {
			return notify.Notice{}, err
		}
		view = e.DetailView()
		return entryNotice(e, fmt.Sprintf("%s by %s", e.Type, e.AuthorName)), nil
	})
	if ok {
		c.JSON(http.StatusCreated, view)
	}
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if !bindJSON(c, &req, false) {
		return
	}
	if req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	var status *catalog.Status
	if req.Status != nil {
		s, err := catalog.ParseStatus(*req.Status)
		if err != nil {
			h.respondError(c, "update", err)
			return
		}
		status = &s
	}
	var typ *catalog.Type
	if req.Type != nil {
		t, err := catalog.ParseType(*req.Type)
		if err != nil {
			h.respondError(c, "update", err)
			return
		}
		typ = &t
	}

	var view catalog.EntryView
	ok = h.commit(c, "update", func(tx *catalog.Tx) (notify.Notice, error) {
		e, err := tx.MustGet(id)
		if err != nil {
			return notify.Notice{}, err
		}
		tx.Archive(id)

		var changed []string
		if req.Name != nil {
			h.controller.SetName(e, *req.Name)
			changed = append(changed, "name")
		}
		if req.Author != nil {
			h.controller.SetAuthor(e, *req.Author)
			changed = append(changed, "author")
		}
		if typ != nil {
			h.controller.SetType(e, *typ)
			changed = append(changed, "type "+typ.String())
		}
		if status != nil {
			h.controller.SetStatus(e, *status)
			changed = append(changed, "status "+status.String())
		}

		view = e.DetailView()
		return entryNotice(e, strings.Join(changed, ", ")), nil
	})
	if ok {
		c.JSON(http.StatusOK, view)
	}
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ok = h.commit(c, "delete", func(tx *catalog.Tx) (notify.Notice, error) {
		e, err := tx.MustGet(id)
		if err != nil {
			return notify.Notice{}, err
		}
		tx.Archive(id)
		tx.Remove(id)
		return entryNotice(e, ""), nil
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}
