package api

import (
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/metrics"
	"github.com/lysyi3m/critique-desk/app/notify"
	"github.com/lysyi3m/critique-desk/app/tasks"
)

const noticeTimeout = 10 * time.Second

func NewHandler(deps Deps) *Handler {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	controller := deps.Controller
	if controller == nil {
		controller = catalog.NewController(nil)
	}
	return &Handler{
		store:      deps.Store,
		controller: controller,
		searcher:   catalog.WordSearcher{},
		rules:      deps.Rules,
		generator:  deps.Generator,
		ingester:   deps.Ingester,
		entries:    deps.Entries,
		settings:   deps.Settings,
		previews:   deps.Previews,
		scheduler:  deps.Scheduler,
		notifier:   notifier,
		version:    deps.Version,
		rnd:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// commit runs fn under the catalog lock. On success it counts the action,
// sends the audit notice and queues a save.
func (h *Handler) commit(c *gin.Context, action string, fn func(tx *catalog.Tx) (notify.Notice, error)) bool {
	var notice notify.Notice
	err := h.store.Do(func(tx *catalog.Tx) error {
		var err error
		notice, err = fn(tx)
		return err
	})
	if err != nil {
		h.respondError(c, action, err)
		return false
	}

	metrics.Transitions.WithLabelValues(action).Inc()

	notice.Actor = actorFrom(c).Name
	notice.Action = action
	notify.Async(h.notifier, notice, noticeTimeout)

	h.scheduleSave()
	return true
}

func (h *Handler) scheduleSave() {
	if h.scheduler == nil || h.entries == nil || h.settings == nil {
		return
	}
	if err := h.scheduler.EnqueueTask(tasks.NewSaveCatalogTask(h.store, h.entries, h.settings)); err != nil {
		slog.Warn("Failed to queue catalog save", "error", err)
	}
}

func entryNotice(e *catalog.Entry, detail string) notify.Notice {
	return notify.Notice{EntryID: e.ID, Name: e.Name, URL: e.URL, Detail: detail}
}

func (h *Handler) respondError(c *gin.Context, operation string, err error) {
	var qe *catalog.QueryError
	switch {
	case errors.As(err, &qe):
		problems := make([]ProblemView, 0, len(qe.Problems))
		for _, p := range qe.Problems {
			problems = append(problems, ProblemView{Field: p.Field, Token: p.Token, Reason: p.Reason, Matches: p.Matches})
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "problems": problems})
	case errors.Is(err, catalog.ErrEmptyQuery),
		errors.Is(err, catalog.ErrMalformedURL),
		errors.Is(err, catalog.ErrUnknownStatus),
		errors.Is(err, catalog.ErrUnknownType),
		errors.Is(err, catalog.ErrUnknownKind),
		errors.Is(err, catalog.ErrUnknownAction),
		errors.Is(err, errNoThreadLink):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, errNoReservation),
		errors.Is(err, errNoTagMatched):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrDuplicate),
		errors.Is(err, catalog.ErrTransitionNotAllowed),
		errors.Is(err, catalog.ErrNothingToUndo),
		errors.Is(err, errTagPresent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("Catalog error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return 0, false
	}
	return id, true
}

// bindJSON binds the request body. With optional set, an empty body leaves
// req untouched.
func bindJSON(c *gin.Context, req any, optional bool) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	_ = h.store.Do(func(tx *catalog.Tx) error {
		health["entries"] = tx.Len()
		health["undo_depth"] = tx.UndoDepth()
		if last := tx.LastIngested(); !last.IsZero() {
			health["last_ingested"] = last.In(time.Local).Format(time.RFC3339)
		}
		return nil
	})

	if h.entries != nil {
		if stored, err := h.entries.Count(c.Request.Context()); err == nil {
			health["stored_entries"] = stored
		}
	}

	if h.rules != nil {
		health["channels"] = len(h.rules.Channels())
	}

	c.JSON(http.StatusOK, health)
}
