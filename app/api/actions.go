package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/notify"
)

// entryAction runs fn on one entry, archived first, and answers with the
// entry's detail view.
func (h *Handler) entryAction(c *gin.Context, action string, fn func(e *catalog.Entry) (string, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var view catalog.EntryView
	ok = h.commit(c, action, func(tx *catalog.Tx) (notify.Notice, error) {
		e, err := tx.MustGet(id)
		if err != nil {
			return notify.Notice{}, err
		}
		tx.Archive(id)
		detail, err := fn(e)
		if err != nil {
			return notify.Notice{}, err
		}
		view = e.DetailView()
		return entryNotice(e, detail), nil
	})
	if ok {
		c.JSON(http.StatusOK, view)
	}
}

func (h *Handler) ClaimEntry(c *gin.Context) {
	var req ClaimRequest
	if !bindJSON(c, &req, false) {
		return
	}
	kind, err := catalog.ParseReservationKind(req.Kind)
	if err != nil {
		h.respondError(c, "claim", err)
		return
	}

	actor := actorFrom(c)
	key, name := actor.Key, actor.Name
	if proxy := strings.TrimSpace(req.Name); proxy != "" {
		key, name = catalog.ProxyClaimant, proxy
	} else if actor.Key == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Claiming for yourself requires the X-Actor-ID header"})
		return
	}

	h.entryAction(c, "claim", func(e *catalog.Entry) (string, error) {
		if err := h.controller.Claim(e, key, name, kind); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s, %s", name, kind), nil
	})
}

func (h *Handler) ReleaseEntry(c *gin.Context) {
	var req ReleaseRequest
	if !bindJSON(c, &req, true) {
		return
	}

	actor := actorFrom(c)
	name := strings.TrimSpace(req.Name)
	if name == "" && actor.Key == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Give a name or the X-Actor-ID header"})
		return
	}

	h.entryAction(c, "release", func(e *catalog.Entry) (string, error) {
		var released bool
		var err error
		if name != "" {
			released, err = h.controller.ReleaseByName(e, name)
		} else {
			released, err = h.controller.ReleaseByKey(e, actor.Key)
			name = actor.Name
		}
		if err != nil {
			return "", err
		}
		if !released {
			return "", errNoReservation
		}
		return name, nil
	})
}

// ApplyAction runs one of the control actions offered on an entry. Claims
// and acceptance have their own endpoints.
func (h *Handler) ApplyAction(c *gin.Context) {
	action, err := catalog.ParseAction(c.Param("action"))
	if err != nil {
		h.respondError(c, "action", err)
		return
	}
	if action == catalog.ActionClaim || action == catalog.ActionAccept {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Use the %s endpoint", action)})
		return
	}

	actor := actorFrom(c)
	h.entryAction(c, action.String(), func(e *catalog.Entry) (string, error) {
		done, err := h.controller.Apply(e, action, actor.Key)
		if err != nil {
			return "", err
		}
		if !done {
			return "", errNoReservation
		}
		return e.Status().String(), nil
	})
}

func (h *Handler) AcceptEntry(c *gin.Context) {
	h.entryAction(c, "accept", func(e *catalog.Entry) (string, error) {
		if err := h.controller.Accept(e); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s, %s", e.Type, e.Status()), nil
	})
}

func (h *Handler) AddTag(c *gin.Context) {
	var req TagRequest
	if !bindJSON(c, &req, false) {
		return
	}
	tag := catalog.Basicize(req.Tag)
	if tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty tag"})
		return
	}

	h.entryAction(c, "tag", func(e *catalog.Entry) (string, error) {
		if !h.controller.AddTag(e, tag) {
			return "", fmt.Errorf("%w: %s", errTagPresent, tag)
		}
		return tag, nil
	})
}

func (h *Handler) RemoveTags(c *gin.Context) {
	criterion := strings.TrimSpace(c.Query("q"))
	if criterion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing q parameter"})
		return
	}

	h.entryAction(c, "untag", func(e *catalog.Entry) (string, error) {
		removed := h.controller.RemoveTags(e, criterion)
		if len(removed) == 0 {
			return "", fmt.Errorf("%w: %q", errNoTagMatched, criterion)
		}
		return strings.Join(removed, ", "), nil
	})
}

func (h *Handler) RenameAuthor(c *gin.Context) {
	var req RenameAuthorRequest
	if !bindJSON(c, &req, false) {
		return
	}
	to := strings.TrimSpace(req.To)
	if to == "" || strings.TrimSpace(req.From) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty author name"})
		return
	}

	var from string
	var renamed []int64
	ok := h.commit(c, "rename_author", func(tx *catalog.Tx) (notify.Notice, error) {
		resolved, err := catalog.ResolveAuthors(tx.Entries(), []string{req.From})
		if err != nil {
			return notify.Notice{}, err
		}
		from = resolved[0]

		entries := catalog.EntriesByAuthor(tx.Entries(), from)
		renamed = make([]int64, 0, len(entries))
		for _, e := range entries {
			renamed = append(renamed, e.ID)
		}
		tx.Archive(renamed...)
		for _, e := range entries {
			h.controller.SetAuthor(e, to)
		}
		return notify.Notice{Detail: fmt.Sprintf("%s → %s on %d entries", from, to, len(renamed))}, nil
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{
			"from":    from,
			"to":      to,
			"renamed": renamed,
		})
	}
}

func (h *Handler) Undo(c *gin.Context) {
	var restored []int64
	ok := h.commit(c, "undo", func(tx *catalog.Tx) (notify.Notice, error) {
		ids, err := tx.Undo()
		if err != nil {
			return notify.Notice{}, err
		}
		restored = ids
		return notify.Notice{Detail: fmt.Sprintf("%d entries restored", len(ids))}, nil
	})
	if ok {
		c.JSON(http.StatusOK, gin.H{"restored": restored})
	}
}
