package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/metrics"
	"github.com/lysyi3m/critique-desk/app/notify"
)

// SweepStaleTask moves open entries nobody touched for staleAfter to
// NoResponse.
type SweepStaleTask struct {
	Task
	store      *catalog.Store
	controller *catalog.Controller
	notifier   notify.Notifier
	staleAfter time.Duration
}

func NewSweepStaleTask(store *catalog.Store, controller *catalog.Controller, notifier notify.Notifier, staleAfter time.Duration) *SweepStaleTask {
	return &SweepStaleTask{
		Task:       NewTask(TaskTypeSweepStale, "catalog"),
		store:      store,
		controller: controller,
		notifier:   notifier,
		staleAfter: staleAfter,
	}
}

func (t *SweepStaleTask) Execute(ctx context.Context) error {
	if t.staleAfter <= 0 {
		return nil
	}

	cutoff := t.controller.Now().Add(-t.staleAfter)

	var ids []int64
	_ = t.store.Do(func(tx *catalog.Tx) error {
		ids = catalog.MarkStale(tx, t.controller, cutoff)
		return nil
	})

	metrics.Transitions.WithLabelValues("no_response").Add(float64(len(ids)))

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"cutoff", cutoff,
		"marked", len(ids))

	if len(ids) > 0 && t.notifier != nil {
		err := t.notifier.Notify(ctx, notify.Notice{
			Actor:  "sweeper",
			Action: "marked as no response",
			Detail: fmt.Sprintf("%d entries untouched since %s", len(ids), cutoff.Format("02/01/2006")),
		})
		if err != nil {
			slog.Warn("Failed to notify sweep", "error", err)
		}
	}

	return nil
}
