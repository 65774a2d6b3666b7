package complaint

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"
	"github.com/robfig/cron/v3"

	"github.com/linnemanlabs/redress/internal/events"
)

// Reprocessor periodically sweeps the raw namespace and re-publishes write
// events for complaints that never got analyzed or whose classification
// FAILED. Combined with the worker's idempotence this gives best-effort
// at-least-once processing without guaranteed-delivery messaging.
type Reprocessor struct {
	store  Store
	bus    events.Bus
	logger log.Logger
	cron   *cron.Cron
}

// NewReprocessor creates a sweep scheduler. Call Start to arm it.
func NewReprocessor(store Store, bus events.Bus, logger log.Logger) *Reprocessor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Reprocessor{
		store:  store,
		bus:    bus,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules sweeps with a cron expression (e.g. "@every 5m").
func (r *Reprocessor) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		r.Sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule reprocess sweep: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (r *Reprocessor) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep republishes events for unanalyzed and FAILED complaints.
func (r *Reprocessor) Sweep(ctx context.Context) {
	ids, err := r.store.ListIDs(ctx, NamespaceRaw, "")
	if err != nil {
		r.logger.Error(ctx, err, "reprocess sweep: list raw ids")
		return
	}

	var republished int
	for _, id := range ids {
		analyzed, ok, err := r.store.Get(ctx, NamespaceAnalyzed, id)
		if err != nil {
			r.logger.Warn(ctx, "reprocess sweep: skipping id", "complaint_id", id, "error", err.Error())
			continue
		}
		if ok && analyzed.Status != StatusFailed {
			continue
		}
		if err := r.bus.Publish(ctx, events.Event{Namespace: NamespaceRaw, ID: id}); err != nil {
			r.logger.Warn(ctx, "reprocess sweep: publish failed", "complaint_id", id, "error", err.Error())
			continue
		}
		republished++
	}

	if republished > 0 {
		r.logger.Info(ctx, "reprocess sweep complete", "republished", republished, "scanned", len(ids))
	}
}
