package complaint

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/redress/internal/events"
)

const (
	defaultConcurrency      = 4
	defaultSummarizeTimeout = 30 * time.Second
	summarizeAttempts       = 2
	summaryFallbackLen      = 140
)

// Triager maps complaint text to a department and urgency. Implementations
// must be pure and never fail.
type Triager interface {
	Triage(text string) (Department, Urgency)
}

// Worker consumes raw-namespace write events and produces analyzed records.
// Delivery is at-least-once, so processing is idempotent: an event for a
// record that already has a non-FAILED analyzed counterpart is skipped,
// which also protects admin reassignments from being clobbered by a
// redelivery.
type Worker struct {
	store      Store
	bus        events.Bus
	triager    Triager
	summarizer Summarizer // optional
	notifier   Notifier   // optional
	logger     log.Logger
	metrics    *Metrics

	concurrency      int
	summarizeTimeout time.Duration
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithConcurrency sets the number of concurrent event consumers.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithSummarizer attaches the external AI summarizer.
func WithSummarizer(s Summarizer) WorkerOption {
	return func(w *Worker) { w.summarizer = s }
}

// WithSummarizeTimeout bounds a single summarize attempt.
func WithSummarizeTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.summarizeTimeout = d
		}
	}
}

// WithNotifier attaches a notifier pinged for CRITICAL analyses.
func WithNotifier(n Notifier) WorkerOption {
	return func(w *Worker) { w.notifier = n }
}

// WithWorkerMetrics attaches Prometheus instrumentation.
func WithWorkerMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates an analysis worker.
func NewWorker(store Store, bus events.Bus, triager Triager, logger log.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = log.Nop()
	}
	w := &Worker{
		store:            store,
		bus:              bus,
		triager:          triager,
		logger:           logger,
		concurrency:      defaultConcurrency,
		summarizeTimeout: defaultSummarizeTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes events until the bus closes or the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					w.Process(ctx, ev)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

// Process handles a single write event. All failure paths converge on a
// FAILED analyzed record rather than an error: classification is
// best-effort and its outcome must always be readable.
func (w *Worker) Process(ctx context.Context, ev events.Event) {
	if ev.Namespace != NamespaceRaw {
		return
	}
	start := time.Now()
	L := w.logger.With("complaint_id", ev.ID)

	defer func() {
		if r := recover(); r != nil {
			L.Warn(ctx, "classification panicked", "panic", fmt.Sprint(r))
			w.writeFailed(ctx, ev.ID, nil)
			w.metrics.IncClassify(StatusFailed, time.Since(start).Seconds())
		}
	}()

	raw, ok, err := w.store.Get(ctx, NamespaceRaw, ev.ID)
	if err != nil {
		L.Error(ctx, err, "fetch raw record")
		w.writeFailed(ctx, ev.ID, nil)
		w.metrics.IncClassify(StatusFailed, time.Since(start).Seconds())
		return
	}
	if !ok {
		L.Warn(ctx, "raw record missing, skipping event")
		return
	}

	// Redelivery guard: only missing or FAILED analyzed records are
	// (re)processed. An existing ANALYZED or RESOLVED record, possibly
	// carrying an admin reassignment, is left alone.
	if existing, ok, err := w.store.Get(ctx, NamespaceAnalyzed, ev.ID); err != nil {
		L.Error(ctx, err, "fetch analyzed record")
		return
	} else if ok && existing.Status != StatusFailed {
		L.Info(ctx, "already analyzed, skipping", "status", existing.Status)
		return
	}

	analyzed := *raw
	analyzed.Revision = 0

	if raw.Triaged() {
		// Official triage values were supplied at submission; trust the
		// verdict and fast-track without reclassifying.
		analyzed.Status = StatusAnalyzed
		if analyzed.Summary == "" {
			analyzed.Summary = truncate(raw.Description, summaryFallbackLen)
		}
		L.Info(ctx, "fast-tracked pre-triaged complaint", "category", analyzed.Category, "urgency", analyzed.Urgency)
	} else {
		text := raw.Title + " " + raw.Description
		analyzed.Category, analyzed.Urgency = w.triager.Triage(text)
		analyzed.Status = StatusAnalyzed
		w.enrich(ctx, raw, &analyzed)
		L.Info(ctx, "complaint classified", "category", analyzed.Category, "urgency", analyzed.Urgency)
	}

	if err := w.store.Put(ctx, NamespaceAnalyzed, ev.ID, &analyzed); err != nil {
		L.Error(ctx, err, "persist analyzed record")
		w.writeFailed(ctx, ev.ID, raw)
		w.metrics.IncClassify(StatusFailed, time.Since(start).Seconds())
		return
	}
	w.metrics.IncClassify(StatusAnalyzed, time.Since(start).Seconds())

	if w.notifier != nil && analyzed.Urgency == UrgencyCritical {
		if err := w.notifier.Send(ctx, &analyzed); err != nil {
			L.Warn(ctx, "critical notification failed", "error", err.Error())
		}
	}
}

// enrich asks the external summarizer for a summary and legitimacy verdict.
// Failures fall back to a truncated description; processing still completes.
func (w *Worker) enrich(ctx context.Context, raw *Complaint, analyzed *Complaint) {
	if w.summarizer == nil {
		analyzed.Summary = truncate(raw.Description, summaryFallbackLen)
		return
	}

	var sum *Summary
	err := retry.Do(
		func() error {
			sctx, cancel := context.WithTimeout(ctx, w.summarizeTimeout)
			defer cancel()
			var err error
			sum, err = w.summarizer.Summarize(sctx, raw.Title, raw.Description)
			return err
		},
		retry.Attempts(summarizeAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		w.logger.Warn(ctx, "summarize failed, using truncated description",
			"complaint_id", raw.ID, "error", err.Error())
		w.metrics.IncSummarize("fallback")
		analyzed.Summary = truncate(raw.Description, summaryFallbackLen)
		return
	}

	w.metrics.IncSummarize("ok")
	analyzed.Summary = sum.Summary
	legit := sum.IsLegitimate
	analyzed.IsLegitimate = &legit
}

// writeFailed records a terminal FAILED state so the complaint stays
// readable. Urgency defaults to MEDIUM per the degradation contract.
func (w *Worker) writeFailed(ctx context.Context, id string, raw *Complaint) {
	failed := Complaint{ID: id}
	if raw != nil {
		failed = *raw
		failed.Revision = 0
	}
	failed.Status = StatusFailed
	if failed.Urgency == "" {
		failed.Urgency = UrgencyMedium
	}
	if err := w.store.Put(ctx, NamespaceAnalyzed, id, &failed); err != nil {
		w.logger.Error(ctx, err, "persist failed record", "complaint_id", id)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// back up to a rune boundary so the cut never splits a multi-byte rune
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
