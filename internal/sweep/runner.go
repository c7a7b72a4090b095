// Package sweep drives one full audit/reconciliation pass over the catalog:
// lock, snapshot, per-product evaluation and notification, state persistence.
package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bundlewatch/go-restock-sweep/internal/aws"
	"github.com/bundlewatch/go-restock-sweep/internal/bundle"
	"github.com/bundlewatch/go-restock-sweep/internal/catalog"
	"github.com/bundlewatch/go-restock-sweep/internal/notify"
	"github.com/bundlewatch/go-restock-sweep/internal/state"
	"github.com/bundlewatch/go-restock-sweep/internal/subscribers"
)

const defaultLockTTL = 15 * time.Minute

// Runner executes sweeps. Metrics and Reporter are optional; when nil the
// corresponding emission is skipped.
type Runner struct {
	Catalog    *catalog.Client
	Store      *state.Store
	Dispatcher *notify.Dispatcher
	Metrics    *aws.Metrics
	Reporter   *aws.Publisher
	LockTTL    time.Duration

	nowFunc func() time.Time
}

// NewRunner wires a Runner with the default lock TTL.
func NewRunner(cat *catalog.Client, store *state.Store, dispatcher *notify.Dispatcher) *Runner {
	return &Runner{
		Catalog:    cat,
		Store:      store,
		Dispatcher: dispatcher,
		LockTTL:    defaultLockTTL,
		nowFunc:    time.Now,
	}
}

// Summary is the structured result of one sweep.
type Summary struct {
	RunID              string    `json:"run_id"`
	StartedAt          time.Time `json:"started_at"`
	DurationMillis     int64     `json:"duration_ms"`
	ProductsProcessed  int       `json:"products_processed"`
	BundlesEvaluated   int       `json:"bundles_evaluated"`
	TagsUpdated        int       `json:"tags_updated"`
	EmailNotifications int       `json:"email_notifications"`
	SMSNotifications   int       `json:"sms_notifications"`
	ProfileUpdates     int       `json:"profile_updates"`
	SubscriberErrors   int       `json:"subscriber_errors"`
	ProductErrors      int       `json:"product_errors"`
}

// Run executes one sweep under the exclusive lock. Returns
// state.ErrLockHeld without doing any work when another sweep is active.
// Per-product failures are logged and counted, never fatal to the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	if err := r.Store.AcquireLock(ctx, runID, r.LockTTL); err != nil {
		return nil, err
	}
	// Release must happen on every exit path; failure is logged only,
	// the lock TTL is the safety net.
	defer func() {
		if err := r.Store.ReleaseLock(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[sweep] lock release failed run=%s: %v", runID, err)
		}
	}()

	start := r.nowFunc()
	sum := &Summary{RunID: runID, StartedAt: start.UTC()}
	log.Printf("[sweep] run=%s starting", runID)

	snap, err := catalog.BuildSnapshot(ctx, r.Catalog)
	if err != nil {
		return nil, fmt.Errorf("catalog snapshot: %w", err)
	}

	for _, p := range snap.Products {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sweep aborted after %d products: %w", sum.ProductsProcessed, ctx.Err())
		}
		if err := r.processProduct(ctx, snap, p, sum); err != nil {
			log.Printf("[sweep] product=%d handle=%s: %v", p.ID, p.Handle, err)
			sum.ProductErrors++
		}
		sum.ProductsProcessed++
	}

	sum.DurationMillis = r.nowFunc().Sub(start).Milliseconds()
	r.emit(ctx, sum)
	log.Printf("[sweep] run=%s done products=%d tags=%d emails=%d sms=%d errors=%d",
		runID, sum.ProductsProcessed, sum.TagsUpdated, sum.EmailNotifications, sum.SMSNotifications, sum.ProductErrors)
	return sum, nil
}

func (r *Runner) processProduct(ctx context.Context, snap *catalog.Snapshot, p catalog.Product, sum *Summary) error {
	curTotal := p.InventoryTotal()
	prevTotal, _, err := r.Store.GetInventoryTotal(ctx, p.ID)
	if err != nil {
		return err
	}

	isBundle := bundle.IsBundle(p)
	current := bundle.StatusOK
	previous := bundle.StatusOK

	if isBundle {
		sum.BundlesEvaluated++

		raw, err := r.Catalog.GetBundleStructure(ctx, p.ID)
		if err != nil {
			return err
		}
		comps := bundle.ParseComponents(raw)
		current, err = bundle.Evaluate(ctx, p, comps, snap.VariantQuantity)
		if err != nil {
			return err
		}

		rec, err := r.Store.GetStatus(ctx, p.ID)
		if err != nil {
			return err
		}
		if rec != nil {
			previous, _ = bundle.ParseStatus(rec.Current)
		} else {
			// legacy tag state, before any record was persisted
			previous, _ = bundle.StatusFromTags(p.TagList())
		}

		// Tag rewrite is unconditional every sweep so the external tag stays
		// consistent even if a prior write was lost.
		if err := r.Catalog.UpdateTags(ctx, p.ID, bundle.RewriteStatusTags(p.TagList(), current)); err != nil {
			return err
		}
		sum.TagsUpdated++

		if err := r.Store.PutStatus(ctx, p.ID, state.StatusRecord{
			Previous: previous.String(),
			Current:  current.String(),
		}); err != nil {
			return err
		}
	}

	byID, err := r.Store.GetSubscribers(ctx, state.SubscriberIDKey(p.ID))
	if err != nil {
		return err
	}
	byHandle, err := r.Store.GetSubscribers(ctx, state.SubscriberHandleKey(p.Handle))
	if err != nil {
		return err
	}
	merged := subscribers.Merge(byID, byHandle)

	if len(merged) > 0 {
		if notify.ShouldNotify(isBundle, current, previous, prevTotal, curTotal) && subscribers.Pending(merged) > 0 {
			outcome := r.Dispatcher.Dispatch(ctx, merged)
			sum.EmailNotifications += outcome.Emails
			sum.SMSNotifications += outcome.SMS
			sum.ProfileUpdates += outcome.ProfileUpdates
			sum.SubscriberErrors += outcome.Errors
		}
		if err := r.Store.PutSubscribersBoth(ctx, p.ID, p.Handle, merged); err != nil {
			return err
		}
	}

	return r.Store.PutInventoryTotal(ctx, p.ID, curTotal)
}

// emit pushes the summary to CloudWatch and SQS. Both are best-effort.
func (r *Runner) emit(ctx context.Context, sum *Summary) {
	if r.Metrics != nil {
		counts := map[string]float64{
			"ProductsProcessed":  float64(sum.ProductsProcessed),
			"BundlesEvaluated":   float64(sum.BundlesEvaluated),
			"TagsUpdated":        float64(sum.TagsUpdated),
			"EmailNotifications": float64(sum.EmailNotifications),
			"SMSNotifications":   float64(sum.SMSNotifications),
			"ProfileUpdates":     float64(sum.ProfileUpdates),
			"SubscriberErrors":   float64(sum.SubscriberErrors),
			"ProductErrors":      float64(sum.ProductErrors),
		}
		if err := r.Metrics.PublishCounts(ctx, counts); err != nil {
			log.Printf("[sweep] metrics publish failed run=%s: %v", sum.RunID, err)
		}
	}
	if r.Reporter != nil {
		body, err := json.Marshal(sum)
		if err == nil {
			err = r.Reporter.SendReport(ctx, string(body), map[string]string{"run_id": sum.RunID})
		}
		if err != nil {
			log.Printf("[sweep] report publish failed run=%s: %v", sum.RunID, err)
		}
	}
}
