package notify

import (
	"context"
	"log"
	"time"

	"github.com/bundlewatch/go-restock-sweep/internal/bundle"
	"github.com/bundlewatch/go-restock-sweep/internal/subscribers"
)

// BackInStockMetric is the tracked event name for restock notifications.
const BackInStockMetric = "Back in Stock"

// Dispatcher pushes pending subscribers through the 3-step notification flow.
type Dispatcher struct {
	API API

	// PauseEvery successfully processed subscribers, sleep Pause to avoid
	// bursting the platform API.
	PauseEvery int
	Pause      time.Duration

	nowFunc func() time.Time
	sleepFn func(time.Duration)
}

// NewDispatcher returns a Dispatcher with default pacing.
func NewDispatcher(api API) *Dispatcher {
	return &Dispatcher{
		API:        api,
		PauseEvery: 5,
		Pause:      time.Second,
		nowFunc:    time.Now,
		sleepFn:    time.Sleep,
	}
}

func (d *Dispatcher) now() time.Time {
	if d.nowFunc != nil {
		return d.nowFunc()
	}
	return time.Now()
}

func (d *Dispatcher) sleep(dur time.Duration) {
	if d.sleepFn != nil {
		d.sleepFn(dur)
		return
	}
	time.Sleep(dur)
}

// Outcome reports what one product's fan-out did, per channel and step.
type Outcome struct {
	Emails         int
	SMS            int
	ProfileUpdates int
	Errors         int
}

// ShouldNotify is the per-product decision rule.
// Bundle: final status is ok AND (previous status was not ok OR inventory
// total increased). Non-bundle: total increased AND the new total is > 0.
// A product with no recorded prior total is treated as previously zero.
func ShouldNotify(isBundle bool, current, previous bundle.Status, prevTotal, curTotal int) bool {
	if isBundle {
		return current == bundle.StatusOK && (previous != bundle.StatusOK || curTotal > prevTotal)
	}
	return curTotal > prevTotal && curTotal > 0
}

// Dispatch notifies every pending subscriber in the list, flipping notified
// in place only when the subscribe and event steps both succeeded. Failures
// are isolated per subscriber: the record stays pending and is retried on
// the next qualifying sweep.
func (d *Dispatcher) Dispatch(ctx context.Context, records []subscribers.Record) Outcome {
	var out Outcome
	processed := 0

	for i := range records {
		rec := &records[i]
		if rec.Notified {
			continue
		}

		phone := subscribers.NormalizePhone(rec.Phone)
		sms := rec.SMSConsent && phone != ""

		if err := d.API.SubscribeProfile(ctx, rec.Email, phone, sms); err != nil {
			log.Printf("[notify] subscribe failed product=%d email=%s: %v", rec.ProductID, rec.Email, err)
			out.Errors++
			continue
		}

		// Best-effort property stamp. Never aborts the notification.
		props := map[string]interface{}{
			"last_back_in_stock_product":        rec.ProductTitle,
			"last_back_in_stock_product_url":    rec.ProductURL,
			"last_back_in_stock_product_handle": rec.ProductHandle,
			"last_back_in_stock_product_id":     rec.ProductID,
			"last_back_in_stock_notified_at":    d.now().UTC().Format(time.RFC3339),
		}
		if profileID, err := d.API.FindProfileID(ctx, rec.Email); err != nil || profileID == "" {
			log.Printf("[notify] profile lookup skipped email=%s err=%v", rec.Email, err)
		} else if err := d.API.UpdateProfileProperties(ctx, profileID, props); err != nil {
			log.Printf("[notify] property update failed email=%s: %v", rec.Email, err)
		} else {
			out.ProfileUpdates++
		}

		eventProps := map[string]interface{}{
			"product_name":   rec.ProductTitle,
			"product_url":    rec.ProductURL,
			"product_handle": rec.ProductHandle,
			"product_id":     rec.ProductID,
			"sms_consent":    sms,
		}
		if err := d.API.TrackEvent(ctx, BackInStockMetric, rec.Email, eventProps); err != nil {
			log.Printf("[notify] event failed product=%d email=%s: %v", rec.ProductID, rec.Email, err)
			out.Errors++
			continue
		}

		rec.Notified = true
		out.Emails++
		if sms {
			out.SMS++
		}

		processed++
		if d.PauseEvery > 0 && d.Pause > 0 && processed%d.PauseEvery == 0 {
			d.sleep(d.Pause)
		}
	}
	return out
}
