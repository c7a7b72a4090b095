package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bundlewatch/go-restock-sweep/internal/state"
	"github.com/bundlewatch/go-restock-sweep/internal/subscribers"
	"github.com/bundlewatch/go-restock-sweep/internal/validation"
)

// SubscriptionsConfig groups dependencies for the subscription endpoints.
type SubscriptionsConfig struct {
	Store *state.Store
}

// RegisterSubscriptionRoutes registers create/read/delete for back-in-stock
// registrations. Every write goes through the merge engine so both physical
// keys stay in sync.
func RegisterSubscriptionRoutes(r *gin.Engine, cfg SubscriptionsConfig) {
	v := validation.New()

	r.POST("/subscriptions", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.SubscribeRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		byID, err := cfg.Store.GetSubscribers(ctx, state.SubscriberIDKey(req.ProductID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read_failed", "detail": err.Error()})
			return
		}
		byHandle, err := cfg.Store.GetSubscribers(ctx, state.SubscriberHandleKey(req.ProductHandle))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read_failed", "detail": err.Error()})
			return
		}

		merged := subscribers.Merge(byID, byHandle)
		before := len(merged)
		merged = subscribers.Rearm(merged, subscribers.Record{
			Email:         strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:         subscribers.NormalizePhone(req.Phone),
			SMSConsent:    req.SMSConsent,
			ProductID:     req.ProductID,
			ProductHandle: req.ProductHandle,
			ProductTitle:  req.ProductTitle,
			ProductURL:    req.ProductURL,
		}, time.Now().UTC())

		if err := cfg.Store.PutSubscribersBoth(ctx, req.ProductID, req.ProductHandle, merged); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed", "detail": err.Error()})
			return
		}

		status := http.StatusCreated
		if len(merged) == before {
			// existing identity re-armed rather than created
			status = http.StatusOK
		}
		c.JSON(status, gin.H{"subscribers": len(merged), "pending": subscribers.Pending(merged)})
	})

	r.GET("/subscriptions/:product_id", func(c *gin.Context) {
		ctx := c.Request.Context()

		productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_product_id"})
			return
		}

		byID, err := cfg.Store.GetSubscribers(ctx, state.SubscriberIDKey(productID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read_failed", "detail": err.Error()})
			return
		}
		handle := c.Query("handle")
		var byHandle []subscribers.Record
		if handle != "" {
			byHandle, err = cfg.Store.GetSubscribers(ctx, state.SubscriberHandleKey(handle))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read_failed", "detail": err.Error()})
				return
			}
		}

		merged := subscribers.Merge(byID, byHandle)
		c.JSON(http.StatusOK, gin.H{"subscribers": len(merged), "pending": subscribers.Pending(merged)})
	})

	r.DELETE("/subscriptions", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.UnsubscribeRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		byID, err := cfg.Store.GetSubscribers(ctx, state.SubscriberIDKey(req.ProductID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read_failed", "detail": err.Error()})
			return
		}
		// the id-keyed list carries the handle needed for the paired write
		handle := ""
		if len(byID) > 0 {
			handle = byID[0].ProductHandle
		}
		var byHandle []subscribers.Record
		if handle != "" {
			byHandle, err = cfg.Store.GetSubscribers(ctx, state.SubscriberHandleKey(handle))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read_failed", "detail": err.Error()})
				return
			}
		}

		identity := subscribers.NormalizePhone(req.Phone)
		if identity == "" {
			identity = strings.ToLower(strings.TrimSpace(req.Email))
		}

		merged, found := subscribers.Remove(subscribers.Merge(byID, byHandle), identity)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription_not_found"})
			return
		}

		if handle != "" {
			err = cfg.Store.PutSubscribersBoth(ctx, req.ProductID, handle, merged)
		} else {
			err = cfg.Store.PutSubscribers(ctx, state.SubscriberIDKey(req.ProductID), merged)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed", "detail": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"subscribers": len(merged)})
	})
}
