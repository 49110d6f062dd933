package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-call-backend/internal/model"
)

// subscriptionRequest is the browser PushSubscription flattened to its keys.
type subscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// PutSubscription handles PUT /api/subscriptions. Staff devices subscribe to
// be notified of every call.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.P256DH == "" || req.Auth == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgProcessingError})
		return
	}

	sub := model.PushSubscription{Endpoint: req.Endpoint, P256DH: req.P256DH, Auth: req.Auth}
	if err := h.store.UpsertSubscription(c.Request.Context(), sub); err != nil {
		log.Printf("Error saving subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgSubscriptionError})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// DeleteSubscription handles DELETE /api/subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgEndpointRequired})
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		log.Printf("Error deleting subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgSubscriptionError})
		return
	}

	c.Status(http.StatusNoContent)
}

// endpointParam reads ?endpoint= without URL decoding, since push endpoints
// are stored exactly as the browser reported them.
func endpointParam(rawQuery string) string {
	for _, kv := range strings.Split(rawQuery, "&") {
		if v, ok := strings.CutPrefix(kv, "endpoint="); ok {
			return v
		}
	}
	return ""
}

// GetSubscription handles GET /api/subscriptions?endpoint=...
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := endpointParam(c.Request.URL.RawQuery)
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgEndpointRequired})
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": msgNotSubscribed})
		return
	}
	if err != nil {
		log.Printf("Error loading subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgSubscriptionError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "createdAt": sub.CreatedAt})
}

// GetVAPIDPublicKey handles GET /api/vapid_public_key. Without VAPID keys
// push is off and the endpoint answers 503.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": msgPushDisabled})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.webpush.VAPIDPublicKey})
}
