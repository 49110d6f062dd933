package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-call-backend/internal/model"
	"clinic-call-backend/internal/state"
)

// PostCall handles POST /api/call. The new call replaces the current one.
func (h *Handler) PostCall(c *gin.Context) {
	var req model.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgProcessingError})
		return
	}

	call, err := h.holder.SetCall(c.Request.Context(), req)
	if errors.Is(err, state.ErrInvalidCall) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgCallFieldsRequired})
		return
	}
	if err != nil {
		log.Printf("Error storing call: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgStateUnavailable})
		return
	}

	h.publisher.PublishCall(call)
	c.JSON(http.StatusOK, gin.H{"ok": true, "call": call})
}

// GetCurrentCall handles GET /api/current-call. call is null until the first call.
func (h *Handler) GetCurrentCall(c *gin.Context) {
	call, err := h.holder.Call(c.Request.Context())
	if err != nil {
		log.Printf("Error loading current call: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgStateUnavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call})
}
