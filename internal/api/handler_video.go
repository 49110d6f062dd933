package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const videoPath = "/api/video"

type postVideoRequest struct {
	URL *string `json:"url"`
}

// PostVideo handles POST /api/video. A missing, null or blank url clears the video.
func (h *Handler) PostVideo(c *gin.Context) {
	var req postVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgProcessingError})
		return
	}

	var raw string
	if req.URL != nil {
		raw = *req.URL
	}

	url, err := h.holder.SetVideo(c.Request.Context(), raw)
	if err != nil {
		log.Printf("Error storing video: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgStateUnavailable})
		return
	}

	h.invalidate(videoPath)
	h.publisher.PublishVideo(url)
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}

// GetVideo handles GET /api/video.
func (h *Handler) GetVideo(c *gin.Context) {
	url, err := h.holder.Video(c.Request.Context())
	if err != nil {
		log.Printf("Error loading video: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgStateUnavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
