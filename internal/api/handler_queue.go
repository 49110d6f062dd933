package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"clinic-call-backend/internal/model"
	"clinic-call-backend/internal/parse"
	"clinic-call-backend/internal/store"
)

type addPatientRequest struct {
	Name string `json:"name"`
}

type callPatientRequest struct {
	Title        string `json:"title"`
	Professional string `json:"professional"`
	Room         string `json:"room"`
}

// ListQueue handles GET /api/queue.
func (h *Handler) ListQueue(c *gin.Context) {
	patients, err := h.store.ListPatients(c.Request.Context())
	if err != nil {
		log.Printf("Error listing queue: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgQueueUnavailable})
		return
	}
	if patients == nil {
		patients = []model.Patient{}
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// AddPatient handles POST /api/queue.
func (h *Handler) AddPatient(c *gin.Context) {
	var req addPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgProcessingError})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgPatientNameMissing})
		return
	}

	patient, err := h.store.AddPatient(c.Request.Context(), name)
	if err != nil {
		log.Printf("Error adding patient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgQueueUnavailable})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "patient": patient})
}

// CallPatient handles POST /api/queue/:id/call. It announces the patient on the
// public display and marks them as called.
func (h *Handler) CallPatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	var req callPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgProcessingError})
		return
	}

	ctx := c.Request.Context()
	patient, err := h.store.GetPatient(ctx, id)
	if errors.Is(err, store.ErrPatientNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": msgPatientNotFound})
		return
	}
	if err != nil {
		log.Printf("Error loading patient %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgQueueUnavailable})
		return
	}

	doctor, err := parse.ProfessionalLabel(req.Title, req.Professional)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgProfessionalNeeded})
		return
	}
	if strings.TrimSpace(req.Room) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgRoomNeeded})
		return
	}

	call, err := h.holder.SetCall(ctx, model.CallRequest{Name: patient.Name, Doctor: doctor, Room: req.Room})
	if err != nil {
		log.Printf("Error storing call for patient %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgStateUnavailable})
		return
	}
	h.publisher.PublishCall(call)

	patient, err = h.store.MarkCalled(ctx, id, h.now())
	if err != nil {
		// The announcement already went out; report the queue failure only.
		log.Printf("Error marking patient %d as called: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgQueueUnavailable, "call": call})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "call": call, "patient": patient})
}

// AttendPatient handles POST /api/queue/:id/attend.
func (h *Handler) AttendPatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	patient, err := h.store.MarkAttended(c.Request.Context(), id)
	if errors.Is(err, store.ErrPatientNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": msgPatientNotFound})
		return
	}
	if err != nil {
		log.Printf("Error marking patient %d as attended: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgQueueUnavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "patient": patient})
}

// DeletePatient handles DELETE /api/queue/:id.
func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	err := h.store.DeletePatient(c.Request.Context(), id)
	if errors.Is(err, store.ErrPatientNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": msgPatientNotFound})
		return
	}
	if err != nil {
		log.Printf("Error deleting patient %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgQueueUnavailable})
		return
	}
	c.Status(http.StatusNoContent)
}

func patientID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgInvalidPatientID})
		return 0, false
	}
	return id, true
}
