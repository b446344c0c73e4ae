package handler

import (
	"net/http"

	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "Invalid request"
	msgValidationFailed = "Validation failed"
	msgInvalidLeadID    = "Invalid lead id"
)

// Handler serves the operator-facing lead management API.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/stats", h.Stats)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/notes", h.AddNote)
	rg.POST("/:id/rescore", h.Rescore)
	rg.POST("/:id/sync-crm", h.SyncCRM)
	rg.POST("/:id/transfer", h.Transfer)
}

// bindJSON decodes and validates the body, writing the 400 itself.
func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) AddNote(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.AddNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	activity, err := h.svc.AddNote(c.Request.Context(), id, req.Note)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, activity)
}

func (h *Handler) Rescore(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	result, err := h.svc.Rescore(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) SyncCRM(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	result, err := h.svc.SyncCRM(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Transfer(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Transfer(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"success": true, "message": "Lead transferred to sales"})
}
