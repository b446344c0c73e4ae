package handler

import (
	"context"
	"net/http"

	"lead_pipeline_backend/internal/leads/normalizer"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PublicHandler serves the unauthenticated qualification page callbacks and
// the landing-page capture form.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

func NewPublicHandler(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// RegisterCallbacks mounts the qualification page callbacks.
func (h *PublicHandler) RegisterCallbacks(rg *gin.RouterGroup) {
	rg.POST("/link-opened", h.LinkOpened)
	rg.POST("/qualification-started", h.QualificationStarted)
	rg.POST("/qualification-complete", h.QualificationComplete)
}

func (h *PublicHandler) bind(c *gin.Context, req any) bool {
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

func (h *PublicHandler) LinkOpened(c *gin.Context) {
	h.funnelEvent(c, h.svc.LinkOpened)
}

func (h *PublicHandler) QualificationStarted(c *gin.Context) {
	h.funnelEvent(c, h.svc.QualificationStarted)
}

func (h *PublicHandler) funnelEvent(c *gin.Context, mark func(context.Context, uuid.UUID) error) {
	var req transport.LeadRefRequest
	if !h.bind(c, &req) {
		return
	}
	id, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	if httpkit.HandleError(c, mark(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

func (h *PublicHandler) QualificationComplete(c *gin.Context) {
	var req transport.QualificationCompleteRequest
	if !h.bind(c, &req) {
		return
	}
	id, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	result, err := h.svc.CompleteQualification(c.Request.Context(), id, service.QualificationData{
		RentalType:      req.RentalType,
		Timeline:        req.Timeline,
		Budget:          req.Budget,
		Location:        req.Location,
		GuestCount:      req.GuestCount.Ptr(),
		PreferredDate:   req.PreferredDate,
		SpecialRequests: req.SpecialRequests,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.QualificationResponse{
		Success: true,
		Score:   result.Score,
		Status:  string(result.Status),
	})
}

// Capture accepts the landing-page form. The source defaults to LANDING.
func (h *PublicHandler) Capture(c *gin.Context) {
	var req transport.LeadCaptureRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Capture(c.Request.Context(), req.Source, normalizer.DirectPayload{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		RentalType:  req.RentalType,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.IntakeResponse{
		Success:  true,
		LeadID:   result.LeadID,
		Existing: result.Existing,
	})
}
