package handlers

import (
	"fyp-portal/internal/models"
	"fyp-portal/internal/response"
	"fyp-portal/internal/service"

	"github.com/gin-gonic/gin"
)

type modificationRequest struct {
	RequestType     models.RequestType   `json:"requestType"`
	Reason          string               `json:"reason"`
	ProposedChanges *projectPatchRequest `json:"proposedChanges"`
}

func (h *Handler) CreateModificationRequest(c *gin.Context) {
	var req modificationRequest
	if !bind(c, &req) {
		return
	}
	in := service.ModificationInput{
		ProjectID:   c.Param("id"),
		RequestType: req.RequestType,
		Reason:      req.Reason,
	}
	if req.ProposedChanges != nil {
		patch, err := req.ProposedChanges.patch()
		if err != nil {
			response.Error(c, err)
			return
		}
		in.ProposedChanges = &patch
	}
	mr, err := h.svc.Modifications.CreateRequest(c.Request.Context(), actor(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mr)
}

type decisionRequest struct {
	Decision     models.RequestStatus `json:"decision"`
	FinalEndDate *string              `json:"finalEndDate"`
}

func (h *Handler) ResolveModificationRequest(c *gin.Context) {
	var req decisionRequest
	if !bind(c, &req) {
		return
	}
	mr, err := h.svc.Modifications.Resolve(c.Request.Context(), actor(c), c.Param("id"), req.Decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, mr)
}

func (h *Handler) ListModificationRequests(c *gin.Context) {
	reqs, err := h.svc.Modifications.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reqs)
}

func (h *Handler) ListPendingModifications(c *gin.Context) {
	reqs, err := h.svc.Modifications.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reqs)
}
