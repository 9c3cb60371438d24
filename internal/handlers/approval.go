package handlers

import (
	"fyp-portal/internal/models"
	"fyp-portal/internal/response"
	"fyp-portal/internal/service"

	"github.com/gin-gonic/gin"
)

type supervisionRequest struct {
	University string `json:"university"`
}

func (h *Handler) ApplyForSupervision(c *gin.Context) {
	var req supervisionRequest
	// the body is optional; the teacher's own university is the default
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	sr, err := h.svc.Approvals.ApplyForSupervision(c.Request.Context(), actor(c), c.Param("id"), req.University)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sr)
}

type approvalRequest struct {
	University string               `json:"university"`
	TeacherID  string               `json:"teacherId"`
	Status     models.ApprovalState `json:"status"`
	Comments   string               `json:"comments"`
}

func (h *Handler) UpsertApproval(c *gin.Context) {
	var req approvalRequest
	if !bind(c, &req) {
		return
	}
	approval, err := h.svc.Approvals.UpsertApproval(c.Request.Context(), actor(c), service.ApprovalInput{
		ProjectID:  c.Param("id"),
		University: req.University,
		TeacherID:  req.TeacherID,
		Status:     req.Status,
		Comments:   req.Comments,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, approval)
}

func (h *Handler) ApprovalSummary(c *gin.Context) {
	summary, err := h.svc.Approvals.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

func (h *Handler) ListApprovals(c *gin.Context) {
	approvals, err := h.svc.Approvals.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, approvals)
}

func (h *Handler) ListSupervisionRequests(c *gin.Context) {
	reqs, err := h.svc.Approvals.ListSupervisionRequests(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reqs)
}
