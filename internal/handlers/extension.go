package handlers

import (
	"fyp-portal/internal/models"
	"fyp-portal/internal/response"
	"fyp-portal/internal/service"

	"github.com/gin-gonic/gin"
)

type extensionRequest struct {
	RequestedEndDate string `json:"requestedEndDate"`
	Reason           string `json:"reason"`
}

func (h *Handler) RequestExtension(c *gin.Context) {
	var req extensionRequest
	if !bind(c, &req) {
		return
	}
	end, err := parseDate("requestedEndDate", req.RequestedEndDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	er, err := h.svc.Extensions.RequestExtension(c.Request.Context(), actor(c), service.ExtensionInput{
		ProjectID:        c.Param("id"),
		RequestedEndDate: end,
		Reason:           req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, er)
}

func (h *Handler) RespondExtension(c *gin.Context) {
	var req decisionRequest
	if !bind(c, &req) {
		return
	}
	final, err := parseOptionalDate("finalEndDate", req.FinalEndDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	er, err := h.svc.Extensions.Respond(c.Request.Context(), actor(c), c.Param("id"), req.Decision, final)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, er)
}

// ListExtensions shows owners what they must answer and students what
// they asked for.
func (h *Handler) ListExtensions(c *gin.Context) {
	a := actor(c)
	var (
		reqs []models.ExtensionRequest
		err  error
	)
	if a.Role == models.RoleStudent {
		reqs, err = h.svc.Extensions.ListForStudent(c.Request.Context(), a.ID)
	} else {
		reqs, err = h.svc.Extensions.ListForOwner(c.Request.Context(), a.ID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reqs)
}
