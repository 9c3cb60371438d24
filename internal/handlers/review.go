package handlers

import (
	"fyp-portal/internal/models"
	"fyp-portal/internal/response"
	"fyp-portal/internal/service"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

// SubmitReview derives the reviewer role from the caller's account.
func (h *Handler) SubmitReview(c *gin.Context) {
	var req reviewRequest
	if !bind(c, &req) {
		return
	}
	a := actor(c)
	role := models.ReviewerTeacher
	if a.Role == models.RoleIndustry {
		role = models.ReviewerIndustry
	}
	res, err := h.svc.Evaluations.SubmitReview(c.Request.Context(), a, service.ReviewInput{
		SelectionID:  c.Param("id"),
		ReviewerRole: role,
		Rating:       req.Rating,
		Comments:     req.Comments,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *Handler) ListReviews(c *gin.Context) {
	if err := h.svc.Groups.AuthorizeView(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	reviews, err := h.svc.Evaluations.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reviews)
}
