package handlers

import (
	"fyp-portal/internal/response"

	"github.com/gin-gonic/gin"
)

// AppendSubmission takes a multipart form with "files" and "comments".
func (h *Handler) AppendSubmission(c *gin.Context) {
	files, done, err := uploads(c, "files")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer done()

	sub, err := h.svc.Submissions.Append(c.Request.Context(), actor(c), c.Param("id"), files, c.PostForm("comments"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

func (h *Handler) ListSubmissions(c *gin.Context) {
	if err := h.svc.Groups.AuthorizeView(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	subs, err := h.svc.Submissions.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, subs)
}

func (h *Handler) RemoveSubmission(c *gin.Context) {
	if err := h.svc.Submissions.Remove(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
