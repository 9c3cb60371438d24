package handlers

import (
	"fyp-portal/internal/apperr"
	"fyp-portal/internal/response"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	items, err := h.inbox.List(c.Request.Context(), actor(c).ID, c.Query("unread") == "true")
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to load notifications"))
		return
	}
	response.Success(c, items)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	ok, err := h.inbox.MarkRead(c.Request.Context(), c.Param("id"), actor(c).ID)
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to update notification"))
		return
	}
	if !ok {
		response.Error(c, apperr.NotFound("notification not found"))
		return
	}
	response.Success(c, nil)
}
