package handlers

import (
	"strconv"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/database"
	"fyp-portal/internal/response"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs is the admin view of the journal, optionally narrowed to
// one entity.
func (h *Handler) ListAuditLogs(c *gin.Context) {
	limit := 200
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	logs, err := database.ListAuditLogs(h.db.WithContext(c.Request.Context()), c.Query("entity"), c.Query("entity_id"), limit)
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to load audit log"))
		return
	}
	response.Success(c, logs)
}
