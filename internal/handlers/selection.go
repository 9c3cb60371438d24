package handlers

import (
	"fyp-portal/internal/response"

	"github.com/gin-gonic/gin"
)

type createGroupRequest struct {
	University string `json:"university"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	sel, err := h.svc.Groups.CreateNewGroup(c.Request.Context(), actor(c), c.Param("id"), req.University)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sel)
}

func (h *Handler) JoinGroup(c *gin.Context) {
	sel, err := h.svc.Groups.JoinExistingGroup(c.Request.Context(), actor(c), c.Param("id"), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sel)
}

func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.svc.Groups.ListGroups(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

type claimStatus struct {
	University string `json:"university"`
	Claimed    bool   `json:"claimed"`
}

// ClaimStatus is advisory; creating a group re-checks.
func (h *Handler) ClaimStatus(c *gin.Context) {
	university := c.Query("university")
	if university == "" {
		university = actor(c).University
	}
	claimed, err := h.svc.Groups.ClaimedByUniversity(c.Request.Context(), c.Param("id"), university)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, claimStatus{University: university, Claimed: claimed})
}

func (h *Handler) GetGroup(c *gin.Context) {
	sel, err := h.svc.Groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sel)
}

func (h *Handler) GroupStatus(c *gin.Context) {
	status, err := h.svc.Groups.CompletionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

type mySelections struct {
	OpenCommitment bool `json:"openCommitment"`
	Groups         any  `json:"groups"`
}

func (h *Handler) MyGroups(c *gin.Context) {
	ctx := c.Request.Context()
	id := actor(c).ID
	groups, err := h.svc.Groups.StudentSelections(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	open, err := h.svc.Groups.HasOpenCommitment(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, mySelections{OpenCommitment: open, Groups: groups})
}
