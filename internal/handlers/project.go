package handlers

import (
	"fyp-portal/internal/apperr"
	"fyp-portal/internal/models"
	"fyp-portal/internal/response"
	"fyp-portal/internal/service"

	"github.com/gin-gonic/gin"
)

type projectRequest struct {
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	RequiredSkills      []string            `json:"requiredSkills"`
	StartDate           string              `json:"startDate"`
	EndDate             string              `json:"endDate"`
	MaxGroups           int                 `json:"maxGroups"`
	MaxStudentsPerGroup int                 `json:"maxStudentsPerGroup"`
	Attachments         []models.Attachment `json:"attachments"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req projectRequest
	if !bind(c, &req) {
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	project, err := h.svc.Projects.Create(c.Request.Context(), actor(c), service.CreateProjectInput{
		Title:               req.Title,
		Description:         req.Description,
		RequiredSkills:      req.RequiredSkills,
		Start:               start,
		End:                 end,
		MaxGroups:           req.MaxGroups,
		MaxStudentsPerGroup: req.MaxStudentsPerGroup,
		Attachments:         req.Attachments,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// ListProjects filters by owner=me, edit status, or, for students and
// teachers, the projects approved for their university.
func (h *Handler) ListProjects(c *gin.Context) {
	a := actor(c)
	f := service.ProjectFilter{EditStatus: models.EditStatus(c.Query("status"))}
	if c.Query("owner") == "me" {
		f.OwnerID = a.ID
	}
	if a.Role == models.RoleStudent || c.Query("approved") == "true" {
		f.ApprovedFor = a.University
		if f.ApprovedFor == "" {
			response.Success(c, []models.Project{})
			return
		}
	}
	projects, err := h.svc.Projects.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.svc.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

type projectPatchRequest struct {
	Title               *string              `json:"title"`
	Description         *string              `json:"description"`
	RequiredSkills      *[]string            `json:"requiredSkills"`
	StartDate           *string              `json:"startDate"`
	EndDate             *string              `json:"endDate"`
	MaxGroups           *int                 `json:"maxGroups"`
	MaxStudentsPerGroup *int                 `json:"maxStudentsPerGroup"`
	Attachments         *[]models.Attachment `json:"attachments"`
}

func (r projectPatchRequest) patch() (models.ProjectPatch, error) {
	start, err := parseOptionalDate("startDate", r.StartDate)
	if err != nil {
		return models.ProjectPatch{}, err
	}
	end, err := parseOptionalDate("endDate", r.EndDate)
	if err != nil {
		return models.ProjectPatch{}, err
	}
	return models.ProjectPatch{
		Title:               r.Title,
		Description:         r.Description,
		RequiredSkills:      r.RequiredSkills,
		StartDate:           start,
		EndDate:             end,
		MaxGroups:           r.MaxGroups,
		MaxStudentsPerGroup: r.MaxStudentsPerGroup,
		Attachments:         r.Attachments,
	}, nil
}

func (h *Handler) UpdateProject(c *gin.Context) {
	var req projectPatchRequest
	if !bind(c, &req) {
		return
	}
	patch, err := req.patch()
	if err != nil {
		response.Error(c, err)
		return
	}
	project, err := h.svc.Projects.Update(c.Request.Context(), actor(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.svc.Projects.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) LockProject(c *gin.Context) {
	project, err := h.svc.Projects.Lock(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

func (h *Handler) UnlockProject(c *gin.Context) {
	project, err := h.svc.Projects.Unlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// UploadAttachments stores files for a project draft and returns their
// references; the owner then sends them with create or update.
func (h *Handler) UploadAttachments(c *gin.Context) {
	files, done, err := uploads(c, "files")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer done()
	if len(files) == 0 {
		response.Error(c, apperr.Validation("no files uploaded", map[string]string{"files": "required"}))
		return
	}

	stored := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		att, err := h.blobs.Store(c.Request.Context(), f.Name, f.Content)
		if err != nil {
			response.Error(c, apperr.Wrap(err, "failed to store "+f.Name))
			return
		}
		stored = append(stored, att)
	}
	response.Created(c, stored)
}
