package server

import (
	"net/http"
	"strings"

	"fyp-portal/internal/auth"
	"fyp-portal/internal/config"
	"fyp-portal/internal/handlers"
	"fyp-portal/internal/middleware"
	"fyp-portal/internal/models"
	"fyp-portal/internal/notify"
	"fyp-portal/internal/service"
	"fyp-portal/internal/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the router mounts.
type Deps struct {
	DB     *gorm.DB
	Svc    *service.Services
	Inbox  *notify.Inbox
	Blobs  *storage.DirStore
	Tokens *auth.TokenManager
}

func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: int(cfg.AccessTokenTTL.Seconds()), HttpOnly: true})
	r.Use(sessions.Sessions("fyp_session", store))

	r.Use(middleware.InjectActor(d.DB, d.Tokens))

	h := handlers.New(d.DB, d.Svc, d.Inbox, d.Blobs, d.Tokens)

	// blob files, read-only
	if d.Blobs != nil {
		base := "/" + strings.Trim(cfg.BlobBaseURL, "/")
		files := gin.WrapH(d.Blobs.Handler())
		r.GET(base+"/*path", middleware.RequireAuth(), files)
		r.HEAD(base+"/*path", middleware.RequireAuth(), files)
	}

	// AUTH
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	api := r.Group("/")
	api.Use(middleware.RequireAuth())

	api.GET("/me", h.Me)
	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)

	industry := middleware.RequireRole(models.RoleIndustry)
	teacher := middleware.RequireRole(models.RoleTeacher)
	student := middleware.RequireRole(models.RoleStudent)
	admin := middleware.RequireRole(models.RoleAdmin)
	reviewer := middleware.RequireRole(models.RoleTeacher, models.RoleIndustry)

	// PROJECTS
	api.GET("/projects", h.ListProjects)
	api.POST("/projects", industry, h.CreateProject)
	api.POST("/projects/attachments", industry, h.UploadAttachments)
	api.GET("/projects/:id", h.GetProject)
	api.PATCH("/projects/:id", industry, h.UpdateProject)
	api.DELETE("/projects/:id", industry, h.DeleteProject)
	api.POST("/projects/:id/lock", admin, h.LockProject)
	api.POST("/projects/:id/unlock", admin, h.UnlockProject)

	// APPROVALS
	api.GET("/projects/:id/approvals", h.ListApprovals)
	api.PUT("/projects/:id/approvals", industry, h.UpsertApproval)
	api.GET("/projects/:id/approvals/summary", h.ApprovalSummary)
	api.GET("/projects/:id/supervision", h.ListSupervisionRequests)
	api.POST("/projects/:id/supervision", teacher, h.ApplyForSupervision)

	// GROUPS
	api.GET("/projects/:id/groups", h.ListGroups)
	api.POST("/projects/:id/groups", student, h.CreateGroup)
	api.GET("/projects/:id/claim", h.ClaimStatus)
	api.POST("/projects/:id/groups/:groupId/join", student, h.JoinGroup)
	api.GET("/groups/mine", student, h.MyGroups)
	api.GET("/groups/:id", h.GetGroup)
	api.GET("/groups/:id/status", h.GroupStatus)

	// SUBMISSIONS & REVIEWS
	api.GET("/groups/:id/submissions", h.ListSubmissions)
	api.POST("/groups/:id/submissions", student, h.AppendSubmission)
	api.DELETE("/submissions/:id", student, h.RemoveSubmission)
	api.GET("/groups/:id/reviews", h.ListReviews)
	api.PUT("/groups/:id/reviews", reviewer, h.SubmitReview)

	// MODIFICATION REQUESTS
	api.GET("/projects/:id/modifications", h.ListModificationRequests)
	api.POST("/projects/:id/modifications", industry, h.CreateModificationRequest)
	api.GET("/modifications/pending", admin, h.ListPendingModifications)
	api.POST("/modifications/:id/resolve", admin, h.ResolveModificationRequest)

	// EXTENSIONS
	api.GET("/extensions", h.ListExtensions)
	api.POST("/projects/:id/extensions", student, h.RequestExtension)
	api.POST("/extensions/:id/respond", industry, h.RespondExtension)

	// AUDIT
	api.GET("/audit", admin, h.ListAuditLogs)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
