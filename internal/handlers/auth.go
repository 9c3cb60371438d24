package handlers

import (
	"net/http"
	"strings"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/auth"
	"fyp-portal/internal/database"
	"fyp-portal/internal/logutils"
	"fyp-portal/internal/middleware"
	"fyp-portal/internal/models"
	"fyp-portal/internal/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	Role       models.UserRole `json:"role"`
	University string          `json:"university"`
	Company    string          `json:"company"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.University = strings.TrimSpace(req.University)
	req.Company = strings.TrimSpace(req.Company)
	fields := map[string]string{}
	if len(req.Username) < 3 {
		fields["username"] = "at least 3 characters"
	}
	if len(req.Password) < 6 {
		fields["password"] = "at least 6 characters"
	}

	// admins are seeded, never registered
	switch req.Role {
	case models.RoleStudent, models.RoleTeacher:
		if req.University == "" {
			fields["university"] = "required for students and teachers"
		}
	case models.RoleIndustry:
		if req.Company == "" {
			fields["company"] = "required for industry accounts"
		}
	default:
		fields["role"] = "role must be student, teacher or industry"
	}
	if len(fields) > 0 {
		response.Error(c, apperr.Validation("invalid registration", fields))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to hash password"))
		return
	}
	user := models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		University:   req.University,
		Company:      req.Company,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			response.Error(c, apperr.Conflict("user already exists"))
			return
		}
		response.Error(c, apperr.Wrap(err, "failed to save user"))
		return
	}

	if err := database.CreateAuditLog(h.db, user.ID, "user", user.ID, "create", map[string]string{"role": string(user.Role)}); err != nil {
		logutils.Log.Warnf("audit log for new user %s not written: %v", user.ID, err)
	}
	response.Created(c, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		response.HTTPError(c, http.StatusUnauthorized, "invalid username or password", response.Unauthorized)
		return
	}

	token, err := h.tokens.CreateToken(user.Actor())
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to issue token"))
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserID, user.ID)
	if err := sess.Save(); err != nil {
		response.Error(c, apperr.Wrap(err, "failed to save session"))
		return
	}

	response.Success(c, loginResponse{User: user, AccessToken: token})
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	response.Success(c, nil)
}

func (h *Handler) Me(c *gin.Context) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("id = ?", actor(c).ID).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			response.Error(c, apperr.NotFound("user not found"))
			return
		}
		response.Error(c, apperr.Wrap(err, "failed to load user"))
		return
	}
	response.Success(c, user)
}
