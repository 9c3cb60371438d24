// Package handlers is the JSON API over the workflow services.
package handlers

import (
	"strings"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/auth"
	"fyp-portal/internal/middleware"
	"fyp-portal/internal/models"
	"fyp-portal/internal/notify"
	"fyp-portal/internal/response"
	"fyp-portal/internal/service"
	"fyp-portal/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// maxUploadFiles caps the files accepted in one multipart request.
const maxUploadFiles = 20

type Handler struct {
	db     *gorm.DB
	svc    *service.Services
	inbox  *notify.Inbox
	blobs  storage.BlobStore
	tokens *auth.TokenManager
}

func New(db *gorm.DB, svc *service.Services, inbox *notify.Inbox, blobs storage.BlobStore, tokens *auth.TokenManager) *Handler {
	return &Handler{db: db, svc: svc, inbox: inbox, blobs: blobs, tokens: tokens}
}

func actor(c *gin.Context) models.Actor {
	return middleware.MustActor(c)
}

// bind decodes the JSON body, answering 400 itself when it cannot.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequestError(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty input yields a zero time.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("invalid date", map[string]string{field: "expected YYYY-MM-DD"})
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, nil
	}
	return &t, nil
}

// uploads collects the multipart files under key. The returned closer
// must run once the services are done reading.
func uploads(c *gin.Context, key string) ([]service.FileUpload, func(), error) {
	noop := func() {}
	form, err := c.MultipartForm()
	if err != nil {
		// a plain form without files is fine
		return nil, noop, nil
	}
	headers := form.File[key]
	if len(headers) > maxUploadFiles {
		return nil, noop, apperr.Validation("too many files", map[string]string{key: "at most 20 files per request"})
	}

	files := make([]service.FileUpload, 0, len(headers))
	var closers []func() error
	closeAll := func() {
		for _, cl := range closers {
			_ = cl()
		}
	}
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, noop, apperr.Validation("unreadable upload", map[string]string{key: h.Filename})
		}
		closers = append(closers, f.Close)
		files = append(files, service.FileUpload{Name: h.Filename, Content: f})
	}
	return files, closeAll, nil
}
