package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/database"
	"fyp-portal/internal/models"
	"fyp-portal/internal/notify"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testUniversity = "Northfield University"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + models.NewID() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
	fail bool
}

func (r *recorder) Dispatch(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	if r.fail {
		return errors.New("mail server down")
	}
	return nil
}

func (r *recorder) to(recipient string) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.msgs {
		if m.RecipientID == recipient {
			out = append(out, m)
		}
	}
	return out
}

type memBlobs struct {
	mu      sync.Mutex
	files   map[string]string
	failOn  string
	deleted []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{files: map[string]string{}}
}

func (m *memBlobs) Store(_ context.Context, name string, r io.Reader) (models.Attachment, error) {
	if name == m.failOn {
		return models.Attachment{}, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Attachment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "/files/" + models.NewID() + "-" + name
	m.files[url] = string(data)
	return models.Attachment{FileURL: url, FileName: name}, nil
}

func (m *memBlobs) Delete(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[url]; !ok {
		return false, nil
	}
	delete(m.files, url)
	m.deleted = append(m.deleted, url)
	return true, nil
}

type fixture struct {
	db    *gorm.DB
	svc   *Services
	notes *recorder
	blobs *memBlobs

	admin   models.Actor
	owner   models.Actor
	teacher models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:    newTestDB(t),
		notes: &recorder{},
		blobs: newMemBlobs(),
	}
	f.svc = New(f.db, f.blobs, f.notes, Options{ExtensionWindow: 7 * 24 * time.Hour})
	f.admin = f.user(t, "admin", models.RoleAdmin, "")
	f.owner = f.user(t, "acme", models.RoleIndustry, "")
	f.teacher = f.user(t, "prof.t", models.RoleTeacher, testUniversity)
	return f
}

func (f *fixture) user(t *testing.T, name string, role models.UserRole, university string) models.Actor {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "x", Role: role, University: university}
	if role == models.RoleIndustry {
		u.Company = "Acme"
	}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u.Actor()
}

func (f *fixture) students(t *testing.T, n int) []models.Actor {
	t.Helper()
	out := make([]models.Actor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.user(t, "student-"+models.NewID()[:8], models.RoleStudent, testUniversity))
	}
	return out
}

func (f *fixture) project(t *testing.T, maxGroups, maxStudents int) *models.Project {
	t.Helper()
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	p, err := f.svc.Projects.Create(context.Background(), f.owner, CreateProjectInput{
		Title:               "Fleet telemetry pipeline",
		Description:         "Ingest and analyse vehicle telemetry",
		RequiredSkills:      []string{"go", " sql ", ""},
		Start:               start,
		End:                 start.AddDate(0, 6, 0),
		MaxGroups:           maxGroups,
		MaxStudentsPerGroup: maxStudents,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// approvedProject walks a project through supervision and approval for
// testUniversity.
func (f *fixture) approvedProject(t *testing.T, maxGroups, maxStudents int) *models.Project {
	t.Helper()
	ctx := context.Background()
	p := f.project(t, maxGroups, maxStudents)
	if _, err := f.svc.Approvals.ApplyForSupervision(ctx, f.teacher, p.ID, testUniversity); err != nil {
		t.Fatalf("apply for supervision: %v", err)
	}
	_, err := f.svc.Approvals.UpsertApproval(ctx, f.owner, ApprovalInput{
		ProjectID:  p.ID,
		University: testUniversity,
		TeacherID:  f.teacher.ID,
		Status:     models.ApprovalApproved,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return p
}

func wantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("expected %s error, got %s (%v)", code, got, err)
	}
}

func upload(name, content string) FileUpload {
	return FileUpload{Name: name, Content: strings.NewReader(content)}
}
