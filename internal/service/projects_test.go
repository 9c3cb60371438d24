package service

import (
	"context"
	"errors"
	"testing"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/models"
)

func TestProjectCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Projects.Create(ctx, f.owner, CreateProjectInput{Title: "ab", MaxGroups: 0, MaxStudentsPerGroup: 1})
	wantCode(t, err, apperr.CodeValidation)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Fields["title"] == "" || appErr.Fields["maxGroups"] == "" || appErr.Fields["duration"] == "" {
		t.Fatalf("expected field errors, got %+v", appErr)
	}

	student := f.students(t, 1)[0]
	_, err = f.svc.Projects.Create(ctx, student, CreateProjectInput{Title: "Valid title"})
	wantCode(t, err, apperr.CodeForbidden)
}

func TestProjectCreateStartsUnlocked(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, 2, 3)

	if p.EditStatus != models.EditUnlocked {
		t.Fatalf("new project should be unlocked, got %s", p.EditStatus)
	}
	if p.OwnerID != f.owner.ID {
		t.Fatalf("owner = %s, want %s", p.OwnerID, f.owner.ID)
	}
	if got := []string(p.RequiredSkills); len(got) != 2 || got[0] != "go" || got[1] != "sql" {
		t.Fatalf("skills not cleaned: %v", got)
	}
}

func TestProjectDirectEditOnlyWhileUnlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 2, 3)

	title := "Fleet telemetry pipeline v2"
	updated, err := f.svc.Projects.Update(ctx, f.owner, p.ID, models.ProjectPatch{Title: &title})
	if err != nil {
		t.Fatalf("update unlocked: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title = %q", updated.Title)
	}

	other := f.user(t, "globex", models.RoleIndustry, "")
	_, err = f.svc.Projects.Update(ctx, other, p.ID, models.ProjectPatch{Title: &title})
	wantCode(t, err, apperr.CodeForbidden)

	if _, err := f.svc.Projects.Lock(ctx, p.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	again := "Another title"
	_, err = f.svc.Projects.Update(ctx, f.owner, p.ID, models.ProjectPatch{Title: &again})
	wantCode(t, err, apperr.CodeConflict)
	wantCode(t, f.svc.Projects.Delete(ctx, f.owner, p.ID), apperr.CodeConflict)

	stored, err := f.svc.Projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Title != title {
		t.Fatalf("locked project changed: %q", stored.Title)
	}
}

func TestProjectLockIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 1, 1)

	for i := 0; i < 2; i++ {
		got, err := f.svc.Projects.Lock(ctx, p.ID)
		if err != nil {
			t.Fatalf("lock #%d: %v", i+1, err)
		}
		if !got.Locked() {
			t.Fatalf("lock #%d left project %s", i+1, got.EditStatus)
		}
	}
	for i := 0; i < 2; i++ {
		got, err := f.svc.Projects.Unlock(ctx, p.ID)
		if err != nil {
			t.Fatalf("unlock #%d: %v", i+1, err)
		}
		if got.Locked() {
			t.Fatalf("unlock #%d left project locked", i+1)
		}
	}

	_, err := f.svc.Projects.Lock(ctx, models.NewID())
	wantCode(t, err, apperr.CodeNotFound)
}

func TestProjectDeleteWhileUnlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 1, 1)

	if err := f.svc.Projects.Delete(ctx, f.owner, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := f.svc.Projects.Get(ctx, p.ID)
	wantCode(t, err, apperr.CodeNotFound)
	wantCode(t, f.svc.Projects.Delete(ctx, f.owner, p.ID), apperr.CodeNotFound)
}

func TestProjectListApprovedFor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	approved := f.approvedProject(t, 1, 2)
	_ = f.project(t, 1, 2)

	list, err := f.svc.Projects.List(ctx, ProjectFilter{ApprovedFor: testUniversity})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != approved.ID {
		t.Fatalf("expected only the approved project, got %d", len(list))
	}

	all, err := f.svc.Projects.List(ctx, ProjectFilter{OwnerID: f.owner.ID})
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 projects for owner, got %d", len(all))
	}
}

func TestProjectDirectEditCannotShrinkBelowGroups(t *testing.T) {
	f, p, g, s := groupFixture(t, 3)
	ctx := context.Background()
	for _, st := range s[1:] {
		if _, err := f.svc.Groups.JoinExistingGroup(ctx, st, p.ID, g.ID); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if _, err := f.svc.Projects.Unlock(ctx, p.ID); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	one := 1
	_, err := f.svc.Projects.Update(ctx, f.owner, p.ID, models.ProjectPatch{MaxStudentsPerGroup: &one})
	wantCode(t, err, apperr.CodeConflict)

	got, err := f.svc.Projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MaxStudentsPerGroup != 3 {
		t.Fatalf("maxStudentsPerGroup = %d after refused edit", got.MaxStudentsPerGroup)
	}

	// shrinking to exactly what the groups hold is fine
	groups, three := 1, 3
	updated, err := f.svc.Projects.Update(ctx, f.owner, p.ID, models.ProjectPatch{MaxGroups: &groups, MaxStudentsPerGroup: &three})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.MaxGroups != 1 {
		t.Fatalf("maxGroups = %d", updated.MaxGroups)
	}
}
