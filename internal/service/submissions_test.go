package service

import (
	"context"
	"testing"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/models"
)

func TestSubmissionTimeline(t *testing.T) {
	f, _, g, s := groupFixture(t, 2)
	ctx := context.Background()
	if _, err := f.svc.Groups.JoinExistingGroup(ctx, s[1], g.ProjectID, g.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.Submissions.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	first, err := f.svc.Submissions.Append(ctx, s[0], g.ID, []FileUpload{upload("spec.pdf", "a"), upload("plan.xlsx", "b")}, "")
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	if len(first.Files) != 2 || first.ProjectID != g.ProjectID {
		t.Fatalf("unexpected submission %+v", first)
	}
	second, err := f.svc.Submissions.Append(ctx, s[1], g.ID, nil, "  notes only  ")
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if second.Comments != "notes only" {
		t.Fatalf("comments = %q", second.Comments)
	}

	subs, err := f.svc.Submissions.List(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != second.ID || subs[1].ID != first.ID {
		t.Fatal("submissions not ordered most recent first")
	}
}

func TestSubmissionAppendRules(t *testing.T) {
	f, _, g, s := groupFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.Submissions.Append(ctx, s[0], g.ID, nil, "   ")
	wantCode(t, err, apperr.CodeValidation)

	_, err = f.svc.Submissions.Append(ctx, s[1], g.ID, nil, "not my group")
	wantCode(t, err, apperr.CodeForbidden)

	_, err = f.svc.Submissions.Append(ctx, s[0], models.NewID(), nil, "nowhere")
	wantCode(t, err, apperr.CodeNotFound)
}

func TestSubmissionUploadFailureWritesNoRecord(t *testing.T) {
	f, _, g, s := groupFixture(t, 2)
	ctx := context.Background()
	f.blobs.failOn = "b.pdf"

	_, err := f.svc.Submissions.Append(ctx, s[0], g.ID, []FileUpload{upload("a.pdf", "a"), upload("b.pdf", "b")}, "")
	wantCode(t, err, apperr.CodeInternal)

	subs, err := f.svc.Submissions.List(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected no submission, got %d", len(subs))
	}
	// the first file stays behind; nothing reconciles it
	if len(f.blobs.files) != 1 {
		t.Fatalf("expected one orphaned blob, got %d", len(f.blobs.files))
	}
}

func TestSubmissionRemove(t *testing.T) {
	f, _, g, s := groupFixture(t, 2)
	ctx := context.Background()
	if _, err := f.svc.Groups.JoinExistingGroup(ctx, s[1], g.ProjectID, g.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	sub, err := f.svc.Submissions.Append(ctx, s[0], g.ID, []FileUpload{upload("report.pdf", "r")}, "final")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	wantCode(t, f.svc.Submissions.Remove(ctx, s[1], sub.ID), apperr.CodeForbidden)

	if err := f.svc.Submissions.Remove(ctx, s[0], sub.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(f.blobs.deleted) != 1 || f.blobs.deleted[0] != sub.Files[0].FileURL {
		t.Fatalf("blob not deleted: %v", f.blobs.deleted)
	}
	subs, err := f.svc.Submissions.List(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("submission still listed")
	}
	wantCode(t, f.svc.Submissions.Remove(ctx, s[0], sub.ID), apperr.CodeNotFound)
}
