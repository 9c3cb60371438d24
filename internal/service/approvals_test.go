package service

import (
	"context"
	"testing"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/models"
)

func TestApprovalLifecycleLocksProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 2, 3)

	req, err := f.svc.Approvals.ApplyForSupervision(ctx, f.teacher, p.ID, testUniversity)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Fatalf("supervision request status = %s", req.Status)
	}
	if len(f.notes.to(f.owner.ID)) != 1 {
		t.Fatal("owner was not notified of the supervision request")
	}

	summary, err := f.svc.Approvals.Summarize(ctx, p.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(summary.Pending) != 1 || summary.Pending[0] != testUniversity {
		t.Fatalf("expected %s pending, got %+v", testUniversity, summary)
	}

	_, err = f.svc.Approvals.ApplyForSupervision(ctx, f.teacher, p.ID, testUniversity)
	wantCode(t, err, apperr.CodeConflict)

	_, err = f.svc.Approvals.UpsertApproval(ctx, f.teacher, ApprovalInput{
		ProjectID: p.ID, University: testUniversity, TeacherID: f.teacher.ID, Status: models.ApprovalApproved,
	})
	wantCode(t, err, apperr.CodeForbidden)

	approval, err := f.svc.Approvals.UpsertApproval(ctx, f.owner, ApprovalInput{
		ProjectID: p.ID, University: testUniversity, TeacherID: f.teacher.ID, Status: models.ApprovalApproved, Comments: "welcome",
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approval.DecisionAt == nil {
		t.Fatal("decisionAt not set")
	}
	if len(f.notes.to(f.teacher.ID)) == 0 {
		t.Fatal("teacher was not notified of the decision")
	}

	stored, err := f.svc.Projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Locked() {
		t.Fatal("first approval should lock the project")
	}

	reqs, err := f.svc.Approvals.ListSupervisionRequests(ctx, p.ID)
	if err != nil {
		t.Fatalf("list supervision: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Status != models.RequestApproved {
		t.Fatalf("supervision request not approved: %+v", reqs)
	}
}

func TestSecondTeacherCannotSupervise(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.approvedProject(t, 1, 3)
	rival := f.user(t, "prof.r", models.RoleTeacher, testUniversity)

	_, err := f.svc.Approvals.ApplyForSupervision(ctx, rival, p.ID, testUniversity)
	wantCode(t, err, apperr.CodeConflict)

	_, err = f.svc.Approvals.UpsertApproval(ctx, f.owner, ApprovalInput{
		ProjectID: p.ID, University: testUniversity, TeacherID: rival.ID, Status: models.ApprovalApproved,
	})
	wantCode(t, err, apperr.CodeConflict)

	_, err = f.svc.Approvals.ApplyForSupervision(ctx, f.teacher, p.ID, "Eastgate College")
	wantCode(t, err, apperr.CodeForbidden)
}

func TestRejectReleasesSupervision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.approvedProject(t, 1, 3)

	_, err := f.svc.Approvals.UpsertApproval(ctx, f.owner, ApprovalInput{
		ProjectID: p.ID, University: testUniversity, TeacherID: f.teacher.ID, Status: models.ApprovalRejected,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}

	rival := f.user(t, "prof.r", models.RoleTeacher, testUniversity)
	if _, err := f.svc.Approvals.ApplyForSupervision(ctx, rival, p.ID, testUniversity); err != nil {
		t.Fatalf("rival should be able to apply after rejection: %v", err)
	}
	// the rejected teacher may re-apply too
	req, err := f.svc.Approvals.ApplyForSupervision(ctx, f.teacher, p.ID, testUniversity)
	if err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Fatalf("re-opened request status = %s", req.Status)
	}
}

func TestSummarizeCoversAllFourStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 4, 3)

	decisions := map[string]models.ApprovalState{
		testUniversity:     models.ApprovalApproved,
		"Eastgate College": models.ApprovalRejected,
		"Harbor Institute": models.ApprovalNeedMoreInfo,
		"Lakeside Poly":    models.ApprovalPending,
	}
	for uni, state := range decisions {
		in := ApprovalInput{ProjectID: p.ID, University: uni, Status: state}
		if state == models.ApprovalApproved {
			in.TeacherID = f.teacher.ID
		}
		if _, err := f.svc.Approvals.UpsertApproval(ctx, f.owner, in); err != nil {
			t.Fatalf("upsert %s: %v", uni, err)
		}
	}

	s, err := f.svc.Approvals.Summarize(ctx, p.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	checks := []struct {
		name string
		got  []string
		want string
	}{
		{"approved", s.Approved, testUniversity},
		{"rejected", s.Rejected, "Eastgate College"},
		{"needMoreInfo", s.NeedMoreInfo, "Harbor Institute"},
		{"pending", s.Pending, "Lakeside Poly"},
	}
	for _, c := range checks {
		if len(c.got) != 1 || c.got[0] != c.want {
			t.Errorf("%s = %v, want [%s]", c.name, c.got, c.want)
		}
	}
}

func TestUpsertApprovalValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 1, 1)

	_, err := f.svc.Approvals.UpsertApproval(ctx, f.owner, ApprovalInput{ProjectID: p.ID, University: testUniversity, Status: "maybe"})
	wantCode(t, err, apperr.CodeValidation)

	_, err = f.svc.Approvals.UpsertApproval(ctx, f.owner, ApprovalInput{ProjectID: p.ID, University: testUniversity, Status: models.ApprovalApproved})
	wantCode(t, err, apperr.CodeValidation)

	_, err = f.svc.Approvals.UpsertApproval(ctx, f.owner, ApprovalInput{
		ProjectID: p.ID, University: "Eastgate College", TeacherID: f.teacher.ID, Status: models.ApprovalApproved,
	})
	wantCode(t, err, apperr.CodeValidation)
}
