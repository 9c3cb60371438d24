package service

import (
	"context"
	"testing"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/models"
)

func groupFixture(t *testing.T, maxStudents int) (*fixture, *models.Project, *models.Selection, []models.Actor) {
	t.Helper()
	f := newFixture(t)
	p := f.approvedProject(t, 2, maxStudents)
	s := f.students(t, maxStudents)
	g, err := f.svc.Groups.CreateNewGroup(context.Background(), s[0], p.ID, testUniversity)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return f, p, g, s
}

func TestDualReviewCompletesGroup(t *testing.T) {
	f, p, g, s := groupFixture(t, 3)
	ctx := context.Background()

	if _, err := f.svc.Submissions.Append(ctx, s[0], g.ID, []FileUpload{upload("draft.pdf", "v1")}, "first draft"); err != nil {
		t.Fatalf("append: %v", err)
	}

	res, err := f.svc.Evaluations.SubmitReview(ctx, f.teacher, ReviewInput{
		SelectionID: g.ID, ReviewerRole: models.ReviewerTeacher, Rating: 4,
	})
	if err != nil {
		t.Fatalf("teacher review: %v", err)
	}
	if !res.Status.TeacherCompleted || res.Status.IndustryCompleted || res.Status.IsCompleted {
		t.Fatalf("after teacher review: %+v", res.Status)
	}

	res, err = f.svc.Evaluations.SubmitReview(ctx, f.owner, ReviewInput{
		SelectionID: g.ID, ReviewerRole: models.ReviewerIndustry, Rating: 5, Comments: "great",
	})
	if err != nil {
		t.Fatalf("industry review: %v", err)
	}
	if !res.Status.TeacherCompleted || !res.Status.IndustryCompleted || !res.Status.IsCompleted {
		t.Fatalf("after industry review: %+v", res.Status)
	}

	status, err := f.svc.Groups.CompletionStatus(ctx, g.ID)
	if err != nil {
		t.Fatalf("completion status: %v", err)
	}
	if status != res.Status {
		t.Fatalf("stored status %+v differs from returned %+v", status, res.Status)
	}

	_, err = f.svc.Submissions.Append(ctx, s[0], g.ID, nil, "late addition")
	wantCode(t, err, apperr.CodeConflict)
	_, err = f.svc.Evaluations.SubmitReview(ctx, f.teacher, ReviewInput{
		SelectionID: g.ID, ReviewerRole: models.ReviewerTeacher, Rating: 2,
	})
	wantCode(t, err, apperr.CodeConflict)

	if len(f.notes.to(s[0].ID)) != 1 {
		t.Fatal("group member was not told about completion")
	}

	// a completed group no longer holds the university's claim
	claimed, err := f.svc.Groups.ClaimedByUniversity(ctx, p.ID, testUniversity)
	if err != nil || claimed {
		t.Fatalf("claimed = %v, err = %v", claimed, err)
	}
	open, err := f.svc.Groups.HasOpenCommitment(ctx, s[0].ID)
	if err != nil || open {
		t.Fatalf("open commitment after completion = %v, err = %v", open, err)
	}
}

func TestCompletionInvariantHoldsAfterEveryReview(t *testing.T) {
	f, _, g, _ := groupFixture(t, 2)
	ctx := context.Background()

	steps := []struct {
		actor models.Actor
		role  models.ReviewerRole
	}{
		{f.owner, models.ReviewerIndustry},
		{f.owner, models.ReviewerIndustry},
		{f.teacher, models.ReviewerTeacher},
	}
	for i, st := range steps {
		res, err := f.svc.Evaluations.SubmitReview(ctx, st.actor, ReviewInput{SelectionID: g.ID, ReviewerRole: st.role, Rating: 3})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		s := res.Status
		if s.IsCompleted != (s.IndustryCompleted && s.TeacherCompleted) {
			t.Fatalf("step %d broke the completion invariant: %+v", i, s)
		}
	}
}

func TestReviewUpsertsPerReviewer(t *testing.T) {
	f, _, g, _ := groupFixture(t, 2)
	ctx := context.Background()

	for _, rating := range []int{2, 4} {
		if _, err := f.svc.Evaluations.SubmitReview(ctx, f.teacher, ReviewInput{
			SelectionID: g.ID, ReviewerRole: models.ReviewerTeacher, Rating: rating,
		}); err != nil {
			t.Fatalf("review %d: %v", rating, err)
		}
	}
	reviews, err := f.svc.Evaluations.ListReviews(ctx, g.ID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 1 || reviews[0].Rating != 4 {
		t.Fatalf("expected one review rated 4, got %+v", reviews)
	}
}

func TestReviewAuthorization(t *testing.T) {
	f, _, g, s := groupFixture(t, 2)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor models.Actor
		in    ReviewInput
		code  apperr.Code
	}{
		{"rating too high", f.teacher, ReviewInput{SelectionID: g.ID, ReviewerRole: models.ReviewerTeacher, Rating: 6}, apperr.CodeValidation},
		{"unknown role", f.teacher, ReviewInput{SelectionID: g.ID, ReviewerRole: "peer", Rating: 3}, apperr.CodeValidation},
		{"student as teacher", s[0], ReviewInput{SelectionID: g.ID, ReviewerRole: models.ReviewerTeacher, Rating: 3}, apperr.CodeForbidden},
		{"teacher as industry", f.teacher, ReviewInput{SelectionID: g.ID, ReviewerRole: models.ReviewerIndustry, Rating: 3}, apperr.CodeForbidden},
		{"missing group", f.teacher, ReviewInput{SelectionID: models.NewID(), ReviewerRole: models.ReviewerTeacher, Rating: 3}, apperr.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Evaluations.SubmitReview(ctx, tc.actor, tc.in)
			wantCode(t, err, tc.code)
		})
	}

	outsider := f.user(t, "prof.o", models.RoleTeacher, testUniversity)
	_, err := f.svc.Evaluations.SubmitReview(ctx, outsider, ReviewInput{SelectionID: g.ID, ReviewerRole: models.ReviewerTeacher, Rating: 3})
	wantCode(t, err, apperr.CodeForbidden)

	rival := f.user(t, "globex", models.RoleIndustry, "")
	_, err = f.svc.Evaluations.SubmitReview(ctx, rival, ReviewInput{SelectionID: g.ID, ReviewerRole: models.ReviewerIndustry, Rating: 3})
	wantCode(t, err, apperr.CodeForbidden)
}

func TestReviewEditAfterCompletionWhenAllowed(t *testing.T) {
	f, _, g, _ := groupFixture(t, 2)
	f.svc.Evaluations.allowEditAfterCompletion = true
	ctx := context.Background()

	for _, in := range []struct {
		actor models.Actor
		role  models.ReviewerRole
	}{{f.teacher, models.ReviewerTeacher}, {f.owner, models.ReviewerIndustry}} {
		if _, err := f.svc.Evaluations.SubmitReview(ctx, in.actor, ReviewInput{SelectionID: g.ID, ReviewerRole: in.role, Rating: 3}); err != nil {
			t.Fatalf("review: %v", err)
		}
	}
	res, err := f.svc.Evaluations.SubmitReview(ctx, f.teacher, ReviewInput{SelectionID: g.ID, ReviewerRole: models.ReviewerTeacher, Rating: 5})
	if err != nil {
		t.Fatalf("edit after completion: %v", err)
	}
	if !res.Status.IsCompleted || res.Review.Rating != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
}
