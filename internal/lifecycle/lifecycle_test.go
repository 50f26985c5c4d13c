package lifecycle_test

import (
	"errors"
	"testing"

	"github.com/Aghostraa/abcr-deployment-v2/internal/lifecycle"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

func task(status models.TaskStatus, assignee string) *models.Task {
	t := &models.Task{ID: "t1", Status: status}
	if assignee != "" {
		t.AssignedUserID = &assignee
	}
	return t
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		task    *models.Task
		tr      lifecycle.Transition
		user    string
		want    models.TaskStatus
		wantErr error
	}{
		{"apply open", task(models.StatusOpen, ""), lifecycle.Apply, "u1", models.StatusAwaitingApplicantApproval, nil},
		{"apply assigned", task(models.StatusInProgress, "u2"), lifecycle.Apply, "u1", "", lifecycle.ErrInvalidTransition},
		{"approve application", task(models.StatusAwaitingApplicantApproval, "u1"), lifecycle.ApproveApplication, "m", models.StatusInProgress, nil},
		{"reject application", task(models.StatusAwaitingApplicantApproval, "u1"), lifecycle.RejectApplication, "m", models.StatusOpen, nil},
		{"approve application from open", task(models.StatusOpen, ""), lifecycle.ApproveApplication, "m", "", lifecycle.ErrInvalidTransition},
		{"mark done by assignee", task(models.StatusInProgress, "u1"), lifecycle.MarkDone, "u1", models.StatusAwaitingCompletionApproval, nil},
		{"mark done by other", task(models.StatusInProgress, "u1"), lifecycle.MarkDone, "u2", "", lifecycle.ErrNotAssignee},
		{"mark done too early", task(models.StatusAwaitingApplicantApproval, "u1"), lifecycle.MarkDone, "u1", "", lifecycle.ErrInvalidTransition},
		{"approve completion", task(models.StatusAwaitingCompletionApproval, "u1"), lifecycle.ApproveCompletion, "m", models.StatusComplete, nil},
		{"complete is terminal", task(models.StatusComplete, "u1"), lifecycle.ApproveCompletion, "m", "", lifecycle.ErrInvalidTransition},
		{"unknown", task(models.StatusOpen, ""), lifecycle.Transition("teleport"), "u1", "", lifecycle.ErrInvalidTransition},
		{"nil task", nil, lifecycle.Apply, "u1", "", lifecycle.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lifecycle.Next(tt.task, tt.tr, tt.user)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Next = %q want %q", got, tt.want)
			}
		})
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	done := task(models.StatusComplete, "u1")
	for _, tr := range []lifecycle.Transition{lifecycle.Apply, lifecycle.ApproveApplication, lifecycle.RejectApplication, lifecycle.MarkDone, lifecycle.ApproveCompletion} {
		if _, err := lifecycle.Next(done, tr, "u1"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
			t.Fatalf("%s from Complete: expected ErrInvalidTransition, got %v", tr, err)
		}
	}
}

func TestForTarget(t *testing.T) {
	tests := []struct {
		current, target models.TaskStatus
		want            lifecycle.Transition
		ok              bool
	}{
		{models.StatusOpen, models.StatusAwaitingApplicantApproval, lifecycle.Apply, true},
		{models.StatusAwaitingApplicantApproval, models.StatusInProgress, lifecycle.ApproveApplication, true},
		{models.StatusAwaitingApplicantApproval, models.StatusOpen, lifecycle.RejectApplication, true},
		{models.StatusInProgress, models.StatusAwaitingCompletionApproval, lifecycle.MarkDone, true},
		{models.StatusAwaitingCompletionApproval, models.StatusComplete, lifecycle.ApproveCompletion, true},
		{models.StatusOpen, models.StatusComplete, "", false},
		{models.StatusComplete, models.StatusOpen, "", false},
	}

	for _, tt := range tests {
		got, err := lifecycle.ForTarget(tt.current, tt.target)
		if tt.ok != (err == nil) {
			t.Fatalf("ForTarget(%q, %q) err = %v", tt.current, tt.target, err)
		}
		if got != tt.want {
			t.Fatalf("ForTarget(%q, %q) = %q want %q", tt.current, tt.target, got, tt.want)
		}
	}
}

func TestPoints(t *testing.T) {
	got, err := lifecycle.Points(2, 3, 1)
	if err != nil || got != 60 {
		t.Fatalf("Points(2,3,1) = %d, %v", got, err)
	}
	got, err = lifecycle.Points(5, 5, 5)
	if err != nil || got != 150 {
		t.Fatalf("Points(5,5,5) = %d, %v", got, err)
	}
	if _, err := lifecycle.Points(0, 3, 1); !errors.Is(err, lifecycle.ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := lifecycle.Points(1, 6, 1); !errors.Is(err, lifecycle.ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
}

func TestCheckAmplifier(t *testing.T) {
	if err := lifecycle.CheckAmplifier(models.StatusOpen, 1.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lifecycle.CheckAmplifier(models.StatusOpen, 0.5); !errors.Is(err, lifecycle.ErrInvalidAmplifier) {
		t.Fatalf("expected ErrInvalidAmplifier, got %v", err)
	}
	if err := lifecycle.CheckAmplifier(models.StatusOpen, 11); !errors.Is(err, lifecycle.ErrInvalidAmplifier) {
		t.Fatalf("expected ErrInvalidAmplifier, got %v", err)
	}
	if err := lifecycle.CheckAmplifier(models.StatusInProgress, 2); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAmplifiedPoints(t *testing.T) {
	tests := []struct {
		points int64
		amp    float64
		want   int64
	}{
		{60, 1, 60},
		{60, 1.5, 90},
		{50, 1.25, 63},
		{70, 0, 70},
	}
	for _, tt := range tests {
		tk := &models.Task{Points: tt.points, PointAmplifier: tt.amp}
		if got := tk.AmplifiedPoints(); got != tt.want {
			t.Fatalf("AmplifiedPoints(%d × %.2f) = %d want %d", tt.points, tt.amp, got, tt.want)
		}
	}
}
