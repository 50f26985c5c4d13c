// Package lifecycle implements the task state machine:
//
//	Open -> Awaiting Applicant Approval -> In Progress -> Awaiting Completion Approval -> Complete
//
// A rejected application moves the task back to Open. Functions here are pure;
// persistence applies the returned status with a conditional update.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

var (
	ErrInvalidTransition = errors.New("invalid task transition")
	ErrNotAssignee       = errors.New("caller is not the task assignee")
	ErrInvalidAmplifier  = errors.New("point amplifier out of range")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
)

const (
	MinAmplifier = 1.0
	MaxAmplifier = 10.0
)

// Transition names a lifecycle step.
type Transition string

const (
	Apply              Transition = "apply"
	ApproveApplication Transition = "approve_application"
	RejectApplication  Transition = "reject_application"
	MarkDone           Transition = "mark_done"
	ApproveCompletion  Transition = "approve_completion"
)

var edges = map[Transition]struct{ from, to models.TaskStatus }{
	Apply:              {models.StatusOpen, models.StatusAwaitingApplicantApproval},
	ApproveApplication: {models.StatusAwaitingApplicantApproval, models.StatusInProgress},
	RejectApplication:  {models.StatusAwaitingApplicantApproval, models.StatusOpen},
	MarkDone:           {models.StatusInProgress, models.StatusAwaitingCompletionApproval},
	ApproveCompletion:  {models.StatusAwaitingCompletionApproval, models.StatusComplete},
}

// Next validates tr against the task and returns the status it leads to.
// userID is the caller; it must be the assignee for MarkDone.
func Next(t *models.Task, tr Transition, userID string) (models.TaskStatus, error) {
	e, ok := edges[tr]
	if !ok {
		return "", fmt.Errorf("%w: unknown transition %q", ErrInvalidTransition, tr)
	}
	if t == nil || t.Status != e.from {
		status := models.TaskStatus("")
		if t != nil {
			status = t.Status
		}
		return "", fmt.Errorf("%w: %s from %q", ErrInvalidTransition, tr, status)
	}

	switch tr {
	case Apply:
		if t.AssignedUserID != nil {
			return "", fmt.Errorf("%w: task already assigned", ErrInvalidTransition)
		}
	case MarkDone:
		if !t.AssignedTo(userID) {
			return "", ErrNotAssignee
		}
	}

	return e.to, nil
}

// ForTarget maps a requested target status to the transition reaching it from
// the current status.
func ForTarget(current, target models.TaskStatus) (Transition, error) {
	for tr, e := range edges {
		if e.from == current && e.to == target {
			return tr, nil
		}
	}
	return "", fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, current, target)
}

// Points is the base award for a task: (urgency + difficulty + priority) × 10.
func Points(urgency, difficulty, priority int) (int64, error) {
	for _, v := range []int{urgency, difficulty, priority} {
		if v < 1 || v > 5 {
			return 0, ErrInvalidRating
		}
	}
	return int64(urgency+difficulty+priority) * 10, nil
}

// CheckAmplifier validates an amplifier for a task in status.
func CheckAmplifier(status models.TaskStatus, amp float64) error {
	if amp < MinAmplifier || amp > MaxAmplifier {
		return fmt.Errorf("%w: %.2f not in [%.0f, %.0f]", ErrInvalidAmplifier, amp, MinAmplifier, MaxAmplifier)
	}
	if status != models.StatusOpen {
		return fmt.Errorf("%w: amplifier can only change while Open", ErrInvalidTransition)
	}
	return nil
}
