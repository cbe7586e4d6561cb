package assignment

import "github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"

// reviewTransitions is the guarded review state machine, mirrored on
// internal/state's validTransitions-map idiom: every legal transition is
// listed explicitly, and anything absent is illegal.
var reviewTransitions = map[models.AssignmentStatus][]models.AssignmentStatus{
	models.AssignmentStatusPendingReview: {
		models.AssignmentStatusPendingReview,
		models.AssignmentStatusUnderReview,
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusUnderReview: {
		models.AssignmentStatusApprovedByReviewer,
		models.AssignmentStatusRejected,
		models.AssignmentStatusModificationRequested,
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusApprovedByReviewer: {
		models.AssignmentStatusCompleted,
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusModificationRequested: {
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusRejected: {
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusEscalated: {
		models.AssignmentStatusPendingReview,
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusPendingSignature: {
		models.AssignmentStatusCompleted,
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusOnHold: {
		models.AssignmentStatusPendingReview,
		models.AssignmentStatusEscalated,
	},
	models.AssignmentStatusCompleted: {
		models.AssignmentStatusEscalated,
	},
}

// CanTransitionReview reports whether from -> to is a legal review
// transition. Illegal transitions return false without mutating state.
func CanTransitionReview(from, to models.AssignmentStatus) bool {
	for _, allowed := range reviewTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
