package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Directory resolves the pool of teams and candidates an assignment can
// draw from. Satisfied by whatever holds the org chart (an HR system, a
// static config file) — the Assignment Service itself only scores and
// picks from what Directory returns.
type Directory interface {
	ListTeams(ctx context.Context) ([]Team, error)
	ListCandidates(ctx context.Context, teamID string) ([]Candidate, error)
}

// Service implements the Assignment Service: binding admin-type
// instances to a team or user, and governing the review sub-state-machine
// that follows.
type Service struct {
	directory Directory
	rotation  *rotationTable
}

// New creates an Assignment Service backed by directory.
func New(directory Directory) *Service {
	return &Service{directory: directory, rotation: newRotationTable()}
}

// AssignInstance binds instance.Assignment to a team or user chosen per
// rule. If instance already carries an Assignment, the prior binding is
// archived onto History first
// (the audit trail a reviewing team needs to answer "who had this before").
func (s *Service) AssignInstance(ctx context.Context, instance *models.Instance, rule Rule, assignedBy string) error {
	teams, err := s.directory.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	candidateTeams := eligibleTeams(teams, rule)

	var teamID, userID string

	if rule.PreferTeamAssignment {
		if len(candidateTeams) == 0 {
			return fmt.Errorf("no eligible team for assignment")
		}

		var members []Candidate
		for _, t := range candidateTeams {
			cs, err := s.directory.ListCandidates(ctx, t.TeamID)
			if err != nil {
				return fmt.Errorf("failed to list candidates for team %s: %w", t.TeamID, err)
			}
			members = append(members, cs...)
		}

		team, err := s.pickTeam(candidateTeams, members, rule)
		if err != nil {
			return err
		}
		teamID = team.TeamID
	} else {
		var pool []Candidate
		for _, t := range candidateTeams {
			cs, err := s.directory.ListCandidates(ctx, t.TeamID)
			if err != nil {
				return fmt.Errorf("failed to list candidates for team %s: %w", t.TeamID, err)
			}
			pool = append(pool, cs...)
		}

		eligible := eligibleCandidates(pool, "", rule)
		candidate, err := s.pickCandidate(eligible, rule)
		if err != nil {
			return err
		}
		teamID = candidate.TeamID
		userID = candidate.UserID
	}

	history := archivePriorAssignment(instance, "reassigned")

	now := time.Now().UTC()
	instance.Assignment = &models.Assignment{
		TeamID:           teamID,
		UserID:           userID,
		AssignedBy:       assignedBy,
		AssignedAt:       &now,
		AssignmentStatus: models.AssignmentStatusPendingReview,
		AssignmentType:   models.AssignmentTypeAutomatic,
		History:          history,
	}

	return nil
}

// archivePriorAssignment returns instance's current Assignment History with
// the prior Assignment (if any) appended as a new entry, for the caller to
// set on the new Assignment it is about to install, so the chain of prior
// custodians survives re-assignment.
func archivePriorAssignment(instance *models.Instance, reason string) []models.AssignmentHistoryEntry {
	prior := instance.Assignment
	if prior == nil {
		return nil
	}

	now := time.Now().UTC()
	entry := models.AssignmentHistoryEntry{
		UserID:       prior.UserID,
		TeamID:       prior.TeamID,
		Status:       prior.AssignmentStatus,
		AssignedAt:   prior.AssignedAt,
		AssignedBy:   prior.AssignedBy,
		UnassignedAt: &now,
		Reason:       reason,
	}

	history := append([]models.AssignmentHistoryEntry{}, prior.History...)
	return append(history, entry)
}

// TransitionReview moves instance.Assignment.AssignmentStatus from its
// current status to to, per the guarded review state machine. Returns an
// error without mutating state on an illegal transition.
func (s *Service) TransitionReview(instance *models.Instance, to models.AssignmentStatus, actor, comments string) error {
	if instance.Assignment == nil {
		return fmt.Errorf("instance %s has no assignment to transition", instance.InstanceID)
	}

	from := instance.Assignment.AssignmentStatus
	if !CanTransitionReview(from, to) {
		return fmt.Errorf("illegal review transition %s -> %s", from, to)
	}

	now := time.Now().UTC()
	a := instance.Assignment

	if to == models.AssignmentStatusEscalated {
		entry := models.AssignmentHistoryEntry{
			UserID:       a.UserID,
			TeamID:       a.TeamID,
			Status:       from,
			AssignedAt:   a.AssignedAt,
			AssignedBy:   a.AssignedBy,
			UnassignedAt: &now,
			Reason:       comments,
		}
		a.History = append(a.History, entry)
	}

	a.AssignmentStatus = to

	switch to {
	case models.AssignmentStatusUnderReview:
		a.ReviewedBy = actor
	case models.AssignmentStatusApprovedByReviewer:
		a.ReviewedBy = actor
		a.ReviewedAt = &now
		a.ReviewDecision = string(to)
		a.ReviewComments = comments
	case models.AssignmentStatusRejected:
		a.ReviewedBy = actor
		a.ReviewedAt = &now
		a.RejectionReason = comments
	case models.AssignmentStatusModificationRequested:
		a.ReviewedBy = actor
		a.ReviewedAt = &now
		a.ReviewComments = comments
	case models.AssignmentStatusCompleted:
		a.ApprovedBy = actor
		a.ApprovedAt = &now
		a.ApprovalComments = comments
	case models.AssignmentStatusPendingReview:
		a.AssignedBy = actor
		a.AssignedAt = &now
	}

	return nil
}
