// Package assignment implements the Assignment Service: binding a
// newly created admin-type instance to a team or user, and governing the
// review state machine that follows.
package assignment

import "github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"

// Team is an eligible assignment target. Members (and each Candidate's
// ActiveInstances) are read from whatever directory backs the Assignment Service (an HR
// system, a static config file); the Service itself only scores and picks.
type Team struct {
	TeamID          string
	IsActive        bool
	Specializations []string
	Members         []string
}

// Candidate is an individual user eligible to receive a direct assignment.
type Candidate struct {
	UserID          string
	TeamID          string
	Specializations []string
	ActiveInstances int
}

// Rule is a workflow-specific assignment policy. The zero value is not
// usable directly; DefaultRule supplies the documented defaults.
type Rule struct {
	Strategy                models.AssignmentStrategy
	PreferredTeams          []string
	RequiredSpecializations []string
	MaxInstancesPerUser     int
	PreferTeamAssignment    bool
	AssigneeRole            string
	AutoStart               bool
}

// DefaultRule is the default policy: workload-based, prefer team
// assignment, cap 5 active instances per user.
func DefaultRule() Rule {
	return Rule{
		Strategy:             models.AssignmentStrategyWorkloadBased,
		MaxInstancesPerUser:  5,
		PreferTeamAssignment: true,
	}
}
