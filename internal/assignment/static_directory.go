package assignment

import "context"

// StaticDirectory is a Directory backed by a fixed, in-memory org chart.
// It exists so a deployment has something concrete to construct the
// Assignment Service with before an HR/org-chart system is integrated;
// Team.Members and Candidate.ActiveInstances are seeded once at startup and
// never updated, so workload-based scoring against a StaticDirectory is
// only as fresh as the last restart. Swap in a Directory backed by the
// real org-chart system for production workload accuracy.
type StaticDirectory struct {
	teams      []Team
	candidates map[string][]Candidate
}

// NewStaticDirectory builds a StaticDirectory from a fixed team list and a
// per-team candidate map.
func NewStaticDirectory(teams []Team, candidatesByTeam map[string][]Candidate) *StaticDirectory {
	return &StaticDirectory{teams: teams, candidates: candidatesByTeam}
}

func (d *StaticDirectory) ListTeams(ctx context.Context) ([]Team, error) {
	return d.teams, nil
}

func (d *StaticDirectory) ListCandidates(ctx context.Context, teamID string) ([]Candidate, error) {
	return d.candidates[teamID], nil
}
