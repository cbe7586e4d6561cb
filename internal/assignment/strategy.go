package assignment

import (
	"fmt"
	"math/rand"
)

// eligibleTeams filters teams by the eligibility rules: active, optionally
// restricted to preferred_teams, and (if required_specializations is set)
// sharing at least one specialization with the rule.
func eligibleTeams(teams []Team, rule Rule) []Team {
	preferred := toSet(rule.PreferredTeams)

	var out []Team
	for _, t := range teams {
		if !t.IsActive {
			continue
		}
		if len(preferred) > 0 && !preferred[t.TeamID] {
			continue
		}
		if len(rule.RequiredSpecializations) > 0 && !sharesAny(t.Specializations, rule.RequiredSpecializations) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// eligibleCandidates filters individual candidates by team membership (if
// restricted to a team) and max_instances_per_user.
func eligibleCandidates(candidates []Candidate, teamID string, rule Rule) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if teamID != "" && c.TeamID != teamID {
			continue
		}
		if rule.MaxInstancesPerUser > 0 && c.ActiveInstances >= rule.MaxInstancesPerUser {
			continue
		}
		out = append(out, c)
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

func sharesAny(a, b []string) bool {
	set := toSet(a)
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

// pickTeam selects one eligible team per rule.Strategy. members is every
// candidate known to belong to any of teams, used to compute per-team
// workload/expertise scores. PRIORITY_BASED falls back to WORKLOAD_BASED.
func (s *Service) pickTeam(teams []Team, members []Candidate, rule Rule) (Team, error) {
	if len(teams) == 0 {
		return Team{}, fmt.Errorf("no eligible team for assignment")
	}

	switch rule.Strategy {
	case "round_robin":
		return s.roundRobinTeam(teams, rule)
	case "expertise_based":
		return pickTeamByExpertise(teams, rule), nil
	case "random":
		return teams[rand.Intn(len(teams))], nil
	default: // workload_based, priority_based (falls back), unknown
		return pickTeamByWorkload(teams, members), nil
	}
}

// teamWorkload is the active-instance count of a team's members, normalized
// by team size.
func teamWorkload(t Team, members []Candidate) float64 {
	size := len(t.Members)
	if size == 0 {
		size = 1
	}

	total := 0
	for _, c := range members {
		if c.TeamID == t.TeamID {
			total += c.ActiveInstances
		}
	}

	return float64(total) / float64(size)
}

func pickTeamByWorkload(teams []Team, members []Candidate) Team {
	best := teams[0]
	bestScore := teamWorkload(best, members)
	for _, t := range teams[1:] {
		if score := teamWorkload(t, members); score < bestScore {
			best, bestScore = t, score
		}
	}
	return best
}

func pickTeamByExpertise(teams []Team, rule Rule) Team {
	if len(rule.RequiredSpecializations) == 0 {
		return teams[0]
	}

	best := teams[0]
	bestScore := expertiseScore(best.Specializations, rule.RequiredSpecializations)
	for _, t := range teams[1:] {
		if score := expertiseScore(t.Specializations, rule.RequiredSpecializations); score > bestScore {
			best, bestScore = t, score
		}
	}
	return best
}

func expertiseScore(have, required []string) float64 {
	if len(required) == 0 {
		return 0
	}
	set := toSet(have)
	matched := 0
	for _, r := range required {
		if set[r] {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// pickCandidate selects one eligible individual candidate, used when
// prefer_team_assignment is false or an assignee_role narrows to a person.
func (s *Service) pickCandidate(candidates []Candidate, rule Rule) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("no eligible candidate for assignment")
	}

	switch rule.Strategy {
	case "round_robin":
		return s.roundRobinCandidate(candidates, rule)
	case "expertise_based":
		return pickCandidateByExpertise(candidates, rule), nil
	case "random":
		return candidates[rand.Intn(len(candidates))], nil
	default:
		return pickCandidateByWorkload(candidates), nil
	}
}

func pickCandidateByWorkload(candidates []Candidate) Candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ActiveInstances < best.ActiveInstances {
			best = c
		}
	}
	return best
}

func pickCandidateByExpertise(candidates []Candidate, rule Rule) Candidate {
	if len(rule.RequiredSpecializations) == 0 {
		return pickCandidateByWorkload(candidates)
	}

	best := candidates[0]
	bestScore := -1.0
	for _, c := range candidates {
		score := expertiseScore(c.Specializations, rule.RequiredSpecializations)
		if score > bestScore || (score == bestScore && c.ActiveInstances < best.ActiveInstances) {
			best, bestScore = c, score
		}
	}
	return best
}
