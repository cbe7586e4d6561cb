package assignment

import (
	"fmt"
	"sync"
)

// rotationTable is a process-wide, mutex-guarded rotation cursor. Team
// rotation is keyed by role ("team:<role>") and user rotation by team_id
// and role ("user:<team_id>:<role>"); the workflow id is not part of either
// key, so all workflows share a cursor. The table lives only in memory and
// restarts at index 0 on process restart; rotation is not durable.
type rotationTable struct {
	mu      sync.Mutex
	cursors map[string]int
}

func newRotationTable() *rotationTable {
	return &rotationTable{cursors: make(map[string]int)}
}

func (r *rotationTable) next(key string, n int) int {
	if n <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.cursors[key] % n
	r.cursors[key] = idx + 1
	return idx
}

func (s *Service) roundRobinTeam(teams []Team, rule Rule) (Team, error) {
	key := fmt.Sprintf("team:%s", rule.AssigneeRole)
	idx := s.rotation.next(key, len(teams))
	return teams[idx], nil
}

func (s *Service) roundRobinCandidate(candidates []Candidate, rule Rule) (Candidate, error) {
	key := fmt.Sprintf("user:%s:%s", candidates[0].TeamID, rule.AssigneeRole)
	idx := s.rotation.next(key, len(candidates))
	return candidates[idx], nil
}
