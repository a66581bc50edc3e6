package domain

import "sort"

const (
	categoryMatchScore = 10
	priorityMatchScore = 5
)

// MatchScore ranks how well an agent's preferences fit a ticket.
func MatchScore(a *Agent, t *Ticket) int {
	score := 0
	if a.PrefersCategory(t.Category) {
		score += categoryMatchScore
	}
	if a.PrefersPriority(t.Priority) {
		score += priorityMatchScore
	}
	return score
}

// RankCandidates scores agents for t, drops those at capacity and orders
// the rest by score, then by load, then by id.
func RankCandidates(t *Ticket, agents []AgentWorkload) []AgentWorkload {
	ranked := make([]AgentWorkload, 0, len(agents))
	for _, w := range agents {
		if !w.Active || w.AtCapacity() {
			continue
		}
		w.MatchScore = MatchScore(&w.Agent, t)
		ranked = append(ranked, w)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		if ranked[i].ActiveTickets != ranked[j].ActiveTickets {
			return ranked[i].ActiveTickets < ranked[j].ActiveTickets
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// LeastLoaded picks the agent with the fewest active tickets, lowest id on ties.
func LeastLoaded(pool []AgentWorkload) (AgentWorkload, bool) {
	if len(pool) == 0 {
		return AgentWorkload{}, false
	}
	best := pool[0]
	for _, w := range pool[1:] {
		if w.ActiveTickets < best.ActiveTickets || (w.ActiveTickets == best.ActiveTickets && w.ID < best.ID) {
			best = w
		}
	}
	return best, true
}
