package orchestrator

import "github.com/courtlive/courtd/pkg/models"

// Budget sources reported for observability.
const (
	BudgetSourceRoleCap   = "env_role_cap"
	BudgetSourceRequested = "requested"
)

// TokenBudget applies the role ceiling to a requested token cap, with a
// floor of 1, and reports which bound won.
func TokenBudget(role models.Role, requested int, caps RoleCaps) (int, string) {
	ceiling := caps.Cap(role)
	budget, source := requested, BudgetSourceRequested
	if ceiling < requested {
		budget, source = ceiling, BudgetSourceRoleCap
	}
	if budget < 1 {
		budget = 1
	}
	return budget, source
}
