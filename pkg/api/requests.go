package api

import (
	"fmt"

	"github.com/courtlive/courtd/pkg/models"
)

// Poll window defaults applied when the creator does not set them.
const (
	defaultVerdictWindowMs  = 30000
	defaultSentenceWindowMs = 20000
)

var defaultSentenceOptions = []string{"Fine", "Community Service", "Public Apology"}

// CreateSessionRequest is the body of POST /api/court/sessions.
type CreateSessionRequest struct {
	Topic                string                  `json:"topic"`
	CaseType             string                  `json:"caseType"`
	Roles                *models.RoleAssignments `json:"roles"`
	SentenceOptions      []string                `json:"sentenceOptions"`
	VerdictVoteWindowMs  int                     `json:"verdictVoteWindowMs"`
	SentenceVoteWindowMs int                     `json:"sentenceVoteWindowMs"`

	// Autostart launches the orchestrator immediately after creation.
	Autostart bool `json:"autostart"`
}

// SetPhaseRequest is the body of POST /api/court/sessions/{id}/phase.
type SetPhaseRequest struct {
	Phase           string `json:"phase"`
	PhaseDurationMs int    `json:"phaseDurationMs"`
}

// CastVoteRequest is the body of POST /api/court/sessions/{id}/vote.
type CastVoteRequest struct {
	Type   string `json:"type"`
	Choice string `json:"choice"`
}

// agentCatalog is the static performer roster. Role assignments in create
// requests must name agents from here, cast within their archetypes.
var agentCatalog = []models.Agent{
	{ID: "judge-stern", Name: "Judge Stern", RoleLabel: "The Honorable", Archetypes: []models.Role{models.RoleJudge}},
	{ID: "pros-hardline", Name: "Pat Hardline", RoleLabel: "Prosecutor", Archetypes: []models.Role{models.RoleProsecutor, models.RoleDefense}},
	{ID: "def-theatrical", Name: "Remy Flair", RoleLabel: "Defense Counsel", Archetypes: []models.Role{models.RoleDefense, models.RoleProsecutor}},
	{ID: "bailiff-dry", Name: "Bailiff Morgan", RoleLabel: "Bailiff", Archetypes: []models.Role{models.RoleBailiff}},
	{ID: "wit-earnest", Name: "Sam Earnest", RoleLabel: "Witness", Archetypes: []models.Role{models.RoleWitness}},
	{ID: "wit-shifty", Name: "Lee Shifty", RoleLabel: "Witness", Archetypes: []models.Role{models.RoleWitness}},
	{ID: "wit-janitor", Name: "The Janitor", RoleLabel: "Witness", Archetypes: []models.Role{models.RoleWitness}},
}

func agentByID(id string) (models.Agent, bool) {
	for _, a := range agentCatalog {
		if a.ID == id {
			return a, true
		}
	}
	return models.Agent{}, false
}

// validateRoles checks every assignment against the catalog.
func validateRoles(r models.RoleAssignments) error {
	named := []struct {
		role models.Role
		id   string
	}{
		{models.RoleJudge, r.Judge},
		{models.RoleProsecutor, r.Prosecutor},
		{models.RoleDefense, r.Defense},
		{models.RoleBailiff, r.Bailiff},
	}
	for _, n := range named {
		if err := checkCasting(n.role, n.id); err != nil {
			return err
		}
	}
	if len(r.Witnesses) < 1 || len(r.Witnesses) > 3 {
		return fmt.Errorf("witnesses must name 1 to 3 agents, got %d", len(r.Witnesses))
	}
	for _, id := range r.Witnesses {
		if err := checkCasting(models.RoleWitness, id); err != nil {
			return err
		}
	}
	return nil
}

func checkCasting(role models.Role, id string) error {
	agent, ok := agentByID(id)
	if !ok {
		return fmt.Errorf("unknown agent %q for role %s", id, role)
	}
	if !agent.EligibleFor(role) {
		return fmt.Errorf("agent %q is not eligible for role %s", id, role)
	}
	return nil
}

// defaultRoles is the stock courtroom cast used when the creator does not
// pick agents.
func defaultRoles() models.RoleAssignments {
	return models.RoleAssignments{
		Judge:      "judge-stern",
		Prosecutor: "pros-hardline",
		Defense:    "def-theatrical",
		Bailiff:    "bailiff-dry",
		Witnesses:  []string{"wit-earnest", "wit-shifty"},
	}
}
