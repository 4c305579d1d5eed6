package models

// Role is a courtroom role archetype. Agents declare which archetypes they
// are eligible for; sessions bind one concrete agent per named role.
type Role string

// Role constants.
const (
	RoleJudge      Role = "judge"
	RoleProsecutor Role = "prosecutor"
	RoleDefense    Role = "defense"
	RoleWitness    Role = "witness"
	RoleBailiff    Role = "bailiff"
)

// Agent is a static catalog entry describing one performer.
type Agent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RoleLabel  string `json:"roleLabel"`
	Archetypes []Role `json:"archetypes"`
}

// EligibleFor reports whether the agent may be cast in the given role.
func (a Agent) EligibleFor(role Role) bool {
	for _, r := range a.Archetypes {
		if r == role {
			return true
		}
	}
	return false
}
