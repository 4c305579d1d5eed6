package orchestrator

import (
	"math/rand/v2"

	"github.com/courtlive/courtd/pkg/models"
)

// RandomEvent is one low-probability courtroom disruption. Instruction is
// the fixed user message handed to the generation client for the extra turn.
type RandomEvent struct {
	Name        string
	Role        models.Role
	Probability float64
	Instruction string
}

// eventCatalog is the stock disruption catalog. Probabilities are per
// witness cycle, so a full session sees at most a couple of these.
var eventCatalog = []RandomEvent{
	{
		Name:        "witness_outburst",
		Role:        models.RoleWitness,
		Probability: 0.06,
		Instruction: "The witness suddenly blurts out something dramatic and off-script. One sentence.",
	},
	{
		Name:        "gallery_disruption",
		Role:        models.RoleBailiff,
		Probability: 0.05,
		Instruction: "The gallery erupts. As the bailiff, restore order in one stern sentence.",
	},
	{
		Name:        "surprise_evidence",
		Role:        models.RoleProsecutor,
		Probability: 0.03,
		Instruction: "Announce a surprise piece of evidence nobody expected. One sentence.",
	},
}

// PickRandomEvent shuffles the catalog and returns the first event whose
// probability exceeds a fresh roll, or nil. At most one event per call.
func PickRandomEvent(rng *rand.Rand) *RandomEvent {
	shuffled := append([]RandomEvent(nil), eventCatalog...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for i := range shuffled {
		if shuffled[i].Probability > rng.Float64() {
			return &shuffled[i]
		}
	}
	return nil
}
