package orchestrator

import "math/rand/v2"

// SelectSpeaker picks the next speaker from participants, excluding the last
// speaker. Each candidate is weighted 1 - recencyPenalty*0.5 + jitter in
// [-0.2, 0.2], where recencyPenalty = speakCount/totalTurns. When every
// weight collapses to zero the pick is uniform among the non-last
// participants. Returns "" only for an empty candidate set.
func SelectSpeaker(rng *rand.Rand, participants []string, lastSpeaker string, speakCounts map[string]int, totalTurns int) string {
	candidates := make([]string, 0, len(participants))
	for _, p := range participants {
		if p != lastSpeaker {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, p := range candidates {
		penalty := 0.0
		if totalTurns > 0 {
			penalty = float64(speakCounts[p]) / float64(totalTurns)
		}
		w := 1 - penalty*0.5 + (rng.Float64()*0.4 - 0.2)
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}

	if total <= 0 {
		return candidates[rng.IntN(len(candidates))]
	}

	roll := rng.Float64() * total
	for i, w := range weights {
		roll -= w
		if roll <= 0 {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}

// SelectFirstSpeaker prefers the coordinator when present, else picks
// uniformly at random.
func SelectFirstSpeaker(rng *rand.Rand, participants []string, coordinator string) string {
	for _, p := range participants {
		if p == coordinator && coordinator != "" {
			return p
		}
	}
	if len(participants) == 0 {
		return ""
	}
	return participants[rng.IntN(len(participants))]
}
