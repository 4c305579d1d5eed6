package models

import "encoding/json"

// Tally is an ordered vote counter. Choices keep their insertion order so
// that argmax tie-breaks are deterministic; JSON objects and Go maps do not
// guarantee iteration order, so the order is tracked alongside the counts.
type Tally struct {
	counts map[string]int
	order  []string
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// TallyFromPairs rebuilds a tally from ordered (choice, count) pairs, as
// produced by Pairs. Used by the relational backend when rehydrating rows.
func TallyFromPairs(pairs []TallyPair) *Tally {
	t := NewTally()
	for _, p := range pairs {
		t.counts[p.Choice] = p.Count
		t.order = append(t.order, p.Choice)
	}
	return t
}

// TallyPair is one (choice, count) entry of a tally, in insertion order.
type TallyPair struct {
	Choice string `json:"choice"`
	Count  int    `json:"count"`
}

// Increment adds one vote for choice, registering it on first sight.
func (t *Tally) Increment(choice string) {
	if _, ok := t.counts[choice]; !ok {
		t.order = append(t.order, choice)
	}
	t.counts[choice]++
}

// Get returns the count for a choice (zero when absent).
func (t *Tally) Get(choice string) int { return t.counts[choice] }

// Total returns the sum of all counts.
func (t *Tally) Total() int {
	total := 0
	for _, c := range t.counts {
		total += c
	}
	return total
}

// Len returns the number of distinct choices seen.
func (t *Tally) Len() int { return len(t.counts) }

// Counts returns a copy of the counts as a plain map.
func (t *Tally) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Pairs returns the counts as ordered pairs, preserving insertion order.
func (t *Tally) Pairs() []TallyPair {
	out := make([]TallyPair, 0, len(t.order))
	for _, choice := range t.order {
		out = append(out, TallyPair{Choice: choice, Count: t.counts[choice]})
	}
	return out
}

// Argmax returns the choice with the highest count. Ties break toward the
// earliest-inserted choice. Returns fallback when the tally is empty.
func (t *Tally) Argmax(fallback string) string {
	best := fallback
	bestCount := -1
	for _, choice := range t.order {
		if t.counts[choice] > bestCount {
			best = choice
			bestCount = t.counts[choice]
		}
	}
	return best
}

// Clone returns a deep copy.
func (t *Tally) Clone() *Tally {
	if t == nil {
		return nil
	}
	out := &Tally{
		counts: make(map[string]int, len(t.counts)),
		order:  append([]string(nil), t.order...),
	}
	for k, v := range t.counts {
		out.counts[k] = v
	}
	return out
}

// MarshalJSON renders the tally as a plain {choice: count} object, which is
// the wire shape vote_updated payloads carry.
func (t *Tally) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Counts())
}

// UnmarshalJSON rebuilds a tally from a {choice: count} object. Insertion
// order is not recoverable from JSON; backends needing order persist Pairs.
func (t *Tally) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	t.counts = make(map[string]int, len(m))
	t.order = t.order[:0]
	for k, v := range m {
		t.counts[k] = v
		t.order = append(t.order, k)
	}
	return nil
}
