package llm

import (
	"context"
	"math/rand/v2"
	"regexp"
	"sync"
)

// mockBucket pairs a topic matcher with its phrase list. Buckets are scanned
// in order; the first match wins, with the default bucket as catch-all.
type mockBucket struct {
	name    string
	matcher *regexp.Regexp
	phrases []string
}

var mockBuckets = []mockBucket{
	{
		name:    "opening",
		matcher: regexp.MustCompile(`(?i)opening`),
		phrases: []string{
			"Ladies and gentlemen, the evidence will show a truth stranger than any of us expected.",
			"Your honor, what happened here is simple, and by the end of this trial it will be obvious.",
			"Members of the jury, keep one question in mind: who benefits?",
		},
	},
	{
		name:    "witness",
		matcher: regexp.MustCompile(`(?i)witness`),
		phrases: []string{
			"I saw the whole thing with my own two eyes, and I'll never forget it.",
			"Honestly, it all happened so fast. One minute everything was normal, the next — chaos.",
			"I remember it clearly because it was the same day my parking spot got repainted.",
		},
	},
	{
		name:    "closing",
		matcher: regexp.MustCompile(`(?i)closing`),
		phrases: []string{
			"When you weigh everything you've heard, only one conclusion remains.",
			"The other side has given you a story. We have given you the facts.",
			"Justice asks very little of you today: only that you trust what you saw.",
		},
	},
	{
		name:    "ruling",
		matcher: regexp.MustCompile(`(?i)ruling|verdict`),
		phrases: []string{
			"Having weighed the arguments and the will of the gallery, this court now rules.",
			"Order. The court has reached its decision and will tolerate no outbursts.",
		},
	},
	{
		name:    "default",
		matcher: regexp.MustCompile(``),
		phrases: []string{
			"Let the record reflect that counsel's point is noted.",
			"Proceed. The court is listening.",
			"That is a question for the jury to weigh.",
		},
	},
}

// MockGenerator is the deterministic offline provider. The bucket is chosen
// by matching the latest user message; the phrase inside the bucket is drawn
// uniformly from the injected random source.
type MockGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockGenerator creates a mock with a time-seeded random source.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewMockGeneratorWithRand creates a mock with an injected random source so
// tests are deterministic.
func NewMockGeneratorWithRand(rng *rand.Rand) *MockGenerator {
	return &MockGenerator{rng: rng}
}

// Generate returns a phrase from the bucket matching the latest user
// message. Always non-empty; never errors.
func (m *MockGenerator) Generate(_ context.Context, req Request) string {
	prompt := LatestUserMessage(req.Messages)
	bucket := mockBuckets[len(mockBuckets)-1]
	for _, b := range mockBuckets {
		if b.matcher.MatchString(prompt) {
			bucket = b
			break
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return bucket.phrases[m.rng.IntN(len(bucket.phrases))]
}
