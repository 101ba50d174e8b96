// ABOUTME: Friendly two-word names for picker sessions, derived from the session UUID.
// ABOUTME: Used in log lines so concurrent sessions are easy to tell apart.

package sessionname

import (
	"github.com/google/uuid"
)

var adjectives = []string{
	"bold", "brave", "bright", "calm", "clever",
	"cool", "cosmic", "crisp", "daring", "eager",
	"fair", "fancy", "fast", "gentle", "glad",
	"grand", "happy", "kind", "lively", "lucky",
	"merry", "noble", "proud", "quick", "quiet",
	"rapid", "smart", "solid", "swift", "warm",
	"wise", "witty", "zesty", "agile", "alert",
}

var nouns = []string{
	"bear", "bird", "cat", "deer", "eagle",
	"fish", "fox", "hawk", "lion", "owl",
	"star", "moon", "sun", "wind", "wave",
	"tree", "river", "mountain", "ocean", "cloud",
	"tiger", "wolf", "dragon", "phoenix", "falcon",
	"comet", "galaxy", "planet", "nova", "meteor",
	"forest", "canyon", "valley", "peak", "storm",
}

// Unknown is the name of the nil session ID.
const Unknown = "unknown"

// New returns a fresh random session ID together with its friendly name.
func New() (uuid.UUID, string) {
	id := uuid.New()
	return id, Generate(id)
}

// Generate returns a deterministic "adjective-noun" name for id,
// e.g. "fair-fox" for 73b5e210-ec1a-4294-96e4-c2aecb2e1063.
func Generate(id uuid.UUID) string {
	if id == uuid.Nil {
		return Unknown
	}
	adj := adjectives[int(id[0])%len(adjectives)]
	noun := nouns[int(id[1])%len(nouns)]
	return adj + "-" + noun
}
