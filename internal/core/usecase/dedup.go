package usecase

// Decision is the dedup gate's verdict for one normalized record.
type Decision int

const (
	Accept Decision = iota
	Duplicate
	// Conflict is reserved for identifier collisions with materially
	// different metadata. The gate never produces it today, but the
	// contract keeps room for it.
	Conflict
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Duplicate:
		return "duplicate"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Gate decides whether an incoming record is new for a project. It is
// seeded with the project's already-accepted identifiers and also tracks
// identifiers accepted earlier in the same batch, so in-batch duplicates
// are caught before any storage round-trip. The storage layer's
// store-if-absent constraint remains the backstop for concurrent batches.
type Gate struct {
	seen map[string]struct{}
}

func NewGate(existing map[string]struct{}) *Gate {
	seen := make(map[string]struct{}, len(existing))
	for id := range existing {
		seen[id] = struct{}{}
	}
	return &Gate{seen: seen}
}

// Decide applies the skip-on-duplicate policy: identical identifiers are
// discarded silently and only counted.
func (g *Gate) Decide(sourceID string) Decision {
	if _, dup := g.seen[sourceID]; dup {
		return Duplicate
	}
	g.seen[sourceID] = struct{}{}
	return Accept
}
