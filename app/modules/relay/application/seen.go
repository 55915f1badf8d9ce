package relayservice

// SeenSet remembers delivered version keys in insertion order. Once it holds
// more than capacity keys it keeps only the retain most recently inserted.
// It is owned by the relay loop and is not safe for concurrent use.
type SeenSet struct {
	capacity int
	retain   int
	order    []VersionKey
	index    map[VersionKey]struct{}
}

// NewSeenSet creates a set bounded by capacity. retain is clamped to [0, capacity].
func NewSeenSet(capacity, retain int) *SeenSet {
	if capacity < 1 {
		capacity = 1
	}
	if retain < 0 || retain > capacity {
		retain = capacity
	}
	return &SeenSet{
		capacity: capacity,
		retain:   retain,
		order:    make([]VersionKey, 0, capacity+1),
		index:    make(map[VersionKey]struct{}, capacity+1),
	}
}

func (s *SeenSet) Contains(k VersionKey) bool {
	_, ok := s.index[k]
	return ok
}

// Add inserts k and trims the set when it grows past capacity.
func (s *SeenSet) Add(k VersionKey) {
	if s.Contains(k) {
		return
	}
	s.order = append(s.order, k)
	s.index[k] = struct{}{}
	if len(s.order) > s.capacity {
		s.trim()
	}
}

func (s *SeenSet) Len() int { return len(s.order) }

func (s *SeenSet) trim() {
	drop := len(s.order) - s.retain
	for _, k := range s.order[:drop] {
		delete(s.index, k)
	}
	kept := make([]VersionKey, s.retain, s.capacity+1)
	copy(kept, s.order[drop:])
	s.order = kept
}
