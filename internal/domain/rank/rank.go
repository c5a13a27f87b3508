// Package rank selects which waiting party to pair next. Ordering is strict
// FIFO; declared tool overlap is a secondary preference that may promote a
// nearby entry but is bounded so it can never starve the oldest-waiting party.
package rank

// defaultSkipBound caps how many higher-FIFO entries a tool-overlap
// preference may skip before falling back to strict FIFO.
const defaultSkipBound = 2

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithSkipBound sets the maximum number of entries overlap preference may
// skip. Zero disables the preference entirely (pure FIFO).
func WithSkipBound(n int) Option {
	return func(s *Selector) {
		if n >= 0 {
			s.skipBound = n
		}
	}
}

// Selector ranks waiting entries for pairing.
type Selector struct {
	skipBound int
}

// New creates a Selector with the given options.
func New(opts ...Option) *Selector {
	s := &Selector{skipBound: defaultSkipBound}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SkipBound returns the configured fairness skip bound.
func (s *Selector) SkipBound() int {
	return s.skipBound
}

// Pick returns the index in toolSets of the entry to pair with a party
// declaring wantTools. toolSets must be in FIFO order. Only the first
// skipBound+1 entries are considered; among those the largest overlap wins
// and remaining ties resolve to the earliest index. With no overlap anywhere
// the result is index 0, i.e. strict FIFO.
func (s *Selector) Pick(wantTools []string, toolSets [][]string) int {
	if len(toolSets) == 0 {
		return -1
	}
	window := s.skipBound + 1
	if window > len(toolSets) {
		window = len(toolSets)
	}

	best, bestOverlap := 0, Overlap(wantTools, toolSets[0])
	for i := 1; i < window; i++ {
		if o := Overlap(wantTools, toolSets[i]); o > bestOverlap {
			best, bestOverlap = i, o
		}
	}
	return best
}

// Overlap counts distinct tools present in both sets.
func Overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	count := 0
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			count++
		}
	}
	return count
}
