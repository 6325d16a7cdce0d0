package services

// Sequencer assigns the 1-based page index of each page within its
// logical document, in classification order. It is scoped to one batch
// run: page_index is a within-group ordinal, not a global counter, so a
// new batch always restarts numbering.
type Sequencer struct {
	next map[string]int
}

func NewSequencer() *Sequencer {
	return &Sequencer{next: make(map[string]int)}
}

// Next returns 1 the first time a business key is seen and increments
// on each subsequent call for the same key.
func (s *Sequencer) Next(key string) int {
	s.next[key]++
	return s.next[key]
}
