package optimizer

import "sort"

// Stats counts what an optimizer run did.
type Stats struct {
	Methods            int            // bodies driven to a fixed point
	Inlined            int            // call sites replaced by callee bodies
	InstructionsBefore int            // instruction total when Run started
	InstructionsAfter  int            // instruction total when Run finished
	Passes             map[string]int // rewrites per pass name
}

func (s *Stats) record(pass string) {
	s.Passes[pass]++
}

// Fired returns how many rewrites the named pass performed.
func (s Stats) Fired(pass string) int {
	return s.Passes[pass]
}

// PassNames returns the names of passes that fired, sorted.
func (s Stats) PassNames() []string {
	names := make([]string, 0, len(s.Passes))
	for name := range s.Passes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Stats) clone() Stats {
	c := s
	c.Passes = make(map[string]int, len(s.Passes))
	for k, v := range s.Passes {
		c.Passes[k] = v
	}
	return c
}
