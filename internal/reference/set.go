package reference

import (
	"math/big"
	"strings"
)

// Set is the read-only collection of known work-order numbers for one batch.
type Set struct {
	ids map[string]struct{}
}

func NewSet(ids ...string) *Set {
	s := &Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Contains is exact membership of the stored string form.
func (s *Set) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// IsKnown reports whether id is in the set, either exactly as given or, if it parses as
// an integer, as its canonical decimal form. Nothing fuzzier than that.
func IsKnown(id string, set *Set) bool {
	if id == "" || set.Len() == 0 {
		return false
	}
	if set.Contains(id) {
		return true
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(id), 10)
	if !ok {
		return false
	}
	return set.Contains(n.String())
}
