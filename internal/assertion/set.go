package assertion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Set is a collection of assertions unique by target id. Sets are values:
// every operation returns a new Set and leaves its inputs untouched.
type Set struct {
	items map[uuid.UUID]Assertion
}

// NewSet builds a Set from assertions in order. Assertions sharing an id are
// combined, later ones taking precedence.
func NewSet(as ...Assertion) Set {
	return Set{}.With(as...)
}

// With returns s with as combined onto it in order.
func (s Set) With(as ...Assertion) Set {
	if len(as) == 0 {
		return s
	}
	out := make(map[uuid.UUID]Assertion, len(s.items)+len(as))
	for id, a := range s.items {
		out[id] = a
	}
	for _, a := range as {
		if prev, ok := out[a.ID]; ok {
			out[a.ID] = Combine(prev, a)
			continue
		}
		out[a.ID] = a
	}
	return Set{items: out}
}

// Len returns the number of assertions in the set.
func (s Set) Len() int {
	return len(s.items)
}

// IsEmpty reports whether the set holds no assertions.
func (s Set) IsEmpty() bool {
	return len(s.items) == 0
}

// Get returns the assertion targeting id.
func (s Set) Get(id uuid.UUID) (Assertion, bool) {
	a, ok := s.items[id]
	return a, ok
}

// All returns the assertions ordered by kind, then id.
func (s Set) All() []Assertion {
	out := make([]Assertion, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Assertion) int {
		if c := kindRank(a.Kind) - kindRank(b.Kind); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out
}

// OfKind returns the assertions targeting kind, ordered by id.
func (s Set) OfKind(kind Kind) []Assertion {
	var out []Assertion
	for _, a := range s.All() {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Filter returns the assertions for which keep returns true.
func (s Set) Filter(keep func(Assertion) bool) Set {
	out := make(map[uuid.UUID]Assertion, len(s.items))
	for id, a := range s.items {
		if keep(a) {
			out[id] = a
		}
	}
	return Set{items: out}
}

// KindCount returns how many distinct entity kinds the set touches.
func (s Set) KindCount() int {
	seen := make(map[Kind]struct{}, len(Kinds))
	for _, a := range s.items {
		seen[a.Kind] = struct{}{}
	}
	return len(seen)
}

// Union combines two sets, right taking precedence. Ids present in only one
// set pass through unchanged.
func Union(left, right Set) Set {
	if left.IsEmpty() {
		return right
	}
	if right.IsEmpty() {
		return left
	}
	out := make(map[uuid.UUID]Assertion, len(left.items)+len(right.items))
	for id, a := range left.items {
		out[id] = a
	}
	for id, r := range right.items {
		if l, ok := out[id]; ok {
			out[id] = Combine(l, r)
			continue
		}
		out[id] = r
	}
	return Set{items: out}
}

// Flatten unions an ordered list of sets into one, later sets winning
// conflicts. The list is split in half and each half flattened
// recursively, so the result equals a left-to-right fold of Union.
func Flatten(sets []Set) Set {
	switch len(sets) {
	case 0:
		return Set{}
	case 1:
		return sets[0]
	}
	mid := len(sets) / 2
	return Union(Flatten(sets[:mid]), Flatten(sets[mid:]))
}

// MarshalJSON encodes the set as an array ordered like All.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.All())
}

// UnmarshalJSON decodes an array of assertions. Duplicate ids and
// assertions whose payload does not match their tag are rejected.
func (s *Set) UnmarshalJSON(data []byte) error {
	var as []Assertion
	if err := json.Unmarshal(data, &as); err != nil {
		return err
	}
	items := make(map[uuid.UUID]Assertion, len(as))
	for i, a := range as {
		if !a.Valid() {
			return fmt.Errorf("assertion %d (%s): payload does not match tag", i, a)
		}
		if _, dup := items[a.ID]; dup {
			return fmt.Errorf("assertion %d: duplicate id %s", i, a.ID)
		}
		items[a.ID] = a
	}
	s.items = items
	return nil
}

func kindRank(k Kind) int {
	return slices.Index(Kinds, k)
}
