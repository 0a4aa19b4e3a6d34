package subscriber

import (
	"github.com/StudioSol/set"
)

// Set is a set of Telegram chat ids. Iteration follows insertion order so
// persisted files stay stable between runs, but callers must not depend on it.
// Use NewSet; the zero value is not usable.
type Set struct {
	ids *set.LinkedHashSetINT64
}

func NewSet(ids ...int64) *Set {
	s := &Set{ids: set.NewLinkedHashSetINT64()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether the set changed.
func (s *Set) Add(id int64) bool {
	n := s.ids.Length()
	s.ids.Add(id)
	return s.ids.Length() > n
}

// Remove deletes id and reports whether the set changed.
func (s *Set) Remove(id int64) bool {
	n := s.ids.Length()
	s.ids.Remove(id)
	return s.ids.Length() < n
}

// Contains drains the whole iterator; the library's InArray leaves its
// walker goroutine running after an early match.
func (s *Set) Contains(id int64) bool {
	found := false
	for member := range s.ids.Iter() {
		if member == id {
			found = true
		}
	}
	return found
}

func (s *Set) Len() int {
	return s.ids.Length()
}

// IDs returns a copy of the members.
func (s *Set) IDs() []int64 {
	out := make([]int64, 0, s.Len())
	for id := range s.ids.Iter() {
		out = append(out, id)
	}
	return out
}

func (s *Set) Clone() *Set {
	return NewSet(s.IDs()...)
}

// Equal reports whether both sets hold the same members, ignoring order.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	members := make(map[int64]struct{}, other.Len())
	for _, id := range other.IDs() {
		members[id] = struct{}{}
	}
	for _, id := range s.IDs() {
		if _, ok := members[id]; !ok {
			return false
		}
	}
	return true
}
