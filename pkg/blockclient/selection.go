package blockclient

import (
	"sort"
	"sync"
)

// Selection tracks the student IDs staff have ticked for a batch assignment.
// After the assignable list is refreshed, Prune drops every selected ID that
// is no longer assignable, so a stale selection can never be submitted.
type Selection struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Add marks a student as selected.
func (s *Selection) Add(studentID string) {
	if studentID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[studentID] = struct{}{}
}

// Remove unmarks a student.
func (s *Selection) Remove(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, studentID)
}

// Has reports whether a student is selected.
func (s *Selection) Has(studentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[studentID]
	return ok
}

// Len reports the selection size.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected student IDs in stable order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// Prune drops every selected ID absent from the refreshed assignable list and
// returns how many were dropped.
func (s *Selection) Prune(refreshed []Student) int {
	assignable := make(map[string]struct{}, len(refreshed))
	for _, student := range refreshed {
		assignable[student.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id := range s.ids {
		if _, ok := assignable[id]; !ok {
			delete(s.ids, id)
			removed++
		}
	}
	return removed
}
