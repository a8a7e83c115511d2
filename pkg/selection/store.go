package selection

import "sort"

// Store holds per-page selection state.
//
// Ids are keyed by the page they were observed on. The same id on two
// different pages is two independent entries.
type Store struct {
	pages map[int]map[string]bool
}

// NewStore creates an empty selection store.
func NewStore() *Store {
	return &Store{
		pages: make(map[int]map[string]bool),
	}
}

// Toggle sets the selection of a single record on a page.
func (s *Store) Toggle(page int, id string, selected bool) {
	s.page(page)[id] = selected
}

// SetPage sets every given id on the page to the same value.
// Entries for ids not in the list are left untouched.
func (s *Store) SetPage(page int, ids []string, selected bool) {
	if len(ids) == 0 {
		return
	}
	entries := s.page(page)
	for _, id := range ids {
		entries[id] = selected
	}
}

// IsSelected reports the stored value, false when the id was never recorded.
func (s *Store) IsSelected(page int, id string) bool {
	return s.pages[page][id]
}

// AllSelected reports whether every visible id on the page is selected.
// An empty page is never "all selected".
func (s *Store) AllSelected(page int, visibleIDs []string) bool {
	if len(visibleIDs) == 0 {
		return false
	}
	entries, ok := s.pages[page]
	if !ok {
		return false
	}
	for _, id := range visibleIDs {
		if !entries[id] {
			return false
		}
	}
	return true
}

// SelectedIDs returns the selected ids recorded for a page, sorted.
func (s *Store) SelectedIDs(page int) []string {
	var ids []string
	for id, selected := range s.pages[page] {
		if selected {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of selected entries across all pages.
func (s *Store) Count() int {
	n := 0
	for _, entries := range s.pages {
		for _, selected := range entries {
			if selected {
				n++
			}
		}
	}
	return n
}

// Pages returns the pages that have any recorded entry, ascending.
func (s *Store) Pages() []int {
	pages := make([]int, 0, len(s.pages))
	for p := range s.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

func (s *Store) page(page int) map[string]bool {
	entries, ok := s.pages[page]
	if !ok {
		entries = make(map[string]bool)
		s.pages[page] = entries
	}
	return entries
}
