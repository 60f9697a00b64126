package annotation

import (
	"fmt"
	"strings"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
)

// OrphanPolicy decides what happens to marks whose page is deleted.
type OrphanPolicy string

const (
	// DropOrphans discards the marks of a deleted page.
	DropOrphans OrphanPolicy = "drop"
	// ReassignOrphans moves them to the page that takes the deleted page's place, or to the
	// new last page when the deleted page was last.
	ReassignOrphans OrphanPolicy = "reassign"
)

// Store is the ordered collection of annotations of one session. Ids are assigned
// monotonically and never reused, so a stale id from a racing UI event can only miss.
//
// Store is not safe for concurrent mutation; the owning session serializes calls.
type Store struct {
	items  []Annotation
	nextID int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// Create appends a new annotation and returns its id.
func (s *Store) Create(page int, kind Kind, anchor geometry.Point, text string, style Style) (int, error) {
	if page < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrWrongKind, kind)
	}
	if err := style.Validate(); err != nil {
		return 0, err
	}
	if kind == Text {
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, ErrEmptyText
		}
	} else {
		text = ""
	}

	id := s.nextID
	s.nextID++
	s.items = append(s.items, Annotation{
		ID:     id,
		Page:   page,
		Kind:   kind,
		Anchor: anchor,
		Text:   text,
		Style:  style,
	})
	return id, nil
}

// CreateRectangle appends a rectangle with an explicit box.
func (s *Store) CreateRectangle(page int, topLeft geometry.Point, box geometry.Size, style Style) (int, error) {
	id, err := s.Create(page, Rectangle, topLeft, "", style)
	if err != nil {
		return 0, err
	}
	if box.Valid() {
		s.items[len(s.items)-1].Extent = box
	}
	return id, nil
}

// Get returns a copy of the annotation with the given id.
func (s *Store) Get(id int) (Annotation, error) {
	i := s.index(id)
	if i < 0 {
		return Annotation{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.items[i], nil
}

// UpdateAnchor moves an annotation.
func (s *Store) UpdateAnchor(id int, anchor geometry.Point) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.items[i].Anchor = anchor
	return nil
}

// UpdateText replaces the text of a Text annotation. Text that is empty after trimming
// deletes the annotation; deleted reports that case.
func (s *Store) UpdateText(id int, text string) (deleted bool, err error) {
	i := s.index(id)
	if i < 0 {
		return false, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if s.items[i].Kind != Text {
		return false, fmt.Errorf("%w: id %d is %v", ErrWrongKind, id, s.items[i].Kind)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.removeAt(i)
		return true, nil
	}
	s.items[i].Text = text
	return false, nil
}

// Delete removes an annotation. Deleting a missing id is a no-op.
func (s *Store) Delete(id int) {
	if i := s.index(id); i >= 0 {
		s.removeAt(i)
	}
}

// ClearAll removes every annotation. Ids keep counting up.
func (s *Store) ClearAll() {
	s.items = nil
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	return len(s.items)
}

// All returns every annotation in creation order.
func (s *Store) All() []Annotation {
	out := make([]Annotation, len(s.items))
	copy(out, s.items)
	return out
}

// ByPage returns the annotations of one logical page in creation order. The slice is built
// fresh on every call.
func (s *Store) ByPage(page int) []Annotation {
	var out []Annotation
	for _, a := range s.items {
		if a.Page == page {
			out = append(out, a)
		}
	}
	return out
}

// HitTest returns the most recently created annotation on page that contains p.
func (s *Store) HitTest(page int, p geometry.Point) (Annotation, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		a := s.items[i]
		if a.Page == page && a.Contains(p) {
			return a, true
		}
	}
	return Annotation{}, false
}

// Remap rewrites the page of every annotation. fn returns the new page, or false to drop the
// annotation. It returns the ids that were dropped.
func (s *Store) Remap(fn func(page int) (int, bool)) []int {
	var dropped []int
	kept := s.items[:0]
	for _, a := range s.items {
		page, ok := fn(a.Page)
		if !ok {
			dropped = append(dropped, a.ID)
			continue
		}
		a.Page = page
		kept = append(kept, a)
	}
	s.items = kept
	return dropped
}

// Clone returns an independent copy of the store, including its id counter.
func (s *Store) Clone() *Store {
	return &Store{items: s.All(), nextID: s.nextID}
}

func (s *Store) index(id int) int {
	for i, a := range s.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.items = append(s.items[:i], s.items[i+1:]...)
}
