package session

import (
	"fmt"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
)

// SetStyle changes the style used for annotations placed from now on.
func (s *Session) SetStyle(style annotation.Style) error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	if err := style.Validate(); err != nil {
		return err
	}
	s.style = style
	return nil
}

// AddAnnotation places a mark on a logical page and returns its id. text is used by Text
// annotations only.
func (s *Session) AddAnnotation(page int, kind annotation.Kind, anchor geometry.Point, text string) (int, error) {
	unlock, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := s.checkPage(page); err != nil {
		return 0, err
	}
	id, err := s.store.Create(page, kind, anchor, text, s.style)
	if err != nil {
		return 0, err
	}
	logger.Debug("annotation added", "id", id, "page", page, "kind", kind)
	return id, nil
}

// AddRectangle places a rectangle with an explicit box.
func (s *Session) AddRectangle(page int, topLeft geometry.Point, box geometry.Size) (int, error) {
	unlock, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := s.checkPage(page); err != nil {
		return 0, err
	}
	return s.store.CreateRectangle(page, topLeft, box, s.style)
}

// MoveAnnotation sets a new anchor.
func (s *Session) MoveAnnotation(id int, anchor geometry.Point) error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()
	return s.store.UpdateAnchor(id, anchor)
}

// EditText replaces the text of a Text annotation. Blank text deletes it, reported by deleted.
func (s *Session) EditText(id int, text string) (deleted bool, err error) {
	unlock, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer unlock()

	deleted, err = s.store.UpdateText(id, text)
	if deleted {
		s.cancelDragOf(id)
		logger.Debug("annotation deleted by empty edit", "id", id)
	}
	return deleted, err
}

// DeleteAnnotation removes an annotation. Unknown ids are ignored.
func (s *Session) DeleteAnnotation(id int) error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	s.store.Delete(id)
	s.cancelDragOf(id)
	return nil
}

// ClearAnnotations removes every annotation.
func (s *Session) ClearAnnotations() error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	s.store.ClearAll()
	s.drag.Cancel()
	return nil
}

// HitTest returns the topmost annotation on page under p.
func (s *Session) HitTest(page int, p geometry.Point) (annotation.Annotation, bool, error) {
	unlock, err := s.acquire()
	if err != nil {
		return annotation.Annotation{}, false, err
	}
	defer unlock()

	a, ok := s.store.HitTest(page, p)
	return a, ok, nil
}

// BeginDrag grabs annotation id at pointer.
func (s *Session) BeginDrag(id int, pointer geometry.Point) error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()
	return s.drag.Begin(s.store, id, pointer)
}

// DragPreview returns where the dragged anchor would land. The store is not touched.
func (s *Session) DragPreview(pointer geometry.Point) (geometry.Point, error) {
	unlock, err := s.acquire()
	if err != nil {
		return geometry.Point{}, err
	}
	defer unlock()
	return s.drag.Preview(pointer)
}

// EndDrag commits the drag at pointer.
func (s *Session) EndDrag(pointer geometry.Point) error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()
	return s.drag.End(s.store, pointer)
}

// CancelDrag abandons a drag in progress.
func (s *Session) CancelDrag() error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	s.drag.Cancel()
	return nil
}

func (s *Session) checkPage(page int) error {
	if page < 1 || page > s.state.Len() {
		return fmt.Errorf("%w: page %d of %d", annotation.ErrInvalidPage, page, s.state.Len())
	}
	return nil
}

func (s *Session) cancelDragOf(id int) {
	if active, ok := s.drag.Dragging(); ok && active == id {
		s.drag.Cancel()
	}
}
