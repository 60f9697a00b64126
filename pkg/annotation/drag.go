package annotation

import (
	"errors"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
)

// ErrNotDragging is returned by Drag methods called while idle.
var ErrNotDragging = errors.New("no drag in progress")

// ErrAlreadyDragging is returned by Begin while another drag is active.
var ErrAlreadyDragging = errors.New("drag already in progress")

// Drag is the pointer interaction that moves one annotation:
//
//	Idle -> Begin -> Dragging(id, offset) -> End|Cancel -> Idle
//
// Only End touches the store, through a single UpdateAnchor.
type Drag struct {
	active bool
	id     int
	offset geometry.Point
}

// Dragging reports whether a drag is active and for which id.
func (d *Drag) Dragging() (int, bool) {
	return d.id, d.active
}

// Begin starts dragging annotation id grabbed at pointer.
func (d *Drag) Begin(store *Store, id int, pointer geometry.Point) error {
	if d.active {
		return ErrAlreadyDragging
	}
	a, err := store.Get(id)
	if err != nil {
		return err
	}
	d.active = true
	d.id = id
	d.offset = geometry.Point{X: pointer.X - a.Anchor.X, Y: pointer.Y - a.Anchor.Y}
	return nil
}

// Preview returns where the anchor would land for the current pointer position.
func (d *Drag) Preview(pointer geometry.Point) (geometry.Point, error) {
	if !d.active {
		return geometry.Point{}, ErrNotDragging
	}
	return geometry.Point{X: pointer.X - d.offset.X, Y: pointer.Y - d.offset.Y}, nil
}

// End commits the drag at the release position. The drag is over even when the commit fails,
// for example because the annotation was deleted meanwhile.
func (d *Drag) End(store *Store, pointer geometry.Point) error {
	anchor, err := d.Preview(pointer)
	if err != nil {
		return err
	}
	id := d.id
	d.Cancel()
	return store.UpdateAnchor(id, anchor)
}

// Cancel abandons the drag without touching the store.
func (d *Drag) Cancel() {
	*d = Drag{}
}
