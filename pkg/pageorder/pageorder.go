// Package pageorder models the logical page sequence of an editing session as a permutation of
// the immutable source pages, plus per-page rotation and inserted blank pages.
//
// All page numbers in this package are 1-based logical positions. Operations never modify
// their receiver; they return a new State or an error, so a rejected operation leaves the
// caller's state untouched.
package pageorder

import (
	"errors"
	"fmt"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
)

var (
	// ErrInvalidRange is returned when page arguments are out of bounds or inconsistent.
	ErrInvalidRange = errors.New("invalid page range")
	// ErrInvalidSplitPoint is returned by SplitAt for k outside [1, length).
	ErrInvalidSplitPoint = errors.New("invalid split point")
	// ErrInvalidRotation is returned for rotations that are not a multiple of 90 degrees.
	ErrInvalidRotation = errors.New("invalid rotation")
	// ErrInvalidSize is returned for blank pages without a positive width and height.
	ErrInvalidSize = errors.New("invalid page size")
)

// PageRef is one entry of the logical sequence: either a source page or a blank page.
type PageRef struct {
	// SourceIndex is the 0-based page index in the source document, -1 for blank pages.
	SourceIndex int
	// Rotation in degrees, normalized to [0,360).
	Rotation int
	// Blank marks an inserted blank page of Size.
	Blank bool
	Size  geometry.Size

	slot int
}

// Blank returns a blank page reference of the given size.
func Blank(size geometry.Size) PageRef {
	return PageRef{SourceIndex: -1, Blank: true, Size: size}
}

func (r PageRef) String() string {
	if r.Blank {
		return fmt.Sprintf("blank(%gx%g)@%d", r.Size.Width, r.Size.Height, r.Rotation)
	}
	return fmt.Sprintf("src%d@%d", r.SourceIndex, r.Rotation)
}

// State is an ordered sequence of page references.
type State struct {
	refs        []PageRef
	sourceCount int
	nextSlot    int
}

// New returns the identity order for a freshly loaded document. rotations holds the stored
// rotation of each source page and may be nil.
func New(pageCount int, rotations []int) (State, error) {
	if pageCount < 1 {
		return State{}, fmt.Errorf("%w: document has %d pages", ErrInvalidRange, pageCount)
	}
	if rotations != nil && len(rotations) != pageCount {
		return State{}, fmt.Errorf("%w: %d rotations for %d pages", ErrInvalidRange, len(rotations), pageCount)
	}

	s := State{refs: make([]PageRef, pageCount), sourceCount: pageCount}
	for i := range s.refs {
		rot := 0
		if rotations != nil {
			if rotations[i]%90 != 0 {
				return State{}, fmt.Errorf("%w: page %d has rotation %d", ErrInvalidRotation, i+1, rotations[i])
			}
			rot = geometry.NormalizeRotation(rotations[i])
		}
		s.refs[i] = PageRef{SourceIndex: i, Rotation: rot, slot: s.nextSlot}
		s.nextSlot++
	}
	return s, nil
}

// Len returns the current logical page count.
func (s State) Len() int {
	return len(s.refs)
}

// SourceCount returns the page count of the source document the state was created from.
func (s State) SourceCount() int {
	return s.sourceCount
}

// At returns the reference at a logical page.
func (s State) At(page int) (PageRef, error) {
	if err := s.checkPage(page); err != nil {
		return PageRef{}, err
	}
	return s.refs[page-1], nil
}

// Pages returns a copy of the sequence.
func (s State) Pages() []PageRef {
	out := make([]PageRef, len(s.refs))
	copy(out, s.refs)
	return out
}

// SourceIndices returns the source index of every non-blank page, in logical order.
func (s State) SourceIndices() []int {
	var out []int
	for _, r := range s.refs {
		if !r.Blank {
			out = append(out, r.SourceIndex)
		}
	}
	return out
}

// HasBlanks reports whether any blank page is part of the sequence.
func (s State) HasBlanks() bool {
	for _, r := range s.refs {
		if r.Blank {
			return true
		}
	}
	return false
}

// Validate checks that source indices are in range and not duplicated.
func (s State) Validate() error {
	seen := make(map[int]bool, len(s.refs))
	for i, r := range s.refs {
		if r.Blank {
			if !r.Size.Valid() {
				return fmt.Errorf("%w: blank page %d", ErrInvalidSize, i+1)
			}
			continue
		}
		if r.SourceIndex < 0 || r.SourceIndex >= s.sourceCount {
			return fmt.Errorf("%w: page %d references source %d of %d", ErrInvalidRange, i+1, r.SourceIndex, s.sourceCount)
		}
		if seen[r.SourceIndex] {
			return fmt.Errorf("%w: source page %d appears twice", ErrInvalidRange, r.SourceIndex)
		}
		seen[r.SourceIndex] = true
	}
	return nil
}

// Move extracts pages [from, to], removes them and re-inserts them so that they begin at
// insertAt as measured in the sequence after removal. insertAt may be at most Len()+1;
// positions past the end of the shortened sequence append.
func (s State) Move(from, to, insertAt int) (State, error) {
	n := len(s.refs)
	if from < 1 || from > to || to > n {
		return State{}, fmt.Errorf("%w: move %d-%d of %d pages", ErrInvalidRange, from, to, n)
	}
	if insertAt < 1 || insertAt > n+1 {
		return State{}, fmt.Errorf("%w: insert position %d of %d pages", ErrInvalidRange, insertAt, n)
	}

	chunk := s.refs[from-1 : to]
	rest := make([]PageRef, 0, n-len(chunk))
	rest = append(rest, s.refs[:from-1]...)
	rest = append(rest, s.refs[to:]...)

	at := insertAt - 1
	if at > len(rest) {
		at = len(rest)
	}
	refs := make([]PageRef, 0, n)
	refs = append(refs, rest[:at]...)
	refs = append(refs, chunk...)
	refs = append(refs, rest[at:]...)
	return s.with(refs), nil
}

// Swap exchanges two logical pages. Swapping a page with itself is a no-op.
func (s State) Swap(a, b int) (State, error) {
	if err := s.checkPage(a); err != nil {
		return State{}, err
	}
	if err := s.checkPage(b); err != nil {
		return State{}, err
	}
	refs := s.Pages()
	refs[a-1], refs[b-1] = refs[b-1], refs[a-1]
	return s.with(refs), nil
}

// Rotate adds delta degrees to a page's rotation.
func (s State) Rotate(page, delta int) (State, error) {
	if err := s.checkPage(page); err != nil {
		return State{}, err
	}
	if delta%90 != 0 {
		return State{}, fmt.Errorf("%w: %d degrees", ErrInvalidRotation, delta)
	}
	refs := s.Pages()
	refs[page-1].Rotation = geometry.NormalizeRotation(refs[page-1].Rotation + delta)
	return s.with(refs), nil
}

// Delete removes a logical page. Every later page moves down by one. The last remaining page
// cannot be deleted.
func (s State) Delete(page int) (State, error) {
	if err := s.checkPage(page); err != nil {
		return State{}, err
	}
	if len(s.refs) == 1 {
		return State{}, fmt.Errorf("%w: cannot delete the only page", ErrInvalidRange)
	}
	refs := make([]PageRef, 0, len(s.refs)-1)
	refs = append(refs, s.refs[:page-1]...)
	refs = append(refs, s.refs[page:]...)
	return s.with(refs), nil
}

// InsertBlank inserts a blank page right after afterPage. afterPage 0 inserts in front.
func (s State) InsertBlank(afterPage int, size geometry.Size) (State, error) {
	if afterPage < 0 || afterPage > len(s.refs) {
		return State{}, fmt.Errorf("%w: insert after page %d of %d", ErrInvalidRange, afterPage, len(s.refs))
	}
	if !size.Valid() {
		return State{}, fmt.Errorf("%w: %vx%v", ErrInvalidSize, size.Width, size.Height)
	}

	ref := Blank(size)
	ref.slot = s.nextSlot

	refs := make([]PageRef, 0, len(s.refs)+1)
	refs = append(refs, s.refs[:afterPage]...)
	refs = append(refs, ref)
	refs = append(refs, s.refs[afterPage:]...)

	out := s.with(refs)
	out.nextSlot++
	return out, nil
}

// SplitAt returns two independent states holding pages [1..k] and [k+1..Len()].
func (s State) SplitAt(k int) (State, State, error) {
	if k < 1 || k >= len(s.refs) {
		return State{}, State{}, fmt.Errorf("%w: %d for %d pages", ErrInvalidSplitPoint, k, len(s.refs))
	}
	return s.slice(0, k), s.slice(k, len(s.refs)), nil
}

// ExtractRange returns a new state holding exactly pages [from, to].
func (s State) ExtractRange(from, to int) (State, error) {
	if from < 1 || from > to || to > len(s.refs) {
		return State{}, fmt.Errorf("%w: extract %d-%d of %d pages", ErrInvalidRange, from, to, len(s.refs))
	}
	return s.slice(from-1, to), nil
}

// Concat appends other after s. Both must come from the same source document.
func Concat(s, other State) (State, error) {
	if s.sourceCount != other.sourceCount {
		return State{}, fmt.Errorf("%w: states of different documents", ErrInvalidRange)
	}
	refs := make([]PageRef, 0, len(s.refs)+len(other.refs))
	refs = append(refs, s.refs...)
	out := s.with(refs)
	// slots of other may collide with ours, so its pages get fresh ones
	out.nextSlot = max(s.nextSlot, other.nextSlot)
	for _, r := range other.refs {
		r.slot = out.nextSlot
		out.nextSlot++
		out.refs = append(out.refs, r)
	}
	if err := out.Validate(); err != nil {
		return State{}, err
	}
	return out, nil
}

// PositionMap relates the logical positions of before to the ones in after, following each
// page through whatever operations produced after. Pages missing in after are absent from the
// map.
func PositionMap(before, after State) map[int]int {
	index := make(map[int]int, len(after.refs))
	for i, r := range after.refs {
		index[r.slot] = i + 1
	}
	out := make(map[int]int, len(before.refs))
	for i, r := range before.refs {
		if pos, ok := index[r.slot]; ok {
			out[i+1] = pos
		}
	}
	return out
}

// Equal reports whether both states show the same pages in the same order. Page identity
// used by PositionMap is not compared.
func Equal(a, b State) bool {
	if len(a.refs) != len(b.refs) {
		return false
	}
	for i := range a.refs {
		x, y := a.refs[i], b.refs[i]
		x.slot, y.slot = 0, 0
		if x != y {
			return false
		}
	}
	return true
}

func (s State) checkPage(page int) error {
	if page < 1 || page > len(s.refs) {
		return fmt.Errorf("%w: page %d of %d", ErrInvalidRange, page, len(s.refs))
	}
	return nil
}

func (s State) slice(lo, hi int) State {
	refs := make([]PageRef, hi-lo)
	copy(refs, s.refs[lo:hi])
	return s.with(refs)
}

func (s State) with(refs []PageRef) State {
	return State{refs: refs, sourceCount: s.sourceCount, nextSlot: s.nextSlot}
}
