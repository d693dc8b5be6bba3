package worksheet

import (
	"fmt"

	"github.com/TsubasaBE/go-xlsx/cell"
)

// MergeCells merges the range ref ("B2:C3").  The top-left anchor keeps its
// value and style.  Every other cell becomes a Merge placeholder and gets a
// copy of the anchor's current style; later changes to the anchor's style
// are not propagated.
func (ws *Worksheet) MergeCells(ref string) error {
	r, err := cell.ParseRange(ref)
	if err != nil {
		return err
	}
	if err := ws.checkRegion(r); err != nil {
		return err
	}
	anchor := ws.materialize(r.Start)
	r.Each(func(a cell.Address) {
		if a == r.Start {
			return
		}
		c := ws.materialize(a)
		c.Value = cell.Merge{Anchor: r.Start}
		c.Style = anchor.Style
	})
	ws.merges = append(ws.merges, r)
	ws.merged += r.Size()
	return nil
}

// RestoreMerge registers a region read from a file.  Cells keep the styles
// they were stored with; non-anchor cells missing from the file are created
// with the anchor's style.
func (ws *Worksheet) RestoreMerge(r cell.Range) error {
	if err := ws.checkRegion(r); err != nil {
		return err
	}
	anchor := ws.materialize(r.Start)
	r.Each(func(a cell.Address) {
		if a == r.Start {
			return
		}
		if c := ws.lookup(a); c != nil {
			c.Value = cell.Merge{Anchor: r.Start}
			return
		}
		c := ws.materialize(a)
		c.Value = cell.Merge{Anchor: r.Start}
		c.Style = anchor.Style
	})
	ws.merges = append(ws.merges, r)
	ws.merged += r.Size()
	return nil
}

// UnmergeCells removes the region exactly matching ref.  Non-anchor cells
// revert to Null and keep their own style.
func (ws *Worksheet) UnmergeCells(ref string) error {
	r, err := cell.ParseRange(ref)
	if err != nil {
		return err
	}
	i := -1
	for j, m := range ws.merges {
		if m == r {
			i = j
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("worksheet %q: %w: %s", ws.name, ErrNotMerged, r)
	}
	r.Each(func(a cell.Address) {
		if a == r.Start {
			return
		}
		if c := ws.lookup(a); c != nil {
			c.Value = cell.Null{}
		}
	})
	ws.merges = append(ws.merges[:i], ws.merges[i+1:]...)
	ws.merged -= r.Size()
	return nil
}

// Merges returns the merged regions in creation order.
func (ws *Worksheet) Merges() []cell.Range {
	out := make([]cell.Range, len(ws.merges))
	copy(out, ws.merges)
	return out
}

// MergeAt returns the merged region containing a.
func (ws *Worksheet) MergeAt(a cell.Address) (cell.Range, bool) {
	for _, m := range ws.merges {
		if m.Contains(a) {
			return m, true
		}
	}
	return cell.Range{}, false
}

func (ws *Worksheet) checkRegion(r cell.Range) error {
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("worksheet %q: %w: %s outside the sheet grid", ws.name, cell.ErrInvalidRange, r)
	}
	if n := r.Size(); n > MaxMergedCells-ws.merged {
		return fmt.Errorf("worksheet %q: %w: %s covers %d cells, %d of %d already merged",
			ws.name, ErrMergeTooLarge, r, n, ws.merged, MaxMergedCells)
	}
	for _, m := range ws.merges {
		if m.Overlaps(r) {
			return fmt.Errorf("worksheet %q: %w: %s intersects %s", ws.name, ErrOverlap, r, m)
		}
	}
	return nil
}
