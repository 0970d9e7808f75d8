package reconcile

import (
	"github.com/rs/zerolog"

	"github.com/kittclouds/scriptorium/pkg/diff"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

const (
	levelElement = "element"
	levelItem    = "item"
)

// run is the state of a single reconciliation call.
type run struct {
	engine  *Engine
	instant int64
	log     zerolog.Logger

	// ids maps caller item ids to stored item ids.
	ids map[int64]int64
	// callerIDs holds every non-zero item id of the incoming batch.
	callerIDs map[int64]bool
	// owner maps stored item ids touched in this call to their element.
	owner map[int64]int64

	pending []pendingRef
	res     *Result
}

// pendingRef is a target or reference that pointed at a caller id not yet
// mapped when its row was written. Exactly one of item and element is set;
// ref is the value as given by the caller.
type pendingRef struct {
	item    *transcription.Item
	element *transcription.Element
	ref     int64
}

// sameElement is the element equality used for diffing. References of
// addition and substitution elements are compared after remapping, so
// they are left out here.
func sameElement(a, b *transcription.Element) bool {
	if a.Type.CarriesReference() && b.Type.CarriesReference() {
		x := *a
		x.Reference = b.Reference
		return x.SameContent(b)
	}
	return a.SameContent(b)
}

// sameItem is the item equality used for diffing. Addition targets are
// compared after remapping.
func sameItem(a, b *transcription.Item) bool {
	if a.Type == transcription.ItemAddition && b.Type == transcription.ItemAddition {
		x := *a
		x.Target = b.Target
		return x.SameContent(b)
	}
	return a.SameContent(b)
}

// column applies the element-level edit script.
func (r *run) column(old, incoming []*transcription.Element) error {
	r.res.ElementIDs = make([]int64, len(incoming))
	script := diff.EditScript(old, incoming, sameElement)

	for _, in := range script {
		r.engine.metrics.Op(levelElement, in.Op.String())
		switch in.Op {
		case diff.Keep:
			if err := r.keepElement(old[in.Index], incoming[in.Seq], in.Seq); err != nil {
				return err
			}
			r.res.Elements.Kept++
		case diff.Delete:
			if err := r.deleteElement(old[in.Index]); err != nil {
				return err
			}
			r.res.Elements.Deleted++
		case diff.Insert:
			if err := r.insertElement(incoming[in.Index], in.Seq); err != nil {
				return err
			}
			r.res.Elements.Inserted++
		}
	}
	return nil
}

func (r *run) keepElement(old, next *transcription.Element, seq int) error {
	r.res.ElementIDs[seq] = old.ID
	r.log.Debug().Int64("element_id", old.ID).Int("seq", seq).Msg("keeping element")

	row := *old
	row.Items = nil
	dirty := false
	if row.Seq != seq {
		row.Seq = seq
		dirty = true
	}
	if row.Type.CarriesReference() {
		ref, ok, err := r.resolve(next.Reference)
		if err != nil {
			return err
		}
		if !ok {
			r.pending = append(r.pending, pendingRef{element: &row, ref: next.Reference})
		} else if ref != row.Reference {
			row.Reference = ref
			dirty = true
		}
	}

	changed, err := r.items(old.ID, old.Items, next.Items)
	if err != nil {
		return err
	}
	if changed && next.EditorID != row.EditorID {
		r.log.Debug().Int64("element_id", old.ID).Int64("editor_id", next.EditorID).Msg("changes by new editor")
		row.EditorID = next.EditorID
		dirty = true
	}
	if dirty {
		if err := r.engine.store.UpdateElement(&row, r.instant); err != nil {
			return transcription.Storage("update element", err)
		}
		r.res.Writes++
	}
	return nil
}

func (r *run) deleteElement(old *transcription.Element) error {
	r.log.Debug().Int64("element_id", old.ID).Msg("deleting element")
	if _, err := r.engine.store.CloseElement(old.ID, r.instant); err != nil {
		return transcription.Storage("close element", err)
	}
	r.res.Writes++
	for _, it := range old.Items {
		if _, err := r.engine.store.CloseItem(it.ID, r.instant); err != nil {
			return transcription.Storage("close item", err)
		}
		r.res.Writes++
		r.res.Items.Deleted++
	}
	return nil
}

func (r *run) insertElement(next *transcription.Element, seq int) error {
	row := *next
	row.ID = 0
	row.Seq = seq
	row.Items = nil

	var deferred bool
	if row.Type.CarriesReference() {
		ref, ok, err := r.resolve(next.Reference)
		if err != nil {
			return err
		}
		row.Reference = ref
		deferred = !ok
	}

	if _, err := r.engine.store.CreateElement(&row, r.instant); err != nil {
		return transcription.Storage("create element", err)
	}
	r.res.Writes++
	r.res.ElementIDs[seq] = row.ID
	if deferred {
		r.pending = append(r.pending, pendingRef{element: &row, ref: next.Reference})
	}
	r.log.Debug().Int64("element_id", row.ID).Int("seq", seq).Msg("inserted element")

	for j, it := range next.Items {
		if err := r.insertItem(row.ID, it, j); err != nil {
			return err
		}
	}
	return nil
}

// items applies the item-level edit script of one element. It reports
// whether any item was deleted or inserted.
func (r *run) items(elementID int64, old, incoming []*transcription.Item) (bool, error) {
	changed := false
	script := diff.EditScript(old, incoming, sameItem)

	for _, in := range script {
		r.engine.metrics.Op(levelItem, in.Op.String())
		switch in.Op {
		case diff.Keep:
			if err := r.keepItem(elementID, old[in.Index], incoming[in.Seq], in.Seq); err != nil {
				return false, err
			}
			r.res.Items.Kept++
		case diff.Delete:
			if _, err := r.engine.store.CloseItem(old[in.Index].ID, r.instant); err != nil {
				return false, transcription.Storage("close item", err)
			}
			r.res.Writes++
			r.res.Items.Deleted++
			changed = true
		case diff.Insert:
			if err := r.insertItem(elementID, incoming[in.Index], in.Seq); err != nil {
				return false, err
			}
			changed = true
		}
	}
	return changed, nil
}

func (r *run) keepItem(elementID int64, old, next *transcription.Item, seq int) error {
	row := *old
	dirty := false
	if row.Seq != seq {
		row.Seq = seq
		dirty = true
	}
	if row.Type == transcription.ItemAddition {
		ref, ok, err := r.resolve(next.Target)
		if err != nil {
			return err
		}
		if !ok {
			r.pending = append(r.pending, pendingRef{item: &row, ref: next.Target})
		} else if ref != row.Target {
			r.log.Debug().Int64("item_id", row.ID).Int64("target", ref).Msg("addition retargeted")
			row.Target = ref
			dirty = true
		}
	}
	if dirty {
		if err := r.engine.store.UpdateItem(&row, r.instant); err != nil {
			return transcription.Storage("update item", err)
		}
		r.res.Writes++
	}
	r.record(next.ID, row.ID, elementID)
	return nil
}

func (r *run) insertItem(elementID int64, next *transcription.Item, seq int) error {
	callerID := next.ID
	row := *next
	row.ID = 0
	row.ElementID = elementID
	row.Seq = seq

	var deferred bool
	if row.Type == transcription.ItemAddition {
		ref, ok, err := r.resolve(next.Target)
		if err != nil {
			return err
		}
		row.Target = ref
		deferred = !ok
	}

	if _, err := r.engine.store.CreateItem(&row, r.instant); err != nil {
		return transcription.Storage("create item", err)
	}
	r.res.Writes++
	r.res.Items.Inserted++
	if deferred {
		r.pending = append(r.pending, pendingRef{item: &row, ref: next.Target})
	}
	r.record(callerID, row.ID, elementID)
	return nil
}

func (r *run) record(callerID, storedID, elementID int64) {
	r.owner[storedID] = elementID
	if callerID == 0 {
		return
	}
	r.ids[callerID] = storedID
	r.res.ItemIDs[callerID] = storedID
}

// resolve maps a target or reference to a stored item id. A caller id of
// the batch resolves only once it has been mapped; any other value must
// name a live stored item. Zero always resolves to itself.
func (r *run) resolve(ref int64) (int64, bool, error) {
	if ref == 0 {
		return 0, true, nil
	}
	if id, ok := r.ids[ref]; ok {
		return id, true, nil
	}
	if r.callerIDs[ref] {
		return ref, false, nil
	}
	ok, err := r.engine.store.ItemExists(ref, r.instant)
	if err != nil {
		return 0, false, transcription.Storage("lookup item", err)
	}
	return ref, ok, nil
}

// fixup rewrites references that were pending when their rows were
// written. What still cannot be resolved is reported and kept as given.
func (r *run) fixup() error {
	for _, p := range r.pending {
		stored, ok := r.ids[p.ref]
		switch {
		case p.item != nil:
			if !ok {
				r.warn("item", p.item.ID, p.ref, "addition target not found")
				stored = p.ref
			}
			if stored == p.item.Target {
				continue
			}
			p.item.Target = stored
			if err := r.engine.store.UpdateItem(p.item, r.instant); err != nil {
				return transcription.Storage("update item", err)
			}
		case p.element != nil:
			switch {
			case !ok:
				r.warn("element", p.element.ID, p.ref, "element reference not found")
				stored = p.ref
			case r.owner[stored] == p.element.ID:
				r.warn("element", p.element.ID, p.ref, "element references one of its own items")
				stored = p.ref
			}
			if stored == p.element.Reference {
				continue
			}
			p.element.Reference = stored
			if err := r.engine.store.UpdateElement(p.element, r.instant); err != nil {
				return transcription.Storage("update element", err)
			}
		}
		r.res.Writes++
	}
	return nil
}

func (r *run) warn(kind string, id, ref int64, msg string) {
	w := transcription.ReferentialWarning{Kind: kind, ID: id, Ref: ref, Message: msg}
	r.res.Warnings = append(r.res.Warnings, w)
	r.engine.metrics.Warning()

	ev := r.log.Warn()
	if kind == "item" {
		ev = ev.Int64("item_id", id).Int64("target", ref)
	} else {
		ev = ev.Int64("element_id", id).Int64("reference", ref)
	}
	ev.Msg(msg)
}
