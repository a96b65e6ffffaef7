// Package status turns CHZZK live-status and live-detail responses into
// immutable snapshots the recorder reasons about.
package status

import "github.com/ManuGH/ellier/internal/chzzk"

// Category describes what is being broadcast. Every part is optional.
type Category struct {
	Type  *string // e.g. "GAME"
	ID    *string // e.g. "League_of_Legends"
	Value string  // display value, e.g. "League of Legends"
}

// Equal reports structural equality.
func (c Category) Equal(o Category) bool {
	return eqPtr(c.Type, o.Type) && eqPtr(c.ID, o.ID) && c.Value == o.Value
}

// Label is the human readable category: the ID when present, else the value.
func (c Category) Label() string {
	if c.ID != nil && *c.ID != "" {
		return *c.ID
	}
	return c.Value
}

// Snapshot is one observation of a channel's broadcast state.
type Snapshot struct {
	Title    string
	Category Category
	Adult    bool
	Open     bool
}

// Equal reports structural equality.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Title == o.Title && s.Category.Equal(o.Category) && s.Adult == o.Adult && s.Open == o.Open
}

// FromLiveStatus builds a snapshot from a polling response.
func FromLiveStatus(ls *chzzk.LiveStatus) Snapshot {
	if ls == nil {
		return Snapshot{}
	}
	return Snapshot{
		Title:    ls.LiveTitle,
		Category: Category{Type: clone(ls.CategoryType), ID: clone(ls.LiveCategory), Value: ls.LiveCategoryValue},
		Adult:    ls.Adult,
		Open:     ls.Status == chzzk.StatusOpen,
	}
}

// FromLiveDetail builds a snapshot from a live-detail response.
func FromLiveDetail(ld *chzzk.LiveDetail) Snapshot {
	if ld == nil {
		return Snapshot{}
	}
	return Snapshot{
		Title:    ld.LiveTitle,
		Category: Category{Type: clone(ld.CategoryType), ID: clone(ld.LiveCategory), Value: ld.LiveCategoryValue},
		Adult:    ld.Adult,
		Open:     ld.Status == chzzk.StatusOpen,
	}
}

// ChangeSet lists which metadata fields differ between two snapshots.
type ChangeSet struct {
	TitleChanged    bool
	AdultChanged    bool
	CategoryChanged bool
}

// Any reports whether at least one field changed.
func (c ChangeSet) Any() bool {
	return c.TitleChanged || c.AdultChanged || c.CategoryChanged
}

// Kinds returns the names of the changed fields, for logs and metrics.
func (c ChangeSet) Kinds() []string {
	var out []string
	if c.TitleChanged {
		out = append(out, "title")
	}
	if c.AdultChanged {
		out = append(out, "adult")
	}
	if c.CategoryChanged {
		out = append(out, "category")
	}
	return out
}

// Changes compares prev and curr. The category counts as changed when its ID or
// display value differs; a type-only difference is not a change.
func Changes(prev, curr Snapshot) ChangeSet {
	return ChangeSet{
		TitleChanged:    prev.Title != curr.Title,
		AdultChanged:    prev.Adult != curr.Adult,
		CategoryChanged: !eqPtr(prev.Category.ID, curr.Category.ID) || prev.Category.Value != curr.Category.Value,
	}
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
