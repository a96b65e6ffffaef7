package status

import (
	"testing"

	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestSnapshotEqual(t *testing.T) {
	a := Snapshot{Title: "t", Category: Category{ID: strp("game")}, Open: true}
	b := Snapshot{Title: "t", Category: Category{ID: strp("game")}, Open: true}
	assert.True(t, a.Equal(b), "distinct pointers with equal values are equal")

	b.Category.ID = nil
	assert.False(t, a.Equal(b))
}

func TestChanges(t *testing.T) {
	base := Snapshot{Title: "A", Category: Category{Type: strp("GAME"), ID: strp("x"), Value: "X"}}

	tests := []struct {
		name string
		curr func(Snapshot) Snapshot
		want ChangeSet
	}{
		{"identical", func(s Snapshot) Snapshot { return s }, ChangeSet{}},
		{"title", func(s Snapshot) Snapshot { s.Title = "B"; return s }, ChangeSet{TitleChanged: true}},
		{"adult", func(s Snapshot) Snapshot { s.Adult = true; return s }, ChangeSet{AdultChanged: true}},
		{"category id", func(s Snapshot) Snapshot {
			s.Category = Category{Type: strp("GAME"), ID: strp("y"), Value: "X"}
			return s
		}, ChangeSet{CategoryChanged: true}},
		{"category value", func(s Snapshot) Snapshot {
			s.Category = Category{Type: strp("GAME"), ID: strp("x"), Value: "Y"}
			return s
		}, ChangeSet{CategoryChanged: true}},
		{"category type only", func(s Snapshot) Snapshot {
			s.Category = Category{Type: strp("ETC"), ID: strp("x"), Value: "X"}
			return s
		}, ChangeSet{}},
		{"open flag ignored", func(s Snapshot) Snapshot { s.Open = !s.Open; return s }, ChangeSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Changes(base, tt.curr(base))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != ChangeSet{}, got.Any())
		})
	}
}

func TestChangeSetKinds(t *testing.T) {
	assert.Empty(t, ChangeSet{}.Kinds())
	assert.Equal(t, []string{"title", "category"}, ChangeSet{TitleChanged: true, CategoryChanged: true}.Kinds())
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "League_of_Legends", Category{ID: strp("League_of_Legends"), Value: "League of Legends"}.Label())
	assert.Equal(t, "talk", Category{Value: "talk"}.Label())
	assert.Equal(t, "", Category{}.Label())
}

func TestFromResponses(t *testing.T) {
	ls := &chzzk.LiveStatus{LiveTitle: "t", Status: chzzk.StatusOpen, LiveCategory: strp("x"), Adult: true}
	s := FromLiveStatus(ls)
	assert.True(t, s.Open)
	assert.True(t, s.Adult)
	*ls.LiveCategory = "mutated"
	assert.Equal(t, "x", *s.Category.ID, "snapshot does not alias the response")

	assert.Equal(t, Snapshot{}, FromLiveStatus(nil))
	assert.Equal(t, Snapshot{}, FromLiveDetail(nil))

	d := FromLiveDetail(&chzzk.LiveDetail{LiveTitle: "d", Status: chzzk.StatusClose})
	assert.False(t, d.Open)
	assert.Equal(t, "d", d.Title)
}
