package assertion

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
)

func TestCombine_Matrix(t *testing.T) {
	id := uuid.New()
	added := model.Track{ID: id, Source: "/a.flac", Title: model.Ptr("a")}
	add := AddTrack(added)
	update := UpdateTrack(id, model.TrackUpdate{Rating: model.Ptr(4)})
	del := Delete(KindTrack, id)

	tests := []struct {
		name        string
		left, right Assertion
		wantOp      Op
	}{
		{"add then add", add, AddTrack(model.Track{ID: id, Source: "/b.flac"}), OpAdd},
		{"add then update", add, update, OpAdd},
		{"add then delete", add, del, OpDelete},
		{"update then add", update, add, OpUpdate},
		{"update then update", update, UpdateTrack(id, model.TrackUpdate{Title: model.Ptr("b")}), OpUpdate},
		{"update then delete", update, del, OpDelete},
		{"delete then add", del, add, OpAdd},
		{"delete then update", del, update, OpDelete},
		{"delete then delete", del, del, OpDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.left, tt.right)
			if got.Op != tt.wantOp {
				t.Fatalf("Combine = %s, want op %s", got, tt.wantOp)
			}
			if !got.Valid() {
				t.Errorf("Combine produced invalid assertion %s", got)
			}
		})
	}
}

func TestCombine_AddThenUpdatePatchesPayload(t *testing.T) {
	id := uuid.New()
	add := AddTrack(model.Track{ID: id, Source: "/a.flac", Title: model.Ptr("a"), Rating: model.Ptr(1)})
	got := Combine(add, UpdateTrack(id, model.TrackUpdate{Title: model.Ptr("b")}.Erase(model.TrackRating)))

	if got.Op != OpAdd || *got.Track.Title != "b" || got.Track.Rating != nil {
		t.Errorf("Combine = %+v", got.Track)
	}
	if *add.Track.Title != "a" {
		t.Error("Combine modified the left payload")
	}
}

func TestCombine_AddThenDeleteIsDelete(t *testing.T) {
	id := uuid.New()
	add := AddAlbum(model.Album{ID: id, Title: "Girls Apartment"})
	got := NewSet(add, Delete(KindAlbum, id))

	a, ok := got.Get(id)
	if !ok || a.Op != OpDelete || a.Album != nil {
		t.Errorf("set holds %v, want a bare delete", a)
	}
}

func TestCombine_UpdateMergeMatchesSequential(t *testing.T) {
	id := uuid.New()
	base := model.Track{ID: id, Source: "/a.flac", Title: model.Ptr("a"), Rating: model.Ptr(2)}
	first := model.TrackUpdate{Title: model.Ptr("b")}
	second := model.TrackUpdate{}.Erase(model.TrackTitle)

	merged := Combine(UpdateTrack(id, first), UpdateTrack(id, second))
	got := merged.TrackUpdate.Apply(base)
	want := second.Apply(first.Apply(base))
	if !got.Equal(want) {
		t.Errorf("merged update = %+v, want %+v", got, want)
	}
}

func TestCombine_DifferentKindsTakeRight(t *testing.T) {
	id := uuid.New()
	right := Delete(KindArtist, id)
	if got := Combine(Delete(KindAlbum, id), right); got.Kind != KindArtist {
		t.Errorf("Combine kept %s, want the artist delete", got)
	}
}

func TestSet_ValueSemantics(t *testing.T) {
	a := Delete(KindTrack, uuid.New())
	s := NewSet(a)
	s2 := s.With(Delete(KindTrack, uuid.New()))
	if s.Len() != 1 || s2.Len() != 2 {
		t.Errorf("Len = %d/%d, want 1/2", s.Len(), s2.Len())
	}
	if f := s2.Filter(func(x Assertion) bool { return x.ID == a.ID }); f.Len() != 1 || s2.Len() != 2 {
		t.Error("Filter modified its receiver")
	}
}

func TestSet_AllOrderedByKind(t *testing.T) {
	s := NewSet(
		Delete(KindTaglist, uuid.New()),
		Delete(KindArtist, uuid.New()),
		Delete(KindTrack, uuid.New()),
		Delete(KindAlbum, uuid.New()),
	)
	var kinds []Kind
	for _, a := range s.All() {
		kinds = append(kinds, a.Kind)
	}
	want := []Kind{KindTrack, KindAlbum, KindArtist, KindTaglist}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("kinds = %v, want %v", kinds, want)
	}
	if s.KindCount() != 4 {
		t.Errorf("KindCount = %d, want 4", s.KindCount())
	}
}

func TestFlatten_EqualsLeftFold(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	sequence := []Assertion{
		AddTrack(model.Track{ID: a, Source: "/a.flac"}),
		UpdateTrack(b, model.TrackUpdate{Rating: model.Ptr(1)}),
		UpdateTrack(a, model.TrackUpdate{Title: model.Ptr("a")}),
		Delete(KindTrack, b),
		AddTrack(model.Track{ID: b, Source: "/b.flac"}),
		UpdateTrack(c, model.TrackUpdate{}.Erase(model.TrackTags)),
		UpdateTrack(b, model.TrackUpdate{Rating: model.Ptr(2)}),
		Delete(KindTrack, a),
		UpdateTrack(c, model.TrackUpdate{Tags: []string{"x"}}),
	}
	sets := make([]Set, 0, len(sequence))
	for _, x := range sequence {
		sets = append(sets, NewSet(x))
	}

	fold := Set{}
	for _, s := range sets {
		fold = Union(fold, s)
	}
	flat := Flatten(sets)

	if describe(flat) != describe(fold) {
		t.Errorf("Flatten = %s, fold = %s", describe(flat), describe(fold))
	}
	if !Flatten(nil).IsEmpty() {
		t.Error("Flatten(nil) is not empty")
	}
}

func TestFlatten_Properties(t *testing.T) {
	id, other := uuid.New(), uuid.New()
	low := NewSet(UpdateTrack(id, model.TrackUpdate{Rating: model.Ptr(1)}))
	high := NewSet(UpdateTrack(id, model.TrackUpdate{Rating: model.Ptr(5)}))
	add := NewSet(AddTrack(model.Track{ID: id, Source: "/a.flac"}))
	del := NewSet(Delete(KindTrack, id))
	mixed := NewSet(
		AddTrack(model.Track{ID: id, Source: "/a.flac", Tags: []string{"x"}}),
		UpdateTrack(other, model.TrackUpdate{Title: model.Ptr("b")}.Erase(model.TrackRating, model.TrackArt)),
		Delete(KindAlbum, uuid.New()),
	)

	tests := []struct {
		name string
		sets []Set
		want Set
	}{
		{"single set is returned as is", []Set{mixed}, mixed},
		{"repeating a set changes nothing", []Set{mixed, mixed}, mixed},
		{"repeating a flattened set changes nothing", []Set{Flatten([]Set{low, add}), Flatten([]Set{low, add})}, Flatten([]Set{low, add})},
		{"later update wins", []Set{low, high}, high},
		{"earlier update loses when reordered", []Set{high, low}, low},
		{"delete after add", []Set{add, del}, del},
		{"add after delete", []Set{del, add}, add},
		{"disjoint sets union", []Set{low, NewSet(Delete(KindTrack, other))}, NewSet(low.All()[0], Delete(KindTrack, other))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(tt.sets); describe(got) != describe(tt.want) {
				t.Errorf("Flatten = %s, want %s", describe(got), describe(tt.want))
			}
		})
	}

	if describe(Flatten([]Set{low, high})) == describe(Flatten([]Set{high, low})) {
		t.Error("Flatten ignored the order of conflicting sets")
	}
}

func describe(s Set) string {
	data, err := json.Marshal(s)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

func TestUnion_RightWins(t *testing.T) {
	id := uuid.New()
	left := NewSet(UpdateTrack(id, model.TrackUpdate{Rating: model.Ptr(1)}))
	right := NewSet(UpdateTrack(id, model.TrackUpdate{Rating: model.Ptr(5)}))
	got, _ := Union(left, right).Get(id)
	if *got.TrackUpdate.Rating != 5 {
		t.Errorf("Rating = %d, want 5", *got.TrackUpdate.Rating)
	}
}

func TestWillModifyAndPrune(t *testing.T) {
	tr := model.Track{ID: uuid.New(), Source: "/a.flac", Rating: model.Ptr(3)}
	b := basis.New([]model.Track{tr}, nil, nil, nil)
	missing := uuid.New()

	tests := []struct {
		name string
		a    Assertion
		want bool
	}{
		{"identical add", AddTrack(tr), false},
		{"new add", AddTrack(model.Track{ID: missing}), true},
		{"no-op update", UpdateTrack(tr.ID, model.TrackUpdate{Rating: model.Ptr(3)}), false},
		{"empty update", UpdateTrack(tr.ID, model.TrackUpdate{}), false},
		{"real update", UpdateTrack(tr.ID, model.TrackUpdate{Rating: model.Ptr(4)}), true},
		{"update of missing", UpdateTrack(missing, model.TrackUpdate{Rating: model.Ptr(4)}), false},
		{"delete", Delete(KindTrack, tr.ID), true},
		{"delete of missing", Delete(KindTrack, missing), false},
		{"delete of wrong kind", Delete(KindAlbum, tr.ID), false},
	}

	for _, tt := range tests {
		if got := WillModify(tt.a, b); got != tt.want {
			t.Errorf("%s: WillModify = %v, want %v", tt.name, got, tt.want)
		}
	}

	pruned := Prune(NewSet(UpdateTrack(tr.ID, model.TrackUpdate{Rating: model.Ptr(3)}), Delete(KindTrack, missing)), b)
	if !pruned.IsEmpty() {
		t.Errorf("Prune kept %d no-op assertions", pruned.Len())
	}
	kept := Prune(NewSet(UpdateTrack(tr.ID, model.TrackUpdate{Rating: model.Ptr(1)})), b)
	if kept.Len() != 1 {
		t.Errorf("Prune dropped a real update")
	}
}

func TestSetJSON(t *testing.T) {
	id := uuid.New()
	s := NewSet(
		AddTrack(model.Track{ID: id, Source: "/a.flac"}),
		UpdateAlbum(uuid.New(), model.AlbumUpdate{Title: model.Ptr("x")}.Erase(model.AlbumArt)),
		Delete(KindArtist, uuid.New()),
	)
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Set
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if describe(back) != string(data) {
		t.Errorf("decoded set = %s, want %s", describe(back), data)
	}
}

func TestSetJSON_RejectsMalformed(t *testing.T) {
	id := uuid.New().String()
	tests := map[string]string{
		"duplicate id":       `[{"id":"` + id + `","kind":"track","op":"delete"},{"id":"` + id + `","kind":"track","op":"delete"}]`,
		"missing payload":    `[{"id":"` + id + `","kind":"track","op":"add"}]`,
		"payload mismatch":   `[{"id":"` + id + `","kind":"album","op":"update","track_update":{}}]`,
		"unknown kind":       `[{"id":"` + id + `","kind":"playlist","op":"delete"}]`,
		"unknown op":         `[{"id":"` + id + `","kind":"track","op":"upsert"}]`,
		"payload id differs": `[{"id":"` + id + `","kind":"artist","op":"add","artist":{"id":"` + uuid.New().String() + `"}}]`,
		"nil id":             `[{"id":"` + uuid.Nil.String() + `","kind":"track","op":"delete"}]`,
	}
	for name, input := range tests {
		var s Set
		if err := json.Unmarshal([]byte(input), &s); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestAssertion_String(t *testing.T) {
	id := uuid.New()
	got := Delete(KindTaglist, id).String()
	if !strings.HasPrefix(got, "delete taglist ") || !strings.HasSuffix(got, id.String()) {
		t.Errorf("String = %q", got)
	}
}
