package model

import (
	"slices"
	"testing"

	"github.com/google/uuid"
)

func TestTrackUpdate_Apply(t *testing.T) {
	track := Track{
		ID:         uuid.New(),
		Source:     "/music/a.flac",
		Title:      Ptr("Old"),
		Rating:     Ptr(3),
		ArtistName: Ptr("Lumen"),
		Tags:       []string{"a"},
	}

	got := TrackUpdate{Title: Ptr("New"), Tags: []string{}}.Erase(TrackRating).Apply(track)
	if *got.Title != "New" {
		t.Errorf("Title = %q, want New", *got.Title)
	}
	if got.Rating != nil {
		t.Errorf("Rating = %v, want erased", *got.Rating)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil", got.Tags)
	}
	if *got.ArtistName != "Lumen" {
		t.Errorf("ArtistName changed to %q", *got.ArtistName)
	}
	if *track.Title != "Old" || track.Rating == nil {
		t.Error("Apply modified its input")
	}
}

func TestTrackUpdate_EraseWinsOverValue(t *testing.T) {
	u := TrackUpdate{Title: Ptr("Set")}.Erase(TrackTitle)
	if got := u.Apply(Track{Title: Ptr("Old")}); got.Title != nil {
		t.Errorf("Title = %q, want erased", *got.Title)
	}
}

func TestTrackUpdate_EraseDedupes(t *testing.T) {
	u := TrackUpdate{}.Erase(TrackTags, TrackArt).Erase(TrackArt)
	if !slices.Equal(u.Erasing, []TrackField{TrackArt, TrackTags}) {
		t.Errorf("Erasing = %v", u.Erasing)
	}
	if !u.Erases(TrackTags) || u.Erases(TrackTitle) {
		t.Error("Erases reports the wrong fields")
	}
}

func TestTrackUpdate_Merge(t *testing.T) {
	tests := []struct {
		name  string
		left  TrackUpdate
		right TrackUpdate
		want  Track
	}{
		{
			name:  "later value wins",
			left:  TrackUpdate{Title: Ptr("first"), Rating: Ptr(1)},
			right: TrackUpdate{Title: Ptr("second")},
			want:  Track{Title: Ptr("second"), Rating: Ptr(1), ArtistName: Ptr("base")},
		},
		{
			name:  "later erase wins over earlier value",
			left:  TrackUpdate{Rating: Ptr(4)},
			right: TrackUpdate{}.Erase(TrackRating),
			want:  Track{Title: Ptr("base"), ArtistName: Ptr("base")},
		},
		{
			name:  "later value wins over earlier erase",
			left:  TrackUpdate{}.Erase(TrackArtistName),
			right: TrackUpdate{ArtistName: Ptr("Halcyon")},
			want:  Track{Title: Ptr("base"), ArtistName: Ptr("Halcyon")},
		},
		{
			name:  "earlier erase survives",
			left:  TrackUpdate{}.Erase(TrackArtistName),
			right: TrackUpdate{Rating: Ptr(2)},
			want:  Track{Title: Ptr("base"), Rating: Ptr(2)},
		},
	}

	base := Track{Title: Ptr("base"), ArtistName: Ptr("base")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := tt.left.Merge(tt.right).Apply(base)
			sequential := tt.right.Apply(tt.left.Apply(base))
			if !merged.Equal(tt.want) {
				t.Errorf("merged = %+v, want %+v", merged, tt.want)
			}
			if !merged.Equal(sequential) {
				t.Errorf("merged %+v differs from sequential %+v", merged, sequential)
			}
		})
	}
}

func TestAlbumUpdate_MergeMatchesSequential(t *testing.T) {
	base := Album{ID: uuid.New(), Title: "A", ArtistOverride: Ptr("X"), Art: Ptr("cover.jpg")}
	left := AlbumUpdate{Title: Ptr("B")}.Erase(AlbumArtistOverride)
	right := AlbumUpdate{ArtistOverride: Ptr("Y")}.Erase(AlbumArt)

	merged := left.Merge(right).Apply(base)
	sequential := right.Apply(left.Apply(base))
	if !merged.Equal(sequential) {
		t.Errorf("merged %+v differs from sequential %+v", merged, sequential)
	}
	if merged.Title != "B" || *merged.ArtistOverride != "Y" || merged.Art != nil {
		t.Errorf("merged = %+v", merged)
	}
}

func TestTouchesLinks(t *testing.T) {
	tests := []struct {
		name string
		u    TrackUpdate
		want bool
	}{
		{"rating", TrackUpdate{Rating: Ptr(1)}, false},
		{"artist name", TrackUpdate{ArtistName: Ptr("x")}, true},
		{"album title", TrackUpdate{AlbumTitle: Ptr("x")}, true},
		{"erase album title", TrackUpdate{}.Erase(TrackAlbumTitle), true},
		{"link arrays", TrackUpdate{Artists: []uuid.UUID{}}, false},
	}
	for _, tt := range tests {
		if got := tt.u.TouchesLinks(); got != tt.want {
			t.Errorf("%s: TouchesLinks() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTouchesDerived(t *testing.T) {
	tests := []struct {
		name string
		u    TrackUpdate
		want bool
	}{
		{"rating", TrackUpdate{Rating: Ptr(1)}, false},
		{"tags", TrackUpdate{Tags: []string{"x"}}, false},
		{"artist name", TrackUpdate{ArtistName: Ptr("x")}, false},
		{"title", TrackUpdate{Title: Ptr("x")}, true},
		{"track no", TrackUpdate{TrackNo: Ptr(2)}, true},
		{"disc no", TrackUpdate{DiscNo: Ptr(2)}, true},
		{"art", TrackUpdate{Art: Ptr("cover.jpg")}, true},
		{"source", TrackUpdate{Source: Ptr("/m/a.flac")}, true},
		{"erase title", TrackUpdate{}.Erase(TrackTitle), true},
		{"erase disc no", TrackUpdate{}.Erase(TrackDiscNo), true},
		{"erase rating", TrackUpdate{}.Erase(TrackRating), false},
	}
	for _, tt := range tests {
		if got := tt.u.TouchesDerived(); got != tt.want {
			t.Errorf("%s: TouchesDerived() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEqual_NilAndEmptySlices(t *testing.T) {
	id := uuid.New()
	if !(Track{ID: id}).Equal(Track{ID: id, Tags: []string{}, Artists: []uuid.UUID{}}) {
		t.Error("nil and empty slices should compare equal")
	}
	if (Track{ID: id, Rating: Ptr(1)}).Equal(Track{ID: id, Rating: Ptr(2)}) {
		t.Error("different ratings compared equal")
	}
	if (Album{ID: id}).Equal(Album{ID: id, ArtistOverride: Ptr("")}) {
		t.Error("nil and empty override compared equal")
	}
}

func TestDisplayArtistName(t *testing.T) {
	tests := []struct {
		override *string
		names    []string
		want     string
	}{
		{nil, nil, UnknownArtist},
		{nil, []string{"Lumen"}, "Lumen"},
		{nil, []string{"Lumen", "Halcyon"}, VariousArtists},
		{Ptr("Compilation"), []string{"Lumen", "Halcyon"}, "Compilation"},
		{Ptr(""), nil, ""},
	}
	for _, tt := range tests {
		if got := DisplayArtistName(tt.override, tt.names); got != tt.want {
			t.Errorf("DisplayArtistName(%v, %v) = %q, want %q", tt.override, tt.names, got, tt.want)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" rock", "jazz", "", "rock ", "  "})
	if !slices.Equal(got, []string{"jazz", "rock"}) {
		t.Errorf("NormalizeTags = %v", got)
	}
	if got := NormalizeTags(nil); got == nil || len(got) != 0 {
		t.Errorf("NormalizeTags(nil) = %#v, want empty non-nil", got)
	}
}

func TestTaglist_Qualifies(t *testing.T) {
	list := Taglist{
		Positive: []TagRule{{Tags: []string{"chill"}}, {Tags: []string{"night"}}},
		Negative: []TagRule{{Tags: []string{"skip"}}},
	}
	tests := []struct {
		tags []string
		want bool
	}{
		{[]string{"chill", "night"}, true},
		{[]string{"chill"}, false},
		{[]string{"chill", "night", "skip"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := list.Qualifies(Track{Tags: tt.tags}); got != tt.want {
			t.Errorf("Qualifies(%v) = %v, want %v", tt.tags, got, tt.want)
		}
	}

	if (Taglist{}).Qualifies(Track{Tags: []string{"chill"}}) {
		t.Error("taglist without rules qualified a track")
	}

	onlyNegative := Taglist{Negative: []TagRule{{Tags: []string{"skip"}}}}
	if !onlyNegative.Qualifies(Track{}) {
		t.Error("negative-only taglist should admit untagged tracks")
	}
}

func TestTrackLabel(t *testing.T) {
	if got := (Track{Source: "/music/a/b.flac"}).Label(); got != "b.flac" {
		t.Errorf("Label = %q, want file name", got)
	}
	if got := (Track{Source: "/x.flac", Title: Ptr("Sunday")}).Label(); got != "Sunday" {
		t.Errorf("Label = %q, want title", got)
	}
}
