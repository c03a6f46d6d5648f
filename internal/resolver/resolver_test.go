package resolver

import (
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// library builds one album by one artist with two tracks, all linked.
func library() (*basis.Basis, model.Track, model.Track, model.Album, model.Artist) {
	albumID, artistID := uuid.New(), uuid.New()
	t1 := model.Track{ID: uuid.New(), Source: "/1.flac", Title: model.Ptr("one"),
		Artists: []uuid.UUID{artistID}, Albums: []uuid.UUID{albumID}}
	t2 := model.Track{ID: uuid.New(), Source: "/2.flac", Title: model.Ptr("two"),
		Artists: []uuid.UUID{artistID}, Albums: []uuid.UUID{albumID}}
	album := model.Album{ID: albumID, Title: "A", Songs: []uuid.UUID{t1.ID, t2.ID}, Artists: []uuid.UUID{artistID}}
	artist := model.Artist{ID: artistID, Name: "X", Songs: []uuid.UUID{t1.ID, t2.ID}, Albums: []uuid.UUID{albumID}}
	list := model.Taglist{ID: uuid.New(), Title: "mix", Songs: []uuid.UUID{t2.ID, t1.ID}}
	b := basis.New([]model.Track{t1, t2}, []model.Album{album}, []model.Artist{artist}, []model.Taglist{list})
	return b, t1, t2, album, artist
}

func TestApply_EmptySetReturnsBase(t *testing.T) {
	b, _, _, _, _ := library()
	if got := Apply(assertion.Set{}, b); got != b {
		t.Error("empty set produced a new basis")
	}
}

func TestApply_DoesNotModifyBase(t *testing.T) {
	b, t1, _, _, _ := library()
	before := basis.New(b.AllTracks(), b.AllAlbums(), b.AllArtists(), b.AllTaglists())

	next := Apply(assertion.NewSet(
		assertion.UpdateTrack(t1.ID, model.TrackUpdate{Rating: model.Ptr(5)}),
		assertion.AddTrack(model.Track{ID: uuid.New(), Source: "/3.flac"}),
	), b)

	if !b.Equal(before) {
		t.Error("Apply modified its base")
	}
	if next.Counts().Tracks != 3 {
		t.Errorf("tracks = %d, want 3", next.Counts().Tracks)
	}
	if got, _ := next.Track(t1.ID); got.Rating == nil || *got.Rating != 5 {
		t.Error("update was not applied")
	}
}

func TestApply_DeleteScrubsReferences(t *testing.T) {
	b, t1, t2, album, artist := library()
	next := Apply(assertion.NewSet(assertion.Delete(assertion.KindTrack, t1.ID)), b)

	a, _ := next.Album(album.ID)
	ar, _ := next.Artist(artist.ID)
	l := next.AllTaglists()[0]
	want := []uuid.UUID{t2.ID}
	if !slices.Equal(a.Songs, want) || !slices.Equal(ar.Songs, want) || !slices.Equal(l.Songs, want) {
		t.Errorf("dangling references survived: album %v artist %v taglist %v", a.Songs, ar.Songs, l.Songs)
	}
}

func TestApply_DeleteAlbumScrubsTrackLinks(t *testing.T) {
	b, t1, t2, album, artist := library()
	next := Apply(assertion.NewSet(assertion.Delete(assertion.KindAlbum, album.ID)), b)

	for _, id := range []uuid.UUID{t1.ID, t2.ID} {
		tr, _ := next.Track(id)
		if len(tr.Albums) != 0 {
			t.Errorf("track %s still links album: %v", tr.Label(), tr.Albums)
		}
		if !slices.Equal(tr.Artists, []uuid.UUID{artist.ID}) {
			t.Errorf("track %s lost its artist", tr.Label())
		}
	}
	ar, _ := next.Artist(artist.ID)
	if len(ar.Albums) != 0 {
		t.Errorf("artist still links album: %v", ar.Albums)
	}
}

func TestApply_AddScrubsUnknownReferences(t *testing.T) {
	b, _, _, album, _ := library()
	orphan := uuid.New()
	tr := model.Track{ID: uuid.New(), Source: "/3.flac", Albums: []uuid.UUID{album.ID, orphan}, Artists: []uuid.UUID{orphan}}

	next := Apply(assertion.NewSet(assertion.AddTrack(tr)), b)
	got, _ := next.Track(tr.ID)
	if !slices.Equal(got.Albums, []uuid.UUID{album.ID}) || len(got.Artists) != 0 {
		t.Errorf("links = %v / %v, want only the known album", got.Albums, got.Artists)
	}
}

func TestApply_UpdateOfMissingIsDropped(t *testing.T) {
	b, _, _, _, _ := library()
	missing := uuid.New()
	next := Apply(assertion.NewSet(assertion.UpdateTrack(missing, model.TrackUpdate{Title: model.Ptr("ghost")})), b)
	if _, ok := next.Track(missing); ok {
		t.Error("update created a track")
	}
	if !next.Equal(b) {
		t.Error("dropped update changed the library")
	}
}

func TestApply_AddOverwritesExisting(t *testing.T) {
	b, t1, _, _, _ := library()
	replacement := t1
	replacement.Title = model.Ptr("replaced")

	next := Apply(assertion.NewSet(assertion.AddTrack(replacement)), b)
	if got, _ := next.Track(t1.ID); *got.Title != "replaced" {
		t.Errorf("Title = %q, want replaced", *got.Title)
	}
}

func TestApply_DeletesBeforeAdds(t *testing.T) {
	b, t1, _, album, _ := library()
	// A new album referencing a track deleted in the same set never sees it.
	fresh := model.Album{ID: uuid.New(), Title: "B", Songs: []uuid.UUID{t1.ID}}
	next := Apply(assertion.NewSet(
		assertion.AddAlbum(fresh),
		assertion.Delete(assertion.KindTrack, t1.ID),
	), b)

	got, ok := next.Album(fresh.ID)
	if !ok || len(got.Songs) != 0 {
		t.Errorf("new album songs = %v, want none", got.Songs)
	}
	if a, _ := next.Album(album.ID); len(a.Songs) != 1 {
		t.Errorf("old album songs = %v, want one", a.Songs)
	}
}

func TestApply_MatchesSequentialApplication(t *testing.T) {
	b, t1, t2, _, artist := library()
	first := assertion.NewSet(
		assertion.UpdateTrack(t1.ID, model.TrackUpdate{Rating: model.Ptr(1)}),
		assertion.UpdateArtist(artist.ID, model.ArtistUpdate{Name: model.Ptr("Y")}),
	)
	second := assertion.NewSet(
		assertion.UpdateTrack(t1.ID, model.TrackUpdate{}.Erase(model.TrackRating)),
		assertion.Delete(assertion.KindTrack, t2.ID),
	)

	sequential := Apply(second, Apply(first, b))
	combined := Apply(assertion.Union(first, second), b)
	if !sequential.Equal(combined) {
		t.Error("applying the union differs from applying in sequence")
	}
}
