package edit

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/linking"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/resolver"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

const (
	girlsApartment  = "Girls Apartment"
	girlsApartment2 = "Girls Apartment 2"
)

type fixtureTrack struct {
	no     int
	title  string
	artist string
}

var girlsApartmentTracks = []fixtureTrack{
	{1, "Opening", "flap+frog"},
	{2, "Sunday", "flap+frog"},
	{3, "Night Bus", "Pale Coast"},
	{4, "Velvet", "flap+frog"},
	{5, "Harbor", "Pale Coast"},
	{6, "Monday Rain", "Lumen"},
	{7, "Static", "flap+frog"},
	{8, "Paper Moon", "Lumen"},
	{9, "Undertow", "Kite Theory"},
	{10, "Last Light", "flap+frog"},
}

var girlsApartment2Tracks = []fixtureTrack{
	{1, "Reprise", "flap+frog"},
	{2, "Sparrowtail", "minimum electric design"},
	{3, "Glass", "Kite Theory"},
	{4, "Orbit", "Halcyon"},
	{5, "Driftwood", "Pale Coast"},
	{6, "Ember", "Halcyon"},
	{7, "Lantern", "flap+frog"},
	{8, "Foxglove", "Sora Nine"},
	{9, "Tidal", "Lumen"},
	{10, "Echo Park", "Sora Nine"},
	{11, "Coda", "flap+frog"},
}

// fixtureTracks returns the 21 unlinked tracks of both albums, listed in
// reverse so import order differs from album order.
func fixtureTracks() []model.Track {
	var out []model.Track
	add := func(album string, ft []fixtureTrack) {
		for _, f := range ft {
			out = append(out, model.Track{
				ID:         uuid.New(),
				Source:     "/music/" + album + "/" + f.title + ".flac",
				Title:      model.Ptr(f.title),
				TrackNo:    model.Ptr(f.no),
				ArtistName: model.Ptr(f.artist),
				AlbumTitle: model.Ptr(album),
				Tags:       []string{},
			})
		}
	}
	add(girlsApartment, girlsApartmentTracks)
	add(girlsApartment2, girlsApartment2Tracks)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func newGenerator() *Generator {
	return NewGenerator(linking.New())
}

// importFixture returns the Basis holding both albums.
func importFixture(t *testing.T, g *Generator) *basis.Basis {
	t.Helper()
	tx := g.ImportTracks(basis.Empty(), fixtureTracks())
	return apply(tx, basis.Empty())
}

func apply(tx transaction.Transaction, b *basis.Basis) *basis.Basis {
	return resolver.Apply(tx.Assertions, b)
}

func albumByTitle(t *testing.T, b *basis.Basis, title string) model.Album {
	t.Helper()
	for _, a := range b.AllAlbums() {
		if a.Title == title {
			return a
		}
	}
	t.Fatalf("no album %q", title)
	return model.Album{}
}

func artistByName(t *testing.T, b *basis.Basis, name string) model.Artist {
	t.Helper()
	a, ok := findArtist(b, name)
	if !ok {
		t.Fatalf("no artist %q", name)
	}
	return a
}

func findArtist(b *basis.Basis, name string) (model.Artist, bool) {
	for _, a := range b.AllArtists() {
		if a.Name == name {
			return a, true
		}
	}
	return model.Artist{}, false
}

func trackInAlbum(t *testing.T, b *basis.Basis, album, title string) model.Track {
	t.Helper()
	for _, tr := range b.AlbumTracks(albumByTitle(t, b, album).ID) {
		if tr.Title != nil && *tr.Title == title {
			return tr
		}
	}
	t.Fatalf("no track %q on %q", title, album)
	return model.Track{}
}

// assertConsistent checks that every relationship is mirrored on both
// sides.
func assertConsistent(t *testing.T, b *basis.Basis) {
	t.Helper()
	for _, tr := range b.AllTracks() {
		for _, id := range tr.Albums {
			a, ok := b.Album(id)
			if !ok || !contains(a.Songs, tr.ID) {
				t.Errorf("track %s lists album %s which does not list it back", tr.Label(), id)
			}
		}
		for _, id := range tr.Artists {
			a, ok := b.Artist(id)
			if !ok || !contains(a.Songs, tr.ID) {
				t.Errorf("track %s lists artist %s which does not list it back", tr.Label(), id)
			}
		}
	}
	for _, a := range b.AllAlbums() {
		if len(a.Songs) == 0 {
			t.Errorf("album %q has no songs", a.Title)
		}
		for _, id := range a.Songs {
			tr, ok := b.Track(id)
			if !ok || !contains(tr.Albums, a.ID) {
				t.Errorf("album %q lists track %s which does not list it back", a.Title, id)
			}
		}
	}
	for _, a := range b.AllArtists() {
		if len(a.Songs) == 0 {
			t.Errorf("artist %q has no songs", a.Name)
		}
		for _, id := range a.Songs {
			tr, ok := b.Track(id)
			if !ok || !contains(tr.Artists, a.ID) {
				t.Errorf("artist %q lists track %s which does not list it back", a.Name, id)
			}
		}
	}
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
