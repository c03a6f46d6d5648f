package edit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

// UpdateAlbum edits an album's title, art or artist override. Membership
// and derived fields cannot be set directly. A new title cascades to the
// album title of every member track, which are then relinked; setting or
// clearing the override recomputes the display artist name.
func (g *Generator) UpdateAlbum(b *basis.Basis, id uuid.UUID, u model.AlbumUpdate) transaction.Transaction {
	album, ok := b.Album(id)
	if !ok {
		return transaction.Transaction{Label: "Update album", Significance: transaction.Normal}
	}

	own := model.AlbumUpdate{
		Title:          u.Title,
		Art:            u.Art,
		ArtistOverride: u.ArtistOverride,
	}
	for _, f := range u.Erasing {
		if f == model.AlbumArt || f == model.AlbumArtistOverride {
			own = own.Erase(f)
		}
	}
	if own.ArtistOverride != nil || own.Erases(model.AlbumArtistOverride) {
		patched := own.Apply(album)
		name := model.DisplayArtistName(patched.ArtistOverride, artistNames(b.Artists(album.Artists)))
		own.ArtistName = &name
	}

	label := fmt.Sprintf("Update album '%s'", album.Title)
	ownSet := assertion.NewSet(assertion.UpdateAlbum(id, own))

	if u.Title == nil || *u.Title == album.Title {
		return transaction.New(label, 1, assertion.Prune(ownSet, b))
	}

	label = fmt.Sprintf("Rename album '%s' to '%s'", album.Title, *u.Title)
	cascade := make([]assertion.Assertion, 0, len(album.Songs))
	for _, t := range b.Tracks(album.Songs) {
		cascade = append(cascade, assertion.UpdateTrack(t.ID, model.TrackUpdate{AlbumTitle: u.Title}))
	}
	s := g.link(b, ownSet, assertion.NewSet(cascade...))
	return transaction.New(label, 1, s)
}

// DeleteAlbums removes albums together with their tracks. Artists left
// without tracks are deleted as well.
func (g *Generator) DeleteAlbums(b *basis.Basis, ids []uuid.UUID) transaction.Transaction {
	albums := b.Albums(ids)
	var (
		own    []assertion.Assertion
		tracks []model.Track
		names  []string
	)
	for _, a := range albums {
		own = append(own, assertion.Delete(assertion.KindAlbum, a.ID))
		tracks = append(tracks, b.Tracks(a.Songs)...)
		names = append(names, a.Title)
	}
	s := g.withTaglists(b, g.deleteTracks(b, tracks, assertion.NewSet(own...)))
	return transaction.New(transaction.Label("Delete", "album", names), len(albums), s)
}

func artistNames(artists []model.Artist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}
