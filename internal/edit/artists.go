package edit

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/linking"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

// UpdateArtist edits an artist's name or art. A new name is written into
// the artist name of every member track, which are then relinked.
func (g *Generator) UpdateArtist(b *basis.Basis, id uuid.UUID, u model.ArtistUpdate) transaction.Transaction {
	artist, ok := b.Artist(id)
	if !ok {
		return transaction.Transaction{Label: "Update artist", Significance: transaction.Normal}
	}

	own := model.ArtistUpdate{Name: u.Name, Art: u.Art}
	if u.Erases(model.ArtistArt) {
		own = own.Erase(model.ArtistArt)
	}
	ownSet := assertion.NewSet(assertion.UpdateArtist(id, own))
	label := fmt.Sprintf("Update artist '%s'", artist.Name)

	if u.Name == nil || *u.Name == artist.Name {
		return transaction.New(label, 1, assertion.Prune(ownSet, b))
	}

	label = fmt.Sprintf("Rename artist '%s' to '%s'", artist.Name, *u.Name)
	cascade := make([]assertion.Assertion, 0, len(artist.Songs))
	for _, t := range b.Tracks(artist.Songs) {
		renamed := g.renameIn(t.ArtistName, artist.Name, *u.Name)
		cascade = append(cascade, assertion.UpdateTrack(t.ID, model.TrackUpdate{ArtistName: &renamed}))
	}
	s := g.link(b, ownSet, assertion.NewSet(cascade...))
	return transaction.New(label, 1, s)
}

// DeleteArtists removes artists together with their tracks. Albums left
// without tracks are deleted as well.
func (g *Generator) DeleteArtists(b *basis.Basis, ids []uuid.UUID) transaction.Transaction {
	artists := b.Artists(ids)
	var (
		own    []assertion.Assertion
		tracks []model.Track
		seen   = make(map[uuid.UUID]struct{})
	)
	for _, a := range artists {
		own = append(own, assertion.Delete(assertion.KindArtist, a.ID))
		for _, t := range b.Tracks(a.Songs) {
			if _, dup := seen[t.ID]; !dup {
				seen[t.ID] = struct{}{}
				tracks = append(tracks, t)
			}
		}
	}
	s := g.withTaglists(b, g.deleteTracks(b, tracks, assertion.NewSet(own...)))
	return transaction.New(transaction.Label("Delete", "artist", artistNames(artists)), len(artists), s)
}

// renameIn replaces an artist's name inside a track's artist field. Only
// whole names the artist parser splits out are replaced; the rest of the
// field, other names and separators included, is kept verbatim.
func (g *Generator) renameIn(field *string, from, to string) string {
	if field == nil || *field == from {
		return to
	}
	parse := g.linker.ParseArtists
	if parse == nil {
		parse = linking.Identity
	}
	var out strings.Builder
	rest := *field
	for _, name := range parse(*field) {
		i := strings.Index(rest, name)
		if name == "" || i < 0 {
			continue
		}
		out.WriteString(rest[:i])
		if name == from {
			out.WriteString(to)
		} else {
			out.WriteString(name)
		}
		rest = rest[i+len(name):]
	}
	out.WriteString(rest)
	return out.String()
}
