package edit

import (
	"slices"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

// ImportTracks adds unlinked tracks, typically produced by a scan, and
// links them into albums and artists. Tracks without an id get a fresh one;
// any link arrays they carry are discarded and recomputed.
func (g *Generator) ImportTracks(b *basis.Basis, tracks []model.Track) transaction.Transaction {
	as := make([]assertion.Assertion, 0, len(tracks))
	names := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == uuid.Nil {
			t.ID = g.newID()
		}
		t.Artists = nil
		t.Albums = nil
		t.Tags = model.NormalizeTags(t.Tags)
		as = append(as, assertion.AddTrack(t))
		names = append(names, t.Label())
	}

	s := g.linker.UpdateLinks(assertion.NewSet(as...), b)
	s = g.withTaglists(b, s)
	return transaction.New(transaction.Label("Import", "track", names), len(tracks), s)
}

// UpdateTrack patches a single track.
func (g *Generator) UpdateTrack(b *basis.Basis, id uuid.UUID, u model.TrackUpdate) transaction.Transaction {
	return g.UpdateTracks(b, map[uuid.UUID]model.TrackUpdate{id: u})
}

// UpdateTracks patches several tracks at once. Link arrays cannot be set
// directly; changes to artist name or album title relink the tracks, and
// changes to fields album listings derive from reorganize them.
// Unknown ids are ignored.
func (g *Generator) UpdateTracks(b *basis.Basis, updates map[uuid.UUID]model.TrackUpdate) transaction.Transaction {
	var (
		as     []assertion.Assertion
		names  []string
		relink bool
	)
	for _, id := range sortedKeys(updates) {
		t, ok := b.Track(id)
		if !ok {
			continue
		}
		u := updates[id]
		u.Artists, u.Albums = nil, nil
		u.Erasing = slices.DeleteFunc(slices.Clone(u.Erasing), func(f model.TrackField) bool {
			return f == model.TrackArtists || f == model.TrackAlbums
		})
		if u.Tags != nil {
			u.Tags = model.NormalizeTags(u.Tags)
		}
		relink = relink || u.TouchesLinks() || u.TouchesDerived()
		as = append(as, assertion.UpdateTrack(id, u))
		names = append(names, t.Label())
	}

	input := assertion.NewSet(as...)
	var s assertion.Set
	if relink {
		s = g.linker.UpdateLinks(input, b)
	} else {
		s = assertion.Prune(input, b)
	}
	s = g.withTaglists(b, s)
	return transaction.New(transaction.Label("Update", "track", names), len(names), s)
}

// DeleteTracks removes tracks. Albums and artists left without tracks are
// deleted with them.
func (g *Generator) DeleteTracks(b *basis.Basis, ids []uuid.UUID) transaction.Transaction {
	tracks := b.Tracks(ids)
	s := g.withTaglists(b, g.deleteTracks(b, tracks, assertion.Set{}))
	return transaction.New(transaction.Label("Delete", "track", trackLabels(tracks)), len(tracks), s)
}

// deleteTracks links the deletion of tracks, alongside own.
func (g *Generator) deleteTracks(b *basis.Basis, tracks []model.Track, own assertion.Set) assertion.Set {
	as := make([]assertion.Assertion, 0, len(tracks))
	for _, t := range tracks {
		as = append(as, assertion.Delete(assertion.KindTrack, t.ID))
	}
	return g.link(b, own, assertion.NewSet(as...))
}

func trackLabels(tracks []model.Track) []string {
	names := make([]string, 0, len(tracks))
	for _, t := range tracks {
		names = append(names, t.Label())
	}
	return names
}

func sortedKeys[V any](m map[uuid.UUID]V) []uuid.UUID {
	keys := make([]uuid.UUID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	return keys
}

// Relink recomputes every track's links from its free-text fields. On a
// consistent library the transaction is empty.
func (g *Generator) Relink(b *basis.Basis) transaction.Transaction {
	s := g.withTaglists(b, g.linker.Relink(b))
	return transaction.New("Relink library", 0, s)
}
