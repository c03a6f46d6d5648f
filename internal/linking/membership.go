package linking

import (
	"bytes"
	"slices"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// membership emits the unordered link assertions of the pass: resolved
// link arrays for every surviving relinked track, and recomputed member
// lists for every affected album and artist.
func (p *pass) membership() assertion.Set {
	var as []assertion.Assertion

	// Relinked tracks joining each album and artist, in id order.
	albumJoins := make(map[uuid.UUID][]uuid.UUID)
	artistJoins := make(map[uuid.UUID][]uuid.UUID)
	for _, id := range sortedIDs(p.nextLinks) {
		l := p.nextLinks[id]
		for _, a := range l.albums {
			albumJoins[a] = append(albumJoins[a], id)
		}
		for _, a := range l.artists {
			artistJoins[a] = append(artistJoins[a], id)
		}
		as = append(as, assertion.UpdateTrack(id, model.TrackUpdate{
			Artists: nonNil(l.artists),
			Albums:  nonNil(l.albums),
		}))
	}

	for _, id := range sortedIDs(p.affectedAlbums) {
		cur, exists := p.base.Album(id)
		songs := p.members(cur.Songs, albumJoins[id])
		artists := p.crossRefs(songs,
			func(l links) []uuid.UUID { return l.artists },
			func(t model.Track) []uuid.UUID { return t.Artists })

		switch {
		case len(songs) == 0:
			if exists {
				as = append(as, assertion.Delete(assertion.KindAlbum, id))
			}
		case exists:
			as = append(as, assertion.UpdateAlbum(id, model.AlbumUpdate{Songs: songs, Artists: artists}))
		default:
			skeleton := model.Album{ID: id, Title: p.mintedAlbums[id]}
			full := model.AlbumUpdate{Songs: songs, Artists: artists}.Apply(skeleton)
			as = append(as, assertion.AddAlbum(full))
		}
	}

	for _, id := range sortedIDs(p.affectedArtists) {
		cur, exists := p.base.Artist(id)
		songs := p.members(cur.Songs, artistJoins[id])
		albums := p.crossRefs(songs,
			func(l links) []uuid.UUID { return l.albums },
			func(t model.Track) []uuid.UUID { return t.Albums })

		switch {
		case len(songs) == 0:
			if exists {
				as = append(as, assertion.Delete(assertion.KindArtist, id))
			}
		case exists:
			as = append(as, assertion.UpdateArtist(id, model.ArtistUpdate{Songs: songs, Albums: albums}))
		default:
			skeleton := model.Artist{ID: id, Name: p.mintedArtists[id]}
			full := model.ArtistUpdate{Songs: songs, Albums: albums}.Apply(skeleton)
			as = append(as, assertion.AddArtist(full))
		}
	}

	return assertion.NewSet(as...)
}

// members recomputes an entity's songs: current members not relinked in
// this pass, plus the relinked tracks that join it.
func (p *pass) members(current, joins []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(current)+len(joins))
	seen := make(map[uuid.UUID]struct{}, len(current))
	for _, tid := range current {
		if _, relinked := p.relinked[tid]; relinked {
			continue
		}
		if _, ok := p.base.Track(tid); !ok {
			continue
		}
		if _, dup := seen[tid]; !dup {
			seen[tid] = struct{}{}
			out = append(out, tid)
		}
	}
	for _, tid := range joins {
		if _, dup := seen[tid]; !dup {
			seen[tid] = struct{}{}
			out = append(out, tid)
		}
	}
	return out
}

// crossRefs unions the links of the given member tracks, using fresh links
// for relinked tracks and stored links for the rest.
func (p *pass) crossRefs(songs []uuid.UUID, fresh func(links) []uuid.UUID, stored func(model.Track) []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]struct{})
	for _, tid := range songs {
		var ids []uuid.UUID
		if l, ok := p.nextLinks[tid]; ok {
			ids = fresh(l)
		} else if t, ok := p.base.Track(tid); ok {
			ids = stored(t)
		}
		for _, id := range ids {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

// organize recomputes the derived, ordered fields of every entity the pass
// touched from scratch, the Basis with the unordered result applied.
func (p *pass) organize(rough assertion.Set, scratch *basis.Basis) assertion.Set {
	var as []assertion.Assertion

	for _, id := range sortedIDs(p.next) {
		t, ok := scratch.Track(id)
		if !ok {
			continue
		}
		as = append(as, assertion.UpdateTrack(id, model.TrackUpdate{
			Artists: artistIDs(sortedArtists(scratch.Artists(t.Artists))),
			Albums:  albumIDs(sortedAlbums(scratch.Albums(t.Albums))),
		}))
	}

	for _, a := range rough.OfKind(assertion.KindAlbum) {
		if a.Op == assertion.OpDelete {
			as = append(as, a)
			continue
		}
		album, ok := scratch.Album(a.ID)
		if !ok {
			continue
		}
		detailed := detailAlbum(album, scratch)
		if a.Op == assertion.OpAdd {
			as = append(as, assertion.AddAlbum(detailed))
			continue
		}
		as = append(as, assertion.UpdateAlbum(a.ID, model.AlbumUpdate{
			Songs:      detailed.Songs,
			Artists:    detailed.Artists,
			ArtistName: &detailed.ArtistName,
			Art:        detailed.Art,
		}))
	}

	for _, a := range rough.OfKind(assertion.KindArtist) {
		if a.Op == assertion.OpDelete {
			as = append(as, a)
			continue
		}
		artist, ok := scratch.Artist(a.ID)
		if !ok {
			continue
		}
		detailed := detailArtist(artist, scratch)
		if a.Op == assertion.OpAdd {
			as = append(as, assertion.AddArtist(detailed))
			continue
		}
		as = append(as, assertion.UpdateArtist(a.ID, model.ArtistUpdate{
			Songs:  detailed.Songs,
			Albums: detailed.Albums,
		}))
	}

	return assertion.NewSet(as...)
}

// detailAlbum orders an album's songs by disc and track, picks its art
// from the first song that has any, and derives its display artist name.
func detailAlbum(a model.Album, b *basis.Basis) model.Album {
	songs := b.Tracks(a.Songs)
	slices.SortFunc(songs, basis.CompareInAlbum)

	a.Songs = make([]uuid.UUID, 0, len(songs))
	var art *string
	for _, t := range songs {
		a.Songs = append(a.Songs, t.ID)
		if art == nil && t.Art != nil {
			art = t.Art
		}
	}
	if art != nil {
		a.Art = art
	}

	artists := sortedArtists(b.Artists(a.Artists))
	a.Artists = artistIDs(artists)
	names := make([]string, 0, len(artists))
	for _, ar := range artists {
		names = append(names, ar.Name)
	}
	a.ArtistName = model.DisplayArtistName(a.ArtistOverride, names)
	return a
}

// detailArtist orders an artist's songs and albums alphabetically.
func detailArtist(a model.Artist, b *basis.Basis) model.Artist {
	songs := b.Tracks(a.Songs)
	slices.SortFunc(songs, func(x, y model.Track) int {
		return basis.CompareLabels(x.Label(), y.Label(), x.ID, y.ID)
	})
	a.Songs = make([]uuid.UUID, 0, len(songs))
	for _, t := range songs {
		a.Songs = append(a.Songs, t.ID)
	}
	a.Albums = albumIDs(sortedAlbums(b.Albums(a.Albums)))
	return a
}

func sortedArtists(as []model.Artist) []model.Artist {
	slices.SortFunc(as, func(x, y model.Artist) int {
		return basis.CompareLabels(x.Name, y.Name, x.ID, y.ID)
	})
	return as
}

func sortedAlbums(as []model.Album) []model.Album {
	slices.SortFunc(as, func(x, y model.Album) int {
		return basis.CompareLabels(x.Title, y.Title, x.ID, y.ID)
	})
	return as
}

func artistIDs(as []model.Artist) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(as))
	for _, a := range as {
		out = append(out, a.ID)
	}
	return out
}

func albumIDs(as []model.Album) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(as))
	for _, a := range as {
		out = append(out, a.ID)
	}
	return out
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func sortedIDs[V any](m map[uuid.UUID]V) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}
