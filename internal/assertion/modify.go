package assertion

import (
	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// WillModify reports whether applying a to b would change b. Deletes of
// absent ids, updates of absent ids, updates whose patch leaves the stored
// entity equal, and adds of an identical stored entity are no-ops.
func WillModify(a Assertion, b *basis.Basis) bool {
	switch a.Kind {
	case KindTrack:
		return willModify(a, b.Track, a.Track, func(t model.Track) model.Track {
			return a.TrackUpdate.Apply(t)
		}, model.Track.Equal)
	case KindAlbum:
		return willModify(a, b.Album, a.Album, func(al model.Album) model.Album {
			return a.AlbumUpdate.Apply(al)
		}, model.Album.Equal)
	case KindArtist:
		return willModify(a, b.Artist, a.Artist, func(ar model.Artist) model.Artist {
			return a.ArtistUpdate.Apply(ar)
		}, model.Artist.Equal)
	case KindTaglist:
		return willModify(a, b.Taglist, a.Taglist, func(l model.Taglist) model.Taglist {
			return a.TaglistUpdate.Apply(l)
		}, model.Taglist.Equal)
	}
	return false
}

// Prune drops every assertion in s that would not modify b.
func Prune(s Set, b *basis.Basis) Set {
	return s.Filter(func(a Assertion) bool { return WillModify(a, b) })
}

func willModify[E any](
	a Assertion,
	get func(uuid.UUID) (E, bool),
	added *E,
	patch func(E) E,
	equal func(E, E) bool,
) bool {
	cur, ok := get(a.ID)
	switch a.Op {
	case OpAdd:
		return !ok || !equal(cur, *added)
	case OpUpdate:
		return ok && !equal(cur, patch(cur))
	case OpDelete:
		return ok
	}
	return false
}
