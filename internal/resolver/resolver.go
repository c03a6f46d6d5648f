// Package resolver folds assertion sets onto a Basis.
package resolver

import (
	"maps"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// Apply returns the Basis produced by applying s to base. Deletes run
// first, then updates, then adds. Updates whose target is absent are
// dropped, adds overwrite on id collision, and relationship arrays are
// filtered so they only reference ids present in the result. Apply never
// fails and never modifies base.
func Apply(s assertion.Set, base *basis.Basis) *basis.Basis {
	if s.IsEmpty() {
		return base
	}

	st := newState(base)
	all := s.All()

	deleted := false
	for _, a := range all {
		if a.Op == assertion.OpDelete {
			deleted = st.remove(a) || deleted
		}
	}
	for _, a := range all {
		if a.Op == assertion.OpUpdate {
			st.update(a)
		}
	}
	for _, a := range all {
		if a.Op == assertion.OpAdd {
			st.add(a)
		}
	}

	if deleted {
		st.scrubAll()
	} else {
		st.scrubTouched()
	}

	return base.Derive(st.maps())
}

// state holds copy-on-write views of the Basis maps being rebuilt.
type state struct {
	base *basis.Basis

	tracks   map[uuid.UUID]model.Track
	albums   map[uuid.UUID]model.Album
	artists  map[uuid.UUID]model.Artist
	taglists map[uuid.UUID]model.Taglist

	touched map[uuid.UUID]assertion.Kind
}

func newState(base *basis.Basis) *state {
	return &state{base: base, touched: make(map[uuid.UUID]assertion.Kind)}
}

func (st *state) trackMap() map[uuid.UUID]model.Track {
	if st.tracks == nil {
		st.tracks = maps.Clone(st.base.View().Tracks)
	}
	return st.tracks
}

func (st *state) albumMap() map[uuid.UUID]model.Album {
	if st.albums == nil {
		st.albums = maps.Clone(st.base.View().Albums)
	}
	return st.albums
}

func (st *state) artistMap() map[uuid.UUID]model.Artist {
	if st.artists == nil {
		st.artists = maps.Clone(st.base.View().Artists)
	}
	return st.artists
}

func (st *state) taglistMap() map[uuid.UUID]model.Taglist {
	if st.taglists == nil {
		st.taglists = maps.Clone(st.base.View().Taglists)
	}
	return st.taglists
}

func (st *state) maps() basis.Maps {
	return basis.Maps{
		Tracks:   st.tracks,
		Albums:   st.albums,
		Artists:  st.artists,
		Taglists: st.taglists,
	}
}

func (st *state) remove(a assertion.Assertion) bool {
	v := st.view()
	switch a.Kind {
	case assertion.KindTrack:
		if _, ok := v.tracks[a.ID]; ok {
			delete(st.trackMap(), a.ID)
			return true
		}
	case assertion.KindAlbum:
		if _, ok := v.albums[a.ID]; ok {
			delete(st.albumMap(), a.ID)
			return true
		}
	case assertion.KindArtist:
		if _, ok := v.artists[a.ID]; ok {
			delete(st.artistMap(), a.ID)
			return true
		}
	case assertion.KindTaglist:
		if _, ok := v.taglists[a.ID]; ok {
			delete(st.taglistMap(), a.ID)
			return true
		}
	}
	return false
}

func (st *state) update(a assertion.Assertion) {
	switch a.Kind {
	case assertion.KindTrack:
		m := st.trackMap()
		if cur, ok := m[a.ID]; ok {
			m[a.ID] = a.TrackUpdate.Apply(cur)
			st.touched[a.ID] = a.Kind
		}
	case assertion.KindAlbum:
		m := st.albumMap()
		if cur, ok := m[a.ID]; ok {
			m[a.ID] = a.AlbumUpdate.Apply(cur)
			st.touched[a.ID] = a.Kind
		}
	case assertion.KindArtist:
		m := st.artistMap()
		if cur, ok := m[a.ID]; ok {
			m[a.ID] = a.ArtistUpdate.Apply(cur)
			st.touched[a.ID] = a.Kind
		}
	case assertion.KindTaglist:
		m := st.taglistMap()
		if cur, ok := m[a.ID]; ok {
			m[a.ID] = a.TaglistUpdate.Apply(cur)
			st.touched[a.ID] = a.Kind
		}
	}
}

func (st *state) add(a assertion.Assertion) {
	switch a.Kind {
	case assertion.KindTrack:
		st.trackMap()[a.ID] = *a.Track
	case assertion.KindAlbum:
		st.albumMap()[a.ID] = *a.Album
	case assertion.KindArtist:
		st.artistMap()[a.ID] = *a.Artist
	case assertion.KindTaglist:
		st.taglistMap()[a.ID] = *a.Taglist
	}
	st.touched[a.ID] = a.Kind
}
