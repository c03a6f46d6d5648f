package resolver

import (
	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// view resolves the current (possibly rebuilt) maps for membership checks.
type view struct {
	tracks   map[uuid.UUID]model.Track
	albums   map[uuid.UUID]model.Album
	artists  map[uuid.UUID]model.Artist
	taglists map[uuid.UUID]model.Taglist
}

func (st *state) view() view {
	raw := st.base.View()
	v := view{tracks: st.tracks, albums: st.albums, artists: st.artists, taglists: st.taglists}
	if v.tracks == nil {
		v.tracks = raw.Tracks
	}
	if v.albums == nil {
		v.albums = raw.Albums
	}
	if v.artists == nil {
		v.artists = raw.Artists
	}
	if v.taglists == nil {
		v.taglists = raw.Taglists
	}
	return v
}

// scrubAll filters dangling references out of every entity.
func (st *state) scrubAll() {
	v := st.view()
	for id, t := range v.tracks {
		if out, changed := scrubTrack(t, v); changed {
			st.trackMap()[id] = out
		}
	}
	for id, a := range v.albums {
		if out, changed := scrubAlbum(a, v); changed {
			st.albumMap()[id] = out
		}
	}
	for id, a := range v.artists {
		if out, changed := scrubArtist(a, v); changed {
			st.artistMap()[id] = out
		}
	}
	for id, l := range v.taglists {
		if out, changed := scrubTaglist(l, v); changed {
			st.taglistMap()[id] = out
		}
	}
}

// scrubTouched filters dangling references out of entities that were
// added or updated. Without deletes no other entity can gain one.
func (st *state) scrubTouched() {
	v := st.view()
	for id, kind := range st.touched {
		switch kind {
		case assertion.KindTrack:
			if out, changed := scrubTrack(v.tracks[id], v); changed {
				st.trackMap()[id] = out
			}
		case assertion.KindAlbum:
			if out, changed := scrubAlbum(v.albums[id], v); changed {
				st.albumMap()[id] = out
			}
		case assertion.KindArtist:
			if out, changed := scrubArtist(v.artists[id], v); changed {
				st.artistMap()[id] = out
			}
		case assertion.KindTaglist:
			if out, changed := scrubTaglist(v.taglists[id], v); changed {
				st.taglistMap()[id] = out
			}
		}
	}
}

func scrubTrack(t model.Track, v view) (model.Track, bool) {
	artists, c1 := keepKnown(t.Artists, v.artists)
	albums, c2 := keepKnown(t.Albums, v.albums)
	t.Artists, t.Albums = artists, albums
	return t, c1 || c2
}

func scrubAlbum(a model.Album, v view) (model.Album, bool) {
	songs, c1 := keepKnown(a.Songs, v.tracks)
	artists, c2 := keepKnown(a.Artists, v.artists)
	a.Songs, a.Artists = songs, artists
	return a, c1 || c2
}

func scrubArtist(a model.Artist, v view) (model.Artist, bool) {
	songs, c1 := keepKnown(a.Songs, v.tracks)
	albums, c2 := keepKnown(a.Albums, v.albums)
	a.Songs, a.Albums = songs, albums
	return a, c1 || c2
}

func scrubTaglist(l model.Taglist, v view) (model.Taglist, bool) {
	songs, changed := keepKnown(l.Songs, v.tracks)
	l.Songs = songs
	return l, changed
}

// keepKnown drops ids missing from m. It only allocates when something is
// dropped.
func keepKnown[V any](ids []uuid.UUID, m map[uuid.UUID]V) ([]uuid.UUID, bool) {
	for i, id := range ids {
		if _, ok := m[id]; ok {
			continue
		}
		out := make([]uuid.UUID, i, len(ids))
		copy(out, ids[:i])
		for _, rest := range ids[i+1:] {
			if _, ok := m[rest]; ok {
				out = append(out, rest)
			}
		}
		return out, true
	}
	return ids, false
}
