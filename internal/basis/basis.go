// Package basis holds the immutable snapshot of the media library.
//
// A Basis is never mutated after construction. Producing a new library state
// means building a new Basis, either from raw collections (New) or from a
// previous Basis with some of its maps replaced (Derive). Values returned by
// the accessors share memory with the Basis and must be treated as read-only.
package basis

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// Basis is a read-only snapshot of every entity in the library plus cached
// sorted views over them.
type Basis struct {
	tracks   map[uuid.UUID]model.Track
	albums   map[uuid.UUID]model.Album
	artists  map[uuid.UUID]model.Artist
	taglists map[uuid.UUID]model.Taglist

	allTracks   []model.Track
	allAlbums   []model.Album
	allArtists  []model.Artist
	allTaglists []model.Taglist
	albumTracks map[uuid.UUID][]model.Track
	tags        []string
}

// Maps is the raw id-keyed state of a Basis. A nil map in a Maps passed to
// Derive keeps the previous Basis's map.
type Maps struct {
	Tracks   map[uuid.UUID]model.Track
	Albums   map[uuid.UUID]model.Album
	Artists  map[uuid.UUID]model.Artist
	Taglists map[uuid.UUID]model.Taglist
}

// Counts summarizes the size of a Basis.
type Counts struct {
	Tracks   int `json:"tracks"`
	Albums   int `json:"albums"`
	Artists  int `json:"artists"`
	Taglists int `json:"taglists"`
	Tags     int `json:"tags"`
}

var empty = build(Maps{})

// Empty returns the Basis of an empty library.
func Empty() *Basis {
	return empty
}

// New builds a Basis from entity collections. Later entries win on
// duplicate ids.
func New(tracks []model.Track, albums []model.Album, artists []model.Artist, taglists []model.Taglist) *Basis {
	m := Maps{
		Tracks:   make(map[uuid.UUID]model.Track, len(tracks)),
		Albums:   make(map[uuid.UUID]model.Album, len(albums)),
		Artists:  make(map[uuid.UUID]model.Artist, len(artists)),
		Taglists: make(map[uuid.UUID]model.Taglist, len(taglists)),
	}
	for _, t := range tracks {
		m.Tracks[t.ID] = t
	}
	for _, a := range albums {
		m.Albums[a.ID] = a
	}
	for _, a := range artists {
		m.Artists[a.ID] = a
	}
	for _, l := range taglists {
		m.Taglists[l.ID] = l
	}
	return build(m)
}

// Derive returns a new Basis with the non-nil maps in m replacing this
// Basis's maps. Derive takes ownership of the maps it is given.
func (b *Basis) Derive(m Maps) *Basis {
	if m.Tracks == nil {
		m.Tracks = b.tracks
	}
	if m.Albums == nil {
		m.Albums = b.albums
	}
	if m.Artists == nil {
		m.Artists = b.artists
	}
	if m.Taglists == nil {
		m.Taglists = b.taglists
	}
	return build(m)
}

// Maps returns copies of the Basis's maps, safe for the caller to modify
// and hand to Derive.
func (b *Basis) Maps() Maps {
	return Maps{
		Tracks:   maps.Clone(b.tracks),
		Albums:   maps.Clone(b.albums),
		Artists:  maps.Clone(b.artists),
		Taglists: maps.Clone(b.taglists),
	}
}

// View returns the Basis's maps without copying them. The maps are shared
// with the Basis and must not be modified.
func (b *Basis) View() Maps {
	return Maps{Tracks: b.tracks, Albums: b.albums, Artists: b.artists, Taglists: b.taglists}
}

func build(m Maps) *Basis {
	if m.Tracks == nil {
		m.Tracks = map[uuid.UUID]model.Track{}
	}
	if m.Albums == nil {
		m.Albums = map[uuid.UUID]model.Album{}
	}
	if m.Artists == nil {
		m.Artists = map[uuid.UUID]model.Artist{}
	}
	if m.Taglists == nil {
		m.Taglists = map[uuid.UUID]model.Taglist{}
	}

	b := &Basis{
		tracks:   m.Tracks,
		albums:   m.Albums,
		artists:  m.Artists,
		taglists: m.Taglists,
	}

	b.allTracks = sortedValues(b.tracks, func(x, y model.Track) int {
		return CompareLabels(x.Label(), y.Label(), x.ID, y.ID)
	})
	b.allAlbums = sortedValues(b.albums, func(x, y model.Album) int {
		return CompareLabels(x.Title, y.Title, x.ID, y.ID)
	})
	b.allArtists = sortedValues(b.artists, func(x, y model.Artist) int {
		return CompareLabels(x.Name, y.Name, x.ID, y.ID)
	})
	b.allTaglists = sortedValues(b.taglists, func(x, y model.Taglist) int {
		return CompareLabels(x.Title, y.Title, x.ID, y.ID)
	})

	b.albumTracks = make(map[uuid.UUID][]model.Track, len(b.albums))
	for id, a := range b.albums {
		songs := b.Tracks(a.Songs)
		slices.SortFunc(songs, CompareInAlbum)
		b.albumTracks[id] = songs
	}

	seen := make(map[string]struct{})
	for _, t := range b.tracks {
		for _, tag := range t.Tags {
			if _, ok := seen[tag]; !ok {
				seen[tag] = struct{}{}
				b.tags = append(b.tags, tag)
			}
		}
	}
	slices.Sort(b.tags)

	return b
}

func sortedValues[V any](m map[uuid.UUID]V, cmp func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, cmp)
	return out
}

// Track looks up a track by id.
func (b *Basis) Track(id uuid.UUID) (model.Track, bool) {
	t, ok := b.tracks[id]
	return t, ok
}

// Tracks returns the tracks for ids in the given order, skipping unknown ids.
func (b *Basis) Tracks(ids []uuid.UUID) []model.Track {
	return lookup(b.tracks, ids)
}

// AllTracks returns every track sorted by label.
func (b *Basis) AllTracks() []model.Track {
	return b.allTracks
}

// Album looks up an album by id.
func (b *Basis) Album(id uuid.UUID) (model.Album, bool) {
	a, ok := b.albums[id]
	return a, ok
}

// Albums returns the albums for ids in the given order, skipping unknown ids.
func (b *Basis) Albums(ids []uuid.UUID) []model.Album {
	return lookup(b.albums, ids)
}

// AllAlbums returns every album sorted by title.
func (b *Basis) AllAlbums() []model.Album {
	return b.allAlbums
}

// AlbumTracks returns an album's tracks ordered by disc and track number.
func (b *Basis) AlbumTracks(id uuid.UUID) []model.Track {
	return b.albumTracks[id]
}

// Artist looks up an artist by id.
func (b *Basis) Artist(id uuid.UUID) (model.Artist, bool) {
	a, ok := b.artists[id]
	return a, ok
}

// Artists returns the artists for ids in the given order, skipping unknown ids.
func (b *Basis) Artists(ids []uuid.UUID) []model.Artist {
	return lookup(b.artists, ids)
}

// AllArtists returns every artist sorted by name.
func (b *Basis) AllArtists() []model.Artist {
	return b.allArtists
}

// Taglist looks up a taglist by id.
func (b *Basis) Taglist(id uuid.UUID) (model.Taglist, bool) {
	l, ok := b.taglists[id]
	return l, ok
}

// Taglists returns the taglists for ids in the given order, skipping unknown ids.
func (b *Basis) Taglists(ids []uuid.UUID) []model.Taglist {
	return lookup(b.taglists, ids)
}

// AllTaglists returns every taglist sorted by title.
func (b *Basis) AllTaglists() []model.Taglist {
	return b.allTaglists
}

// Tags returns the sorted union of tags carried by any track.
func (b *Basis) Tags() []string {
	return b.tags
}

// Counts returns the number of entities of each kind.
func (b *Basis) Counts() Counts {
	return Counts{
		Tracks:   len(b.tracks),
		Albums:   len(b.albums),
		Artists:  len(b.artists),
		Taglists: len(b.taglists),
		Tags:     len(b.tags),
	}
}

// Equal reports whether two snapshots hold identical entities.
func (b *Basis) Equal(o *Basis) bool {
	return maps.EqualFunc(b.tracks, o.tracks, model.Track.Equal) &&
		maps.EqualFunc(b.albums, o.albums, model.Album.Equal) &&
		maps.EqualFunc(b.artists, o.artists, model.Artist.Equal) &&
		maps.EqualFunc(b.taglists, o.taglists, model.Taglist.Equal)
}

func lookup[V any](m map[uuid.UUID]V, ids []uuid.UUID) []V {
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		if v, ok := m[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
