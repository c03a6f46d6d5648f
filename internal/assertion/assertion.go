// Package assertion defines the typed deltas applied to a library Basis and
// the merge algebra over them.
//
// An Assertion is a closed tagged union keyed by (Kind, Op): exactly one
// payload field is populated, selected by the pair. Adds carry an entity,
// updates carry a sparse patch, deletes carry nothing beyond the target id.
package assertion

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// Kind identifies the entity kind an assertion targets.
type Kind string

// Entity kinds.
const (
	KindTrack   Kind = "track"
	KindAlbum   Kind = "album"
	KindArtist  Kind = "artist"
	KindTaglist Kind = "taglist"
)

// Kinds lists every entity kind in a fixed order.
var Kinds = []Kind{KindTrack, KindAlbum, KindArtist, KindTaglist}

// Op identifies what an assertion does to its target.
type Op string

// Operations.
const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Assertion is a single delta against one entity.
type Assertion struct {
	ID   uuid.UUID `json:"id"`
	Kind Kind      `json:"kind"`
	Op   Op        `json:"op"`

	Track   *model.Track   `json:"track,omitempty"`
	Album   *model.Album   `json:"album,omitempty"`
	Artist  *model.Artist  `json:"artist,omitempty"`
	Taglist *model.Taglist `json:"taglist,omitempty"`

	TrackUpdate   *model.TrackUpdate   `json:"track_update,omitempty"`
	AlbumUpdate   *model.AlbumUpdate   `json:"album_update,omitempty"`
	ArtistUpdate  *model.ArtistUpdate  `json:"artist_update,omitempty"`
	TaglistUpdate *model.TaglistUpdate `json:"taglist_update,omitempty"`
}

// AddTrack asserts a new track.
func AddTrack(t model.Track) Assertion {
	return Assertion{ID: t.ID, Kind: KindTrack, Op: OpAdd, Track: &t}
}

// AddAlbum asserts a new album.
func AddAlbum(a model.Album) Assertion {
	return Assertion{ID: a.ID, Kind: KindAlbum, Op: OpAdd, Album: &a}
}

// AddArtist asserts a new artist.
func AddArtist(a model.Artist) Assertion {
	return Assertion{ID: a.ID, Kind: KindArtist, Op: OpAdd, Artist: &a}
}

// AddTaglist asserts a new taglist.
func AddTaglist(l model.Taglist) Assertion {
	return Assertion{ID: l.ID, Kind: KindTaglist, Op: OpAdd, Taglist: &l}
}

// UpdateTrack patches an existing track.
func UpdateTrack(id uuid.UUID, u model.TrackUpdate) Assertion {
	return Assertion{ID: id, Kind: KindTrack, Op: OpUpdate, TrackUpdate: &u}
}

// UpdateAlbum patches an existing album.
func UpdateAlbum(id uuid.UUID, u model.AlbumUpdate) Assertion {
	return Assertion{ID: id, Kind: KindAlbum, Op: OpUpdate, AlbumUpdate: &u}
}

// UpdateArtist patches an existing artist.
func UpdateArtist(id uuid.UUID, u model.ArtistUpdate) Assertion {
	return Assertion{ID: id, Kind: KindArtist, Op: OpUpdate, ArtistUpdate: &u}
}

// UpdateTaglist patches an existing taglist.
func UpdateTaglist(id uuid.UUID, u model.TaglistUpdate) Assertion {
	return Assertion{ID: id, Kind: KindTaglist, Op: OpUpdate, TaglistUpdate: &u}
}

// Delete removes the entity of the given kind.
func Delete(kind Kind, id uuid.UUID) Assertion {
	return Assertion{ID: id, Kind: kind, Op: OpDelete}
}

// Valid reports whether the payload matches the (Kind, Op) tag.
func (a Assertion) Valid() bool {
	if a.ID == uuid.Nil {
		return false
	}
	adds := [...]bool{a.Track != nil, a.Album != nil, a.Artist != nil, a.Taglist != nil}
	updates := [...]bool{a.TrackUpdate != nil, a.AlbumUpdate != nil, a.ArtistUpdate != nil, a.TaglistUpdate != nil}

	idx := -1
	for i, k := range Kinds {
		if k == a.Kind {
			idx = i
		}
	}
	if idx < 0 {
		return false
	}

	count := func(xs [4]bool) int {
		n := 0
		for _, x := range xs {
			if x {
				n++
			}
		}
		return n
	}

	switch a.Op {
	case OpAdd:
		return adds[idx] && count(adds) == 1 && count(updates) == 0 && payloadID(a) == a.ID
	case OpUpdate:
		return updates[idx] && count(updates) == 1 && count(adds) == 0
	case OpDelete:
		return count(adds) == 0 && count(updates) == 0
	default:
		return false
	}
}

func payloadID(a Assertion) uuid.UUID {
	switch a.Kind {
	case KindTrack:
		return a.Track.ID
	case KindAlbum:
		return a.Album.ID
	case KindArtist:
		return a.Artist.ID
	case KindTaglist:
		return a.Taglist.ID
	}
	return uuid.Nil
}

// String returns a short description for logs.
func (a Assertion) String() string {
	return fmt.Sprintf("%s %s %s", a.Op, a.Kind, a.ID)
}
