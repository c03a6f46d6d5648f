package model

import (
	"time"

	"github.com/google/uuid"
)

// TrackField names a track field that an update can erase.
type TrackField string

// Erasable track fields.
const (
	TrackTitle      TrackField = "title"
	TrackTrackNo    TrackField = "track_no"
	TrackDiscNo     TrackField = "disc_no"
	TrackArt        TrackField = "art"
	TrackArtistName TrackField = "artist_name"
	TrackAlbumTitle TrackField = "album_title"
	TrackArtists    TrackField = "artists"
	TrackAlbums     TrackField = "albums"
	TrackRating     TrackField = "rating"
	TrackTags       TrackField = "tags"
)

// TrackUpdate is a sparse patch onto a Track. A nil field leaves the value
// unchanged; a field named in Erasing is cleared. Slice fields are set
// whenever they are non-nil, including when empty.
type TrackUpdate struct {
	Source     *string        `json:"source,omitempty"`
	Duration   *time.Duration `json:"duration,omitempty"`
	Title      *string        `json:"title,omitempty"`
	TrackNo    *int           `json:"track_no,omitempty"`
	DiscNo     *int           `json:"disc_no,omitempty"`
	Art        *string        `json:"art,omitempty"`
	ArtistName *string        `json:"artist_name,omitempty"`
	AlbumTitle *string        `json:"album_title,omitempty"`
	Artists    []uuid.UUID    `json:"artists"`
	Albums     []uuid.UUID    `json:"albums"`
	Rating     *int           `json:"rating,omitempty"`
	Tags       []string       `json:"tags"`
	Erasing    []TrackField   `json:"erasing,omitempty"`
}

// Erase returns a copy of u that additionally clears fields.
func (u TrackUpdate) Erase(fields ...TrackField) TrackUpdate {
	u.Erasing = newFieldSet(append(append([]TrackField(nil), u.Erasing...), fields...)...)
	return u
}

// Erases reports whether u clears f.
func (u TrackUpdate) Erases(f TrackField) bool {
	return fieldSet[TrackField](u.Erasing).has(f)
}

// TouchesLinks reports whether u changes the free-text fields that drive
// artist and album membership.
func (u TrackUpdate) TouchesLinks() bool {
	return u.ArtistName != nil || u.AlbumTitle != nil ||
		u.Erases(TrackArtistName) || u.Erases(TrackAlbumTitle)
}

// TouchesDerived reports whether u changes a field that album and artist
// listings derive from: song order, labels or album art.
func (u TrackUpdate) TouchesDerived() bool {
	return u.Title != nil || u.TrackNo != nil || u.DiscNo != nil || u.Art != nil || u.Source != nil ||
		u.Erases(TrackTitle) || u.Erases(TrackTrackNo) || u.Erases(TrackDiscNo) || u.Erases(TrackArt)
}

// Apply returns t with the patch applied.
func (u TrackUpdate) Apply(t Track) Track {
	e := fieldSet[TrackField](u.Erasing)
	if u.Source != nil {
		t.Source = *u.Source
	}
	if u.Duration != nil {
		t.Duration = *u.Duration
	}
	t.Title = patchPtr(t.Title, u.Title, e.has(TrackTitle))
	t.TrackNo = patchPtr(t.TrackNo, u.TrackNo, e.has(TrackTrackNo))
	t.DiscNo = patchPtr(t.DiscNo, u.DiscNo, e.has(TrackDiscNo))
	t.Art = patchPtr(t.Art, u.Art, e.has(TrackArt))
	t.ArtistName = patchPtr(t.ArtistName, u.ArtistName, e.has(TrackArtistName))
	t.AlbumTitle = patchPtr(t.AlbumTitle, u.AlbumTitle, e.has(TrackAlbumTitle))
	t.Artists = patchSlice(t.Artists, u.Artists, e.has(TrackArtists))
	t.Albums = patchSlice(t.Albums, u.Albums, e.has(TrackAlbums))
	t.Rating = patchPtr(t.Rating, u.Rating, e.has(TrackRating))
	t.Tags = patchSlice(t.Tags, u.Tags, e.has(TrackTags))
	return t
}

// Merge folds next onto u. Fields next sets or erases override u's.
func (u TrackUpdate) Merge(next TrackUpdate) TrackUpdate {
	m := &fieldMerger[TrackField]{left: u.Erasing, right: next.Erasing}
	var out TrackUpdate
	out.Source, _ = mergePtr(u.Source, next.Source, false, false)
	out.Duration, _ = mergePtr(u.Duration, next.Duration, false, false)
	m.field(TrackTitle, func(l, r bool) (e bool) { out.Title, e = mergePtr(u.Title, next.Title, l, r); return })
	m.field(TrackTrackNo, func(l, r bool) (e bool) { out.TrackNo, e = mergePtr(u.TrackNo, next.TrackNo, l, r); return })
	m.field(TrackDiscNo, func(l, r bool) (e bool) { out.DiscNo, e = mergePtr(u.DiscNo, next.DiscNo, l, r); return })
	m.field(TrackArt, func(l, r bool) (e bool) { out.Art, e = mergePtr(u.Art, next.Art, l, r); return })
	m.field(TrackArtistName, func(l, r bool) (e bool) {
		out.ArtistName, e = mergePtr(u.ArtistName, next.ArtistName, l, r)
		return
	})
	m.field(TrackAlbumTitle, func(l, r bool) (e bool) {
		out.AlbumTitle, e = mergePtr(u.AlbumTitle, next.AlbumTitle, l, r)
		return
	})
	m.field(TrackArtists, func(l, r bool) (e bool) { out.Artists, e = mergeSlice(u.Artists, next.Artists, l, r); return })
	m.field(TrackAlbums, func(l, r bool) (e bool) { out.Albums, e = mergeSlice(u.Albums, next.Albums, l, r); return })
	m.field(TrackRating, func(l, r bool) (e bool) { out.Rating, e = mergePtr(u.Rating, next.Rating, l, r); return })
	m.field(TrackTags, func(l, r bool) (e bool) { out.Tags, e = mergeSlice(u.Tags, next.Tags, l, r); return })
	out.Erasing = m.result()
	return out
}

// AlbumField names an album field that an update can erase.
type AlbumField string

// Erasable album fields.
const (
	AlbumArt            AlbumField = "art"
	AlbumSongs          AlbumField = "songs"
	AlbumArtistOverride AlbumField = "artist_override"
	AlbumArtists        AlbumField = "artists"
)

// AlbumUpdate is a sparse patch onto an Album.
type AlbumUpdate struct {
	Title          *string      `json:"title,omitempty"`
	Art            *string      `json:"art,omitempty"`
	Songs          []uuid.UUID  `json:"songs"`
	ArtistOverride *string      `json:"artist_override,omitempty"`
	ArtistName     *string      `json:"artist_name,omitempty"`
	Artists        []uuid.UUID  `json:"artists"`
	Erasing        []AlbumField `json:"erasing,omitempty"`
}

// Erase returns a copy of u that additionally clears fields.
func (u AlbumUpdate) Erase(fields ...AlbumField) AlbumUpdate {
	u.Erasing = newFieldSet(append(append([]AlbumField(nil), u.Erasing...), fields...)...)
	return u
}

// Erases reports whether u clears f.
func (u AlbumUpdate) Erases(f AlbumField) bool {
	return fieldSet[AlbumField](u.Erasing).has(f)
}

// Apply returns a with the patch applied.
func (u AlbumUpdate) Apply(a Album) Album {
	e := fieldSet[AlbumField](u.Erasing)
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.ArtistName != nil {
		a.ArtistName = *u.ArtistName
	}
	a.Art = patchPtr(a.Art, u.Art, e.has(AlbumArt))
	a.Songs = patchSlice(a.Songs, u.Songs, e.has(AlbumSongs))
	a.ArtistOverride = patchPtr(a.ArtistOverride, u.ArtistOverride, e.has(AlbumArtistOverride))
	a.Artists = patchSlice(a.Artists, u.Artists, e.has(AlbumArtists))
	return a
}

// Merge folds next onto u.
func (u AlbumUpdate) Merge(next AlbumUpdate) AlbumUpdate {
	m := &fieldMerger[AlbumField]{left: u.Erasing, right: next.Erasing}
	var out AlbumUpdate
	out.Title, _ = mergePtr(u.Title, next.Title, false, false)
	out.ArtistName, _ = mergePtr(u.ArtistName, next.ArtistName, false, false)
	m.field(AlbumArt, func(l, r bool) (e bool) { out.Art, e = mergePtr(u.Art, next.Art, l, r); return })
	m.field(AlbumSongs, func(l, r bool) (e bool) { out.Songs, e = mergeSlice(u.Songs, next.Songs, l, r); return })
	m.field(AlbumArtistOverride, func(l, r bool) (e bool) {
		out.ArtistOverride, e = mergePtr(u.ArtistOverride, next.ArtistOverride, l, r)
		return
	})
	m.field(AlbumArtists, func(l, r bool) (e bool) { out.Artists, e = mergeSlice(u.Artists, next.Artists, l, r); return })
	out.Erasing = m.result()
	return out
}

// ArtistField names an artist field that an update can erase.
type ArtistField string

// Erasable artist fields.
const (
	ArtistSongs  ArtistField = "songs"
	ArtistAlbums ArtistField = "albums"
	ArtistArt    ArtistField = "art"
)

// ArtistUpdate is a sparse patch onto an Artist.
type ArtistUpdate struct {
	Name    *string       `json:"name,omitempty"`
	Songs   []uuid.UUID   `json:"songs"`
	Albums  []uuid.UUID   `json:"albums"`
	Art     *string       `json:"art,omitempty"`
	Erasing []ArtistField `json:"erasing,omitempty"`
}

// Erase returns a copy of u that additionally clears fields.
func (u ArtistUpdate) Erase(fields ...ArtistField) ArtistUpdate {
	u.Erasing = newFieldSet(append(append([]ArtistField(nil), u.Erasing...), fields...)...)
	return u
}

// Erases reports whether u clears f.
func (u ArtistUpdate) Erases(f ArtistField) bool {
	return fieldSet[ArtistField](u.Erasing).has(f)
}

// Apply returns a with the patch applied.
func (u ArtistUpdate) Apply(a Artist) Artist {
	e := fieldSet[ArtistField](u.Erasing)
	if u.Name != nil {
		a.Name = *u.Name
	}
	a.Songs = patchSlice(a.Songs, u.Songs, e.has(ArtistSongs))
	a.Albums = patchSlice(a.Albums, u.Albums, e.has(ArtistAlbums))
	a.Art = patchPtr(a.Art, u.Art, e.has(ArtistArt))
	return a
}

// Merge folds next onto u.
func (u ArtistUpdate) Merge(next ArtistUpdate) ArtistUpdate {
	m := &fieldMerger[ArtistField]{left: u.Erasing, right: next.Erasing}
	var out ArtistUpdate
	out.Name, _ = mergePtr(u.Name, next.Name, false, false)
	m.field(ArtistSongs, func(l, r bool) (e bool) { out.Songs, e = mergeSlice(u.Songs, next.Songs, l, r); return })
	m.field(ArtistAlbums, func(l, r bool) (e bool) { out.Albums, e = mergeSlice(u.Albums, next.Albums, l, r); return })
	m.field(ArtistArt, func(l, r bool) (e bool) { out.Art, e = mergePtr(u.Art, next.Art, l, r); return })
	out.Erasing = m.result()
	return out
}

// TaglistField names a taglist field that an update can erase.
type TaglistField string

// Erasable taglist fields.
const (
	TaglistPositive TaglistField = "positive"
	TaglistNegative TaglistField = "negative"
	TaglistSongs    TaglistField = "songs"
	TaglistArt      TaglistField = "art"
)

// TaglistUpdate is a sparse patch onto a Taglist.
type TaglistUpdate struct {
	Title    *string        `json:"title,omitempty"`
	Positive []TagRule      `json:"positive"`
	Negative []TagRule      `json:"negative"`
	Songs    []uuid.UUID    `json:"songs"`
	Art      *string        `json:"art,omitempty"`
	Erasing  []TaglistField `json:"erasing,omitempty"`
}

// Erase returns a copy of u that additionally clears fields.
func (u TaglistUpdate) Erase(fields ...TaglistField) TaglistUpdate {
	u.Erasing = newFieldSet(append(append([]TaglistField(nil), u.Erasing...), fields...)...)
	return u
}

// Erases reports whether u clears f.
func (u TaglistUpdate) Erases(f TaglistField) bool {
	return fieldSet[TaglistField](u.Erasing).has(f)
}

// Apply returns l with the patch applied.
func (u TaglistUpdate) Apply(l Taglist) Taglist {
	e := fieldSet[TaglistField](u.Erasing)
	if u.Title != nil {
		l.Title = *u.Title
	}
	l.Positive = patchSlice(l.Positive, u.Positive, e.has(TaglistPositive))
	l.Negative = patchSlice(l.Negative, u.Negative, e.has(TaglistNegative))
	l.Songs = patchSlice(l.Songs, u.Songs, e.has(TaglistSongs))
	l.Art = patchPtr(l.Art, u.Art, e.has(TaglistArt))
	return l
}

// Merge folds next onto u.
func (u TaglistUpdate) Merge(next TaglistUpdate) TaglistUpdate {
	m := &fieldMerger[TaglistField]{left: u.Erasing, right: next.Erasing}
	var out TaglistUpdate
	out.Title, _ = mergePtr(u.Title, next.Title, false, false)
	m.field(TaglistPositive, func(l, r bool) (e bool) {
		out.Positive, e = mergeSlice(u.Positive, next.Positive, l, r)
		return
	})
	m.field(TaglistNegative, func(l, r bool) (e bool) {
		out.Negative, e = mergeSlice(u.Negative, next.Negative, l, r)
		return
	})
	m.field(TaglistSongs, func(l, r bool) (e bool) { out.Songs, e = mergeSlice(u.Songs, next.Songs, l, r); return })
	m.field(TaglistArt, func(l, r bool) (e bool) { out.Art, e = mergePtr(u.Art, next.Art, l, r); return })
	out.Erasing = m.result()
	return out
}
