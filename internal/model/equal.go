package model

import "slices"

// Equal reports whether two tracks hold the same values. Nil and empty
// slices compare equal.
func (t Track) Equal(o Track) bool {
	return t.ID == o.ID &&
		t.Source == o.Source &&
		t.Duration == o.Duration &&
		eqPtr(t.Title, o.Title) &&
		eqPtr(t.TrackNo, o.TrackNo) &&
		eqPtr(t.DiscNo, o.DiscNo) &&
		eqPtr(t.Art, o.Art) &&
		eqPtr(t.ArtistName, o.ArtistName) &&
		eqPtr(t.AlbumTitle, o.AlbumTitle) &&
		slices.Equal(t.Artists, o.Artists) &&
		slices.Equal(t.Albums, o.Albums) &&
		eqPtr(t.Rating, o.Rating) &&
		slices.Equal(t.Tags, o.Tags)
}

// Equal reports whether two albums hold the same values.
func (a Album) Equal(o Album) bool {
	return a.ID == o.ID &&
		a.Title == o.Title &&
		eqPtr(a.Art, o.Art) &&
		slices.Equal(a.Songs, o.Songs) &&
		eqPtr(a.ArtistOverride, o.ArtistOverride) &&
		a.ArtistName == o.ArtistName &&
		slices.Equal(a.Artists, o.Artists)
}

// Equal reports whether two artists hold the same values.
func (a Artist) Equal(o Artist) bool {
	return a.ID == o.ID &&
		a.Name == o.Name &&
		slices.Equal(a.Songs, o.Songs) &&
		slices.Equal(a.Albums, o.Albums) &&
		eqPtr(a.Art, o.Art)
}

// Equal reports whether two taglists hold the same values.
func (l Taglist) Equal(o Taglist) bool {
	return l.ID == o.ID &&
		l.Title == o.Title &&
		slices.EqualFunc(l.Positive, o.Positive, ruleEqual) &&
		slices.EqualFunc(l.Negative, o.Negative, ruleEqual) &&
		slices.Equal(l.Songs, o.Songs) &&
		eqPtr(l.Art, o.Art)
}

func ruleEqual(a, b TagRule) bool {
	return slices.Equal(a.Tags, b.Tags)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
