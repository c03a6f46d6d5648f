package model

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Track is a single playable file in the library. ArtistName and AlbumTitle
// are the free-text fields the scanner or the user supplies; Artists and
// Albums are derived from them by the linking engine.
type Track struct {
	ID         uuid.UUID     `json:"id"`
	Source     string        `json:"source"`
	Duration   time.Duration `json:"duration"`
	Title      *string       `json:"title,omitempty"`
	TrackNo    *int          `json:"track_no,omitempty"`
	DiscNo     *int          `json:"disc_no,omitempty"`
	Art        *string       `json:"art,omitempty"`
	ArtistName *string       `json:"artist_name,omitempty"`
	AlbumTitle *string       `json:"album_title,omitempty"`
	Artists    []uuid.UUID   `json:"artists"`
	Albums     []uuid.UUID   `json:"albums"`
	Rating     *int          `json:"rating,omitempty"`
	Tags       []string      `json:"tags"`
}

// Album groups tracks sharing an album title. ArtistName is the display
// name derived from ArtistOverride or the linked artists.
type Album struct {
	ID             uuid.UUID   `json:"id"`
	Title          string      `json:"title"`
	Art            *string     `json:"art,omitempty"`
	Songs          []uuid.UUID `json:"songs"`
	ArtistOverride *string     `json:"artist_override,omitempty"`
	ArtistName     string      `json:"artist_name"`
	Artists        []uuid.UUID `json:"artists"`
}

// Artist groups tracks sharing an artist name.
type Artist struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Songs  []uuid.UUID `json:"songs"`
	Albums []uuid.UUID `json:"albums"`
	Art    *string     `json:"art,omitempty"`
}

// TagRule is satisfied by a track carrying every tag in the rule.
type TagRule struct {
	Tags []string `json:"tags"`
}

// Taglist is a user-defined list of tracks, either curated by hand or
// derived from tag rules.
type Taglist struct {
	ID       uuid.UUID   `json:"id"`
	Title    string      `json:"title"`
	Positive []TagRule   `json:"positive"`
	Negative []TagRule   `json:"negative"`
	Songs    []uuid.UUID `json:"songs"`
	Art      *string     `json:"art,omitempty"`
}

// Display names used when an album has no explicit artist override.
const (
	UnknownArtist  = "Unknown Artist"
	VariousArtists = "Various Artists"
)

// Label returns the name a track is listed under.
func (t Track) Label() string {
	if t.Title != nil && *t.Title != "" {
		return *t.Title
	}
	return filepath.Base(t.Source)
}

// Label returns the album title.
func (a Album) Label() string { return a.Title }

// Label returns the artist name.
func (a Artist) Label() string { return a.Name }

// Label returns the taglist title.
func (l Taglist) Label() string { return l.Title }

// HasTags reports whether the track carries every tag in tags.
func (t Track) HasTags(tags []string) bool {
	for _, tag := range tags {
		if !slices.Contains(t.Tags, tag) {
			return false
		}
	}
	return true
}

// Satisfied reports whether t carries every tag in the rule. An empty rule
// is satisfied by every track.
func (r TagRule) Satisfied(t Track) bool {
	return t.HasTags(r.Tags)
}

// HasRules reports whether the taglist derives its songs from tag rules.
func (l Taglist) HasRules() bool {
	return len(l.Positive) > 0 || len(l.Negative) > 0
}

// Qualifies reports whether t belongs in a rule-based taglist: it must
// satisfy every positive rule and no negative rule. Taglists without rules
// qualify nothing.
func (l Taglist) Qualifies(t Track) bool {
	if !l.HasRules() {
		return false
	}
	for _, r := range l.Positive {
		if !r.Satisfied(t) {
			return false
		}
	}
	for _, r := range l.Negative {
		if r.Satisfied(t) {
			return false
		}
	}
	return true
}

// DisplayArtistName computes an album's artist name from its override and
// the names of its linked artists.
func DisplayArtistName(override *string, artistNames []string) string {
	if override != nil {
		return *override
	}
	switch len(artistNames) {
	case 0:
		return UnknownArtist
	case 1:
		return artistNames[0]
	default:
		return VariousArtists
	}
}

// NormalizeTags trims, drops empties, dedupes and sorts a tag list.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
