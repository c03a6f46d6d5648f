// Package linking derives track, album and artist membership from the
// free-text artist name and album title carried by each track.
//
// A linking pass takes a batch of track assertions and returns every
// assertion needed to keep the library's many-to-many relationships
// consistent once the batch is applied: resolved link arrays on the tracks,
// recomputed membership on the albums and artists they leave or join, new
// albums and artists for names never seen before, and deletes for albums
// and artists left without tracks. Passes are idempotent: running one on
// an already consistent batch yields an empty set.
package linking

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/resolver"
)

// NameParser splits one free-text name into the component names it refers
// to, e.g. separating collaborating artists.
type NameParser func(name string) []string

// Identity treats the whole string as a single name.
func Identity(name string) []string {
	return []string{name}
}

// Engine runs linking passes.
type Engine struct {
	ParseArtists NameParser
	ParseAlbums  NameParser
	// NewID mints ids for albums and artists that do not exist yet.
	NewID func() uuid.UUID
}

// New returns an Engine with identity name parsing and random ids.
func New() *Engine {
	return &Engine{
		ParseArtists: Identity,
		ParseAlbums:  Identity,
		NewID:        uuid.New,
	}
}

// UpdateLinks returns input combined with every link assertion it implies
// against b, minus assertions that would not change b. Non-track
// assertions in input pass through and are applied before relinking.
func (e *Engine) UpdateLinks(input assertion.Set, b *basis.Basis) assertion.Set {
	return e.UpdateLinksAfter(input, b, b)
}

// UpdateLinksAfter is UpdateLinks for a b derived from prior by renaming
// or deleting albums and artists. A name resolves to the entity that held
// it in prior, so renaming onto a taken name merges into the existing
// entity, while renaming onto a free name keeps the renamed one.
func (e *Engine) UpdateLinksAfter(input assertion.Set, b, prior *basis.Basis) assertion.Set {
	p := e.newPass(b, prior)

	for _, a := range input.OfKind(assertion.KindTrack) {
		p.discover(a)
	}
	if len(p.relinked) == 0 {
		return assertion.Prune(input, b)
	}

	rough := p.membership()
	scratch := resolver.Apply(assertion.Flatten([]assertion.Set{input, rough}), b)
	organized := p.organize(rough, scratch)

	return assertion.Prune(assertion.Flatten([]assertion.Set{input, organized}), b)
}

// Relink recomputes the links of every track in b. On a consistent library
// the result is empty.
func (e *Engine) Relink(b *basis.Basis) assertion.Set {
	tracks := b.AllTracks()
	as := make([]assertion.Assertion, 0, len(tracks))
	for _, t := range tracks {
		as = append(as, assertion.UpdateTrack(t.ID, model.TrackUpdate{}))
	}
	return e.UpdateLinks(assertion.NewSet(as...), b)
}

// links are the resolved ids for a track's free-text fields.
type links struct {
	artists []uuid.UUID
	albums  []uuid.UUID
}

// pass holds the indices built for one UpdateLinks call.
type pass struct {
	engine *Engine
	base   *basis.Basis

	albumByTitle  map[string]uuid.UUID
	artistByName  map[string]uuid.UUID
	mintedAlbums  map[uuid.UUID]string
	mintedArtists map[uuid.UUID]string

	// relinked holds every track id in the batch, including deletes.
	relinked map[uuid.UUID]struct{}
	// next holds the post-batch value of every surviving relinked track.
	next      map[uuid.UUID]model.Track
	nextLinks map[uuid.UUID]links

	affectedAlbums  map[uuid.UUID]struct{}
	affectedArtists map[uuid.UUID]struct{}
}

func (e *Engine) newPass(b, prior *basis.Basis) *pass {
	p := &pass{
		engine:          e,
		base:            b,
		albumByTitle:    make(map[string]uuid.UUID),
		artistByName:    make(map[string]uuid.UUID),
		mintedAlbums:    make(map[uuid.UUID]string),
		mintedArtists:   make(map[uuid.UUID]string),
		relinked:        make(map[uuid.UUID]struct{}),
		next:            make(map[uuid.UUID]model.Track),
		nextLinks:       make(map[uuid.UUID]links),
		affectedAlbums:  make(map[uuid.UUID]struct{}),
		affectedArtists: make(map[uuid.UUID]struct{}),
	}
	// Names held in prior by entities b still carries under the same name
	// come first, then the rest of b. AllAlbums and AllArtists are sorted,
	// so duplicate names resolve to the first entity in listing order.
	for _, a := range prior.AllAlbums() {
		if cur, ok := b.Album(a.ID); ok && cur.Title == a.Title {
			claim(p.albumByTitle, a.Title, a.ID)
		}
	}
	for _, a := range b.AllAlbums() {
		claim(p.albumByTitle, a.Title, a.ID)
	}
	for _, a := range prior.AllArtists() {
		if cur, ok := b.Artist(a.ID); ok && cur.Name == a.Name {
			claim(p.artistByName, a.Name, a.ID)
		}
	}
	for _, a := range b.AllArtists() {
		claim(p.artistByName, a.Name, a.ID)
	}
	return p
}

func claim(index map[string]uuid.UUID, name string, id uuid.UUID) {
	if _, taken := index[name]; !taken {
		index[name] = id
	}
}

// discover records the names a track assertion leaves and joins, and the
// post-assertion state of the track.
func (p *pass) discover(a assertion.Assertion) {
	p.relinked[a.ID] = struct{}{}

	old, existed := p.base.Track(a.ID)
	if existed {
		p.touch(old)
		for _, id := range old.Artists {
			p.affectedArtists[id] = struct{}{}
		}
		for _, id := range old.Albums {
			p.affectedAlbums[id] = struct{}{}
		}
	}

	var t model.Track
	switch a.Op {
	case assertion.OpAdd:
		t = *a.Track
	case assertion.OpUpdate:
		if !existed {
			return
		}
		t = a.TrackUpdate.Apply(old)
	default:
		return
	}
	p.next[a.ID] = t
	p.nextLinks[a.ID] = p.touch(t)
}

// touch resolves a track's free-text fields, marking every resolved
// entity as affected.
func (p *pass) touch(t model.Track) links {
	var l links
	for _, name := range p.names(t.ArtistName, p.engine.ParseArtists) {
		id := p.artistID(name)
		p.affectedArtists[id] = struct{}{}
		l.artists = appendUnique(l.artists, id)
	}
	for _, title := range p.names(t.AlbumTitle, p.engine.ParseAlbums) {
		id := p.albumID(title)
		p.affectedAlbums[id] = struct{}{}
		l.albums = appendUnique(l.albums, id)
	}
	return l
}

func (p *pass) names(field *string, parse NameParser) []string {
	if field == nil || strings.TrimSpace(*field) == "" {
		return nil
	}
	if parse == nil {
		parse = Identity
	}
	var out []string
	for _, n := range parse(*field) {
		if strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	return out
}

func (p *pass) albumID(title string) uuid.UUID {
	if id, ok := p.albumByTitle[title]; ok {
		return id
	}
	id := p.engine.NewID()
	p.albumByTitle[title] = id
	p.mintedAlbums[id] = title
	return id
}

func (p *pass) artistID(name string) uuid.UUID {
	if id, ok := p.artistByName[name]; ok {
		return id
	}
	id := p.engine.NewID()
	p.artistByName[name] = id
	p.mintedArtists[id] = name
	return id
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
