// Package edit builds the transactions behind user-facing library edits.
//
// Each generator takes the Basis the edit will be applied to and returns a
// labeled transaction. Edits that touch free-text linking fields (a track's
// artist name or album title, an album title, an artist name) are expanded
// into per-track updates and routed through the linking engine, so the
// transaction carries every cascading change. Generators never fail: an
// edit that targets nothing or changes nothing yields an empty transaction.
package edit

import (
	"slices"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/linking"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/resolver"
)

// Generator builds edit transactions.
type Generator struct {
	linker *linking.Engine
	newID  func() uuid.UUID
}

// NewGenerator returns a Generator that links through linker.
func NewGenerator(linker *linking.Engine) *Generator {
	if linker == nil {
		linker = linking.New()
	}
	return &Generator{linker: linker, newID: uuid.New}
}

// link runs a linking pass for track assertions against the Basis
// produced by applying own to b, then prunes the combined result against
// b. own carries the edit's non-track assertions, such as an album rename,
// so the pass resolves names against the renamed entities. A name another
// entity already held in b stays with that entity, so renaming onto it
// merges.
func (g *Generator) link(b *basis.Basis, own, tracks assertion.Set) assertion.Set {
	scratch := resolver.Apply(own, b)
	linked := g.linker.UpdateLinksAfter(tracks, scratch, b)
	return assertion.Prune(assertion.Flatten([]assertion.Set{own, linked}), b)
}

// withTaglists extends s with the songs of every rule-based taglist as
// they stand once s is applied to b, and drops stale song references from
// hand-curated taglists.
func (g *Generator) withTaglists(b *basis.Basis, s assertion.Set) assertion.Set {
	if len(s.OfKind(assertion.KindTrack)) == 0 {
		return s
	}
	after := resolver.Apply(s, b)

	var as []assertion.Assertion
	for _, l := range after.AllTaglists() {
		var songs []uuid.UUID
		if l.HasRules() {
			songs = qualifyingSongs(l, after)
		} else {
			songs = make([]uuid.UUID, 0, len(l.Songs))
			for _, t := range after.Tracks(l.Songs) {
				songs = append(songs, t.ID)
			}
		}
		if !slices.Equal(songs, l.Songs) {
			as = append(as, assertion.UpdateTaglist(l.ID, model.TaglistUpdate{Songs: songs}))
		}
	}
	if len(as) == 0 {
		return s
	}
	return assertion.Prune(assertion.Flatten([]assertion.Set{s, assertion.NewSet(as...)}), b)
}

// qualifyingSongs lists, in label order, the tracks of b that satisfy the
// taglist's rules.
func qualifyingSongs(l model.Taglist, b *basis.Basis) []uuid.UUID {
	songs := make([]uuid.UUID, 0)
	for _, t := range b.AllTracks() {
		if l.Qualifies(t) {
			songs = append(songs, t.ID)
		}
	}
	return songs
}
