package edit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

// AddTaglist creates a taglist. A taglist with rules gets its songs from
// the rules; otherwise the given songs are kept, minus unknown ids.
func (g *Generator) AddTaglist(b *basis.Basis, l model.Taglist) transaction.Transaction {
	if l.ID == uuid.Nil {
		l.ID = g.newID()
	}
	l.Songs = g.taglistSongs(b, l)
	s := assertion.NewSet(assertion.AddTaglist(l))
	return transaction.New(fmt.Sprintf("Add taglist '%s'", l.Title), 1, s)
}

// UpdateTaglist edits a taglist. Changing rules recomputes its songs.
func (g *Generator) UpdateTaglist(b *basis.Basis, id uuid.UUID, u model.TaglistUpdate) transaction.Transaction {
	cur, ok := b.Taglist(id)
	if !ok {
		return transaction.Transaction{Label: "Update taglist", Significance: transaction.Normal}
	}
	next := u.Apply(cur)
	if songs := g.taglistSongs(b, next); next.HasRules() || u.Songs != nil {
		u.Songs = songs
	}
	s := assertion.Prune(assertion.NewSet(assertion.UpdateTaglist(id, u)), b)
	return transaction.New(fmt.Sprintf("Update taglist '%s'", cur.Title), 1, s)
}

// DeleteTaglists removes taglists. Their tracks are untouched.
func (g *Generator) DeleteTaglists(b *basis.Basis, ids []uuid.UUID) transaction.Transaction {
	lists := b.Taglists(ids)
	as := make([]assertion.Assertion, 0, len(lists))
	names := make([]string, 0, len(lists))
	for _, l := range lists {
		as = append(as, assertion.Delete(assertion.KindTaglist, l.ID))
		names = append(names, l.Title)
	}
	return transaction.New(transaction.Label("Delete", "taglist", names), len(lists), assertion.NewSet(as...))
}

func (g *Generator) taglistSongs(b *basis.Basis, l model.Taglist) []uuid.UUID {
	if l.HasRules() {
		return qualifyingSongs(l, b)
	}
	songs := make([]uuid.UUID, 0, len(l.Songs))
	for _, t := range b.Tracks(l.Songs) {
		songs = append(songs, t.ID)
	}
	return songs
}
