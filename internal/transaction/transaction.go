// Package transaction defines the labeled units of change committed to the
// library log.
package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
)

// Significance classifies a transaction for history display.
type Significance string

// Significance levels.
const (
	Normal      Significance = "normal"
	Significant Significance = "significant"
)

// Valid reports whether s is a known significance.
func (s Significance) Valid() bool {
	return s == Normal || s == Significant
}

// Transaction is a labeled assertion set. Significance only affects how
// history is presented.
type Transaction struct {
	Label        string        `json:"label"`
	Significance Significance  `json:"significance"`
	Assertions   assertion.Set `json:"assertions"`
}

// New returns a transaction whose significance is derived from its
// assertions: significant when they span more than one entity kind or
// outnumber the entities the edit targeted directly.
func New(label string, targets int, s assertion.Set) Transaction {
	sig := Normal
	if s.KindCount() > 1 || s.Len() > targets {
		sig = Significant
	}
	return Transaction{Label: label, Significance: sig, Assertions: s}
}

// IsEmpty reports whether the transaction changes nothing.
func (t Transaction) IsEmpty() bool {
	return t.Assertions.IsEmpty()
}

// Record is a transaction as stored in the log.
type Record struct {
	ID          uuid.UUID   `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Transaction Transaction `json:"transaction"`
}

// NewRecord stamps t with a fresh id and the current time.
func NewRecord(t Transaction) Record {
	return Record{
		ID:          uuid.New(),
		Timestamp:   time.Now().UTC(),
		Transaction: t,
	}
}

// String returns a short description for logs.
func (r Record) String() string {
	return fmt.Sprintf("%s %q (%d assertions)", r.ID, r.Transaction.Label, r.Transaction.Assertions.Len())
}

// Label formats an edit label, switching to a count once more than one
// item is involved: "Delete track 'Intro'" versus "Delete 3 tracks".
func Label(verb, noun string, names []string) string {
	switch len(names) {
	case 0:
		return fmt.Sprintf("%s %ss", verb, noun)
	case 1:
		return fmt.Sprintf("%s %s '%s'", verb, noun, names[0])
	default:
		return fmt.Sprintf("%s %d %ss", verb, len(names), noun)
	}
}
