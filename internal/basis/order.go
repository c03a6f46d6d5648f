package basis

import (
	"bytes"
	"cmp"
	"strings"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// CompareLabels orders two entities alphabetically by label, ignoring case.
// Ties fall back to the id so orderings are total.
func CompareLabels(a, b string, aID, bID uuid.UUID) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	if c := strings.Compare(a, b); c != 0 {
		return c
	}
	return bytes.Compare(aID[:], bID[:])
}

// CompareInAlbum orders tracks by disc number, then track number, then
// label. Missing numbers sort first.
func CompareInAlbum(a, b model.Track) int {
	if c := compareOptional(a.DiscNo, b.DiscNo); c != 0 {
		return c
	}
	if c := compareOptional(a.TrackNo, b.TrackNo); c != 0 {
		return c
	}
	return CompareLabels(a.Label(), b.Label(), a.ID, b.ID)
}

func compareOptional(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}
