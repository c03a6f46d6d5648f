package assertion

// Combine merges two assertions targeting the same id, right being the
// later one. Every (left.Op, right.Op) pair has a defined result:
//
//	left\right  add     update          delete
//	add         right   left+patch      right
//	update      left    merged patches  right
//	delete      right   left            left
//
// add/add, update/add and delete/update do not arise when adds always
// introduce fresh ids; they still resolve deterministically. Assertions of
// different kinds resolve to right.
func Combine(left, right Assertion) Assertion {
	if left.Kind != right.Kind {
		return right
	}

	switch left.Op {
	case OpAdd:
		switch right.Op {
		case OpAdd, OpDelete:
			return right
		case OpUpdate:
			return patchAdd(left, right)
		}
	case OpUpdate:
		switch right.Op {
		case OpAdd:
			return left
		case OpUpdate:
			return mergeUpdates(left, right)
		case OpDelete:
			return right
		}
	case OpDelete:
		switch right.Op {
		case OpAdd:
			return right
		case OpUpdate, OpDelete:
			return left
		}
	}
	return right
}

// patchAdd applies an update's patch onto an add's payload.
func patchAdd(add, update Assertion) Assertion {
	out := add
	switch add.Kind {
	case KindTrack:
		t := update.TrackUpdate.Apply(*add.Track)
		out.Track = &t
	case KindAlbum:
		a := update.AlbumUpdate.Apply(*add.Album)
		out.Album = &a
	case KindArtist:
		a := update.ArtistUpdate.Apply(*add.Artist)
		out.Artist = &a
	case KindTaglist:
		l := update.TaglistUpdate.Apply(*add.Taglist)
		out.Taglist = &l
	}
	return out
}

func mergeUpdates(left, right Assertion) Assertion {
	out := left
	switch left.Kind {
	case KindTrack:
		u := left.TrackUpdate.Merge(*right.TrackUpdate)
		out.TrackUpdate = &u
	case KindAlbum:
		u := left.AlbumUpdate.Merge(*right.AlbumUpdate)
		out.AlbumUpdate = &u
	case KindArtist:
		u := left.ArtistUpdate.Merge(*right.ArtistUpdate)
		out.ArtistUpdate = &u
	case KindTaglist:
		u := left.TaglistUpdate.Merge(*right.TaglistUpdate)
		out.TaglistUpdate = &u
	}
	return out
}
