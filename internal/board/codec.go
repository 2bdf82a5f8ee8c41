package board

import (
	c "github.com/classpad/boardsync/internal/common"
)

// Codec turns store mutation notifications into ChangeSets ready for
// the wire, resolving full record bodies from the store.
type Codec struct {
	store *Store
}

func NewCodec(store *Store) *Codec {
	return &Codec{store: store}
}

// Encode translates a Change into a ChangeSet. It returns false when
// there is nothing to send: the mutation came from a peer (echoing it
// back would amplify), or every id resolved to nothing.
//
// A record added and removed in the same batch window may yield both
// an upsert and a removal; the receiving end's remove of an unknown
// id is a no-op, so both pass through harmlessly.
func (cd *Codec) Encode(ch Change) (c.ChangeSet, bool) {
	if ch.Source == SourceRemote {
		return c.ChangeSet{}, false
	}

	var cs c.ChangeSet
	for _, id := range ch.Added {
		if r, ok := cd.store.Get(id); ok {
			cs.Added = append(cs.Added, r)
		}
	}
	for _, id := range ch.Updated {
		if r, ok := cd.store.Get(id); ok {
			cs.Updated = append(cs.Updated, r)
		}
	}
	cs.RemovedIds = ch.Removed

	if cs.Empty() {
		return c.ChangeSet{}, false
	}
	return cs, true
}
