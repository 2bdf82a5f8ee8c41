package common

// message kinds, shared by both ends of the wire
const (
	GetBoard   = "get-board"
	Init       = "init"
	Update     = "update"
	Delete     = "delete"
	CursorKind = "cursor"
)

// Message is the wire envelope. Exactly one payload field is set,
// depending on Kind:
//
//	get-board  RoomID
//	init       Records (full document snapshot)
//	update     Records (upsert batch, added+updated undifferentiated)
//	delete     Ids
//	cursor     Cursor
type Message struct {
	Kind    string         `json:"kind"`
	RoomID  string         `json:"roomId,omitempty"`
	Records []Record       `json:"records,omitempty"`
	Ids     []string       `json:"ids,omitempty"`
	Cursor  *CursorPayload `json:"cursor,omitempty"`
}

// ChangeSet is a batch of local mutations ready for transmission.
// Updated records replace the prior value wholesale; there is no
// field-level diffing.
type ChangeSet struct {
	Added      []Record
	Updated    []Record
	RemovedIds []string
}

// Empty reports whether there is nothing to send.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.RemovedIds) == 0
}

// Upserts flattens added and updated records for the wire, which does
// not distinguish them.
func (c ChangeSet) Upserts() []Record {
	if len(c.Added) == 0 {
		return c.Updated
	}
	return append(append([]Record{}, c.Added...), c.Updated...)
}
