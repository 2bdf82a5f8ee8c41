package common

// known record types; anything else is carried as an opaque blob
const (
	TypeShape    = "shape"
	TypeBinding  = "binding"
	TypeAsset    = "asset"
	TypePage     = "page"
	TypePresence = "presence"
)

const presencePrefix = "presence:"

// Record is the atomic unit of shared board state. The sync engine
// treats Fields as an opaque bag keyed by id; only ID and TypeName
// matter to replication.
type Record struct {
	ID       string                 `json:"id"`
	TypeName string                 `json:"typeName"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

// Valid reports whether the record is well-formed enough to apply.
// Malformed records are dropped, never surfaced as errors.
func (r Record) Valid() bool {
	return r.ID != "" && r.TypeName != ""
}

// Ephemeral reports whether the record is live-only presence state,
// which is never part of the durable document.
func (r Record) Ephemeral() bool {
	return r.TypeName == TypePresence
}

// Known reports whether TypeName is one of the closed variant set.
// Unknown types still replicate, as opaque records.
func (r Record) Known() bool {
	switch r.TypeName {
	case TypeShape, TypeBinding, TypeAsset, TypePage, TypePresence:
		return true
	}
	return false
}

// Clone copies the record so callers cannot mutate stored state
// through the shared Fields map.
func (r Record) Clone() Record {
	if r.Fields == nil {
		return r
	}
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	r.Fields = fields
	return r
}

// PresenceID derives the stable presence record id for a user, so
// repeated cursor updates are upserts rather than inserts.
func PresenceID(userID string) string {
	return presencePrefix + userID
}

// Cursor is a board-space pointer position.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CursorPayload is the ephemeral presence message body.
type CursorPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Cursor   Cursor `json:"cursor"`
	Color    string `json:"color,omitempty"`
}

// Record materializes the payload as a presence record for the local
// store. ts is the receiver's lastActivityTimestamp in millis.
func (p CursorPayload) Record(ts int64) Record {
	return Record{
		ID:       PresenceID(p.UserID),
		TypeName: TypePresence,
		Fields: map[string]interface{}{
			"userId":                p.UserID,
			"userName":              p.UserName,
			"color":                 p.Color,
			"x":                     p.Cursor.X,
			"y":                     p.Cursor.Y,
			"lastActivityTimestamp": ts,
		},
	}
}

// FilterValid drops malformed records from a wire batch.
func FilterValid(records []Record) []Record {
	res := records[:0:0]
	for _, r := range records {
		if r.Valid() {
			res = append(res, r)
		}
	}
	return res
}
