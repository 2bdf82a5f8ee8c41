package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "github.com/classpad/boardsync/internal/common"
)

func shape(id string, x float64) c.Record {
	return c.Record{ID: id, TypeName: c.TypeShape, Fields: map[string]interface{}{"x": x}}
}

func presence(uid string) c.Record {
	return c.CursorPayload{UserID: uid, Cursor: c.Cursor{X: 1, Y: 2}}.Record(100)
}

func TestPutNotifiesWithExactIds(t *testing.T) {
	s := NewStore()

	var changes []Change
	s.Listen(func(ch Change) { changes = append(changes, ch) })

	s.Put([]c.Record{shape("r1", 0), shape("r2", 0)}, SourceUser)
	require.Len(t, changes, 1)
	assert.ElementsMatch(t, []string{"r1", "r2"}, changes[0].Added)
	assert.Empty(t, changes[0].Updated)
	assert.Equal(t, SourceUser, changes[0].Source)
	assert.Equal(t, ScopeDocument, changes[0].Scope)

	s.Put([]c.Record{shape("r1", 5)}, SourceRemote)
	require.Len(t, changes, 2)
	assert.Equal(t, []string{"r1"}, changes[1].Updated)
	assert.Equal(t, SourceRemote, changes[1].Source)
}

func TestPutSplitsScopes(t *testing.T) {
	s := NewStore()

	var changes []Change
	s.Listen(func(ch Change) { changes = append(changes, ch) })

	s.Put([]c.Record{shape("r1", 0), presence("alice")}, SourceRemote)
	require.Len(t, changes, 2)

	scopes := map[Scope]Change{changes[0].Scope: changes[0], changes[1].Scope: changes[1]}
	assert.Equal(t, []string{"r1"}, scopes[ScopeDocument].Added)
	assert.Equal(t, []string{c.PresenceID("alice")}, scopes[ScopeEphemeral].Added)
}

func TestPutLastWriteWins(t *testing.T) {
	s := NewStore()

	s.Put([]c.Record{shape("r1", 0)}, SourceUser)
	s.Put([]c.Record{shape("r1", 5)}, SourceUser)

	r, ok := s.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 5.0, r.Fields["x"])
	assert.Equal(t, 1, s.Len())
}

func TestPutIdempotent(t *testing.T) {
	s := NewStore()

	batch := []c.Record{shape("r1", 3), shape("r2", 4)}
	s.Put(batch, SourceRemote)
	first := s.Snapshot()

	s.Put(batch, SourceRemote)
	assert.ElementsMatch(t, first, s.Snapshot())
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s := NewStore()

	var changes []Change
	s.Listen(func(ch Change) { changes = append(changes, ch) })

	s.Remove([]string{"ghost"}, SourceUser)
	assert.Empty(t, changes)
	assert.Equal(t, 0, s.Len())
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Put([]c.Record{shape("r1", 0), shape("r2", 0)}, SourceUser)

	var changes []Change
	s.Listen(func(ch Change) { changes = append(changes, ch) })

	s.Remove([]string{"r1", "ghost"}, SourceUser)
	require.Len(t, changes, 1)
	assert.Equal(t, []string{"r1"}, changes[0].Removed)

	_, ok := s.Get("r1")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestDocumentSnapshotExcludesPresence(t *testing.T) {
	s := NewStore()
	s.Put([]c.Record{shape("r1", 0), presence("alice")}, SourceRemote)

	doc := s.DocumentSnapshot()
	require.Len(t, doc, 1)
	assert.Equal(t, "r1", doc[0].ID)

	assert.Len(t, s.Snapshot(), 2)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Put([]c.Record{shape("r1", 0)}, SourceUser)

	snap := s.Snapshot()
	snap[0].Fields["x"] = 99.0

	r, _ := s.Get("r1")
	assert.Equal(t, 0.0, r.Fields["x"])
}
