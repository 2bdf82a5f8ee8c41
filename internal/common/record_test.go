package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	assert.True(t, Record{ID: "r1", TypeName: TypeShape}.Valid())
	assert.False(t, Record{TypeName: TypeShape}.Valid())
	assert.False(t, Record{ID: "r1"}.Valid())
}

func TestFilterValid(t *testing.T) {
	got := FilterValid([]Record{
		{ID: "r1", TypeName: TypeShape},
		{ID: "r2"},
		{TypeName: TypeShape},
		{ID: "r3", TypeName: "custom-widget"},
	})
	assert.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "r3", got[1].ID)
}

func TestPresenceRecordIsStablePerUser(t *testing.T) {
	a := CursorPayload{UserID: "alice", Cursor: Cursor{X: 1, Y: 2}}.Record(10)
	b := CursorPayload{UserID: "alice", Cursor: Cursor{X: 3, Y: 4}}.Record(20)

	assert.Equal(t, a.ID, b.ID)
	assert.True(t, a.Ephemeral())
	assert.True(t, a.Valid())
}

func TestUpserts(t *testing.T) {
	cs := ChangeSet{
		Added:   []Record{{ID: "a", TypeName: TypeShape}},
		Updated: []Record{{ID: "b", TypeName: TypeShape}},
	}
	ups := cs.Upserts()
	assert.Len(t, ups, 2)
	assert.False(t, cs.Empty())
	assert.True(t, ChangeSet{}.Empty())
}
