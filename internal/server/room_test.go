package server

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpad/boardsync/internal/board"
	c "github.com/classpad/boardsync/internal/common"
)

type fakeConn struct {
	written []c.Message
	mu      sync.Mutex
}

func (f *fakeConn) ReadJSON(interface{}) error { select {} }

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, v.(c.Message))
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) messages() []c.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]c.Message{}, f.written...)
}

func testRoom() *Room {
	return newRoom("room1", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func joinMember(r *Room, id, uid string) (*member, *fakeConn) {
	fc := &fakeConn{}
	m := &member{id: id, userID: uid, room: r, conn: fc, alive: true}
	r.join(m)
	return m, fc
}

func shape(id string, x float64) c.Record {
	return c.Record{ID: id, TypeName: c.TypeShape, Fields: map[string]interface{}{"x": x}}
}

func TestJoinReplaysSnapshot(t *testing.T) {
	r := testRoom()
	r.store.Put([]c.Record{shape("r1", 3)}, board.SourceRemote)

	_, fc := joinMember(r, "m1", "alice")

	msgs := fc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, c.Init, msgs[0].Kind)
	require.Len(t, msgs[0].Records, 1)
	assert.Equal(t, "r1", msgs[0].Records[0].ID)
}

func TestInitExcludesPresence(t *testing.T) {
	r := testRoom()
	r.store.Put([]c.Record{
		shape("r1", 0),
		c.CursorPayload{UserID: "ghost", Cursor: c.Cursor{X: 1, Y: 1}}.Record(1),
	}, board.SourceRemote)

	_, fc := joinMember(r, "m1", "alice")

	msgs := fc.messages()
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Records, 1)
	assert.Equal(t, "r1", msgs[0].Records[0].ID)
}

func TestUpdateFansOutToOthersOnly(t *testing.T) {
	r := testRoom()
	a, fa := joinMember(r, "m1", "alice")
	_, fb := joinMember(r, "m2", "bob")
	_, fcn := joinMember(r, "m3", "carol")

	r.handle(a, c.Message{Kind: c.Update, Records: []c.Record{shape("r1", 3)}})

	assert.Len(t, fa.messages(), 1, "sender gets init only, never its own echo")
	require.Len(t, fb.messages(), 2)
	assert.Equal(t, c.Update, fb.messages()[1].Kind)
	require.Len(t, fcn.messages(), 2)

	got, ok := r.store.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 3.0, got.Fields["x"])
}

func TestLastArrivalWins(t *testing.T) {
	r := testRoom()
	a, _ := joinMember(r, "m1", "alice")
	b, fb := joinMember(r, "m2", "bob")

	r.handle(a, c.Message{Kind: c.Update, Records: []c.Record{shape("r1", 0)}})
	r.handle(b, c.Message{Kind: c.Update, Records: []c.Record{shape("r1", 9)}})
	r.handle(a, c.Message{Kind: c.Update, Records: []c.Record{shape("r1", 5)}})

	got, _ := r.store.Get("r1")
	assert.Equal(t, 5.0, got.Fields["x"])

	// broadcast order matches arrival order
	msgs := fb.messages()
	require.Len(t, msgs, 3) // init + two updates from alice
	assert.Equal(t, 0.0, msgs[1].Records[0].Fields["x"])
	assert.Equal(t, 5.0, msgs[2].Records[0].Fields["x"])
}

func TestCursorRelayedNotStored(t *testing.T) {
	r := testRoom()
	a, _ := joinMember(r, "m1", "alice")
	_, fb := joinMember(r, "m2", "bob")

	cur := c.Message{Kind: c.CursorKind, Cursor: &c.CursorPayload{
		UserID: "alice", Cursor: c.Cursor{X: 4, Y: 2},
	}}
	r.handle(a, cur)

	require.Len(t, fb.messages(), 2)
	assert.Equal(t, cur.Cursor, fb.messages()[1].Cursor)
	assert.Equal(t, 0, r.store.Len(), "presence never touches the authoritative store")
}

func TestGetBoardResyncsRequesterOnly(t *testing.T) {
	r := testRoom()
	a, fa := joinMember(r, "m1", "alice")
	b, fb := joinMember(r, "m2", "bob")

	// bob misses this while "offline"
	r.leave(b)
	r.handle(a, c.Message{Kind: c.Update, Records: []c.Record{shape("r2", 1)}})

	// reconnect and resync
	b2, fb2 := joinMember(r, "m4", "bob")
	r.handle(b2, c.Message{Kind: c.GetBoard, RoomID: "room1"})

	msgs := fb2.messages()
	require.Len(t, msgs, 2) // join init + get-board init
	assert.Equal(t, c.Init, msgs[1].Kind)
	require.Len(t, msgs[1].Records, 1)
	assert.Equal(t, "r2", msgs[1].Records[0].ID)

	assert.Len(t, fa.messages(), 1, "resync goes to the requester only")
	assert.Len(t, fb.messages(), 1)
}

func TestMalformedRecordsNotAppliedOrRelayed(t *testing.T) {
	r := testRoom()
	a, _ := joinMember(r, "m1", "alice")
	_, fb := joinMember(r, "m2", "bob")

	r.handle(a, c.Message{Kind: c.Update, Records: []c.Record{{ID: "no-type"}}})
	assert.Equal(t, 0, r.store.Len())
	assert.Len(t, fb.messages(), 1)

	r.handle(a, c.Message{Kind: c.Update, Records: []c.Record{{ID: "no-type"}, shape("r1", 1)}})
	assert.Equal(t, 1, r.store.Len())
	require.Len(t, fb.messages(), 2)
	assert.Len(t, fb.messages()[1].Records, 1)
}

func TestDeleteUnknownIdRelayedHarmlessly(t *testing.T) {
	r := testRoom()
	a, _ := joinMember(r, "m1", "alice")
	_, fb := joinMember(r, "m2", "bob")

	r.handle(a, c.Message{Kind: c.Delete, Ids: []string{"ghost"}})

	require.Len(t, fb.messages(), 2)
	assert.Equal(t, c.Delete, fb.messages()[1].Kind)
}

func TestLeaveKeepsStore(t *testing.T) {
	r := testRoom()
	a, _ := joinMember(r, "m1", "alice")
	r.handle(a, c.Message{Kind: c.Update, Records: []c.Record{shape("r1", 1)}})

	r.leave(a)
	assert.Equal(t, 1, r.store.Len())

	_, fb := joinMember(r, "m2", "bob")
	require.Len(t, fb.messages(), 1)
	assert.Len(t, fb.messages()[0].Records, 1)
}
