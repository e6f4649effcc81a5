package realtime

import (
	"encoding/json"
	"fmt"
	"testing"

	"forumkit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(channel, id string) model.Event {
	return model.Event{Channel: channel, EventID: id}
}

func TestDedupIdempotence(t *testing.T) {
	d := NewDispatcher(0)

	fired := 0
	d.Install(model.ChannelPostCreated, func(model.Event) { fired++ })

	for i := 0; i < 5; i++ {
		d.Dispatch(event(model.ChannelPostCreated, "a"))
	}
	assert.Equal(t, 1, fired, "identical key must fire exactly once")

	d.Dispatch(event(model.ChannelPostCreated, "b"))
	assert.Equal(t, 2, fired)
}

func TestListenerUniqueness(t *testing.T) {
	d := NewDispatcher(0)

	var calls []string
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("handler-%d", i)
		d.Install(model.ChannelPostCreated, func(model.Event) {
			calls = append(calls, name)
		})
	}

	d.Dispatch(event(model.ChannelPostCreated, "only"))

	require.Len(t, calls, 1, "N installs must leave exactly one active handler")
	assert.Equal(t, "handler-3", calls[0], "most recent install owns the channel")
}

func TestCachePersistsAcrossReinstall(t *testing.T) {
	d := NewDispatcher(0)

	fired := 0
	d.Install(model.ChannelPostCreated, func(model.Event) { fired++ })

	d.Dispatch(event(model.ChannelPostCreated, "a"))
	d.Dispatch(event(model.ChannelPostCreated, "a"))
	assert.Equal(t, 1, fired)

	d.Dispatch(event(model.ChannelPostCreated, "b"))
	assert.Equal(t, 2, fired)

	// Re-install, then replay "a": still suppressed.
	d.Install(model.ChannelPostCreated, func(model.Event) { fired++ })
	d.Dispatch(event(model.ChannelPostCreated, "a"))
	assert.Equal(t, 2, fired, "dedup cache must survive listener reinstallation")
}

func TestFallbackKey(t *testing.T) {
	d := NewDispatcher(0)

	fired := 0
	d.Install(model.ChannelCommentCreated, func(model.Event) { fired++ })

	ev := model.Event{Channel: model.ChannelCommentCreated, EntityID: "42", ClientTxID: "tx-1"}
	d.Dispatch(ev)
	d.Dispatch(ev)
	assert.Equal(t, 1, fired, "entity_id:client_tx_id fallback must dedup")

	// Partial key still counts as a key.
	partial := model.Event{Channel: model.ChannelCommentCreated, EntityID: "43"}
	d.Dispatch(partial)
	d.Dispatch(partial)
	assert.Equal(t, 2, fired)
}

func TestKeylessEventsAlwaysDeliver(t *testing.T) {
	d := NewDispatcher(0)

	fired := 0
	d.Install(model.ChannelAnnounce, func(model.Event) { fired++ })

	for i := 0; i < 3; i++ {
		d.Dispatch(model.Event{Channel: model.ChannelAnnounce})
	}
	assert.Equal(t, 3, fired, "events with no derivable key are never treated as duplicates")
}

func TestRemoveClearsSlot(t *testing.T) {
	d := NewDispatcher(0)

	fired := 0
	d.Install(model.ChannelPostCreated, func(model.Event) { fired++ })
	require.True(t, d.Installed(model.ChannelPostCreated))

	d.Remove(model.ChannelPostCreated)
	assert.False(t, d.Installed(model.ChannelPostCreated))

	d.Dispatch(event(model.ChannelPostCreated, "x"))
	assert.Equal(t, 0, fired)
}

func TestTypedPostListener(t *testing.T) {
	d := NewDispatcher(0)

	var got []model.Post
	d.OnPostCreated(func(p model.Post) { got = append(got, p) })

	payload, _ := json.Marshal(model.Post{ID: 7, Content: "hello"})
	d.Dispatch(model.Event{Channel: model.ChannelPostCreated, EventID: "e1", Payload: payload})

	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)

	// Malformed payload is dropped without reaching the typed handler.
	d.Dispatch(model.Event{Channel: model.ChannelPostCreated, EventID: "e2", Payload: json.RawMessage(`{"id":"nope"`)})
	assert.Len(t, got, 1)
}

func TestBadgeClearZeroesCount(t *testing.T) {
	d := NewDispatcher(0)

	var got []model.BadgeUpdate
	d.OnBadgeUpdate(func(b model.BadgeUpdate) { got = append(got, b) })

	payload, _ := json.Marshal(model.BadgeUpdate{Path: "/support", Count: 3})
	d.Dispatch(model.Event{Channel: model.ChannelBadgeUpdate, EventID: "b1", Payload: payload})
	d.Dispatch(model.Event{Channel: model.ChannelBadgeClear, EventID: "b2", Payload: payload})

	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, 0, got[1].Count, "badge.clear must zero the count")
}

func TestModerationChannels(t *testing.T) {
	d := NewDispatcher(0)

	type result struct {
		approved bool
		res      model.ModerationResult
	}
	var got []result
	d.OnModeration(func(approved bool, res model.ModerationResult) {
		got = append(got, result{approved, res})
	})

	payload, _ := json.Marshal(model.ModerationResult{PostID: 9, Reason: "spam"})
	d.Dispatch(model.Event{Channel: model.ChannelPostApproved, EventID: "m1", Payload: payload})
	d.Dispatch(model.Event{Channel: model.ChannelPostRejected, EventID: "m2", Payload: payload})

	require.Len(t, got, 2)
	assert.True(t, got[0].approved)
	assert.False(t, got[1].approved)
	assert.Equal(t, "spam", got[1].res.Reason)
}

func TestDeleteRequestChannels(t *testing.T) {
	d := NewDispatcher(0)

	type result struct {
		open bool
		req  model.DeleteRequest
	}
	var got []result
	d.OnDeleteRequest(func(open bool, req model.DeleteRequest) {
		got = append(got, result{open, req})
	})

	payload, _ := json.Marshal(model.DeleteRequest{ID: "dr-1", PostID: 4, Reason: "dox"})
	d.Dispatch(model.Event{Channel: model.ChannelDeleteRequestCreated, EventID: "d1", Payload: payload})
	d.Dispatch(model.Event{Channel: model.ChannelDeleteRequestResolved, EventID: "d2", Payload: payload})

	require.Len(t, got, 2)
	assert.True(t, got[0].open)
	assert.False(t, got[1].open)
	assert.Equal(t, int64(4), got[1].req.PostID)
}
