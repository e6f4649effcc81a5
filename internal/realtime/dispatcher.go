// Package realtime multiplexes the shared ForumKit WebSocket connection into
// named event channels with single-handler listener slots and redelivery
// suppression.
package realtime

import (
	"encoding/json"
	"sync"

	"forumkit/internal/logging"
	"forumkit/internal/model"
)

// Handler receives a decoded realtime event.
type Handler func(model.Event)

// Dispatcher owns one handler slot per channel. Installing a handler for a
// channel removes whatever was installed before: the most recent caller owns
// the channel. Delivery runs the handler synchronously on the connection's
// read goroutine after the dedup check.
//
// The dedup cache is shared across all channels and survives handler
// reinstallation, so a replayed event stays suppressed after a new handler
// takes over.
type Dispatcher struct {
	mu    sync.Mutex
	slots map[string]Handler
	cache *dedupCache
	log   *logging.Logger
}

// NewDispatcher creates a dispatcher with the given dedup cache size.
// cacheSize <= 0 falls back to DefaultCacheSize.
func NewDispatcher(cacheSize int) *Dispatcher {
	return &Dispatcher{
		slots: make(map[string]Handler),
		cache: newDedupCache(cacheSize),
		log:   logging.Get(logging.CategoryRealtime),
	}
}

// Install replaces the handler for channel. Any previously installed handler
// is removed first, so N installs leave exactly one active handler. A nil
// handler just clears the slot.
func (d *Dispatcher) Install(channel string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Last-writer-wins: drop whatever was attached before.
	delete(d.slots, channel)
	if h == nil {
		return
	}
	d.slots[channel] = h
	d.log.Debug("listener installed for %s", channel)
}

// Remove clears the handler slot for channel.
func (d *Dispatcher) Remove(channel string) {
	d.Install(channel, nil)
}

// Installed reports whether a handler is attached to channel.
func (d *Dispatcher) Installed(channel string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.slots[channel]
	return ok
}

// Dispatch routes ev to the channel's handler after the dedup check.
// Duplicate deliveries are dropped silently. Events for channels with no
// installed handler are ignored.
func (d *Dispatcher) Dispatch(ev model.Event) {
	d.mu.Lock()
	h, ok := d.slots[ev.Channel]
	d.mu.Unlock()
	if !ok {
		return
	}

	if d.cache.SeenBefore(DedupKey(ev)) {
		d.log.Debug("dropped duplicate event on %s (key=%s)", ev.Channel, DedupKey(ev))
		return
	}
	h(ev)
}

// SeenCount returns the number of remembered dedup keys. Exposed for
// diagnostics and the stats page.
func (d *Dispatcher) SeenCount() int {
	return d.cache.Len()
}

// Typed install helpers. Each decodes the event payload and drops events
// whose payload does not parse; a malformed payload never reaches the
// typed handler.

// OnPostCreated installs the post_created listener.
func (d *Dispatcher) OnPostCreated(fn func(model.Post)) {
	d.Install(model.ChannelPostCreated, func(ev model.Event) {
		var p model.Post
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			d.log.Warn("post_created payload decode failed: %v", err)
			return
		}
		fn(p)
	})
}

// OnCommentCreated installs the comment.created listener.
func (d *Dispatcher) OnCommentCreated(fn func(model.Comment)) {
	d.Install(model.ChannelCommentCreated, func(ev model.Event) {
		var c model.Comment
		if err := json.Unmarshal(ev.Payload, &c); err != nil {
			d.log.Warn("comment.created payload decode failed: %v", err)
			return
		}
		fn(c)
	})
}

// OnAnnounce installs the announce listener. The body is raw rich text; the
// caller is expected to sanitize before rendering.
func (d *Dispatcher) OnAnnounce(fn func(body string)) {
	d.Install(model.ChannelAnnounce, func(ev model.Event) {
		var msg struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			d.log.Warn("announce payload decode failed: %v", err)
			return
		}
		fn(msg.Body)
	})
}

// OnModeration installs listeners for both post.approved and post.rejected.
func (d *Dispatcher) OnModeration(fn func(approved bool, res model.ModerationResult)) {
	decode := func(approved bool) Handler {
		return func(ev model.Event) {
			var res model.ModerationResult
			if err := json.Unmarshal(ev.Payload, &res); err != nil {
				d.log.Warn("moderation payload decode failed: %v", err)
				return
			}
			fn(approved, res)
		}
	}
	d.Install(model.ChannelPostApproved, decode(true))
	d.Install(model.ChannelPostRejected, decode(false))
}

// OnBadgeUpdate installs listeners for badge.update and badge.clear.
// clear deliveries carry a zero count.
func (d *Dispatcher) OnBadgeUpdate(fn func(model.BadgeUpdate)) {
	d.Install(model.ChannelBadgeUpdate, func(ev model.Event) {
		var b model.BadgeUpdate
		if err := json.Unmarshal(ev.Payload, &b); err != nil {
			d.log.Warn("badge.update payload decode failed: %v", err)
			return
		}
		fn(b)
	})
	d.Install(model.ChannelBadgeClear, func(ev model.Event) {
		var b model.BadgeUpdate
		if err := json.Unmarshal(ev.Payload, &b); err != nil {
			d.log.Warn("badge.clear payload decode failed: %v", err)
			return
		}
		b.Count = 0
		fn(b)
	})
}

// OnDeleteRequest installs listeners for delete_request.created and
// delete_request.resolved. resolved deliveries come with open=false.
func (d *Dispatcher) OnDeleteRequest(fn func(open bool, req model.DeleteRequest)) {
	decode := func(open bool) Handler {
		return func(ev model.Event) {
			var req model.DeleteRequest
			if err := json.Unmarshal(ev.Payload, &req); err != nil {
				d.log.Warn("delete_request payload decode failed: %v", err)
				return
			}
			fn(open, req)
		}
	}
	d.Install(model.ChannelDeleteRequestCreated, decode(true))
	d.Install(model.ChannelDeleteRequestResolved, decode(false))
}

// OnSupportAdminEvent installs the support:admin_event listener.
func (d *Dispatcher) OnSupportAdminEvent(fn func(model.Event)) {
	d.Install(model.ChannelSupportAdminEvent, fn)
}
