package model

import "encoding/json"

// Realtime channel names pushed by the server. The mixed naming is the wire
// contract, not a style choice.
const (
	ChannelPostCreated           = "post_created"
	ChannelCommentCreated        = "comment.created"
	ChannelAnnounce              = "announce"
	ChannelPostApproved          = "post.approved"
	ChannelPostRejected          = "post.rejected"
	ChannelDeleteRequestCreated  = "delete_request.created"
	ChannelDeleteRequestResolved = "delete_request.resolved"
	ChannelBadgeUpdate           = "badge.update"
	ChannelBadgeClear            = "badge.clear"
	ChannelSupportAdminEvent     = "support:admin_event"
)

// Event is the realtime envelope. EventID is optional; when absent the
// dedup layer falls back to EntityID and ClientTxID.
type Event struct {
	Channel    string          `json:"channel"`
	EventID    string          `json:"event_id,omitempty"`
	EntityID   string          `json:"entity_id,omitempty"`
	ClientTxID string          `json:"client_tx_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// BadgeUpdate is the payload of badge.update / badge.clear events.
type BadgeUpdate struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// DeleteRequest is the payload of delete_request.created / .resolved events:
// a user asked the moderators to remove a post.
type DeleteRequest struct {
	ID     string `json:"id"`
	PostID int64  `json:"post_id"`
	Reason string `json:"reason,omitempty"`
}

// ModerationResult is the payload of post.approved / post.rejected events.
type ModerationResult struct {
	PostID int64  `json:"post_id"`
	Reason string `json:"reason,omitempty"`
}
