package api

import (
	"context"
	"fmt"
	"time"

	"forumkit/internal/model"
)

// InstagramJob is one entry of the auto-publish queue: a forum post waiting
// to be rendered and published to the campus Instagram account.
type InstagramJob struct {
	ID        string    `json:"id"`
	PostID    int64     `json:"post_id"`
	Caption   string    `json:"caption"`
	Status    string    `json:"status"` // pending, approved, published, rejected, failed
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListInstagramQueue fetches the auto-publish queue.
func (c *Client) ListInstagramQueue(ctx context.Context) ([]InstagramJob, error) {
	var out struct {
		Jobs []InstagramJob `json:"jobs"`
	}
	err := c.get(ctx, "/api/admin/instagram/queue", nil, &out)
	return out.Jobs, err
}

// ApproveInstagramJob releases a queued job for publishing.
func (c *Client) ApproveInstagramJob(ctx context.Context, id string) error {
	return c.post(ctx, "/api/admin/instagram/queue/"+id+"/approve", nil, nil)
}

// RejectInstagramJob drops a queued job.
func (c *Client) RejectInstagramJob(ctx context.Context, id, reason string) error {
	body := map[string]string{"reason": reason}
	return c.post(ctx, "/api/admin/instagram/queue/"+id+"/reject", body, nil)
}

// DiscordStatus describes the Discord bot bridge.
type DiscordStatus struct {
	Online       bool   `json:"online"`
	GuildID      string `json:"guild_id"`
	RelayChannel string `json:"relay_channel"`
	LastEventAt  int64  `json:"last_event_at"`
}

// GetDiscordStatus fetches the bot bridge state.
func (c *Client) GetDiscordStatus(ctx context.Context) (DiscordStatus, error) {
	var out DiscordStatus
	err := c.get(ctx, "/api/admin/discord/status", nil, &out)
	return out, err
}

// SetDiscordRelayChannel points the bot's forum relay at a channel.
func (c *Client) SetDiscordRelayChannel(ctx context.Context, channelID string) error {
	body := map[string]string{"relay_channel": channelID}
	return c.put(ctx, "/api/admin/discord/relay", body, nil)
}

// AdminUser is a managed account row.
type AdminUser struct {
	ID       int64      `json:"id"`
	Label    string     `json:"label"`
	Role     model.Role `json:"role"`
	SchoolID int64      `json:"school_id"`
	Banned   bool       `json:"banned"`
}

// ListUsers fetches accounts for the user management panel.
func (c *Client) ListUsers(ctx context.Context) ([]AdminUser, error) {
	var out struct {
		Users []AdminUser `json:"users"`
	}
	err := c.get(ctx, "/api/admin/users", nil, &out)
	return out.Users, err
}

// SetUserRole changes an account's role.
func (c *Client) SetUserRole(ctx context.Context, userID int64, role model.Role) error {
	body := map[string]string{"role": string(role)}
	return c.put(ctx, fmt.Sprintf("/api/admin/users/%d/role", userID), body, nil)
}

// SetUserBanned bans or unbans an account.
func (c *Client) SetUserBanned(ctx context.Context, userID int64, banned bool) error {
	body := map[string]bool{"banned": banned}
	return c.put(ctx, fmt.Sprintf("/api/admin/users/%d/ban", userID), body, nil)
}
