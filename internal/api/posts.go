package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"forumkit/internal/model"

	"github.com/google/uuid"
)

// PostPage is one page of the feed.
type PostPage struct {
	Posts   []model.Post `json:"posts"`
	HasMore bool         `json:"has_more"`
}

// ListPosts fetches one page of the feed, newest first.
func (c *Client) ListPosts(ctx context.Context, page, pageSize int) (PostPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var out PostPage
	err := c.get(ctx, "/api/posts", q, &out)
	return out, err
}

// CreatePostInput is the payload for a new post. Announcement and
// advertisement flags are only honored for privileged roles; the backend
// rejects them otherwise.
type CreatePostInput struct {
	Content       string `json:"content"`
	Announcement  bool   `json:"announcement,omitempty"`
	Advertisement bool   `json:"advertisement,omitempty"`
	ClientTxID    string `json:"client_tx_id"`
}

// CreatePost submits a new post. A client_tx_id is attached so realtime
// redeliveries of the post derive a stable dedup key even when the server
// omits an event_id. The feed drops the first echo itself by post ID.
func (c *Client) CreatePost(ctx context.Context, in CreatePostInput) (model.Post, error) {
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	var out model.Post
	err := c.post(ctx, "/api/posts", in, &out)
	return out, err
}

// DeletePost removes a post (author or moderator only).
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.del(ctx, fmt.Sprintf("/api/posts/%d", id))
}

// RequestPostDeletion files a delete request for moderator review.
func (c *Client) RequestPostDeletion(ctx context.Context, id int64, reason string) error {
	body := map[string]string{"reason": reason}
	return c.post(ctx, fmt.Sprintf("/api/posts/%d/delete_request", id), body, nil)
}

// ReactToPost sets the caller's reaction on a post ("like", "dislike" or
// "" to withdraw).
func (c *Client) ReactToPost(ctx context.Context, id int64, reaction string) error {
	body := map[string]string{"reaction": reaction}
	return c.put(ctx, fmt.Sprintf("/api/posts/%d/reaction", id), body, nil)
}
