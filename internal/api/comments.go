package api

import (
	"context"
	"fmt"

	"forumkit/internal/model"

	"github.com/google/uuid"
)

// ListComments fetches the full comment thread of a post.
func (c *Client) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	var out struct {
		Comments []model.Comment `json:"comments"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/comments/%d", postID), nil, &out)
	return out.Comments, err
}

// CreateCommentInput is the payload for a new comment.
type CreateCommentInput struct {
	PostID     int64  `json:"post_id"`
	Content    string `json:"content"`
	ClientTxID string `json:"client_tx_id"`
}

// CreateComment submits a comment on a post.
func (c *Client) CreateComment(ctx context.Context, in CreateCommentInput) (model.Comment, error) {
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	var out model.Comment
	err := c.post(ctx, "/api/comments", in, &out)
	return out, err
}

// ReactToComment sets the caller's reaction on a comment ("like",
// "dislike" or "" to withdraw). The response carries the updated stats so
// optimistic counts can be reconciled.
func (c *Client) ReactToComment(ctx context.Context, id int64, reaction string) (model.Comment, error) {
	body := map[string]string{"reaction": reaction}

	var out model.Comment
	err := c.put(ctx, fmt.Sprintf("/api/comments/%d/reaction", id), body, &out)
	return out, err
}

// DeleteComment removes a comment (author or moderator only).
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.del(ctx, fmt.Sprintf("/api/comments/%d", id))
}
