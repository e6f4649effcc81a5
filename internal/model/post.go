package model

import "time"

// Post is a feed entry as returned by the backend. The client never owns
// this data; lifetime is bound to the page that fetched it.
type Post struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	AuthorLabel   string    `json:"author_label"`
	SchoolID      int64     `json:"school_id"`
	MediaCount    int       `json:"media_count"`
	CommentCount  int       `json:"comment_count"`
	Announcement  bool      `json:"announcement"`
	Advertisement bool      `json:"advertisement"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Comment belongs to a post. MyReaction is the caller's own reaction
// marker ("like", "dislike" or empty).
type Comment struct {
	ID          int64     `json:"id"`
	PostID      int64     `json:"post_id"`
	Content     string    `json:"content"`
	AuthorLabel string    `json:"author_label"`
	Likes       int64     `json:"likes"`
	Dislikes    int64     `json:"dislikes"`
	MyReaction  string    `json:"my_reaction"`
	CreatedAt   time.Time `json:"created_at"`
}

// School is a campus the forum is scoped to.
type School struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
