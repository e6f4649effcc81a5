package ui

import (
	"testing"

	"forumkit/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFeedOwnPostEchoNotDuplicated(t *testing.T) {
	m := NewFeedPageModel(nil, DefaultStyles(), 20)

	post := model.Post{ID: 7, Content: "hello"}
	m, _ = m.Update(postSubmittedMsg{post: post})
	assert.Len(t, m.posts, 1)

	// The backend echoes our own post over post_created; it is already on
	// screen from the optimistic insert.
	m, _ = m.Update(rtPostCreatedMsg{post: post})
	assert.Len(t, m.posts, 1, "echo of the submitted post must not prepend again")

	m, _ = m.Update(rtPostCreatedMsg{post: model.Post{ID: 8}})
	assert.Len(t, m.posts, 2)
	assert.Equal(t, int64(8), m.posts[0].ID)
}

func TestFeedRealtimePrependSkipsLoadedPosts(t *testing.T) {
	m := NewFeedPageModel(nil, DefaultStyles(), 20)

	m, _ = m.Update(postsLoadedMsg{page: 1, posts: []model.Post{{ID: 3}, {ID: 2}}})
	m, _ = m.Update(rtPostCreatedMsg{post: model.Post{ID: 3}})
	assert.Len(t, m.posts, 2)
}
