package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"forumkit/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL}, func() string { return "tok-1" }, nil)
	return c, srv
}

func TestBearerHeaderAndDecode(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	want := []model.Post{
		{ID: 1, Content: "first", AuthorLabel: "匿名", CreatedAt: created},
		{ID: 2, Content: "second", Announcement: true, CreatedAt: created},
	}

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/posts", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(PostPage{Posts: want, HasMore: true})
	})

	page, err := c.ListPosts(context.Background(), 3, 20)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	if diff := cmp.Diff(want, page.Posts); diff != "" {
		t.Errorf("posts mismatch (-want +got):\n%s", diff)
	}
}

func TestNoAuthHeaderWhenSignedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(HealthStatus{Status: "ok", RestartID: "r-1"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, func() string { return "" }, nil)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r-1", h.RestartID)
}

func TestWrappedErrorDecode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"僅限管理員"}}`))
	})

	_, err := c.ListTickets(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, CodeForbidden, apiErr.Code)
	assert.True(t, IsCode(err, CodeForbidden))
	assert.Equal(t, "僅限管理員", UserMessage(err))
}

func TestFlatErrorDecode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"NOT_FOUND","message":"gone"}`))
	})

	_, err := c.GetTicket(context.Background(), "t-1")
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestUndecodableErrorBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>nginx</html>"))
	})

	_, err := c.ListSchools(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, GenericLoadFailure, UserMessage(apiErr))
}

func TestJWTExpiredHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"JWT_EXPIRED","message":"token expired"}}`))
	}))
	defer srv.Close()

	expired := 0
	c := New(Config{BaseURL: srv.URL}, func() string { return "stale" }, func() { expired++ })

	_, err := c.ListPosts(context.Background(), 1, 20)
	assert.True(t, IsCode(err, CodeJWTExpired))
	assert.Equal(t, 1, expired, "expiry hook must fire")
}

func TestUserMessageGenericOnTransportError(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, func() string { return "" }, nil)

	_, err := c.ListSchools(context.Background())
	require.Error(t, err)
	assert.Equal(t, GenericLoadFailure, UserMessage(err))
}

func TestCreatePostAttachesClientTxID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in CreatePostInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.NotEmpty(t, in.ClientTxID, "client_tx_id must be generated")
		json.NewEncoder(w).Encode(model.Post{ID: 9, Content: in.Content})
	})

	post, err := c.CreatePost(context.Background(), CreatePostInput{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), post.ID)
}

func TestSetTicketStatusValidatesLocally(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := c.SetTicketStatus(context.Background(), "t-1", model.TicketStatus("bogus"))
	require.Error(t, err)
	assert.False(t, called, "invalid status must be rejected before any request")

	require.NoError(t, c.SetTicketStatus(context.Background(), "t-1", model.TicketResolved))
	assert.True(t, called)
}

func TestReactToComment(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/comments/5/reaction", r.URL.Path)
		json.NewEncoder(w).Encode(model.Comment{ID: 5, Likes: 3, MyReaction: "like"})
	})

	got, err := c.ReactToComment(context.Background(), 5, "like")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Likes)
	assert.Equal(t, "like", got.MyReaction)
}

func TestReportGuardEventSwallowsFailure(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, func() string { return "" }, nil)

	// Must not panic or block beyond its own timeout.
	c.ReportGuardEvent(context.Background(), "trace_attach")
}
