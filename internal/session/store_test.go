package session

import (
	"context"
	"testing"
	"time"

	"forumkit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := model.Session{
		Token:        "tok",
		RefreshToken: "refresh",
		Role:         model.RoleModerator,
		SchoolID:     12,
	}
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "tok", s.Token())
}

func TestClearIdempotent(t *testing.T) {
	s := openTestStore(t)

	// No session present: must not error.
	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())

	sess, err := s.Load()
	require.NoError(t, err)
	assert.True(t, sess.Empty())

	// With a session: cleared state looks identical.
	require.NoError(t, s.Save(model.Session{Token: "tok", Role: model.RoleStudent}))
	require.NoError(t, s.Clear())

	sess, err = s.Load()
	require.NoError(t, err)
	assert.True(t, sess.Empty())
	assert.Equal(t, "", s.Token())
}

func TestBadgeCounters(t *testing.T) {
	s := openTestStore(t)

	assert.Equal(t, 0, s.Badge("/support"))

	require.NoError(t, s.SetBadge("/support", 3))
	require.NoError(t, s.SetBadge("/feed", 1))
	assert.Equal(t, 3, s.Badge("/support"))

	badges, err := s.Badges()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"/support": 3, "/feed": 1}, badges)

	// Zero clears the key entirely.
	require.NoError(t, s.SetBadge("/support", 0))
	assert.Equal(t, 0, s.Badge("/support"))
	badges, err = s.Badges()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"/feed": 1}, badges)
}

func TestBadgesSurviveLogout(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(model.Session{Token: "tok"}))
	require.NoError(t, s.SetBadge("/support", 2))
	require.NoError(t, s.Clear())

	assert.Equal(t, 2, s.Badge("/support"))
}

func TestCheckRestart(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(model.Session{Token: "tok", Role: model.RoleStudent}))

	// First observation only records the id.
	restarted, err := s.CheckRestart("run-1")
	require.NoError(t, err)
	assert.False(t, restarted)
	assert.Equal(t, "tok", s.Token())

	// Same id: nothing happens.
	restarted, err = s.CheckRestart("run-1")
	require.NoError(t, err)
	assert.False(t, restarted)

	// Changed id: session cleared exactly once.
	restarted, err = s.CheckRestart("run-2")
	require.NoError(t, err)
	assert.True(t, restarted)
	assert.Equal(t, "", s.Token())

	restarted, err = s.CheckRestart("run-2")
	require.NoError(t, err)
	assert.False(t, restarted)
}

func TestCheckRestartIgnoresEmptyID(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(model.Session{Token: "tok"}))

	restarted, err := s.CheckRestart("")
	require.NoError(t, err)
	assert.False(t, restarted)
	assert.Equal(t, "tok", s.Token())
}

func TestRestartPoller(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(model.Session{Token: "tok"}))

	ids := make(chan string, 4)
	ids <- "run-1"
	ids <- "run-1"
	ids <- "run-2"

	loggedOut := make(chan struct{}, 1)
	p := NewRestartPoller(s, 10*time.Millisecond, func(ctx context.Context) (string, error) {
		select {
		case id := <-ids:
			return id, nil
		default:
			return "run-2", nil
		}
	}, func() { loggedOut <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-loggedOut:
	case <-time.After(3 * time.Second):
		t.Fatal("poller never invalidated the session")
	}
	assert.Equal(t, "", s.Token())
}
