package session

import (
	"context"
	"strconv"
	"time"

	"forumkit/internal/logging"
)

// CheckRestart compares the restart id reported by the health endpoint with
// the stored one. On a change the local session is cleared (the backend's
// process identity changed, so outstanding tokens are stale) and true is
// returned so the UI can force a re-login. The first observed id is only
// recorded.
func (s *Store) CheckRestart(restartID string) (restarted bool, err error) {
	if restartID == "" {
		return false, nil
	}

	s.mu.Lock()
	stored, err := s.get(keyRestartID)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}

	if stored == restartID {
		s.mu.Unlock()
		return false, nil
	}

	if err := s.set(keyRestartID, restartID); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if err := s.set(keyRestartTimestamp, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	if stored == "" {
		// First contact with this backend: nothing to invalidate.
		return false, nil
	}

	logging.Session("backend restart detected (id %s -> %s), invalidating session", stored, restartID)
	return true, s.Clear()
}

// RestartPoller periodically fetches the backend restart id and invalidates
// the session when it changes. fetch is typically api.Client.Health; it is
// kept as a function value so this package stays independent of the API
// layer.
type RestartPoller struct {
	store    *Store
	fetch    func(context.Context) (string, error)
	interval time.Duration
	onLogout func()
}

// NewRestartPoller creates a poller. onLogout runs after the session has
// been cleared due to a restart.
func NewRestartPoller(store *Store, interval time.Duration, fetch func(context.Context) (string, error), onLogout func()) *RestartPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RestartPoller{
		store:    store,
		fetch:    fetch,
		interval: interval,
		onLogout: onLogout,
	}
}

// Run blocks until ctx is cancelled. Fetch failures are logged and retried
// on the next tick; the poller never escalates them.
func (p *RestartPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *RestartPoller) poll(ctx context.Context) {
	id, err := p.fetch(ctx)
	if err != nil {
		logging.SessionDebug("health poll failed: %v", err)
		return
	}
	restarted, err := p.store.CheckRestart(id)
	if err != nil {
		logging.SessionDebug("restart check failed: %v", err)
		return
	}
	if restarted && p.onLogout != nil {
		p.onLogout()
	}
}
