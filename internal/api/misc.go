package api

import (
	"context"
	"time"

	"forumkit/internal/model"
)

// LoginInput is the credential payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the session material returned on success.
type LoginResult struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	Role         model.Role `json:"role"`
	SchoolID     int64      `json:"school_id"`
}

// Login authenticates and returns the session material to persist.
func (c *Client) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	var out LoginResult
	err := c.post(ctx, "/api/auth/login", in, &out)
	return out, err
}

// Refresh exchanges a refresh token for a new bearer token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	in := map[string]string{"refresh_token": refreshToken}

	var out LoginResult
	err := c.post(ctx, "/api/auth/refresh", in, &out)
	return out, err
}

// ListSchools fetches the campus list used at login.
func (c *Client) ListSchools(ctx context.Context) ([]model.School, error) {
	var out struct {
		Schools []model.School `json:"schools"`
	}
	err := c.get(ctx, "/api/schools", nil, &out)
	return out.Schools, err
}

// HealthStatus is the healthz response. RestartID changes whenever the
// backend process restarts; the session layer uses it to invalidate stale
// sessions.
type HealthStatus struct {
	Status    string `json:"status"`
	RestartID string `json:"restart_id"`
}

// Health fetches the backend health probe.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.get(ctx, "/api/healthz", nil, &out)
	return out, err
}

// RestartID is the fetch function shape the session restart poller wants.
func (c *Client) RestartID(ctx context.Context) (string, error) {
	h, err := c.Health(ctx)
	return h.RestartID, err
}

// ReportGuardEvent notifies the backend that the inspection guard tripped.
// Best effort: failures are logged and swallowed, and the call is bounded
// so a dead backend cannot stall the guard.
func (c *Client) ReportGuardEvent(ctx context.Context, trigger string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body := map[string]string{"trigger": trigger}
	if err := c.post(ctx, "/api/security/devtools_event", body, nil); err != nil {
		c.log.Debug("guard event report failed: %v", err)
	}
}
