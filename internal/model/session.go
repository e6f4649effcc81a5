package model

// Role is the backend-assigned role of the signed-in user.
type Role string

const (
	RoleStudent   Role = "student"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	// RoleDev is the privileged role exempt from the inspection guard.
	RoleDev Role = "dev"
)

// Privileged reports whether the role bypasses the inspection guard.
func (r Role) Privileged() bool {
	return r == RoleDev
}

// CanModerate reports whether the role may act on moderation surfaces.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin || r == RoleDev
}

// Session is the locally persisted auth state, mirroring the browser
// client's local-storage keys.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	Role         Role   `json:"role"`
	SchoolID     int64  `json:"school_id"`
}

// Empty reports whether no user is signed in.
func (s Session) Empty() bool {
	return s.Token == ""
}
