package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Actor is the authenticated user acting on a request
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor can see rows owned by other users
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// OwnerScope returns the owner id listings must be restricted to, or "" for admins
func (a Actor) OwnerScope() string {
	if a.IsAdmin() {
		return ""
	}
	return a.UserID
}
