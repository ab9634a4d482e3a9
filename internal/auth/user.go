package auth

// Role represents user access level
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReadOnly Role = "readonly"
)

// User represents an authenticated API user
type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
