package shared

// Role names stored on users.role.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleClient
}
