package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAgent            = "agent"
	RoleSupervisor       = "supervisor"
	RoleAdmin            = "admin"
	RolePlatformOperator = "platform_operator" // hidden role
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsHiddenRole(role string) bool { return role == RolePlatformOperator }
