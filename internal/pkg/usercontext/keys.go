package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey   = "authenticated"
	KeyUserID = "user_id"
	KeyName   = "name"
	KeyEmail  = "email"
	KeyRole   = "role"
	// KeyRoleCheckedAt holds the unix time the session role was last read from the database
	KeyRoleCheckedAt = "role_checked_at"
	// KeyPendingState is the latest connection attempt started in this session
	KeyPendingState = "pending_oauth_state"

	localsKey = "USER_CONTEXT"
)
