package utils

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "email"
	UserRoleKey  contextKey = "role"
)

const (
	RoleFarmer   = "FARMER"
	RoleRetailer = "RETAILER"
	RoleAdmin    = "ADMIN"
)
