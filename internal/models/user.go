package models

// UserRole is the role claim carried by tokens of the external auth provider.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleStaff UserRole = "staff"
)
