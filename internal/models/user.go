package models

type UserRole string

const (
	UserRoleOwner       UserRole = "owner"
	UserRoleContributor UserRole = "contributor"
)

// Principal is the authenticated caller resolved from the access token.
type Principal struct {
	UserID   string
	TenantID string
	Role     UserRole
}
