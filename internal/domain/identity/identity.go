// Package identity models the caller of an operation. Token verification is
// an upstream concern: by the time a request reaches the domain, it carries
// either a verified user identity or none at all.
package identity

// RoleAdmin marks back-office users allowed to run moderation and
// fulfillment actions.
const RoleAdmin = "admin"

// Identity is the resolved caller of a request. The zero value is an
// anonymous guest.
type Identity struct {
	UserID string
	Role   string
}

// Authenticated reports whether the caller has a verified user account.
func (i Identity) Authenticated() bool { return i.UserID != "" }

// Admin reports whether the caller may perform admin-only operations.
func (i Identity) Admin() bool { return i.Role == RoleAdmin }
