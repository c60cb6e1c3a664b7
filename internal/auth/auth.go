// Package auth holds the single capability check every booking-scoped
// operation runs before touching booking data. Admin/owner is a
// capability of the caller, not a role string compared ad hoc in
// handlers.
package auth

// Identity describes an authenticated caller.
type Identity struct {
	UserID  int64
	IsAdmin bool
	Token   string // raw bearer credential, forwarded to collaborator services
}

// IsAuthorized reports whether the caller may act on a resource owned by
// ownerID. Pure function: admins may act on anything, owners on their
// own resources.
func IsAuthorized(callerID int64, callerIsAdmin bool, ownerID int64) bool {
	return callerIsAdmin || callerID == ownerID
}

// CanAccess is the Identity-level convenience over IsAuthorized.
func (id Identity) CanAccess(ownerID int64) bool {
	return IsAuthorized(id.UserID, id.IsAdmin, ownerID)
}
