package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// MaxUserIDLength matches the user_id columns.
const MaxUserIDLength = 64

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanAccess reports whether the caller may read a record owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	return p.IsAdmin() || (p.UserID != "" && p.UserID == ownerID)
}
