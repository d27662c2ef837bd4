package domain

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// Identity is the verified caller handed over by the auth layer. It is trusted as is.
type Identity struct {
	UserID string `json:"user_id"`
	Roles  []Role `json:"roles"`
}

func (i Identity) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// SystemIdentity acts for background jobs.
func SystemIdentity() Identity {
	return Identity{UserID: SystemActor, Roles: []Role{RoleAdmin}}
}
