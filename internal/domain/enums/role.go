package enums

type Role string

const (
	RoleNormal    Role = "NORMAL"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleModerator
}
