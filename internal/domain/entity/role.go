package entity

// Role is a row of the roles lookup table
type Role struct {
	ID       int    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleName string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
}

func (Role) TableName() string {
	return "roles"
}

// Role names carried in the access token
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// IsKnownRole reports whether name is one of the roles this API serves
func IsKnownRole(name string) bool {
	switch name {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}
