package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // ADMIN, MANAGER, TECHNICIAN
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RoleTechnician = "TECHNICIAN"
)

// Elevated reports whether a role code bypasses job-assignment grants.
func Elevated(roleCode string) bool {
	return roleCode == RoleAdmin || roleCode == RoleManager
}

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Full system access with all privileges",
	},
	{
		Code:        RoleManager,
		Name:        "Production Manager",
		Description: "Manages jobs, assignments and failed-unit dispositions",
	},
	{
		Code:        RoleTechnician,
		Name:        "Technician",
		Description: "Operates workstations on assigned stages",
	},
}
