package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "job:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	{Code: "user:update_privilege", Name: "Update User Privileges"},
	// Catalog (product types and stages)
	{Code: "catalog:view", Name: "View Product Types"},
	{Code: "catalog:manage", Name: "Manage Product Types and Stages"},
	// Job management
	{Code: "job:view", Name: "View Job"},
	{Code: "job:create", Name: "Create Job"},
	{Code: "job:assign", Name: "Manage Job Assignments"},
	// Workstation operations
	{Code: "workstation:operate", Name: "Start/Pass/Fail Products"},
	{Code: "workstation:move", Name: "Move Failed Products"},
	{Code: "workstation:scrap", Name: "Scrap Products"},
	// Reports and dashboard
	{Code: "report:view", Name: "View Reports"},
	{Code: "dashboard:view", Name: "View Dashboard"},
}

// Privilege codes reserved for elevated roles. Technicians get everything else
// relevant to the floor.
var managerOnlyPrivileges = map[string]bool{
	"user:create":           true,
	"user:update":           true,
	"user:delete":           true,
	"user:update_privilege": true,
	"catalog:manage":        true,
	"job:create":            true,
	"job:assign":            true,
	"workstation:move":      true,
}

// TechnicianPrivileges filters the full set down to what a technician may do.
func TechnicianPrivileges(all []Privilege) []Privilege {
	out := []Privilege{}
	for _, p := range all {
		if !managerOnlyPrivileges[p.Code] {
			out = append(out, p)
		}
	}
	return out
}

// ManagerPrivileges excludes only user administration.
func ManagerPrivileges(all []Privilege) []Privilege {
	out := []Privilege{}
	for _, p := range all {
		switch p.Code {
		case "user:create", "user:update", "user:delete", "user:update_privilege":
		default:
			out = append(out, p)
		}
	}
	return out
}
