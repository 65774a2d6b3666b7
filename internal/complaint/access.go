package complaint

import "strings"

// Role is the coarse permission class carried by an authenticated identity.
type Role string

const (
	RoleUser       Role = "USER"
	RoleDepartment Role = "DEPARTMENT"
	RoleAdmin      Role = "ADMIN"
)

// Identity is an authenticated caller, derived from an external credential
// system. Department is meaningful only when Role is RoleDepartment.
type Identity struct {
	UserID     string
	Name       string
	Email      string
	Role       Role
	Department string
}

// CanView reports whether the identity may read the given complaint.
// Users see their own submissions, departments see complaints routed to
// them, admins see everything.
func (id *Identity) CanView(c *Complaint) bool {
	if id == nil {
		return false
	}
	switch id.Role {
	case RoleAdmin:
		return true
	case RoleUser:
		return c.SubmitterID == id.UserID
	case RoleDepartment:
		return id.Department != "" && strings.EqualFold(string(c.Category), id.Department)
	}
	return false
}

// CanResolve reports whether the identity may resolve the given complaint.
// Only a department member whose department owns the complaint qualifies.
func (id *Identity) CanResolve(c *Complaint) bool {
	if id == nil || id.Role != RoleDepartment || id.Department == "" {
		return false
	}
	return strings.EqualFold(string(c.Category), id.Department)
}

// CanReassign reports whether the identity may reassign complaint categories.
func (id *Identity) CanReassign() bool {
	return id != nil && id.Role == RoleAdmin
}
