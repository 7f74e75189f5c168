package domain

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManageStock gates restocking and ledger inspection.
func (r Role) CanManageStock() bool {
	return r == RoleManager || r == RoleAdmin
}

// Identity is what the session provider knows about the caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
