package model

import "gorm.io/datatypes"

// Currency holds the tenant's display currency code.
type Currency struct {
	ID       uint   `json:"id" gorm:"primarykey"`
	UserID   uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Currency string `json:"currency" gorm:"type:varchar(10);not null"`
}

// General holds the option lists offered in product and employee forms.
type General struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	UserID     uint           `json:"user_id" gorm:"uniqueIndex;not null"`
	Department datatypes.JSON `json:"department"`
	Role       datatypes.JSON `json:"role"`
	Category   datatypes.JSON `json:"category"`
	Size       datatypes.JSON `json:"size"`
	Color      datatypes.JSON `json:"color"`
	Material   datatypes.JSON `json:"material"`
	Weight     datatypes.JSON `json:"weight"`
}

// Term stores the tenant's invoice terms and conditions.
type Term struct {
	ID     uint           `json:"id" gorm:"primarykey"`
	UserID uint           `json:"user_id" gorm:"uniqueIndex;not null"`
	Terms  datatypes.JSON `json:"terms"`
}

// Modules that can be granted to a role.
const (
	ModuleProducts  = "products"
	ModuleCustomers = "customers"
	ModuleInvoices  = "invoices"
	ModuleEmployees = "employees"
	ModuleSettings  = "settings"
)

// Modules lists every module in sidebar order.
var Modules = []string{ModuleProducts, ModuleCustomers, ModuleInvoices, ModuleEmployees, ModuleSettings}

// RolePermission grants a role access to modules.
type RolePermission struct {
	Role           string   `json:"role"`
	AllowedModules []string `json:"allowedModules"`
}

type Permission struct {
	ID          uint                                 `json:"id" gorm:"primarykey"`
	UserID      uint                                 `json:"user_id" gorm:"uniqueIndex;not null"`
	Permissions datatypes.JSONType[[]RolePermission] `json:"permissions"`
}

// Allows reports whether role may open module. Admins may open everything.
func (p *Permission) Allows(role, module string) bool {
	if IsAdminRole(role) {
		return true
	}
	if p == nil {
		return false
	}
	for _, rp := range p.Permissions.Data() {
		if rp.Role != role {
			continue
		}
		for _, m := range rp.AllowedModules {
			if m == module {
				return true
			}
		}
	}
	return false
}

// IsAdminRole reports whether role is the tenant owner role.
func IsAdminRole(role string) bool {
	return role == "admin" || role == "Admin"
}

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Admin{}, &Employee{}, &Customer{}, &Product{}, &Invoice{},
		&Currency{}, &General{}, &Term{}, &Permission{},
	}
}
